// Package config loads the planner service configuration from an optional
// YAML file overlaid with environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tair/fridge-planner/pkg/database"
)

// Mirror backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Change notifiers
const (
	NotifierLocal    = "local"
	NotifierPostgres = "postgres"
	NotifierRedis    = "redis"
	NotifierKafka    = "kafka"
)

// Config is the full service configuration.
type Config struct {
	Service struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		LogLevel    string `yaml:"log_level"`
	} `yaml:"service"`

	HTTP struct {
		Port           string `yaml:"port"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		// RateLimit is the per-client budget of API requests per minute,
		// shared through Redis. 0 disables limiting.
		RateLimit int `yaml:"rate_limit_per_minute"`
	} `yaml:"http"`

	Planner struct {
		OwnerID         string `yaml:"owner_id"`
		RejectPastDrops bool   `yaml:"reject_past_drops"`
	} `yaml:"planner"`

	Mirror struct {
		Backend        string `yaml:"backend"`
		Notifier       string `yaml:"notifier"`
		OutboxAttempts int    `yaml:"outbox_attempts"`
		OutboxBackoff  int    `yaml:"outbox_backoff_ms"`
	} `yaml:"mirror"`

	Database struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		GroupID string   `yaml:"group_id"`
	} `yaml:"kafka"`

	Tracing struct {
		Enabled        bool    `yaml:"enabled"`
		JaegerEndpoint string  `yaml:"jaeger_endpoint"`
		SampleRatio    float64 `yaml:"sample_ratio"`
	} `yaml:"tracing"`
}

// Load reads path when it is not empty, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the config file named by PLANNER_CONFIG, or the first of
// planner.yaml and planner.yml that exists, or "".
func Path() string {
	if path := os.Getenv("PLANNER_CONFIG"); path != "" {
		return path
	}
	for _, loc := range []string{"planner.yaml", "planner.yml"} {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

func (c *Config) applyEnv() {
	c.Service.Name = getEnv("OTEL_SERVICE_NAME", c.Service.Name)
	c.Service.Environment = getEnv("ENVIRONMENT", c.Service.Environment)
	c.Service.LogLevel = getEnv("LOG_LEVEL", c.Service.LogLevel)

	c.HTTP.Port = getEnv("HTTP_PORT", c.HTTP.Port)
	c.HTTP.RateLimit = getEnvInt("HTTP_RATE_LIMIT", c.HTTP.RateLimit)
	c.Planner.OwnerID = getEnv("OWNER_ID", c.Planner.OwnerID)
	c.Planner.RejectPastDrops = getEnvBool("REJECT_PAST_DROPS", c.Planner.RejectPastDrops)

	c.Mirror.Backend = getEnv("MIRROR_BACKEND", c.Mirror.Backend)
	c.Mirror.Notifier = getEnv("MIRROR_NOTIFIER", c.Mirror.Notifier)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	c.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", c.Kafka.GroupID)

	c.Tracing.Enabled = getEnvBool("TRACING_ENABLED", c.Tracing.Enabled)
	c.Tracing.JaegerEndpoint = getEnv("JAEGER_ENDPOINT", c.Tracing.JaegerEndpoint)
}

func (c *Config) applyDefaults() {
	setDefault(&c.Service.Name, "planner-service")
	setDefault(&c.Service.Environment, "development")
	setDefault(&c.Service.LogLevel, "info")
	setDefault(&c.HTTP.Port, "8080")
	if c.HTTP.TimeoutSeconds == 0 {
		c.HTTP.TimeoutSeconds = 30
	}
	setDefault(&c.Planner.OwnerID, "default")
	setDefault(&c.Mirror.Backend, BackendMemory)
	if c.Mirror.Notifier == "" {
		if c.Mirror.Backend == BackendPostgres {
			c.Mirror.Notifier = NotifierPostgres
		} else {
			c.Mirror.Notifier = NotifierLocal
		}
	}
	if c.Mirror.OutboxAttempts == 0 {
		c.Mirror.OutboxAttempts = 3
	}
	if c.Mirror.OutboxBackoff == 0 {
		c.Mirror.OutboxBackoff = 200
	}
	setDefault(&c.Database.Host, "localhost")
	setDefault(&c.Database.Port, "5432")
	setDefault(&c.Database.User, "postgres")
	setDefault(&c.Database.Password, "postgres")
	setDefault(&c.Database.Name, "plannerdb")
	setDefault(&c.Database.SSLMode, "disable")
	setDefault(&c.Redis.Addr, "localhost:6379")
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.GroupID == "" {
		host, _ := os.Hostname()
		c.Kafka.GroupID = "planner-" + host
	}
	setDefault(&c.Tracing.JaegerEndpoint, "http://localhost:14268/api/traces")
}

// Validate checks enum values and required fields.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mirror.Backend {
	case BackendMemory, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("mirror.backend must be %q or %q, got %q", BackendMemory, BackendPostgres, c.Mirror.Backend))
	}

	switch c.Mirror.Notifier {
	case NotifierLocal, NotifierPostgres, NotifierRedis, NotifierKafka:
	default:
		errs = append(errs, fmt.Errorf("mirror.notifier %q is not supported", c.Mirror.Notifier))
	}
	if c.Mirror.Backend == BackendMemory && c.Mirror.Notifier != NotifierLocal {
		errs = append(errs, errors.New("mirror.notifier must be local with the memory backend"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be between 0 and 1, got %v", c.Tracing.SampleRatio))
	}
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, errors.New("http.rate_limit_per_minute must not be negative"))
	}
	if c.Mirror.OutboxAttempts < 1 {
		errs = append(errs, errors.New("mirror.outbox_attempts must be at least 1"))
	}

	if strings.TrimSpace(c.Planner.OwnerID) == "" {
		errs = append(errs, errors.New("planner.owner_id is required"))
	}
	if _, err := strconv.Atoi(c.HTTP.Port); err != nil {
		errs = append(errs, fmt.Errorf("http.port must be numeric, got %q", c.HTTP.Port))
	}
	if c.Mirror.Notifier == NotifierKafka && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required with the kafka notifier"))
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Service.Environment == "development"
}

// HTTPTimeout is the per-request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// OutboxBackoff is the base delay between mirror write attempts.
func (c *Config) OutboxBackoff() time.Duration {
	return time.Duration(c.Mirror.OutboxBackoff) * time.Millisecond
}

// DatabaseConfig converts the database section for pkg/database.
func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		DBName:   c.Database.Name,
		SSLMode:  c.Database.SSLMode,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
