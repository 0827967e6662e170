// Package planner assembles the planner service: the store session, its
// mirror backend and the HTTP API.
package planner

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/tair/fridge-planner/internal/config"
	httpDelivery "github.com/tair/fridge-planner/internal/planner/delivery/http"
	"github.com/tair/fridge-planner/internal/planner/domain"
	"github.com/tair/fridge-planner/internal/planner/mirror"
	"github.com/tair/fridge-planner/internal/planner/notify"
	"github.com/tair/fridge-planner/internal/planner/repository"
	"github.com/tair/fridge-planner/internal/planner/store"
	"github.com/tair/fridge-planner/internal/planner/usecase/command"
	"github.com/tair/fridge-planner/kafka"
	"github.com/tair/fridge-planner/pkg/database"
	"github.com/tair/fridge-planner/pkg/logger"
)

// App is a fully wired planner instance.
type App struct {
	Config   *config.Config
	Backend  *Backend
	Session  *mirror.Session
	Queries  httpDelivery.Queries
	Router   http.Handler
	Registry *prometheus.Registry
}

// Backend is the mirror the session synchronizes with.
type Backend struct {
	Mirror domain.Mirror
	Health httpDelivery.HealthCheck
	listen func(ctx context.Context) error
}

// Listen receives changes made by other instances until ctx is done. The
// memory backend has no other instances and just waits.
func (b *Backend) Listen(ctx context.Context) error {
	if b.listen == nil {
		<-ctx.Done()
		return nil
	}
	return b.listen(ctx)
}

// ProvideBackend opens the configured mirror backend
func ProvideBackend(cfg *config.Config) (*Backend, func(), error) {
	if cfg.Mirror.Backend != config.BackendPostgres {
		logger.Logger.Info().Msg("Using in-memory mirror")
		return &Backend{Mirror: mirror.NewMemory()}, func() {}, nil
	}

	db, err := database.NewGormConnection(cfg.DatabaseConfig())
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	notifier, closeNotifier, err := ProvideNotifier(cfg)
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}

	records := repository.NewTracedRecordRepository(repository.NewGormRecordRepository(db))
	remote := repository.NewRemoteMirror(records, notifier, logger.Component("mirror"))

	cleanup := func() {
		if err := remote.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to close mirror")
		}
		closeNotifier()
		if err := sqlDB.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to close database")
		}
	}

	return &Backend{Mirror: remote, Health: sqlDB.PingContext, listen: remote.Start}, cleanup, nil
}

// ProvideNotifier creates the change notifier named by the config. The
// returned function releases resources the notifier does not own.
func ProvideNotifier(cfg *config.Config) (notify.Notifier, func(), error) {
	log := logger.Component("notifier")
	log.Info().Str("notifier", cfg.Mirror.Notifier).Msg("Creating change notifier")

	switch cfg.Mirror.Notifier {
	case config.NotifierPostgres:
		dbConfig := cfg.DatabaseConfig()
		db, err := database.NewPostgresConnection(dbConfig)
		if err != nil {
			return nil, nil, err
		}
		return notify.NewPostgres(db, dbConfig.DSN(), log), func() { db.Close() }, nil

	case config.NotifierRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return notify.NewRedis(client, log), func() {}, nil

	case config.NotifierKafka:
		publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers)
		if err != nil {
			return nil, nil, err
		}
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, []string{kafka.TopicPlannerChanges})
		if err != nil {
			publisher.Close()
			return nil, nil, err
		}
		return notify.NewKafka(publisher, consumer, log), func() {}, nil

	default:
		return notify.NewLocal(), func() {}, nil
	}
}

// ProvideRegistry creates the registry served on /metrics
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideStoreMetrics provides the store collectors
func ProvideStoreMetrics(reg prometheus.Registerer) *store.Metrics {
	return store.NewMetrics(reg)
}

// ProvideSession opens the owner's store against the backend mirror
func ProvideSession(cfg *config.Config, backend *Backend, metrics *store.Metrics) (*mirror.Session, func()) {
	outbox := mirror.DefaultOutboxConfig()
	outbox.Attempts = cfg.Mirror.OutboxAttempts
	outbox.Backoff = cfg.OutboxBackoff()

	session := mirror.Open(cfg.Planner.OwnerID, backend.Mirror, outbox,
		logger.Component("mirror"),
		store.WithLogger(logger.Component("store")),
		store.WithMetrics(metrics),
	)
	return session, session.Close
}

// ProvideStore exposes the session's store to the use cases
func ProvideStore(session *mirror.Session) *store.Store {
	return session.Store
}

// ProvideResolver provides the color resolver
func ProvideResolver() *domain.Resolver {
	return domain.NewResolver(logger.Component("colors"))
}

// ProvideAssignSlotHandler applies the configured past-date policy
func ProvideAssignSlotHandler(planner command.Planner, cfg *config.Config) *command.AssignSlotHandler {
	h := command.NewAssignSlotHandler(planner)
	if cfg.Planner.RejectPastDrops {
		h.RejectPastDates()
	}
	return h
}

// ProvideHealthCheck checks the backend's database, when there is one
func ProvideHealthCheck(backend *Backend) httpDelivery.HealthCheck {
	return backend.Health
}

// ProvideRateLimiter provides the Redis-backed API rate limiter, or nil when
// rate limiting is disabled
func ProvideRateLimiter(cfg *config.Config) (httpDelivery.Limiter, func()) {
	if cfg.HTTP.RateLimit == 0 {
		return nil, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Logger.Info().
		Int("requests_per_minute", cfg.HTTP.RateLimit).
		Str("redis", cfg.Redis.Addr).
		Msg("Rate limiting enabled")

	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to close rate limiter client")
		}
	}
	return httpDelivery.NewRedisLimiter(client, cfg.HTTP.RateLimit, time.Minute), cleanup
}

// ProvideMiddlewareConfig provides the HTTP middleware configuration
func ProvideMiddlewareConfig(cfg *config.Config, limiter httpDelivery.Limiter) *httpDelivery.MiddlewareConfig {
	mc := httpDelivery.DefaultMiddlewareConfig()
	mc.TimeoutDuration = cfg.HTTPTimeout()
	mc.EnableTracing = cfg.Tracing.Enabled
	mc.RateLimiter = limiter
	return mc
}

// Migrate creates or updates the planner tables of the postgres backend.
func Migrate(cfg *config.Config) error {
	db, err := database.NewGormConnection(cfg.DatabaseConfig())
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	if err := repository.NewGormRecordRepository(db).AutoMigrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Logger.Info().Msg("Database migrated successfully")
	return nil
}
