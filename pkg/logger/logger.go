// Package logger holds the process-wide zerolog logger and helpers that tag
// entries with a component or the active trace.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Logger discards everything until Init runs, so packages can log from
// tests without setup.
var Logger = zerolog.Nop()

// New builds a service logger writing JSON lines to out, or colored console
// lines when pretty is set.
func New(out io.Writer, service string, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Init installs a stdout logger for service. Development mode pretty prints.
func Init(service string, development bool) {
	Use(New(os.Stdout, service, development))
}

// Use replaces the process-wide logger, including zerolog's log.Logger.
func Use(l zerolog.Logger) {
	Logger = l
	log.Logger = l
}

// Component returns a child of Logger tagged with a component name
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithContext returns Logger tagged with the trace and span ids of ctx, if
// it carries a valid span.
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Logger
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		l = l.With().
			Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String()).
			Logger()
	}
	return &l
}

// SetLevel sets the global level from a zerolog level name. Empty or
// unknown names mean info.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
