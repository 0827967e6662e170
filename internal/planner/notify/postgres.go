package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// PostgresChannel is the LISTEN/NOTIFY channel used for change signals.
const PostgresChannel = "planner_changes"

const postgresPingInterval = 90 * time.Second

// Postgres signals changes with NOTIFY and receives them with a dedicated
// pq listener connection.
type Postgres struct {
	db      *sql.DB
	dsn     string
	channel string
	log     zerolog.Logger
}

// NewPostgres sends through db and listens on a separate connection to dsn.
func NewPostgres(db *sql.DB, dsn string, log zerolog.Logger) *Postgres {
	return &Postgres{db: db, dsn: dsn, channel: PostgresChannel, log: log}
}

// Notify sends the change to every listener on the channel.
func (p *Postgres) Notify(ctx context.Context, change Change) error {
	payload, err := encodeChange(change)
	if err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", p.channel, payload); err != nil {
		return fmt.Errorf("failed to notify: %w", err)
	}
	return nil
}

// Listen blocks until ctx is done. A reconnect is reported as a resync
// because notifications sent while disconnected are lost.
func (p *Postgres) Listen(ctx context.Context, fn func(Change)) error {
	listener := pq.NewListener(p.dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			p.log.Warn().Err(err).Int("event", int(ev)).Msg("Postgres listener event")
		}
	})
	defer listener.Close()

	if err := listener.Listen(p.channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", p.channel, err)
	}
	p.log.Info().Str("channel", p.channel).Msg("Listening for changes")

	ticker := time.NewTicker(postgresPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				fn(Change{})
				continue
			}
			change, err := decodeChange(n.Extra)
			if err != nil {
				p.log.Warn().Err(err).Str("payload", n.Extra).Msg("Dropping malformed notification")
				continue
			}
			fn(change)
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				p.log.Warn().Err(err).Msg("Postgres listener ping failed")
			}
		}
	}
}

// Close is a no-op; the database handle belongs to the caller.
func (p *Postgres) Close() error { return nil }
