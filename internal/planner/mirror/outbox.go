package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tair/fridge-planner/internal/planner/domain"
)

// OutboxConfig tunes how writes are delivered to the mirror.
type OutboxConfig struct {
	Attempts int           // delivery attempts per write
	Backoff  time.Duration // base delay between attempts, multiplied by the attempt number
	Timeout  time.Duration // per-attempt timeout
}

// DefaultOutboxConfig returns default outbox configuration
func DefaultOutboxConfig() OutboxConfig {
	return OutboxConfig{
		Attempts: 3,
		Backoff:  200 * time.Millisecond,
		Timeout:  10 * time.Second,
	}
}

// Outbox delivers store writes to a mirror in commit order on a background
// goroutine. Write never blocks, so the store can call it while holding its
// lock even when the mirror pushes snapshots back into the same store.
type Outbox struct {
	mirror domain.Mirror
	owner  string
	cfg    OutboxConfig
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	pending     []domain.Write
	outstanding int
	closed      bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewOutbox starts an outbox delivering ownerID's writes to m.
func NewOutbox(m domain.Mirror, ownerID string, cfg OutboxConfig, log zerolog.Logger) *Outbox {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultOutboxConfig().Timeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Outbox{
		mirror: m,
		owner:  ownerID,
		cfg:    cfg,
		log:    log.With().Str("owner_id", ownerID).Logger(),
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go o.run()
	return o
}

// Write queues writes for delivery. Writes queued after Close are dropped.
func (o *Outbox) Write(writes ...domain.Write) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.log.Warn().Int("writes", len(writes)).Msg("Outbox closed, dropping writes")
		return
	}
	o.pending = append(o.pending, writes...)
	o.outstanding += len(writes)
	o.mu.Unlock()

	o.signal()
}

func (o *Outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of writes not yet delivered or dropped.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outstanding
}

// Flush waits until every queued write has been handled or ctx is done.
func (o *Outbox) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if o.Pending() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close delivers what is already queued and stops the outbox.
func (o *Outbox) Close() {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.mu.Unlock()
		o.signal()
		<-o.done
		o.cancel()
	})
}

func (o *Outbox) run() {
	defer close(o.done)
	for {
		o.mu.Lock()
		batch := o.pending
		o.pending = nil
		closed := o.closed
		o.mu.Unlock()

		for _, w := range batch {
			o.deliver(w)
			o.mu.Lock()
			o.outstanding--
			o.mu.Unlock()
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-o.wake
	}
}

func (o *Outbox) deliver(w domain.Write) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.Attempts; attempt++ {
		ctx, cancel := context.WithTimeout(o.ctx, o.cfg.Timeout)
		err := w.ApplyTo(ctx, o.mirror, o.owner)
		cancel()
		if err == nil {
			o.log.Debug().
				Str("write", w.String()).
				Int("attempt", attempt).
				Msg("Mirror write delivered")
			return
		}

		lastErr = err
		o.log.Warn().
			Err(err).
			Str("write", w.String()).
			Int("attempt", attempt).
			Msg("Mirror write failed")

		if attempt < o.cfg.Attempts && o.cfg.Backoff > 0 {
			time.Sleep(o.cfg.Backoff * time.Duration(attempt))
		}
	}

	o.log.Error().
		Err(lastErr).
		Str("write", w.String()).
		Int("attempts", o.cfg.Attempts).
		Msg("Dropping mirror write after retries")
}
