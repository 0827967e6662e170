package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisChannel is the pub/sub channel used for change signals.
const RedisChannel = "planner:changes"

// Redis signals changes over Redis pub/sub.
type Redis struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

// NewRedis creates a notifier on client.
func NewRedis(client *redis.Client, log zerolog.Logger) *Redis {
	return &Redis{client: client, channel: RedisChannel, log: log}
}

// Notify publishes the change.
func (r *Redis) Notify(ctx context.Context, change Change) error {
	payload, err := encodeChange(change)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Listen blocks until ctx is done.
func (r *Redis) Listen(ctx context.Context, fn func(Change)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.log.Info().Str("channel", r.channel).Msg("Listening for changes")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			change, err := decodeChange(msg.Payload)
			if err != nil {
				r.log.Warn().Err(err).Str("payload", msg.Payload).Msg("Dropping malformed notification")
				continue
			}
			fn(change)
		}
	}
}

// Close closes the Redis client.
func (r *Redis) Close() error { return r.client.Close() }
