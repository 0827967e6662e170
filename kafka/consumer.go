package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/fridge-planner/pkg/logger"
)

var (
	errMissingEventType = errors.New("message without event_type header")
	errNoHandler        = errors.New("no handler registered")
)

// EventHandler handles one decoded change event.
type EventHandler func(ctx context.Context, event ChangeEvent) error

// Consumer reads change events from a consumer group and dispatches them by
// event type.
type Consumer struct {
	group   sarama.ConsumerGroup
	groupID string
	topics  []string

	mu       sync.RWMutex
	handlers map[string]EventHandler

	wg sync.WaitGroup
}

// consumerConfig starts new groups at the newest offset: a change signal
// older than the process is already reflected in storage.
func consumerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true
	return config
}

// NewConsumer joins groupID on brokers. Every planner instance should use
// its own group so each one sees every change.
func NewConsumer(brokers []string, groupID string, topics []string) (*Consumer, error) {
	group, err := sarama.NewConsumerGroup(brokers, groupID, consumerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("group_id", groupID).
		Strs("topics", topics).
		Msg("Kafka consumer initialized")
	return newConsumer(group, groupID, topics), nil
}

func newConsumer(group sarama.ConsumerGroup, groupID string, topics []string) *Consumer {
	return &Consumer{
		group:    group,
		groupID:  groupID,
		topics:   topics,
		handlers: make(map[string]EventHandler),
	}
}

// RegisterHandler routes events of eventType to handler
func (c *Consumer) RegisterHandler(eventType string, handler EventHandler) {
	c.mu.Lock()
	c.handlers[eventType] = handler
	c.mu.Unlock()
}

func (c *Consumer) handler(eventType string) (EventHandler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[eventType]
	return h, ok
}

// Start consumes in the background until ctx is done or Close is called.
func (c *Consumer) Start(ctx context.Context) error {
	c.wg.Add(2)
	go c.consume(ctx)
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			logger.Logger.Error().Err(err).Str("group_id", c.groupID).Msg("Consumer error")
		}
	}()

	logger.Logger.Info().
		Strs("topics", c.topics).
		Str("group_id", c.groupID).
		Msg("Kafka consumer started")
	return nil
}

// consume rejoins the group after every rebalance.
func (c *Consumer) consume(ctx context.Context) {
	defer c.wg.Done()
	handler := groupHandler{consumer: c}
	for {
		err := c.group.Consume(ctx, c.topics, handler)
		switch {
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return
		case err != nil:
			logger.Logger.Error().Err(err).Msg("Error from consumer")
		}
		if ctx.Err() != nil {
			logger.Logger.Info().Msg("Consumer context cancelled, stopping")
			return
		}
	}
}

// Close leaves the group and waits for the consumer goroutines
func (c *Consumer) Close() error {
	if c.group == nil {
		return nil
	}
	err := c.group.Close()
	c.wg.Wait()
	return err
}

// groupHandler implements sarama.ConsumerGroupHandler
type groupHandler struct {
	consumer *Consumer
}

func (groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks every message, handled or not: a lost change signal is
// superseded by the next one for the same collection.
func (h groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		_ = h.consumer.handleMessage(session.Context(), message)
		session.MarkMessage(message, "")
	}
	return nil
}

// handleMessage decodes and dispatches one message inside a consumer span
// linked to the publisher's trace.
func (c *Consumer) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	carrier := propagation.MapCarrier{}
	var eventType, eventID string
	for _, header := range message.Headers {
		key, value := string(header.Key), string(header.Value)
		switch key {
		case headerEventType:
			eventType = value
		case headerEventID:
			eventID = value
		case "traceparent", "tracestate", "baggage":
			carrier[key] = value
		}
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	ctx, span := otel.Tracer("kafka-consumer").Start(ctx, "kafka.process "+message.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", message.Topic),
			attribute.Int("messaging.kafka.destination.partition", int(message.Partition)),
			attribute.Int64("messaging.kafka.message.offset", message.Offset),
			attribute.String("messaging.message.id", eventID),
		),
	)
	defer span.End()
	log := logger.WithContext(ctx).With().Str("event_type", eventType).Str("event_id", eventID).Logger()

	if eventType == "" {
		log.Warn().Msg("Message without event type")
		return failSpan(span, errMissingEventType)
	}

	handle, ok := c.handler(eventType)
	if !ok {
		log.Warn().Msg("No handler registered for event type")
		return failSpan(span, fmt.Errorf("%w for %s", errNoHandler, eventType))
	}

	var event ChangeEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal event")
		return failSpan(span, fmt.Errorf("failed to unmarshal event: %w", err))
	}
	span.SetAttributes(
		attribute.String("owner.id", event.OwnerID),
		attribute.String("planner.collection", event.Collection),
	)

	if err := handle(ctx, event); err != nil {
		log.Error().Err(err).Str("owner_id", event.OwnerID).Msg("Failed to handle event")
		return failSpan(span, err)
	}

	log.Debug().Str("owner_id", event.OwnerID).Msg("Event handled")
	return nil
}
