package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/fridge-planner/pkg/logger"
)

// Publisher sends planner change events to Kafka.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

// producerConfig waits for every in-sync replica so a change signal is not
// lost when a broker fails over.
func producerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	return config
}

// NewPublisher connects a synchronous producer to brokers
func NewPublisher(brokers []string) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("topic", TopicPlannerChanges).
		Msg("Kafka publisher initialized")
	return NewPublisherWithProducer(producer), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(producer sarama.SyncProducer) *Publisher {
	return &Publisher{producer: producer, topic: TopicPlannerChanges, now: time.Now}
}

// PublishChange stamps and sends event. Messages are keyed by owner so one
// owner's changes stay ordered within a partition.
func (p *Publisher) PublishChange(ctx context.Context, event ChangeEvent) error {
	ctx, span := otel.Tracer("kafka-publisher").Start(ctx, "kafka.publish "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", p.topic),
			attribute.String("owner.id", event.OwnerID),
			attribute.String("planner.collection", event.Collection),
		),
	)
	defer span.End()

	if event.EventID == "" {
		event.EventID = "evt_" + uuid.NewString()
	}
	event.EventType = EventTypeFor(event.Collection)
	event.Timestamp = p.now()
	span.SetAttributes(attribute.String("messaging.message.id", event.EventID))

	value, err := json.Marshal(event)
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to marshal event: %w", err))
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder("owner_" + event.OwnerID),
		Value:   sarama.ByteEncoder(value),
		Headers: messageHeaders(ctx, event),
	})
	if err != nil {
		logger.WithContext(ctx).Error().
			Err(err).
			Str("topic", p.topic).
			Str("owner_id", event.OwnerID).
			Msg("Failed to publish change event")
		return failSpan(span, fmt.Errorf("failed to send message to Kafka: %w", err))
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.destination.partition", int(partition)),
		attribute.Int64("messaging.kafka.message.offset", offset),
	)
	logger.WithContext(ctx).Debug().
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Change event published")
	return nil
}

// messageHeaders carries the event type for dispatch and the trace context
// for the consumer's span.
func messageHeaders(ctx context.Context, event ChangeEvent) []sarama.RecordHeader {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := make([]sarama.RecordHeader, 0, len(carrier)+2)
	headers = append(headers,
		sarama.RecordHeader{Key: []byte(headerEventType), Value: []byte(event.EventType)},
		sarama.RecordHeader{Key: []byte(headerEventID), Value: []byte(event.EventID)},
	)
	for key, value := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
	}
	return headers
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Close closes the producer
func (p *Publisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
