package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestPublishChange(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event ChangeEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.OwnerID != "u1" || event.Collection != "slots" {
			return errors.New("unexpected event payload")
		}
		if event.EventType != EventTypeSlotsChanged || event.EventID == "" || event.Timestamp.IsZero() {
			return errors.New("event metadata not set")
		}
		return nil
	})

	p := NewPublisherWithProducer(producer)
	require.NoError(t, p.PublishChange(context.Background(), ChangeEvent{OwnerID: "u1", Collection: "slots"}))
	require.NoError(t, p.Close())
}

func TestPublishChangeFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewPublisherWithProducer(producer)
	err := p.PublishChange(context.Background(), ChangeEvent{OwnerID: "u1", Collection: "dishes"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestEventTypeFor(t *testing.T) {
	assert.Equal(t, EventTypeDishesChanged, EventTypeFor("dishes"))
	assert.Equal(t, EventTypeSlotsChanged, EventTypeFor("slots"))
}

func message(t *testing.T, eventType string, event ChangeEvent) *sarama.ConsumerMessage {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	msg := &sarama.ConsumerMessage{Topic: TopicPlannerChanges, Value: body}
	if eventType != "" {
		msg.Headers = []*sarama.RecordHeader{
			{Key: []byte(headerEventType), Value: []byte(eventType)},
			{Key: []byte(headerEventID), Value: []byte("evt_1")},
		}
	}
	return msg
}

func TestHandleMessageDispatches(t *testing.T) {
	c := newConsumer(nil, "g", []string{TopicPlannerChanges})
	var got []ChangeEvent
	c.RegisterHandler(EventTypeDishesChanged, func(_ context.Context, e ChangeEvent) error {
		got = append(got, e)
		return nil
	})

	err := c.handleMessage(context.Background(), message(t, EventTypeDishesChanged, ChangeEvent{OwnerID: "u1", Collection: "dishes"}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].OwnerID)
}

func TestHandleMessageRejects(t *testing.T) {
	c := newConsumer(nil, "g", nil)
	handlerErr := errors.New("reload failed")
	c.RegisterHandler(EventTypeSlotsChanged, func(context.Context, ChangeEvent) error { return handlerErr })
	ctx := context.Background()

	assert.ErrorIs(t, c.handleMessage(ctx, message(t, "", ChangeEvent{})), errMissingEventType)
	assert.ErrorIs(t, c.handleMessage(ctx, message(t, EventTypeDishesChanged, ChangeEvent{})), errNoHandler)
	assert.ErrorIs(t, c.handleMessage(ctx, message(t, EventTypeSlotsChanged, ChangeEvent{})), handlerErr)

	broken := &sarama.ConsumerMessage{
		Value:   []byte("{"),
		Headers: []*sarama.RecordHeader{{Key: []byte(headerEventType), Value: []byte(EventTypeSlotsChanged)}},
	}
	assert.Error(t, c.handleMessage(ctx, broken))
}

func TestMessageHeadersCarryTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{9},
		SpanID:     trace.SpanID{7},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := messageHeaders(ctx, ChangeEvent{EventID: "evt_1", EventType: EventTypeDishesChanged})
	got := make(map[string]string, len(headers))
	for _, h := range headers {
		got[string(h.Key)] = string(h.Value)
	}
	assert.Equal(t, EventTypeDishesChanged, got[headerEventType])
	assert.Equal(t, "evt_1", got[headerEventID])
	assert.Contains(t, got["traceparent"], sc.TraceID().String())
}
