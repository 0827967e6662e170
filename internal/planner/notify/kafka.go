package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tair/fridge-planner/kafka"
)

// Kafka signals changes as events on the planner-changes topic.
type Kafka struct {
	publisher *kafka.Publisher
	consumer  *kafka.Consumer
	log       zerolog.Logger
}

// NewKafka creates a notifier from a publisher and a consumer subscribed to
// kafka.TopicPlannerChanges.
func NewKafka(publisher *kafka.Publisher, consumer *kafka.Consumer, log zerolog.Logger) *Kafka {
	return &Kafka{publisher: publisher, consumer: consumer, log: log}
}

// Notify publishes the change event.
func (k *Kafka) Notify(ctx context.Context, change Change) error {
	return k.publisher.PublishChange(ctx, kafka.ChangeEvent{
		OwnerID:    change.OwnerID,
		Collection: string(change.Collection),
	})
}

// Listen blocks until ctx is done.
func (k *Kafka) Listen(ctx context.Context, fn func(Change)) error {
	handle := func(_ context.Context, e kafka.ChangeEvent) error {
		fn(Change{OwnerID: e.OwnerID, Collection: Collection(e.Collection)})
		return nil
	}
	k.consumer.RegisterHandler(kafka.EventTypeDishesChanged, handle)
	k.consumer.RegisterHandler(kafka.EventTypeSlotsChanged, handle)

	if err := k.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	k.log.Info().Str("topic", kafka.TopicPlannerChanges).Msg("Listening for changes")
	<-ctx.Done()
	return nil
}

// Close closes both Kafka clients.
func (k *Kafka) Close() error {
	perr := k.publisher.Close()
	cerr := k.consumer.Close()
	if perr != nil {
		return perr
	}
	return cerr
}
