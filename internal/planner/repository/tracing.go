package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/fridge-planner/internal/planner/domain"
)

var tracer = otel.Tracer("planner-repository")

// TracedRecordRepository wraps a RecordRepository with tracing
type TracedRecordRepository struct {
	next RecordRepository
}

// NewTracedRecordRepository creates a new repository with tracing
func NewTracedRecordRepository(next RecordRepository) *TracedRecordRepository {
	return &TracedRecordRepository{next: next}
}

// ListDishes with tracing
func (r *TracedRecordRepository) ListDishes(ctx context.Context, ownerID string) ([]domain.Dish, error) {
	ctx, span := tracer.Start(ctx, "repository.ListDishes",
		trace.WithAttributes(attribute.String("owner.id", ownerID)),
	)
	defer span.End()

	dishes, err := r.next.ListDishes(ctx, ownerID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(dishes)))
	return dishes, nil
}

// ListSlots with tracing
func (r *TracedRecordRepository) ListSlots(ctx context.Context, ownerID string) ([]domain.MealSlot, error) {
	ctx, span := tracer.Start(ctx, "repository.ListSlots",
		trace.WithAttributes(attribute.String("owner.id", ownerID)),
	)
	defer span.End()

	slots, err := r.next.ListSlots(ctx, ownerID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(slots)))
	return slots, nil
}

// SaveDish with tracing
func (r *TracedRecordRepository) SaveDish(ctx context.Context, ownerID string, dish domain.Dish) error {
	ctx, span := tracer.Start(ctx, "repository.SaveDish",
		trace.WithAttributes(
			attribute.String("owner.id", ownerID),
			attribute.String("dish.id", dish.ID),
			attribute.Int("dish.quantity", dish.Quantity),
		),
	)
	defer span.End()

	if err := r.next.SaveDish(ctx, ownerID, dish); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

// DeleteDish with tracing
func (r *TracedRecordRepository) DeleteDish(ctx context.Context, ownerID, id string) error {
	ctx, span := tracer.Start(ctx, "repository.DeleteDish",
		trace.WithAttributes(
			attribute.String("owner.id", ownerID),
			attribute.String("dish.id", id),
		),
	)
	defer span.End()

	if err := r.next.DeleteDish(ctx, ownerID, id); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

// SaveSlot with tracing
func (r *TracedRecordRepository) SaveSlot(ctx context.Context, ownerID string, slot domain.MealSlot) error {
	ctx, span := tracer.Start(ctx, "repository.SaveSlot",
		trace.WithAttributes(
			attribute.String("owner.id", ownerID),
			attribute.String("slot.id", slot.ID),
			attribute.String("slot.date", string(slot.Date)),
			attribute.String("slot.meal", string(slot.Meal)),
			attribute.String("dish.id", slot.DishID),
		),
	)
	defer span.End()

	if err := r.next.SaveSlot(ctx, ownerID, slot); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

// DeleteSlot with tracing
func (r *TracedRecordRepository) DeleteSlot(ctx context.Context, ownerID, id string) error {
	ctx, span := tracer.Start(ctx, "repository.DeleteSlot",
		trace.WithAttributes(
			attribute.String("owner.id", ownerID),
			attribute.String("slot.id", id),
		),
	)
	defer span.End()

	if err := r.next.DeleteSlot(ctx, ownerID, id); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
