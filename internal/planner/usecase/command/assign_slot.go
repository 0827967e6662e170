package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/fridge-planner/internal/planner/domain"
	"github.com/tair/fridge-planner/pkg/logger"
)

// AssignSlotCommand represents the command to schedule a dish at a meal
type AssignSlotCommand struct {
	Date   string
	Meal   string
	DishID string
	// RejectPast refuses dates before today, as the calendar does for drops.
	RejectPast bool
}

// AssignSlotHandler handles assign slot command
type AssignSlotHandler struct {
	planner    Planner
	now        func() time.Time
	location   *time.Location
	rejectPast bool
}

// NewAssignSlotHandler creates a new assign slot handler
func NewAssignSlotHandler(planner Planner) *AssignSlotHandler {
	return &AssignSlotHandler{planner: planner, now: time.Now, location: time.Local}
}

// RejectPastDates makes every command behave as if RejectPast were set.
func (h *AssignSlotHandler) RejectPastDates() *AssignSlotHandler {
	h.rejectPast = true
	return h
}

// Handle executes the assign slot command
func (h *AssignSlotHandler) Handle(ctx context.Context, cmd AssignSlotCommand) (domain.MealSlot, error) {
	date, err := domain.ParseDate(cmd.Date)
	if err != nil {
		return domain.MealSlot{}, err
	}
	meal, err := domain.ParseMealPeriod(cmd.Meal)
	if err != nil {
		return domain.MealSlot{}, err
	}
	if !meal.Schedulable() {
		return domain.MealSlot{}, fmt.Errorf("%w: %s cannot be scheduled", domain.ErrInvalidMeal, meal)
	}
	if cmd.DishID == "" {
		return domain.MealSlot{}, fmt.Errorf("%w: dish id is required", domain.ErrInvalidDish)
	}
	if (cmd.RejectPast || h.rejectPast) && date.Before(domain.Today(h.now(), h.location)) {
		return domain.MealSlot{}, fmt.Errorf("%w: %s", domain.ErrPastDate, date)
	}

	slot, ok := h.planner.AssignSlot(date, meal, cmd.DishID)
	if !ok {
		return domain.MealSlot{}, fmt.Errorf("failed to assign %s to %s %s: %w", cmd.DishID, date, meal, domain.ErrNotApplied)
	}

	logger.WithContext(ctx).Info().
		Str("slot_id", slot.ID).
		Str("dish_id", slot.DishID).
		Str("date", string(slot.Date)).
		Str("meal", string(slot.Meal)).
		Msg("Slot assigned")
	return slot, nil
}
