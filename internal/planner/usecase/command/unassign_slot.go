package command

import (
	"context"
	"fmt"

	"github.com/tair/fridge-planner/internal/planner/domain"
)

// UnassignSlotCommand represents the command to clear a slot
type UnassignSlotCommand struct {
	SlotID string
}

// UnassignSlotHandler handles unassign slot command
type UnassignSlotHandler struct {
	planner Planner
}

// NewUnassignSlotHandler creates a new unassign slot handler
func NewUnassignSlotHandler(planner Planner) *UnassignSlotHandler {
	return &UnassignSlotHandler{planner: planner}
}

// Handle executes the unassign slot command and returns the dish that got
// the portion back.
func (h *UnassignSlotHandler) Handle(_ context.Context, cmd UnassignSlotCommand) (domain.Dish, error) {
	if cmd.SlotID == "" {
		return domain.Dish{}, fmt.Errorf("%w: slot id is required", domain.ErrInvalidDish)
	}

	dish, ok := h.planner.UnassignSlot(cmd.SlotID)
	if !ok {
		return domain.Dish{}, fmt.Errorf("failed to unassign slot %s: %w", cmd.SlotID, domain.ErrNotApplied)
	}
	return dish, nil
}
