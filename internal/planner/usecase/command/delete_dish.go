package command

import (
	"context"
	"fmt"

	"github.com/tair/fridge-planner/internal/planner/domain"
)

// DeleteDishCommand represents the command to remove a dish
type DeleteDishCommand struct {
	ID string
}

// DeleteDishHandler handles delete dish command
type DeleteDishHandler struct {
	planner Planner
}

// NewDeleteDishHandler creates a new delete dish handler
func NewDeleteDishHandler(planner Planner) *DeleteDishHandler {
	return &DeleteDishHandler{planner: planner}
}

// Handle executes the delete dish command. Slots that reference the dish
// are left in place.
func (h *DeleteDishHandler) Handle(_ context.Context, cmd DeleteDishCommand) error {
	if cmd.ID == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidDish)
	}

	if !h.planner.DeleteDish(cmd.ID) {
		return fmt.Errorf("failed to delete dish %s: %w", cmd.ID, domain.ErrNotApplied)
	}
	return nil
}
