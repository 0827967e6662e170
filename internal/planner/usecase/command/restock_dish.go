package command

import (
	"context"
	"fmt"

	"github.com/tair/fridge-planner/internal/planner/domain"
)

// RestockDishCommand represents the command to cook a dish again
type RestockDishCommand struct {
	ID string
}

// RestockDishHandler handles restock dish command
type RestockDishHandler struct {
	planner Planner
}

// NewRestockDishHandler creates a new restock dish handler
func NewRestockDishHandler(planner Planner) *RestockDishHandler {
	return &RestockDishHandler{planner: planner}
}

// Handle executes the restock dish command
func (h *RestockDishHandler) Handle(_ context.Context, cmd RestockDishCommand) (domain.Dish, error) {
	if cmd.ID == "" {
		return domain.Dish{}, fmt.Errorf("%w: id is required", domain.ErrInvalidDish)
	}

	dish, ok := h.planner.RestockDish(cmd.ID)
	if !ok {
		return domain.Dish{}, fmt.Errorf("failed to restock dish %s: %w", cmd.ID, domain.ErrNotApplied)
	}
	return dish, nil
}
