package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/tair/fridge-planner/internal/planner/domain"
)

// UpdateDishCommand represents the command to edit a dish
type UpdateDishCommand struct {
	ID    string
	Patch domain.DishPatch
}

// UpdateDishHandler handles update dish command
type UpdateDishHandler struct {
	planner Planner
}

// NewUpdateDishHandler creates a new update dish handler
func NewUpdateDishHandler(planner Planner) *UpdateDishHandler {
	return &UpdateDishHandler{planner: planner}
}

// Handle executes the update dish command
func (h *UpdateDishHandler) Handle(_ context.Context, cmd UpdateDishCommand) (domain.Dish, error) {
	if cmd.ID == "" {
		return domain.Dish{}, fmt.Errorf("%w: id is required", domain.ErrInvalidDish)
	}

	patch := cmd.Patch
	if patch.Empty() {
		return domain.Dish{}, fmt.Errorf("%w: nothing to update", domain.ErrInvalidDish)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.Dish{}, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidDish)
		}
		patch.Name = &name
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return domain.Dish{}, fmt.Errorf("%w: quantity cannot be negative", domain.ErrInvalidDish)
	}
	if patch.DefaultYield != nil && *patch.DefaultYield < 0 {
		return domain.Dish{}, fmt.Errorf("%w: default yield cannot be negative", domain.ErrInvalidDish)
	}
	if patch.Color != nil && !patch.Color.Valid() {
		return domain.Dish{}, fmt.Errorf("%w: unknown color %q", domain.ErrInvalidDish, *patch.Color)
	}
	if patch.Tags != nil {
		tags := normalizeTags(*patch.Tags)
		patch.Tags = &tags
	}

	dish, ok := h.planner.UpdateDish(cmd.ID, patch)
	if !ok {
		return domain.Dish{}, fmt.Errorf("failed to update dish %s: %w", cmd.ID, domain.ErrNotApplied)
	}
	return dish, nil
}
