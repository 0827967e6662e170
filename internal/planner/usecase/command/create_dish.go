package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tair/fridge-planner/internal/planner/domain"
	"github.com/tair/fridge-planner/pkg/logger"
)

// CreateDishCommand represents the command to add a dish to the fridge
type CreateDishCommand struct {
	ID           string
	Name         string
	Quantity     *int
	DefaultYield *int
	Tags         []string
	Color        domain.Color
}

// CreateDishHandler handles create dish command
type CreateDishHandler struct {
	planner Planner
	newID   func() string
}

// NewCreateDishHandler creates a new create dish handler
func NewCreateDishHandler(planner Planner) *CreateDishHandler {
	return &CreateDishHandler{planner: planner, newID: uuid.NewString}
}

// Handle executes the create dish command. Unset fields take the dish
// form's defaults: one portion, a default yield equal to the quantity,
// no tags, orange.
func (h *CreateDishHandler) Handle(ctx context.Context, cmd CreateDishCommand) (domain.Dish, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.Dish{}, fmt.Errorf("%w: name is required", domain.ErrInvalidDish)
	}

	quantity := 1
	if cmd.Quantity != nil {
		quantity = *cmd.Quantity
	}
	if quantity < 0 {
		return domain.Dish{}, fmt.Errorf("%w: quantity cannot be negative", domain.ErrInvalidDish)
	}

	yield := quantity
	if cmd.DefaultYield != nil {
		yield = *cmd.DefaultYield
	}
	if yield < 0 {
		return domain.Dish{}, fmt.Errorf("%w: default yield cannot be negative", domain.ErrInvalidDish)
	}

	color := cmd.Color.OrDefault()
	if !color.Valid() {
		return domain.Dish{}, fmt.Errorf("%w: unknown color %q", domain.ErrInvalidDish, cmd.Color)
	}

	id := cmd.ID
	if id == "" {
		id = h.newID()
	}

	dish := domain.Dish{
		ID:           id,
		Name:         name,
		Quantity:     quantity,
		DefaultYield: yield,
		Tags:         normalizeTags(cmd.Tags),
		Color:        color,
	}
	if !h.planner.CreateDish(dish) {
		return domain.Dish{}, fmt.Errorf("failed to create dish %s: %w", id, domain.ErrNotApplied)
	}

	logger.WithContext(ctx).Info().
		Str("dish_id", dish.ID).
		Int("quantity", dish.Quantity).
		Msg("Dish created")
	return dish, nil
}

// normalizeTags trims tags and drops empty and repeated ones.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
