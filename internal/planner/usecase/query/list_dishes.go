package query

import (
	"context"
	"strings"

	"github.com/tair/fridge-planner/internal/planner/domain"
)

// DishReader is the read side of the store used by ListDishes.
type DishReader interface {
	Dishes() []domain.Dish
}

// ListDishesQuery represents the query to list the fridge
type ListDishesQuery struct {
	// Filter is an optional boolean expression over name, quantity,
	// defaultYield, tags and color, e.g. `quantity > 0 and "veggie" in tags`.
	Filter string
}

// DishView is a dish with its display shade.
type DishView struct {
	domain.Dish
	Shade domain.Shade `json:"shade"`
}

// ListDishesHandler handles list dishes query
type ListDishesHandler struct {
	reader   DishReader
	resolver *domain.Resolver
	filters  *FilterCache
}

// NewListDishesHandler creates a new list dishes handler
func NewListDishesHandler(reader DishReader, resolver *domain.Resolver, filters *FilterCache) *ListDishesHandler {
	return &ListDishesHandler{reader: reader, resolver: resolver, filters: filters}
}

// Handle executes the list dishes query. Dishes keep store order.
func (h *ListDishesHandler) Handle(_ context.Context, q ListDishesQuery) ([]DishView, error) {
	dishes := h.reader.Dishes()

	filter := strings.TrimSpace(q.Filter)
	views := make([]DishView, 0, len(dishes))
	if filter == "" {
		for _, d := range dishes {
			views = append(views, h.view(d))
		}
		return views, nil
	}

	program, err := h.filters.Compile(filter)
	if err != nil {
		return nil, err
	}
	for _, d := range dishes {
		ok, err := matches(program, d)
		if err != nil {
			return nil, err
		}
		if ok {
			views = append(views, h.view(d))
		}
	}
	return views, nil
}

func (h *ListDishesHandler) view(d domain.Dish) DishView {
	return DishView{Dish: d, Shade: h.resolver.Resolve(d)}
}
