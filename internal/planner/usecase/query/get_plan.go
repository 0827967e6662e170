package query

import (
	"context"
	"time"

	"github.com/tair/fridge-planner/internal/planner/domain"
	"github.com/tair/fridge-planner/internal/planner/store"
)

// DeletedDishName labels a cell whose dish is gone and whose slot kept no
// name.
const DeletedDishName = "Deleted dish"

// PlanReader is the read side of the store used by GetPlan.
type PlanReader interface {
	Snapshot() store.State
}

// GetPlanQuery represents the query for the two-week calendar
type GetPlanQuery struct {
	// Start is any day of the first week; empty means today.
	Start string
}

// Plan is the calendar for a planning window.
type Plan struct {
	Start domain.Date `json:"start"`
	End   domain.Date `json:"end"`
	Today domain.Date `json:"today"`
	Days  []PlanDay   `json:"days"`
}

// PlanDay is one calendar column.
type PlanDay struct {
	Date    domain.Date `json:"date"`
	Weekday string      `json:"weekday"`
	Past    bool        `json:"past"`
	Today   bool        `json:"today"`
	Lunch   *PlanCell   `json:"lunch"`
	Dinner  *PlanCell   `json:"dinner"`
}

// PlanCell is a filled meal cell.
type PlanCell struct {
	SlotID   string          `json:"slotId"`
	DishID   string          `json:"dishId"`
	DishName string          `json:"dishName"`
	Type     domain.SlotType `json:"type"`
	Shade    domain.Shade    `json:"shade"`
	Orphan   bool            `json:"orphan"`
}

// GetPlanHandler handles get plan query
type GetPlanHandler struct {
	reader   PlanReader
	resolver *domain.Resolver
	now      func() time.Time
	location *time.Location
}

// NewGetPlanHandler creates a new get plan handler
func NewGetPlanHandler(reader PlanReader, resolver *domain.Resolver) *GetPlanHandler {
	return &GetPlanHandler{reader: reader, resolver: resolver, now: time.Now, location: time.Local}
}

// Handle executes the get plan query
func (h *GetPlanHandler) Handle(_ context.Context, q GetPlanQuery) (Plan, error) {
	today := domain.Today(h.now(), h.location)
	anchor := today
	if q.Start != "" {
		d, err := domain.ParseDate(q.Start)
		if err != nil {
			return Plan{}, err
		}
		anchor = d
	}

	state := h.reader.Snapshot()
	dishes := make(map[string]domain.Dish, len(state.Dishes))
	for _, d := range state.Dishes {
		dishes[d.ID] = d
	}

	window := domain.PlanningWindow(anchor)
	plan := Plan{
		Start: window[0],
		End:   window[len(window)-1],
		Today: today,
		Days:  make([]PlanDay, len(window)),
	}
	for i, date := range window {
		plan.Days[i] = PlanDay{
			Date:    date,
			Weekday: date.Time().Weekday().String(),
			Past:    date.Before(today),
			Today:   date == today,
			Lunch:   h.cell(state.Slots, dishes, date, domain.MealLunch),
			Dinner:  h.cell(state.Slots, dishes, date, domain.MealDinner),
		}
	}
	return plan, nil
}

// cell renders the first slot at the pair. A live dish supplies the name
// and shade; otherwise the slot's snapshot is shown grayed.
func (h *GetPlanHandler) cell(slots []domain.MealSlot, dishes map[string]domain.Dish, date domain.Date, meal domain.MealPeriod) *PlanCell {
	for _, s := range slots {
		if !s.At(date, meal) {
			continue
		}
		c := &PlanCell{SlotID: s.ID, DishID: s.DishID, Type: s.Type}

		dish, live := dishes[s.DishID]
		if live {
			c.Shade = h.resolver.Resolve(dish)
		} else {
			c.Orphan = true
			c.Shade = h.resolver.Resolve(domain.Dish{
				ID:    s.DishID,
				Name:  s.DishName,
				Color: s.DishColor.OrDefault(),
			})
		}

		switch {
		case live && dish.Name != "":
			c.DishName = dish.Name
		case s.DishName != "":
			c.DishName = s.DishName
		default:
			c.DishName = DeletedDishName
		}
		return c
	}
	return nil
}
