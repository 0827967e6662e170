package command

import "github.com/tair/fridge-planner/internal/planner/domain"

// Planner is the part of the store the command handlers drive.
type Planner interface {
	CreateDish(dish domain.Dish) bool
	UpdateDish(id string, patch domain.DishPatch) (domain.Dish, bool)
	DeleteDish(id string) bool
	RestockDish(id string) (domain.Dish, bool)
	AssignSlot(date domain.Date, meal domain.MealPeriod, dishID string) (domain.MealSlot, bool)
	UnassignSlot(slotID string) (domain.Dish, bool)
}
