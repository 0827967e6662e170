package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for slots.
const DateLayout = "2006-01-02"

// Date is a calendar day without time of day, formatted YYYY-MM-DD.
type Date string

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Time returns the date at midnight UTC. Invalid dates yield the zero time.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// MealPeriod is the meal a slot belongs to.
type MealPeriod string

const (
	MealBreakfast MealPeriod = "breakfast"
	MealLunch     MealPeriod = "lunch"
	MealDinner    MealPeriod = "dinner"
	MealSnack     MealPeriod = "snack"
)

// SchedulableMeals are the periods the calendar assigns dishes to.
var SchedulableMeals = []MealPeriod{MealLunch, MealDinner}

// ParseMealPeriod validates s as a meal period.
func ParseMealPeriod(s string) (MealPeriod, error) {
	switch m := MealPeriod(s); m {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMeal, s)
}

// Schedulable reports whether dishes can be assigned to m.
func (m MealPeriod) Schedulable() bool {
	return m == MealLunch || m == MealDinner
}

// SlotType distinguishes a freshly assigned meal from a leftover.
type SlotType string

const (
	SlotTypeMeal     SlotType = "meal"
	SlotTypeLeftover SlotType = "leftover"
)

// MealSlot assigns a dish to a (date, meal) pair. DishName and DishColor
// are copied from the dish at assignment time so the slot stays usable
// after the dish is deleted.
type MealSlot struct {
	ID        string     `json:"id"`
	Date      Date       `json:"date"`
	Meal      MealPeriod `json:"meal"`
	DishID    string     `json:"dishId"`
	Type      SlotType   `json:"type"`
	DishName  string     `json:"dishName"`
	DishColor Color      `json:"dishColor"`
}

// At reports whether the slot occupies the given pair.
func (s MealSlot) At(date Date, meal MealPeriod) bool {
	return s.Date == date && s.Meal == meal
}

// SnapshotDish rebuilds a dish from the slot's saved fields.
func (s MealSlot) SnapshotDish() Dish {
	return Dish{
		ID:           s.DishID,
		Name:         s.DishName,
		Quantity:     1,
		DefaultYield: 1,
		Tags:         []string{},
		Color:        s.DishColor,
	}
}

// CloneSlots copies a slot collection.
func CloneSlots(slots []MealSlot) []MealSlot {
	return append([]MealSlot(nil), slots...)
}
