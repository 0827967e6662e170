package store

import "github.com/tair/fridge-planner/internal/planner/domain"

// State is one consistent snapshot of an owner's dishes and slots. The
// store never mutates a State it has published; every transition builds a
// new one.
type State struct {
	Dishes []domain.Dish     `json:"dishes"`
	Slots  []domain.MealSlot `json:"slots"`
}

func (s State) clone() State {
	return State{
		Dishes: domain.CloneDishes(s.Dishes),
		Slots:  domain.CloneSlots(s.Slots),
	}
}

func (s State) dishIndex(id string) int {
	for i := range s.Dishes {
		if s.Dishes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) slotIndex(id string) int {
	for i := range s.Slots {
		if s.Slots[i].ID == id {
			return i
		}
	}
	return -1
}

// slotsAt returns the indexes of every slot at (date, meal). More than one
// only happens after a bulk import of inconsistent remote data.
func (s State) slotsAt(date domain.Date, meal domain.MealPeriod) []int {
	var idx []int
	for i := range s.Slots {
		if s.Slots[i].At(date, meal) {
			idx = append(idx, i)
		}
	}
	return idx
}

// withoutSlots returns the slots whose index is not in drop.
func (s State) withoutSlots(drop []int) []domain.MealSlot {
	if len(drop) == 0 {
		return s.Slots
	}
	skip := make(map[int]struct{}, len(drop))
	for _, i := range drop {
		skip[i] = struct{}{}
	}
	kept := make([]domain.MealSlot, 0, len(s.Slots)-len(drop))
	for i, slot := range s.Slots {
		if _, ok := skip[i]; !ok {
			kept = append(kept, slot)
		}
	}
	return kept
}

// Portions is the total stock across all dishes.
func (s State) Portions() int {
	total := 0
	for _, d := range s.Dishes {
		total += d.Quantity
	}
	return total
}

// Orphans returns the slots whose dish no longer exists.
func (s State) Orphans() []domain.MealSlot {
	ids := s.dishIDs()
	var orphans []domain.MealSlot
	for _, slot := range s.Slots {
		if _, ok := ids[slot.DishID]; !ok {
			orphans = append(orphans, slot)
		}
	}
	return orphans
}

// OrphanCount is len(Orphans()) without copying the slots.
func (s State) OrphanCount() int {
	ids := s.dishIDs()
	n := 0
	for _, slot := range s.Slots {
		if _, ok := ids[slot.DishID]; !ok {
			n++
		}
	}
	return n
}

func (s State) dishIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Dishes))
	for _, d := range s.Dishes {
		ids[d.ID] = struct{}{}
	}
	return ids
}
