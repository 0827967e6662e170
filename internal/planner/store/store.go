// Package store keeps an owner's fridge stock and meal calendar consistent.
//
// Every mutation is a single snapshot-to-snapshot transition: the new state
// is built aside and swapped in whole, together with the mirror writes that
// describe it. Operations that cannot apply (unknown id, empty stock, and so
// on) leave the state untouched and report false; nothing is ever half
// applied.
package store

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tair/fridge-planner/internal/planner/domain"
	"github.com/tair/fridge-planner/pkg/logger"
)

// Writer receives the mirror writes of each committed transition, in commit
// order. It must not block for long: the store calls it while holding its
// lock.
type Writer interface {
	Write(writes ...domain.Write)
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(writes ...domain.Write)

// Write calls f.
func (f WriterFunc) Write(writes ...domain.Write) { f(writes...) }

// Discard drops every write.
var Discard Writer = WriterFunc(func(...domain.Write) {})

// Store owns the authoritative in-memory dishes and slots of one owner.
type Store struct {
	owner   string
	writer  Writer
	log     zerolog.Logger
	metrics *Metrics
	newID   func() string

	mu    sync.RWMutex
	state State
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithMetrics records store activity on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithIDGenerator overrides how slot ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates an empty store for ownerID. A nil writer discards writes.
func New(ownerID string, writer Writer, opts ...Option) *Store {
	if writer == nil {
		writer = Discard
	}
	s := &Store{
		owner:  ownerID,
		writer: writer,
		log:    logger.Component("store"),
		newID:  uuid.NewString,
		state:  State{Dishes: []domain.Dish{}, Slots: []domain.MealSlot{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("owner_id", ownerID).Logger()
	return s
}

// Owner returns the owner id the store was created for.
func (s *Store) Owner() string { return s.owner }

// commit publishes next and hands its writes to the writer. Callers hold mu.
func (s *Store) commit(op string, next State, writes []domain.Write) {
	s.state = next
	if len(writes) > 0 {
		s.writer.Write(writes...)
	}
	s.metrics.observe(op, true)
	s.metrics.observeState(next)
	s.log.Debug().
		Str("operation", op).
		Int("writes", len(writes)).
		Int("dishes", len(next.Dishes)).
		Int("slots", len(next.Slots)).
		Msg("Store transition committed")
}

func (s *Store) noop(op, reason string) bool {
	s.metrics.observe(op, false)
	s.log.Debug().
		Str("operation", op).
		Str("reason", reason).
		Msg("Store operation had no effect")
	return false
}

// ReplaceAllDishes overwrites the dish collection with a remote snapshot.
// The snapshot is trusted and issues no writes.
func (s *Store) ReplaceAllDishes(dishes []domain.Dish) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := State{Dishes: domain.CloneDishes(dishes), Slots: s.state.Slots}
	s.state = next
	s.metrics.observeSnapshot("dishes")
	s.metrics.observeState(next)
	s.log.Debug().Int("dishes", len(dishes)).Msg("Dish snapshot applied")
}

// ReplaceAllSlots overwrites the slot collection with a remote snapshot.
func (s *Store) ReplaceAllSlots(slots []domain.MealSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := State{Dishes: s.state.Dishes, Slots: domain.CloneSlots(slots)}
	s.state = next
	s.metrics.observeSnapshot("slots")
	s.metrics.observeState(next)
	s.log.Debug().Int("slots", len(slots)).Msg("Slot snapshot applied")
}

// CreateDish adds a new dish. The id must be fresh and the stock
// non-negative.
func (s *Store) CreateDish(dish domain.Dish) bool {
	const op = "create_dish"
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case dish.ID == "":
		return s.noop(op, "empty id")
	case dish.Quantity < 0 || dish.DefaultYield < 0:
		return s.noop(op, "negative quantity")
	case s.state.dishIndex(dish.ID) >= 0:
		return s.noop(op, "duplicate id")
	}

	next := s.state.clone()
	created := dish.Clone()
	next.Dishes = append(next.Dishes, created)

	s.commit(op, next, []domain.Write{domain.PutDishWrite(created)})
	return true
}

// UpdateDish merges patch into the current record of dish id and persists
// the merged record as a whole.
func (s *Store) UpdateDish(id string, patch domain.DishPatch) (domain.Dish, bool) {
	const op = "update_dish"
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.state.dishIndex(id)
	if i < 0 {
		return domain.Dish{}, s.noop(op, "dish not found")
	}

	merged := patch.Apply(s.state.Dishes[i])
	if merged.Quantity < 0 || merged.DefaultYield < 0 {
		return domain.Dish{}, s.noop(op, "negative quantity")
	}

	next := s.state.clone()
	next.Dishes[i] = merged

	s.commit(op, next, []domain.Write{domain.PutDishWrite(merged)})
	return merged.Clone(), true
}

// DeleteDish removes dish id. Slots referencing it are kept as they are:
// their snapshot fields make them self-sufficient.
func (s *Store) DeleteDish(id string) bool {
	const op = "delete_dish"
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.state.dishIndex(id)
	if i < 0 {
		return s.noop(op, "dish not found")
	}

	next := s.state.clone()
	next.Dishes = append(next.Dishes[:i], next.Dishes[i+1:]...)

	s.commit(op, next, []domain.Write{domain.DeleteDishWrite(id)})
	return true
}

// RestockDish resets the stock of dish id to its default yield, or 1 when
// it has none.
func (s *Store) RestockDish(id string) (domain.Dish, bool) {
	const op = "restock_dish"
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.state.dishIndex(id)
	if i < 0 {
		return domain.Dish{}, s.noop(op, "dish not found")
	}

	next := s.state.clone()
	next.Dishes[i].Quantity = next.Dishes[i].RestockQuantity()
	restocked := next.Dishes[i]

	s.commit(op, next, []domain.Write{domain.PutDishWrite(restocked)})
	return restocked.Clone(), true
}

// AssignSlot schedules one portion of dish dishID at (date, meal).
//
// A slot already at that pair is released first: its portion goes back to
// its dish when that dish still exists, and is dropped otherwise. Unlike
// UnassignSlot, releasing a slot here never recreates a deleted dish.
//
// Writes, in order: the decremented dish, the restored previous dish when
// it differs, the removal of the previous slot, the new slot.
func (s *Store) AssignSlot(date domain.Date, meal domain.MealPeriod, dishID string) (domain.MealSlot, bool) {
	const op = "assign_slot"
	s.mu.Lock()
	defer s.mu.Unlock()

	if !meal.Schedulable() {
		return domain.MealSlot{}, s.noop(op, "meal not schedulable")
	}

	di := s.state.dishIndex(dishID)
	if di < 0 {
		return domain.MealSlot{}, s.noop(op, "dish not found")
	}
	if !s.state.Dishes[di].InStock() {
		return domain.MealSlot{}, s.noop(op, "dish out of stock")
	}

	next := s.state.clone()

	var (
		restored      []int
		releasedSlots []string
	)
	occupied := next.slotsAt(date, meal)
	for _, pi := range occupied {
		prev := next.Slots[pi]
		releasedSlots = append(releasedSlots, prev.ID)
		ri := next.dishIndex(prev.DishID)
		if ri < 0 {
			s.log.Debug().
				Str("slot_id", prev.ID).
				Str("dish_id", prev.DishID).
				Msg("Released slot references a deleted dish, portion dropped")
			continue
		}
		next.Dishes[ri].Quantity++
		restored = append(restored, ri)
	}
	next.Slots = next.withoutSlots(occupied)

	next.Dishes[di].Quantity--
	dish := next.Dishes[di]

	slot := domain.MealSlot{
		ID:        s.newID(),
		Date:      date,
		Meal:      meal,
		DishID:    dish.ID,
		Type:      domain.SlotTypeMeal,
		DishName:  dish.Name,
		DishColor: dish.Color.OrDefault(),
	}
	next.Slots = append(next.Slots, slot)

	writes := []domain.Write{domain.PutDishWrite(dish)}
	written := map[int]bool{di: true}
	for _, ri := range restored {
		if written[ri] {
			continue
		}
		written[ri] = true
		writes = append(writes, domain.PutDishWrite(next.Dishes[ri]))
	}
	for _, id := range releasedSlots {
		writes = append(writes, domain.DeleteSlotWrite(id))
	}
	writes = append(writes, domain.PutSlotWrite(slot))

	s.commit(op, next, writes)
	return slot, true
}

// UnassignSlot removes slot slotID and returns its portion to stock. When
// the dish was deleted in the meantime it is recreated from the slot's
// snapshot with a single portion, so the portion is not lost.
func (s *Store) UnassignSlot(slotID string) (domain.Dish, bool) {
	const op = "unassign_slot"
	s.mu.Lock()
	defer s.mu.Unlock()

	si := s.state.slotIndex(slotID)
	if si < 0 {
		return domain.Dish{}, s.noop(op, "slot not found")
	}

	next := s.state.clone()
	slot := next.Slots[si]

	var dish domain.Dish
	if di := next.dishIndex(slot.DishID); di >= 0 {
		next.Dishes[di].Quantity++
		dish = next.Dishes[di]
	} else {
		dish = slot.SnapshotDish()
		next.Dishes = append(next.Dishes, dish)
		s.log.Info().
			Str("slot_id", slot.ID).
			Str("dish_id", dish.ID).
			Str("dish_name", dish.Name).
			Msg("Recreated deleted dish from slot snapshot")
	}
	next.Slots = next.withoutSlots([]int{si})

	s.commit(op, next, []domain.Write{
		domain.PutDishWrite(dish),
		domain.DeleteSlotWrite(slot.ID),
	})
	return dish.Clone(), true
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Dishes returns a copy of the dish collection in display order.
func (s *Store) Dishes() []domain.Dish {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneDishes(s.state.Dishes)
}

// Slots returns a copy of the slot collection.
func (s *Store) Slots() []domain.MealSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneSlots(s.state.Slots)
}

// Dish looks up a dish by id.
func (s *Store) Dish(id string) (domain.Dish, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.state.dishIndex(id); i >= 0 {
		return s.state.Dishes[i].Clone(), true
	}
	return domain.Dish{}, false
}

// Slot looks up a slot by id.
func (s *Store) Slot(id string) (domain.MealSlot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.state.slotIndex(id); i >= 0 {
		return s.state.Slots[i], true
	}
	return domain.MealSlot{}, false
}

// SlotAt returns the slot at (date, meal), if any.
func (s *Store) SlotAt(date domain.Date, meal domain.MealPeriod) (domain.MealSlot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.state.slotsAt(date, meal); len(idx) > 0 {
		return s.state.Slots[idx[0]], true
	}
	return domain.MealSlot{}, false
}

// Orphans returns the slots whose dish no longer exists.
func (s *Store) Orphans() []domain.MealSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Orphans()
}
