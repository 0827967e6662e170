package mirror

import (
	"context"
	"sync"

	"github.com/tair/fridge-planner/internal/planner/domain"
)

var _ domain.Mirror = (*Memory)(nil)

// Memory is an in-process Mirror. Every change pushes the owner's whole
// collection to its subscribers, synchronously and outside the lock.
type Memory struct {
	mu     sync.Mutex
	owners map[string]*memoryOwner
	nextID int
}

type memoryOwner struct {
	dishes   []domain.Dish
	slots    []domain.MealSlot
	dishSubs map[int]func([]domain.Dish)
	slotSubs map[int]func([]domain.MealSlot)
}

// NewMemory creates an empty in-memory mirror.
func NewMemory() *Memory {
	return &Memory{owners: make(map[string]*memoryOwner)}
}

func (m *Memory) owner(id string) *memoryOwner {
	o, ok := m.owners[id]
	if !ok {
		o = &memoryOwner{
			dishes:   []domain.Dish{},
			slots:    []domain.MealSlot{},
			dishSubs: make(map[int]func([]domain.Dish)),
			slotSubs: make(map[int]func([]domain.MealSlot)),
		}
		m.owners[id] = o
	}
	return o
}

// SubscribeDishes registers onSnapshot and pushes the current dishes to it.
func (m *Memory) SubscribeDishes(ownerID string, onSnapshot func([]domain.Dish)) func() {
	m.mu.Lock()
	o := m.owner(ownerID)
	m.nextID++
	id := m.nextID
	o.dishSubs[id] = onSnapshot
	current := domain.CloneDishes(o.dishes)
	m.mu.Unlock()

	onSnapshot(current)

	return func() {
		m.mu.Lock()
		delete(o.dishSubs, id)
		m.mu.Unlock()
	}
}

// SubscribeSlots registers onSnapshot and pushes the current slots to it.
func (m *Memory) SubscribeSlots(ownerID string, onSnapshot func([]domain.MealSlot)) func() {
	m.mu.Lock()
	o := m.owner(ownerID)
	m.nextID++
	id := m.nextID
	o.slotSubs[id] = onSnapshot
	current := domain.CloneSlots(o.slots)
	m.mu.Unlock()

	onSnapshot(current)

	return func() {
		m.mu.Lock()
		delete(o.slotSubs, id)
		m.mu.Unlock()
	}
}

// PutDish upserts dish by id.
func (m *Memory) PutDish(ctx context.Context, ownerID string, dish domain.Dish) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	o := m.owner(ownerID)
	replaced := false
	for i := range o.dishes {
		if o.dishes[i].ID == dish.ID {
			o.dishes[i] = dish.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		o.dishes = append(o.dishes, dish.Clone())
	}
	m.mu.Unlock()

	m.pushDishes(ownerID)
	return nil
}

// DeleteDish removes dish id. Deleting a missing dish succeeds silently.
func (m *Memory) DeleteDish(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	o := m.owner(ownerID)
	removed := false
	for i := range o.dishes {
		if o.dishes[i].ID == id {
			o.dishes = append(o.dishes[:i:i], o.dishes[i+1:]...)
			removed = true
			break
		}
	}
	m.mu.Unlock()

	if removed {
		m.pushDishes(ownerID)
	}
	return nil
}

// PutSlot upserts slot by id.
func (m *Memory) PutSlot(ctx context.Context, ownerID string, slot domain.MealSlot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	o := m.owner(ownerID)
	replaced := false
	for i := range o.slots {
		if o.slots[i].ID == slot.ID {
			o.slots[i] = slot
			replaced = true
			break
		}
	}
	if !replaced {
		o.slots = append(o.slots, slot)
	}
	m.mu.Unlock()

	m.pushSlots(ownerID)
	return nil
}

// DeleteSlot removes slot id. Deleting a missing slot succeeds silently.
func (m *Memory) DeleteSlot(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	o := m.owner(ownerID)
	removed := false
	for i := range o.slots {
		if o.slots[i].ID == id {
			o.slots = append(o.slots[:i:i], o.slots[i+1:]...)
			removed = true
			break
		}
	}
	m.mu.Unlock()

	if removed {
		m.pushSlots(ownerID)
	}
	return nil
}

// Dishes returns a copy of the dishes stored for ownerID.
func (m *Memory) Dishes(ownerID string) []domain.Dish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.CloneDishes(m.owner(ownerID).dishes)
}

// Slots returns a copy of the slots stored for ownerID.
func (m *Memory) Slots(ownerID string) []domain.MealSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.CloneSlots(m.owner(ownerID).slots)
}

func (m *Memory) pushDishes(ownerID string) {
	m.mu.Lock()
	o := m.owner(ownerID)
	subs := make([]func([]domain.Dish), 0, len(o.dishSubs))
	for _, fn := range o.dishSubs {
		subs = append(subs, fn)
	}
	snapshot := domain.CloneDishes(o.dishes)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(domain.CloneDishes(snapshot))
	}
}

func (m *Memory) pushSlots(ownerID string) {
	m.mu.Lock()
	o := m.owner(ownerID)
	subs := make([]func([]domain.MealSlot), 0, len(o.slotSubs))
	for _, fn := range o.slotSubs {
		subs = append(subs, fn)
	}
	snapshot := domain.CloneSlots(o.slots)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(domain.CloneSlots(snapshot))
	}
}
