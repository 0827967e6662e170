package domain

import (
	"context"
	"fmt"
)

// Mirror is the remote replica of an owner's dishes and slots. Writes are
// upserts or deletes by id; subscriptions push the whole collection on
// every change, starting with the current contents.
type Mirror interface {
	SubscribeDishes(ownerID string, onSnapshot func([]Dish)) (unsubscribe func())
	SubscribeSlots(ownerID string, onSnapshot func([]MealSlot)) (unsubscribe func())
	PutDish(ctx context.Context, ownerID string, dish Dish) error
	DeleteDish(ctx context.Context, ownerID, id string) error
	PutSlot(ctx context.Context, ownerID string, slot MealSlot) error
	DeleteSlot(ctx context.Context, ownerID, id string) error
}

// WriteKind identifies a mirror write.
type WriteKind string

const (
	WritePutDish    WriteKind = "put_dish"
	WriteDeleteDish WriteKind = "delete_dish"
	WritePutSlot    WriteKind = "put_slot"
	WriteDeleteSlot WriteKind = "delete_slot"
)

// Write is one mirror write produced by a store transition. Dish is set for
// WritePutDish, Slot for WritePutSlot, ID for the deletes.
type Write struct {
	Kind WriteKind
	ID   string
	Dish *Dish
	Slot *MealSlot
}

// PutDishWrite builds a dish upsert.
func PutDishWrite(d Dish) Write {
	c := d.Clone()
	return Write{Kind: WritePutDish, ID: d.ID, Dish: &c}
}

// DeleteDishWrite builds a dish removal.
func DeleteDishWrite(id string) Write {
	return Write{Kind: WriteDeleteDish, ID: id}
}

// PutSlotWrite builds a slot upsert.
func PutSlotWrite(s MealSlot) Write {
	c := s
	return Write{Kind: WritePutSlot, ID: s.ID, Slot: &c}
}

// DeleteSlotWrite builds a slot removal.
func DeleteSlotWrite(id string) Write {
	return Write{Kind: WriteDeleteSlot, ID: id}
}

// ApplyTo performs the write against m.
func (w Write) ApplyTo(ctx context.Context, m Mirror, ownerID string) error {
	switch w.Kind {
	case WritePutDish:
		if w.Dish == nil {
			return fmt.Errorf("put_dish write without dish")
		}
		return m.PutDish(ctx, ownerID, *w.Dish)
	case WriteDeleteDish:
		return m.DeleteDish(ctx, ownerID, w.ID)
	case WritePutSlot:
		if w.Slot == nil {
			return fmt.Errorf("put_slot write without slot")
		}
		return m.PutSlot(ctx, ownerID, *w.Slot)
	case WriteDeleteSlot:
		return m.DeleteSlot(ctx, ownerID, w.ID)
	default:
		return fmt.Errorf("unknown write kind %q", w.Kind)
	}
}

func (w Write) String() string {
	return fmt.Sprintf("%s(%s)", w.Kind, w.ID)
}
