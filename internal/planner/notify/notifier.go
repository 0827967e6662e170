// Package notify broadcasts "collection changed" signals between planner
// instances that share the same storage.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection names a mirrored collection.
type Collection string

const (
	Dishes Collection = "dishes"
	Slots  Collection = "slots"
)

// Change says that an owner's collection was written. An empty OwnerID asks
// every listener to reload everything it holds, which is how backends report
// that notifications may have been lost.
type Change struct {
	OwnerID    string     `json:"ownerId"`
	Collection Collection `json:"collection"`
}

// Resync reports whether the change asks for a full reload.
func (c Change) Resync() bool { return c.OwnerID == "" }

// Notifier fans change signals out to every listening instance, including
// the sender.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
	// Listen calls fn for every change until ctx is done.
	Listen(ctx context.Context, fn func(Change)) error
	Close() error
}

func encodeChange(c Change) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode change: %w", err)
	}
	return string(b), nil
}

func decodeChange(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("failed to decode change: %w", err)
	}
	switch c.Collection {
	case Dishes, Slots:
	default:
		return Change{}, fmt.Errorf("unknown collection %q", c.Collection)
	}
	return c, nil
}
