package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tair/fridge-planner/internal/planner/domain"
	"github.com/tair/fridge-planner/internal/planner/notify"
)

const defaultLoadTimeout = 10 * time.Second

// RemoteMirror is a domain.Mirror backed by a shared database. Writes go to
// the repository and are announced through the notifier; every instance
// reloads the announced collection and pushes it to its subscribers.
type RemoteMirror struct {
	repo        RecordRepository
	notifier    notify.Notifier
	log         zerolog.Logger
	loadTimeout time.Duration

	mu       sync.Mutex
	nextID   int
	dishSubs map[string]map[int]func([]domain.Dish)
	slotSubs map[string]map[int]func([]domain.MealSlot)

	// refreshMu keeps load-then-push sequences from interleaving, so an
	// older load is never pushed after a newer one.
	refreshMu sync.Mutex
}

// NewRemoteMirror creates a mirror over repo and notifier. Call Start to
// receive changes made by other instances.
func NewRemoteMirror(repo RecordRepository, notifier notify.Notifier, log zerolog.Logger) *RemoteMirror {
	return &RemoteMirror{
		repo:        repo,
		notifier:    notifier,
		log:         log,
		loadTimeout: defaultLoadTimeout,
		dishSubs:    make(map[string]map[int]func([]domain.Dish)),
		slotSubs:    make(map[string]map[int]func([]domain.MealSlot)),
	}
}

// Start listens for change signals until ctx is done.
func (r *RemoteMirror) Start(ctx context.Context) error {
	return r.notifier.Listen(ctx, r.handleChange)
}

func (r *RemoteMirror) handleChange(change notify.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), r.loadTimeout)
	defer cancel()

	if change.Resync() {
		for _, owner := range r.owners() {
			r.refresh(ctx, owner, notify.Dishes)
			r.refresh(ctx, owner, notify.Slots)
		}
		return
	}
	r.refresh(ctx, change.OwnerID, change.Collection)
}

// SubscribeDishes registers fn and pushes the owner's current dishes to it
// before returning.
func (r *RemoteMirror) SubscribeDishes(ownerID string, fn func([]domain.Dish)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	if r.dishSubs[ownerID] == nil {
		r.dishSubs[ownerID] = make(map[int]func([]domain.Dish))
	}
	r.dishSubs[ownerID][id] = fn
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.loadTimeout)
	defer cancel()
	r.refreshMu.Lock()
	if dishes, err := r.repo.ListDishes(ctx, ownerID); err != nil {
		r.log.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to load dishes")
	} else {
		fn(dishes)
	}
	r.refreshMu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.dishSubs[ownerID], id)
		if len(r.dishSubs[ownerID]) == 0 {
			delete(r.dishSubs, ownerID)
		}
	}
}

// SubscribeSlots registers fn and pushes the owner's current slots to it
// before returning.
func (r *RemoteMirror) SubscribeSlots(ownerID string, fn func([]domain.MealSlot)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	if r.slotSubs[ownerID] == nil {
		r.slotSubs[ownerID] = make(map[int]func([]domain.MealSlot))
	}
	r.slotSubs[ownerID][id] = fn
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.loadTimeout)
	defer cancel()
	r.refreshMu.Lock()
	if slots, err := r.repo.ListSlots(ctx, ownerID); err != nil {
		r.log.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to load slots")
	} else {
		fn(slots)
	}
	r.refreshMu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.slotSubs[ownerID], id)
		if len(r.slotSubs[ownerID]) == 0 {
			delete(r.slotSubs, ownerID)
		}
	}
}

// PutDish upserts the dish and announces the change.
func (r *RemoteMirror) PutDish(ctx context.Context, ownerID string, dish domain.Dish) error {
	if err := r.repo.SaveDish(ctx, ownerID, dish); err != nil {
		return err
	}
	r.announce(ctx, ownerID, notify.Dishes)
	return nil
}

// DeleteDish removes the dish and announces the change.
func (r *RemoteMirror) DeleteDish(ctx context.Context, ownerID, id string) error {
	if err := r.repo.DeleteDish(ctx, ownerID, id); err != nil {
		return err
	}
	r.announce(ctx, ownerID, notify.Dishes)
	return nil
}

// PutSlot upserts the slot and announces the change.
func (r *RemoteMirror) PutSlot(ctx context.Context, ownerID string, slot domain.MealSlot) error {
	if err := r.repo.SaveSlot(ctx, ownerID, slot); err != nil {
		return err
	}
	r.announce(ctx, ownerID, notify.Slots)
	return nil
}

// DeleteSlot removes the slot and announces the change.
func (r *RemoteMirror) DeleteSlot(ctx context.Context, ownerID, id string) error {
	if err := r.repo.DeleteSlot(ctx, ownerID, id); err != nil {
		return err
	}
	r.announce(ctx, ownerID, notify.Slots)
	return nil
}

// announce signals the change. The write itself already succeeded, so a
// failed signal only costs other instances their freshness; this instance
// refreshes its own subscribers directly.
func (r *RemoteMirror) announce(ctx context.Context, ownerID string, c notify.Collection) {
	err := r.notifier.Notify(ctx, notify.Change{OwnerID: ownerID, Collection: c})
	if err == nil {
		return
	}
	r.log.Warn().
		Err(err).
		Str("owner_id", ownerID).
		Str("collection", string(c)).
		Msg("Failed to announce change, refreshing locally")
	r.refresh(ctx, ownerID, c)
}

func (r *RemoteMirror) refresh(ctx context.Context, ownerID string, c notify.Collection) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	switch c {
	case notify.Dishes:
		subs := r.dishSubscribers(ownerID)
		if len(subs) == 0 {
			return
		}
		dishes, err := r.repo.ListDishes(ctx, ownerID)
		if err != nil {
			r.log.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to reload dishes")
			return
		}
		for _, fn := range subs {
			fn(domain.CloneDishes(dishes))
		}
	case notify.Slots:
		subs := r.slotSubscribers(ownerID)
		if len(subs) == 0 {
			return
		}
		slots, err := r.repo.ListSlots(ctx, ownerID)
		if err != nil {
			r.log.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to reload slots")
			return
		}
		for _, fn := range subs {
			fn(domain.CloneSlots(slots))
		}
	default:
		r.log.Warn().Str("collection", string(c)).Msg("Ignoring change for unknown collection")
	}
}

func (r *RemoteMirror) dishSubscribers(ownerID string) []func([]domain.Dish) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := make([]func([]domain.Dish), 0, len(r.dishSubs[ownerID]))
	for _, fn := range r.dishSubs[ownerID] {
		subs = append(subs, fn)
	}
	return subs
}

func (r *RemoteMirror) slotSubscribers(ownerID string) []func([]domain.MealSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := make([]func([]domain.MealSlot), 0, len(r.slotSubs[ownerID]))
	for _, fn := range r.slotSubs[ownerID] {
		subs = append(subs, fn)
	}
	return subs
}

func (r *RemoteMirror) owners() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	var owners []string
	for owner := range r.dishSubs {
		seen[owner] = struct{}{}
		owners = append(owners, owner)
	}
	for owner := range r.slotSubs {
		if _, ok := seen[owner]; !ok {
			owners = append(owners, owner)
		}
	}
	return owners
}

// Close closes the notifier.
func (r *RemoteMirror) Close() error {
	if err := r.notifier.Close(); err != nil {
		return fmt.Errorf("failed to close notifier: %w", err)
	}
	return nil
}

var _ domain.Mirror = (*RemoteMirror)(nil)
