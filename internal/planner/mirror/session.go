package mirror

import (
	"github.com/rs/zerolog"

	"github.com/tair/fridge-planner/internal/planner/domain"
	"github.com/tair/fridge-planner/internal/planner/store"
)

// Attach feeds the mirror's snapshots for st's owner into st. It returns a
// function that cancels both subscriptions.
//
// Snapshots overwrite local state unconditionally. A snapshot that lands
// between an optimistic local change and the delivery of its write briefly
// undoes that change until the next snapshot arrives; with a single active
// writer per owner this window is accepted.
func Attach(st *store.Store, m domain.Mirror) (detach func()) {
	unsubDishes := m.SubscribeDishes(st.Owner(), st.ReplaceAllDishes)
	unsubSlots := m.SubscribeSlots(st.Owner(), st.ReplaceAllSlots)
	return func() {
		unsubDishes()
		unsubSlots()
	}
}

// Session binds a store to a mirror: local writes flow out through an
// outbox, remote snapshots flow back in through Attach.
type Session struct {
	Store  *store.Store
	outbox *Outbox
	detach func()
}

// Open creates the store for ownerID and synchronizes it with m.
func Open(ownerID string, m domain.Mirror, cfg OutboxConfig, log zerolog.Logger, opts ...store.Option) *Session {
	outbox := NewOutbox(m, ownerID, cfg, log.With().Str("component", "outbox").Logger())
	st := store.New(ownerID, outbox, opts...)

	log.Info().Str("owner_id", ownerID).Msg("Opening mirror session")

	return &Session{
		Store:  st,
		outbox: outbox,
		detach: Attach(st, m),
	}
}

// Outbox returns the session's write queue.
func (s *Session) Outbox() *Outbox { return s.outbox }

// Close stops listening to the mirror and delivers pending writes.
func (s *Session) Close() {
	s.detach()
	s.outbox.Close()
}
