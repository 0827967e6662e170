package notify

import (
	"context"
	"sync"
	"sync/atomic"
)

const localBuffer = 64

type localListener struct {
	ch       chan Change
	overflow atomic.Bool
}

// Local delivers changes to listeners in the same process. It serves a
// single-instance deployment and tests.
type Local struct {
	mu        sync.Mutex
	listeners map[int]*localListener
	next      int
	closed    bool
}

// NewLocal creates an in-process notifier.
func NewLocal() *Local {
	return &Local{listeners: make(map[int]*localListener)}
}

// Notify queues the change for every current listener. It never blocks; a
// listener whose buffer is full is sent a resync once it catches up.
func (l *Local) Notify(ctx context.Context, change Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ln := range l.listeners {
		select {
		case ln.ch <- change:
		default:
			ln.overflow.Store(true)
		}
	}
	return nil
}

// Listen blocks until ctx is done or the notifier is closed.
func (l *Local) Listen(ctx context.Context, fn func(Change)) error {
	ln := &localListener{ch: make(chan Change, localBuffer)}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	id := l.next
	l.next++
	l.listeners[id] = ln
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-ln.ch:
			if !ok {
				return nil
			}
			fn(change)
			if len(ln.ch) == 0 && ln.overflow.Swap(false) {
				fn(Change{})
			}
		}
	}
}

// Listeners reports how many Listen calls are active.
func (l *Local) Listeners() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.listeners)
}

// Close ends every Listen call.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	for id, ln := range l.listeners {
		close(ln.ch)
		delete(l.listeners, id)
	}
	return nil
}
