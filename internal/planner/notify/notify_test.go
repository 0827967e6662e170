package notify

import (
	"context"
	"database/sql"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeEncoding(t *testing.T) {
	payload, err := encodeChange(Change{OwnerID: "u1", Collection: Slots})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ownerId":"u1","collection":"slots"}`, payload)

	c, err := decodeChange(payload)
	require.NoError(t, err)
	assert.Equal(t, Change{OwnerID: "u1", Collection: Slots}, c)
	assert.False(t, c.Resync())
	assert.True(t, Change{}.Resync())

	_, err = decodeChange(`{"ownerId":"u1","collection":"plates"}`)
	assert.Error(t, err)
	_, err = decodeChange(`nope`)
	assert.Error(t, err)
}

func TestPostgresNotify(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_notify($1, $2)")).
		WithArgs(PostgresChannel, `{"ownerId":"u1","collection":"dishes"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_notify($1, $2)")).
		WillReturnError(sql.ErrConnDone)

	n := NewPostgres(db, "", zerolog.Nop())
	require.NoError(t, n.Notify(context.Background(), Change{OwnerID: "u1", Collection: Dishes}))
	assert.ErrorIs(t, n.Notify(context.Background(), Change{OwnerID: "u1", Collection: Dishes}), sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// collector gathers changes delivered to a listener.
type collector struct {
	mu      sync.Mutex
	changes []Change
}

func (c *collector) add(ch Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, ch)
}

func (c *collector) snapshot() []Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Change(nil), c.changes...)
}

// listen runs n.Listen in the background and returns a stop function that
// waits for it to return.
func listen(t *testing.T, n Notifier, c *collector) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Listen(ctx, c.add) }()
	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func TestLocalFanOut(t *testing.T) {
	n := NewLocal()
	a, b := &collector{}, &collector{}
	stopA := listen(t, n, a)
	stopB := listen(t, n, b)

	require.Eventually(t, func() bool { return n.Listeners() == 2 }, time.Second, time.Millisecond)

	change := Change{OwnerID: "u1", Collection: Dishes}
	require.NoError(t, n.Notify(context.Background(), change))

	for _, c := range []*collector{a, b} {
		require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, time.Second, time.Millisecond)
		assert.Equal(t, change, c.snapshot()[0])
	}

	stopA()
	stopB()
	require.NoError(t, n.Close())
}

func TestLocalCloseEndsListen(t *testing.T) {
	n := NewLocal()
	done := make(chan error, 1)
	go func() { done <- n.Listen(context.Background(), func(Change) {}) }()

	require.Eventually(t, func() bool { return n.Listeners() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, n.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after Close")
	}
	assert.NoError(t, n.Listen(context.Background(), func(Change) {}))
}

func TestLocalOverflowResyncs(t *testing.T) {
	n := NewLocal()
	release := make(chan struct{})
	c := &collector{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Listen(ctx, func(ch Change) {
		<-release
		c.add(ch)
	})

	require.Eventually(t, func() bool { return n.Listeners() == 1 }, time.Second, time.Millisecond)

	for i := 0; i < localBuffer+5; i++ {
		require.NoError(t, n.Notify(ctx, Change{OwnerID: "u1", Collection: Slots}))
	}
	close(release)

	require.Eventually(t, func() bool {
		got := c.snapshot()
		return len(got) > 0 && got[len(got)-1].Resync()
	}, time.Second, time.Millisecond)
}

func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("PLANNER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PLANNER_TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	n := NewPostgres(db, dsn, zerolog.Nop())
	c := &collector{}
	stop := listen(t, n, c)
	defer stop()

	change := Change{OwnerID: "u1", Collection: Slots}
	require.Eventually(t, func() bool {
		_ = n.Notify(context.Background(), change)
		return len(c.snapshot()) > 0
	}, 5*time.Second, 100*time.Millisecond)
	assert.Equal(t, change, c.snapshot()[0])
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("PLANNER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PLANNER_TEST_REDIS_ADDR not set")
	}
	n := NewRedis(redis.NewClient(&redis.Options{Addr: addr}), zerolog.Nop())
	defer n.Close()

	c := &collector{}
	stop := listen(t, n, c)
	defer stop()

	change := Change{OwnerID: "u1", Collection: Dishes}
	require.Eventually(t, func() bool {
		_ = n.Notify(context.Background(), change)
		return len(c.snapshot()) > 0
	}, 5*time.Second, 100*time.Millisecond)
	assert.Equal(t, change, c.snapshot()[0])
}
