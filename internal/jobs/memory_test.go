package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/firebird-suite/nest/internal/apperr"
	"github.com/simonhull/firebird-suite/nest/internal/logger"
	"github.com/simonhull/firebird-suite/nest/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, ttl time.Duration) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(ttl, 0, WithClock(clock.Now), WithMemoryLogger(logger.NewSilentLogger()))
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)

	job := &Job{TaskID: "t1", State: model.StateGenerating}
	require.NoError(t, s.Put(ctx, job))

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.StateGenerating, got.State)

	// Stored values are copies.
	job.State = model.StateFailed
	got, err = s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.StateGenerating, got.State)
}

func TestMemoryStoreNotFound(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, time.Minute)

	require.NoError(t, s.Put(ctx, &Job{TaskID: "old"}))
	clock.Advance(30 * time.Second)
	require.NoError(t, s.Put(ctx, &Job{TaskID: "new"}))
	clock.Advance(45 * time.Second)

	_, err := s.Get(ctx, "old")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = s.Get(ctx, "new")
	assert.NoError(t, err)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStorePutRestartsTTL(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, time.Minute)

	require.NoError(t, s.Put(ctx, &Job{TaskID: "t1", State: model.StateGenerating}))
	clock.Advance(50 * time.Second)
	require.NoError(t, s.Put(ctx, &Job{TaskID: "t1", State: model.StateCompleted}))
	clock.Advance(50 * time.Second)

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.StateCompleted, got.State)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)

	require.NoError(t, s.Put(ctx, &Job{TaskID: "t1"}))
	require.NoError(t, s.Delete(ctx, "t1"))
	require.NoError(t, s.Delete(ctx, "t1"))
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreJanitor(t *testing.T) {
	s := NewMemoryStore(time.Millisecond, 5*time.Millisecond, WithMemoryLogger(logger.NewSilentLogger()))
	defer s.Close()

	require.NoError(t, s.Put(context.Background(), &Job{TaskID: "t1"}))
	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryStoreCloseTwice(t *testing.T) {
	s := NewMemoryStore(time.Minute, time.Millisecond)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
