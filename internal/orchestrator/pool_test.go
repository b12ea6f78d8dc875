package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunPoolKeepsOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}

	results, done := runPool(context.Background(), 3, items, func(_ context.Context, n int) int {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10
	})

	assert.Equal(t, []int{50, 10, 40, 20, 30}, results)
	assert.Equal(t, []bool{true, true, true, true, true}, done)
}

func TestRunPoolBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	items := make([]int, 20)

	runPool(context.Background(), 4, items, func(context.Context, int) struct{} {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}
	})

	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestRunPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, done := runPool(ctx, 2, []int{1, 2, 3}, func(_ context.Context, n int) int { return n })
	assert.Equal(t, []bool{false, false, false}, done)
}

func TestRunPoolEmpty(t *testing.T) {
	results, done := runPool(context.Background(), 2, []int(nil), func(_ context.Context, n int) int { return n })
	assert.Empty(t, results)
	assert.Empty(t, done)
}
