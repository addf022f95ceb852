package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessPreservesOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	results := Process(context.Background(), items, 3, 0, func(ctx context.Context, n int) (int, error) {
		return n * 10, nil
	})

	require.Len(t, results, 7)
	for i, r := range results {
		assert.NoError(t, r.Err)
		assert.Equal(t, items[i]*10, r.Value)
	}
}

func TestProcessGroupsBySize(t *testing.T) {
	var mu sync.Mutex
	var maxConcurrent, current int32

	items := make([]int, 7)
	Process(context.Background(), items, 3, 0, func(ctx context.Context, n int) (int, error) {
		c := atomic.AddInt32(&current, 1)
		mu.Lock()
		if c > maxConcurrent {
			maxConcurrent = c
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return 0, nil
	})

	// 7 items in groups of 3 never overlap more than one group
	assert.LessOrEqual(t, maxConcurrent, int32(3))
}

func TestProcessIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	items := []int{0, 1, 2, 3}

	results := Process(context.Background(), items, 2, 0, func(ctx context.Context, n int) (int, error) {
		if n == 1 {
			return 0, boom
		}
		return n + 100, nil
	})

	require.Len(t, results, 4)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 103, results[3].Value)
}

func TestProcessCancellationMarksRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	items := []int{1, 2, 3, 4}

	results := Process(ctx, items, 2, time.Minute, func(ctx context.Context, n int) (int, error) {
		if n == 2 {
			cancel()
		}
		return n, nil
	})

	require.Len(t, results, 4)
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.ErrorIs(t, results[2].Err, context.Canceled)
	assert.ErrorIs(t, results[3].Err, context.Canceled)
}

func TestProcessZeroSizeDefaultsToOne(t *testing.T) {
	results := Process(context.Background(), []int{1, 2}, 0, 0, func(ctx context.Context, n int) (int, error) {
		return n, nil
	})
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Value)
	assert.Equal(t, 2, results[1].Value)
}
