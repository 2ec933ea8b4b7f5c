package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPreservesKeyOrder(t *testing.T) {
	keys := []string{"pve1", "pve2", "pve3", "pve4"}
	delay := map[string]time.Duration{"pve1": 8 * time.Millisecond, "pve2": 4 * time.Millisecond}
	results := Run(context.Background(), 4, keys, func(_ context.Context, node string) (string, error) {
		time.Sleep(delay[node])
		return "vms@" + node, nil
	})

	require.Len(t, results, len(keys))
	for i, node := range keys {
		assert.NoError(t, results[i].Err)
		assert.Equal(t, "vms@"+node, results[i].Value)
	}
}

func TestRunFailuresDoNotCancelSiblings(t *testing.T) {
	var completed atomic.Int32
	keys := []string{"bad", "good1", "good2"}

	results := Run(context.Background(), 0, keys, func(ctx context.Context, node string) (int, error) {
		if node == "bad" {
			return 0, errors.New("connection refused")
		}
		time.Sleep(10 * time.Millisecond)
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		completed.Add(1)
		return 1, nil
	})

	assert.EqualError(t, results[0].Err, "connection refused")
	assert.NoError(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, int32(2), completed.Load())
}

func TestRunRespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	keys := make([]int, 20)

	Run(context.Background(), 3, keys, func(context.Context, int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(0))
}

func TestRunRecoversPanics(t *testing.T) {
	results := Run(context.Background(), 1, []int{1, 2}, func(_ context.Context, k int) (int, error) {
		if k == 1 {
			panic("nil map")
		}
		return k, nil
	})

	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "panic: nil map")
	assert.Equal(t, 2, results[1].Value)
}

func TestRunNoKeys(t *testing.T) {
	results := Run(context.Background(), 4, []string{}, func(context.Context, string) (int, error) {
		t.Fatal("fn must not be called")
		return 0, nil
	})
	assert.Empty(t, results)
}
