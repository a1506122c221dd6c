package device

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunPreservesOrder(t *testing.T) {
	m := NewManager[string](WithWorkerLimit[string](3))

	results := m.Run(context.Background(), []string{"c", "a", "b", "a", ""}, func(ctx context.Context, serial string) (string, error) {
		if serial == "c" {
			time.Sleep(20 * time.Millisecond)
		}
		return "done-" + serial, nil
	})

	require.Len(t, results, 3)
	assert.Equal(t, "c", results[0].Serial)
	assert.Equal(t, "done-c", results[0].Value)
	assert.Equal(t, "a", results[1].Serial)
	assert.Equal(t, "b", results[2].Serial)
	assert.Empty(t, Failed(results))
}

func TestRunRespectsWorkerLimit(t *testing.T) {
	var inFlight, peak int32
	m := NewManager[struct{}](WithWorkerLimit[struct{}](2))

	m.Run(context.Background(), []string{"1", "2", "3", "4", "5", "6"}, func(ctx context.Context, serial string) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRunCollectsErrorsAndPanics(t *testing.T) {
	m := NewManager[int]()

	results := m.Run(context.Background(), []string{"ok", "bad", "boom"}, func(ctx context.Context, serial string) (int, error) {
		switch serial {
		case "bad":
			return 0, errors.New("accounts found")
		case "boom":
			panic("transport torn down")
		}
		return 1, nil
	})

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.EqualError(t, results[1].Err, "accounts found")
	assert.ErrorContains(t, results[2].Err, "panic: transport torn down")
	assert.Len(t, Failed(results), 2)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var mu sync.Mutex
	var started []string
	m := NewManager[int](WithWorkerLimit[int](1))
	results := m.Run(ctx, []string{"a", "b", "c"}, func(ctx context.Context, serial string) (int, error) {
		mu.Lock()
		started = append(started, serial)
		mu.Unlock()
		return 0, ctx.Err()
	})

	require.Len(t, results, 3)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Empty(t, started)
}

func TestRunEmpty(t *testing.T) {
	results := NewManager[int]().Run(context.Background(), nil, func(ctx context.Context, serial string) (int, error) {
		t.Fatal("task must not run")
		return 0, nil
	})
	assert.Empty(t, results)
}

func TestNewManagerDefaultsWorkerLimit(t *testing.T) {
	m := NewManager[int](WithWorkerLimit[int](-1))
	assert.Positive(t, m.workerLimit)
}
