package collector

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPool(t *testing.T) {
	pool := NewWorkerPool(4)
	require.NotNil(t, pool)
	assert.Equal(t, 4, cap(pool.sem))
}

func TestWorkerPool_Submit_ExecutesFunction(t *testing.T) {
	pool := NewWorkerPool(2)
	var called atomic.Bool

	done := make(chan struct{})
	err := pool.Submit(context.Background(), func() {
		called.Store(true)
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("function was not executed in time")
	}
	assert.True(t, called.Load())
}

func TestWorkerPool_Submit_BlocksWhenFull(t *testing.T) {
	pool := NewWorkerPool(1)

	blocker := make(chan struct{})
	err := pool.Submit(context.Background(), func() {
		<-blocker
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = pool.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(blocker)
}

type mockCollector struct {
	name     string
	interval time.Duration
	calls    atomic.Int32
	err      error
}

func (m *mockCollector) Name() string            { return m.name }
func (m *mockCollector) Interval() time.Duration { return m.interval }
func (m *mockCollector) Collect(_ context.Context) error {
	m.calls.Add(1)
	return m.err
}

func TestRun_ImmediateCollectThenInterval(t *testing.T) {
	mc := &mockCollector{
		name:     "test-collector",
		interval: 50 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Millisecond)
	defer cancel()

	err := Run(ctx, mc)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	got := int(mc.calls.Load())
	assert.GreaterOrEqual(t, got, 3, "expected immediate collect plus at least 2 ticks, got %d", got)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	mc := &mockCollector{
		name:     "cancel-collector",
		interval: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, mc)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, int32(1), mc.calls.Load())
}
