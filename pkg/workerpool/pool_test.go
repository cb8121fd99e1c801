package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsEveryTask(t *testing.T) {
	p := New(4, 8)

	var done int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), func() {
			defer wg.Done()
			atomic.AddInt64(&done, 1)
		}))
	}
	wg.Wait()
	p.Close()

	assert.Equal(t, int64(100), atomic.LoadInt64(&done))
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := New(3, 100)
	defer p.Close()

	var running, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), func() {
			defer wg.Done()
			n := atomic.AddInt64(&running, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		}))
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(3))
}

func TestPoolSurvivesPanic(t *testing.T) {
	p := New(1, 1)
	defer p.Close()

	require.NoError(t, p.Submit(context.Background(), func() { panic("boom") }))

	done := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

func TestSubmitHonoursContext(t *testing.T) {
	p := New(1, 0)
	defer p.Close()

	block := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, p.TrySubmit(func() {}))

	close(block)
}

func TestSubmitAfterClose(t *testing.T) {
	p := New(2, 2)
	p.Close()
	p.Close()

	assert.ErrorIs(t, p.Submit(context.Background(), func() {}), ErrClosed)
	assert.False(t, p.TrySubmit(func() {}))
}
