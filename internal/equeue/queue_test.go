package equeue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryEnqueueRespectsCapacity(t *testing.T) {
	q := New[int](2)

	_, ok := q.TryEnqueue(1)
	require.True(t, ok)
	_, ok = q.TryEnqueue(2)
	require.True(t, ok)

	rejected, ok := q.TryEnqueue(3)
	assert.False(t, ok)
	assert.Equal(t, 3, rejected)

	stats := q.Stats()
	assert.Equal(t, uint64(2), stats.Enqueued)
	assert.Equal(t, uint64(1), stats.Rejected)
	assert.Equal(t, 2, stats.Depth)
}

func TestDequeueIsFIFO(t *testing.T) {
	q := New[string](128)
	for _, v := range []string{"a", "b", "c"} {
		_, ok := q.TryEnqueue(v)
		require.True(t, ok)
	}

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestEnqueueRetryGivesUpAfterAttempts(t *testing.T) {
	q := New[int](1)
	_, ok := q.TryEnqueue(1)
	require.True(t, ok)

	ok = q.EnqueueRetry(2, 5)
	assert.False(t, ok, "queue never drains so every attempt should be rejected")

	stats := q.Stats()
	assert.Equal(t, uint64(5), stats.Rejected)
}

func TestEnqueueRetrySucceedsOnceSpaceOpens(t *testing.T) {
	q := New[int](1)
	_, ok := q.TryEnqueue(1)
	require.True(t, ok)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		q.Dequeue()
	}()

	ok = q.EnqueueRetry(2, 64)
	wg.Wait()
	assert.True(t, ok)
}

func TestDequeueWaitUnblocksOnEnqueue(t *testing.T) {
	q := New[int](4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	result := make(chan int, 1)
	go func() {
		v, ok := q.DequeueWait(ctx)
		if ok {
			result <- v
		}
	}()

	time.Sleep(5 * time.Millisecond)
	_, ok := q.TryEnqueue(42)
	require.True(t, ok)

	select {
	case v := <-result:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("DequeueWait did not unblock in time")
	}
}

func TestDequeueWaitUnblocksOnContextCancel(t *testing.T) {
	q := New[int](4)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.DequeueWait(ctx)
		done <- ok
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("DequeueWait did not unblock on cancellation")
	}
}
