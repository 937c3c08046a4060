package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedTask(name string, out *[]string) task {
	return task{fn: func() error {
		*out = append(*out, name)
		return nil
	}, done: make(chan error, 1)}
}

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue(0)
	var got []string
	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, q.Enqueue(namedTask(name, &got)))
	}

	for {
		tk, ok := q.TryDequeue()
		if !ok {
			break
		}
		require.NoError(t, tk.fn())
	}
	assert.Equal(t, []string{"A", "B", "C"}, got)
}

func TestTaskQueue_TryDequeue_Empty(t *testing.T) {
	q := newTaskQueue(0)
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestTaskQueue_Limit(t *testing.T) {
	q := newTaskQueue(2)
	var got []string
	require.NoError(t, q.Enqueue(namedTask("A", &got)))
	require.NoError(t, q.Enqueue(namedTask("B", &got)))

	err := q.Enqueue(namedTask("C", &got))
	require.Error(t, err)
	assert.True(t, IsQueueFull(err))
	assert.Contains(t, err.Error(), "limit=2")

	q.TryDequeue()
	assert.NoError(t, q.Enqueue(namedTask("C", &got)))
}

func TestTaskQueue_EnqueueAfterClose(t *testing.T) {
	q := newTaskQueue(0)
	q.Close()
	q.Close()

	err := q.Enqueue(task{fn: func() error { return nil }})
	require.Error(t, err)
	assert.True(t, IsStopped(err))
	assert.True(t, q.Closed())
}

func TestTaskQueue_CloseWakesWaiter(t *testing.T) {
	q := newTaskQueue(0)
	woke := make(chan struct{})
	go func() {
		<-q.Wait()
		close(woke)
	}()

	q.Close()
	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by Close")
	}
}

func TestTaskQueue_Len(t *testing.T) {
	q := newTaskQueue(0)
	var got []string
	assert.Equal(t, 0, q.Len())
	require.NoError(t, q.Enqueue(namedTask("A", &got)))
	require.NoError(t, q.Enqueue(namedTask("B", &got)))
	assert.Equal(t, 2, q.Len())
	q.TryDequeue()
	assert.Equal(t, 1, q.Len())
}

func TestTaskQueue_ConcurrentEnqueue(t *testing.T) {
	q := newTaskQueue(0)
	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Enqueue(task{fn: func() error { return nil }})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
}
