package command

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(DefaultQueueSize)

	require.True(t, q.Enqueue(Toggle{}))
	require.True(t, q.Enqueue(UpLevel{}))
	require.Equal(t, 2, q.Len())

	e, ok := q.TryDequeue()
	require.True(t, ok)
	require.Equal(t, Toggle{}, e.Command)
	require.Equal(t, 0, e.Retries)

	e, ok = q.TryDequeue()
	require.True(t, ok)
	require.Equal(t, UpLevel{}, e.Command)

	_, ok = q.TryDequeue()
	require.False(t, ok)
}

func TestQueue_DropsWhenFull(t *testing.T) {
	q := NewQueue(DefaultQueueSize)
	require.Equal(t, 10, q.Cap())

	for i := 0; i < q.Cap(); i++ {
		require.True(t, q.Enqueue(Lock{}))
	}

	require.False(t, q.Enqueue(Toggle{}))
	require.Equal(t, q.Cap(), q.Len())
}

func TestQueue_DefaultSize(t *testing.T) {
	require.Equal(t, DefaultQueueSize, NewQueue(0).Cap())
}

func TestQueue_RequeueOnce(t *testing.T) {
	q := NewQueue(DefaultQueueSize)
	q.Enqueue(DownLevel{})

	e, _ := q.TryDequeue()
	require.True(t, q.Requeue(e))

	e, ok := q.TryDequeue()
	require.True(t, ok)
	require.Equal(t, DownLevel{}, e.Command)
	require.Equal(t, 1, e.Retries)

	require.False(t, q.Requeue(e))
	require.Equal(t, 0, q.Len())
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue(100)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				q.Enqueue(SetLock{})
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 100, q.Len())
}
