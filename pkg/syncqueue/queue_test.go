package syncqueue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sistemamasajes/integracion/pkg/syncqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(endpoint string) syncqueue.Task {
	return syncqueue.NewTask(endpoint, syncqueue.Delete{})
}

func TestQueueFIFO(t *testing.T) {
	q := syncqueue.New()
	for i := 1; i <= 5; i++ {
		q.Enqueue(task(fmt.Sprintf("Cliente/%d", i)))
	}
	require.Equal(t, 5, q.Len())

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("Cliente/%d", i), got.Endpoint)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueueSnapshotIsACopy(t *testing.T) {
	q := syncqueue.New()
	q.Enqueue(task("Cita/1"))
	q.Enqueue(task("Cita/2"))

	snap := q.Snapshot()
	require.Len(t, snap, 2)
	snap[0].Endpoint = "changed"

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cita/1", got.Endpoint)
	assert.Len(t, q.Snapshot(), 1)
}

func TestQueueDequeueWaitsForEnqueue(t *testing.T) {
	q := syncqueue.New()
	got := make(chan syncqueue.Task, 1)
	go func() {
		tk, err := q.Dequeue(context.Background())
		if err == nil {
			got <- tk
		}
	}()

	select {
	case <-got:
		t.Fatal("dequeue returned from an empty queue")
	case <-time.After(50 * time.Millisecond):
	}

	q.Enqueue(task("Factura/9"))
	select {
	case tk := <-got:
		assert.Equal(t, "Factura/9", tk.Endpoint)
	case <-time.After(time.Second):
		t.Fatal("dequeue was not woken by enqueue")
	}
}

func TestQueueDequeueCancelled(t *testing.T) {
	q := syncqueue.New()
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dequeue ignored cancellation")
	}

	// A cancelled consumer must not swallow later tasks.
	q.Enqueue(task("Rol/1"))
	assert.Equal(t, 1, q.Len())
	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Rol/1", got.Endpoint)
}

func TestQueueDequeueAlreadyCancelledLeavesItems(t *testing.T) {
	q := syncqueue.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Items present are still returned: the queue only waits on ctx when empty.
	q.Enqueue(task("Rol/2"))
	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rol/2", got.Endpoint)

	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// Concurrent producers never lose or duplicate a task, and each producer's
// tasks come out in the order it enqueued them.
func TestQueueConcurrentProducers(t *testing.T) {
	const (
		producers = 8
		perWorker = 200
	)
	q := syncqueue.New()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				q.Enqueue(task(fmt.Sprintf("%d/%d", p, i)))
			}
		}(p)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seen := make(map[string]bool, producers*perWorker)
	last := make([]int, producers)
	for p := range last {
		last[p] = -1
	}
	for n := 0; n < producers*perWorker; n++ {
		tk, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.False(t, seen[tk.Endpoint], "duplicate %s", tk.Endpoint)
		seen[tk.Endpoint] = true

		var p, i int
		_, err = fmt.Sscanf(tk.Endpoint, "%d/%d", &p, &i)
		require.NoError(t, err)
		require.Greater(t, i, last[p], "producer %d out of order", p)
		last[p] = i
	}
	wg.Wait()
	assert.Len(t, seen, producers*perWorker)
	assert.Equal(t, 0, q.Len())
}

// Several waiting consumers each get exactly one task.
func TestQueueWakesOneWaiterPerTask(t *testing.T) {
	const consumers = 4
	q := syncqueue.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results := make(chan string, consumers)
	var wg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk, err := q.Dequeue(ctx)
			if err == nil {
				results <- tk.Endpoint
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	for i := 0; i < consumers; i++ {
		q.Enqueue(task(fmt.Sprintf("Usuario/%d", i)))
	}
	wg.Wait()
	close(results)

	got := map[string]bool{}
	for r := range results {
		got[r] = true
	}
	assert.Len(t, got, consumers)
}
