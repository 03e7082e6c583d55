package outbox_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sistemamasajes/integracion/pkg/events"
	"github.com/sistemamasajes/integracion/pkg/outbox"
	"github.com/sistemamasajes/integracion/pkg/store/gormstore"
	"github.com/sistemamasajes/integracion/pkg/syncqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJournal(t *testing.T) *outbox.Journal {
	t.Helper()
	db, err := gormstore.Open(gormstore.DriverSQLite, filepath.Join(t.TempDir(), "outbox.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	j := outbox.NewJournal(db.Gorm())
	require.NoError(t, j.Migrate(context.Background()))
	return j
}

func createTask(t *testing.T, endpoint, body string) syncqueue.Task {
	t.Helper()
	op, err := syncqueue.NewCreate(map[string]string{"nombreCliente": body})
	require.NoError(t, err)
	return syncqueue.NewTask(endpoint, op)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (n *recordingNotifier) Notify(ev events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func TestJournalLifecycle(t *testing.T) {
	ctx := context.Background()
	j := newJournal(t)

	first := createTask(t, "Cliente", "Juan")
	second := syncqueue.NewTask("Cita/3", syncqueue.Delete{})
	third := createTask(t, "Cliente", "María")
	for _, task := range []syncqueue.Task{first, second, third} {
		require.NoError(t, j.Record(ctx, task))
	}

	pending, err := j.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, first.ID, pending[0].TaskID)
	assert.Equal(t, "POST", pending[0].Method)
	assert.Equal(t, outbox.StatusPending, pending[0].Status)

	limited, err := j.Pending(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	require.NoError(t, j.MarkRetry(ctx, first.ID, 1, errors.New("connection refused")))
	require.NoError(t, j.MarkProcessed(ctx, second.ID))
	require.NoError(t, j.MarkDropped(ctx, third.ID, errors.New("bad payload")))

	pending, err = j.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "connection refused", pending[0].LastError)
	assert.False(t, pending[0].IsProcessed())

	stats, err := j.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, outbox.Stats{Pending: 1, Done: 1, Dropped: 1}, stats)

	purged, err := j.Purge(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	stats, err = j.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, outbox.Stats{Pending: 1, Dropped: 1}, stats)
}

func TestJournalUnknownTask(t *testing.T) {
	j := newJournal(t)
	err := j.MarkProcessed(context.Background(), syncqueue.NewTaskID())
	assert.Error(t, err)
}

func TestQueueRestore(t *testing.T) {
	ctx := context.Background()
	j := newJournal(t)

	// Tasks journaled by a previous process.
	before := syncqueue.New()
	outbox.NewQueue(j, before, nil, zerolog.Nop()).Enqueue(createTask(t, "Cliente", "Juan"))
	deleted := syncqueue.NewTask("Producto/8", syncqueue.Delete{})
	outbox.NewQueue(j, before, nil, zerolog.Nop()).Enqueue(deleted)
	require.Equal(t, 2, before.Len())
	require.NoError(t, j.MarkRetry(ctx, deleted.ID, 3, errors.New("timeout")))

	after := syncqueue.New()
	notifier := &recordingNotifier{}
	n, err := outbox.NewQueue(j, after, notifier, zerolog.Nop()).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tasks := after.Snapshot()
	require.Len(t, tasks, 2)
	assert.Equal(t, "Cliente", tasks[0].Endpoint)
	assert.JSONEq(t, `{"nombreCliente":"Juan"}`, string(tasks[0].Op.Payload()))
	assert.Equal(t, deleted.ID, tasks[1].ID)
	assert.Equal(t, syncqueue.Delete{}, tasks[1].Op)
	assert.Equal(t, 3, tasks[1].Attempts)

	require.Len(t, notifier.events, 2)
	assert.Equal(t, events.KindRestored, notifier.events[0].Kind)
}

func TestEntryTaskRejectsUnknownMethod(t *testing.T) {
	e := outbox.Entry{TaskID: syncqueue.NewTaskID(), Endpoint: "Cliente", Method: "PATCH"}
	_, err := e.Task()
	assert.Error(t, err)
}
