package dualwrite_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sistemamasajes/integracion/pkg/core"
	"github.com/sistemamasajes/integracion/pkg/dualwrite"
	"github.com/sistemamasajes/integracion/pkg/models"
	"github.com/sistemamasajes/integracion/pkg/store"
	"github.com/sistemamasajes/integracion/pkg/store/gormstore"
	"github.com/sistemamasajes/integracion/pkg/syncqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCore keeps Core records by path and answers 503 while down.
type fakeCore struct {
	down atomic.Bool

	mu       sync.Mutex
	records  map[string]json.RawMessage
	requests []string
}

func newFakeCore(t *testing.T) (*fakeCore, *core.Client) {
	f := &fakeCore{records: map[string]json.RawMessage{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, core.NewClient(srv.URL + "/api/")
}

func (f *fakeCore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/api/")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, strings.TrimSpace(r.Method+" "+path+" "+string(body)))

	if f.down.Load() {
		http.Error(w, "core is down", http.StatusServiceUnavailable)
		return
	}
	switch r.Method {
	case http.MethodGet:
		if rec, ok := f.records[path]; ok {
			_, _ = w.Write(rec)
			return
		}
		if !strings.Contains(path, "/") {
			var list []json.RawMessage
			for key, rec := range f.records {
				if strings.HasPrefix(key, path+"/") {
					list = append(list, rec)
				}
			}
			_ = json.NewEncoder(w).Encode(list)
			return
		}
		http.NotFound(w, r)
	case http.MethodPost:
		var keyed struct {
			ID int `json:"id"`
		}
		_ = json.Unmarshal(body, &keyed)
		f.records[fmt.Sprintf("%s/%d", path, keyed.ID)] = body
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	case http.MethodPut:
		f.records[path] = body
		_, _ = w.Write(body)
	case http.MethodDelete:
		delete(f.records, path)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeCore) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeCore) put(path string, v any) {
	data, _ := json.Marshal(v)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[path] = data
}

type fixture struct {
	core    *fakeCore
	queue   *syncqueue.Queue
	repo    store.Repository[models.Cliente]
	gateway *dualwrite.Gateway[models.Cliente, *models.Cliente]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gormstore.Open(gormstore.DriverSQLite, filepath.Join(t.TempDir(), "local.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	fc, client := newFakeCore(t)
	queue := syncqueue.New()
	repo := gormstore.NewRepo[models.Cliente](db)
	return &fixture{
		core:    fc,
		queue:   queue,
		repo:    repo,
		gateway: dualwrite.New[models.Cliente, *models.Cliente](store.Repository[models.Cliente](repo), client, queue, zerolog.Nop()),
	}
}

func juan() *models.Cliente {
	return &models.Cliente{NombreCliente: "Juan", ApellidoCliente: "Pérez", TelefonoCliente: "8095550001"}
}

func TestCreateSynced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.gateway.Create(ctx, juan())
	require.NoError(t, err)
	assert.True(t, res.Synced)
	assert.True(t, res.TaskID.IsZero())
	assert.Equal(t, 1, res.Data.ID)
	assert.Equal(t, 0, f.queue.Len())

	reqs := f.core.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, strings.HasPrefix(reqs[0], `POST Cliente {"id":1,"nombreCliente":"Juan"`), reqs[0])
}

func TestCreateWhileCoreDown(t *testing.T) {
	f := newFixture(t)
	f.core.down.Store(true)
	ctx := context.Background()

	res, err := f.gateway.Create(ctx, juan())
	require.NoError(t, err)
	assert.False(t, res.Synced)
	require.False(t, res.TaskID.IsZero())

	// The local row exists before and regardless of the remote outcome.
	local, err := f.repo.Get(ctx, res.Data.ID)
	require.NoError(t, err)
	require.NotNil(t, local)
	assert.Equal(t, "Juan", local.NombreCliente)

	tasks := f.queue.Snapshot()
	require.Len(t, tasks, 1)
	assert.Equal(t, res.TaskID, tasks[0].ID)
	assert.Equal(t, "Cliente", tasks[0].Endpoint)
	assert.Equal(t, http.MethodPost, tasks[0].Op.Method())

	var payload models.Cliente
	require.NoError(t, json.Unmarshal(tasks[0].Op.Payload(), &payload))
	assert.Equal(t, local.ID, payload.ID)
	assert.Equal(t, local.NombreCliente, payload.NombreCliente)
}

func TestCreateInvalid(t *testing.T) {
	f := newFixture(t)
	_, err := f.gateway.Create(context.Background(), &models.Cliente{ApellidoCliente: "Pérez"})
	assert.ErrorIs(t, err, dualwrite.ErrValidation)
	assert.Empty(t, f.core.Requests())
	assert.Equal(t, 0, f.queue.Len())
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := juan()
	require.NoError(t, f.repo.Create(ctx, c))

	t.Run("id mismatch mutates nothing", func(t *testing.T) {
		changed := *c
		changed.NombreCliente = "Pedro"
		_, err := f.gateway.Update(ctx, c.ID+1, &changed)
		assert.ErrorIs(t, err, dualwrite.ErrIDMismatch)

		local, err := f.repo.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Juan", local.NombreCliente)
		assert.Empty(t, f.core.Requests())
	})

	t.Run("missing row", func(t *testing.T) {
		ghost := juan()
		ghost.ID = 99
		_, err := f.gateway.Update(ctx, 99, ghost)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Equal(t, 0, f.queue.Len())
	})

	t.Run("core down queues a PUT", func(t *testing.T) {
		f.core.down.Store(true)
		defer f.core.down.Store(false)

		changed := *c
		changed.TelefonoCliente = "8095559999"
		res, err := f.gateway.Update(ctx, c.ID, &changed)
		require.NoError(t, err)
		assert.False(t, res.Synced)

		tasks := f.queue.Snapshot()
		require.Len(t, tasks, 1)
		assert.Equal(t, fmt.Sprintf("Cliente/%d", c.ID), tasks[0].Endpoint)
		assert.Equal(t, http.MethodPut, tasks[0].Op.Method())
		assert.Contains(t, string(tasks[0].Op.Payload()), "8095559999")
	})

	t.Run("modify", func(t *testing.T) {
		res, err := f.gateway.Modify(ctx, c.ID, func(m *models.Cliente) { m.NombreCliente = "Juan Carlos" })
		require.NoError(t, err)
		assert.True(t, res.Synced)
		assert.Equal(t, "Juan Carlos", res.Data.NombreCliente)
		assert.Equal(t, "8095559999", res.Data.TelefonoCliente)
	})
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := juan()
	require.NoError(t, f.repo.Create(ctx, c))
	f.core.down.Store(true)

	res, err := f.gateway.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, res.Synced)
	assert.Equal(t, "Juan", res.Data.NombreCliente)
	require.Equal(t, 1, f.queue.Len())
	assert.Equal(t, syncqueue.Delete{}, f.queue.Snapshot()[0].Op)

	// A second delete fails locally and never reaches the queue.
	_, err = f.gateway.Delete(ctx, c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, f.queue.Len())
}

func TestReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	local := juan()
	require.NoError(t, f.repo.Create(ctx, local))

	t.Run("core answers", func(t *testing.T) {
		f.core.put(fmt.Sprintf("Cliente/%d", local.ID), models.Cliente{ID: local.ID, NombreCliente: "Juan (core)"})
		got, src, err := f.gateway.Get(ctx, local.ID)
		require.NoError(t, err)
		assert.Equal(t, dualwrite.SourceCore, src)
		assert.Equal(t, "Juan (core)", got.NombreCliente)

		list, src, err := f.gateway.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, dualwrite.SourceCore, src)
		assert.Len(t, list, 1)
	})

	t.Run("core 404 falls back", func(t *testing.T) {
		other := &models.Cliente{NombreCliente: "María", ApellidoCliente: "García", TelefonoCliente: "8095550002"}
		require.NoError(t, f.repo.Create(ctx, other))
		got, src, err := f.gateway.Get(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, dualwrite.SourceLocal, src)
		assert.Equal(t, "María", got.NombreCliente)
	})

	t.Run("core down falls back", func(t *testing.T) {
		f.core.down.Store(true)
		defer f.core.down.Store(false)

		got, src, err := f.gateway.Get(ctx, local.ID)
		require.NoError(t, err)
		assert.Equal(t, dualwrite.SourceLocal, src)
		assert.Equal(t, "Juan", got.NombreCliente)

		list, src, err := f.gateway.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, dualwrite.SourceLocal, src)
		assert.Len(t, list, 2)
	})

	t.Run("missing everywhere", func(t *testing.T) {
		_, _, err := f.gateway.Get(ctx, 404)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("local only", func(t *testing.T) {
		n := len(f.core.Requests())
		list, err := f.gateway.ListLocal(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		found, err := f.gateway.FindLocal(ctx, store.Filter{"nombre_cliente": "María"})
		require.NoError(t, err)
		assert.Len(t, found, 1)

		_, err = f.gateway.GetLocal(ctx, 404)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Equal(t, n, len(f.core.Requests()))
	})
}

func TestReadOnlyStore(t *testing.T) {
	f := newFixture(t)
	guarded := store.NewReadOnly[models.Cliente](f.repo, func() bool { return true })
	_, client := newFakeCore(t)
	g := dualwrite.New[models.Cliente, *models.Cliente](guarded, client, f.queue, zerolog.Nop())

	_, err := g.Create(context.Background(), juan())
	assert.ErrorIs(t, err, store.ErrReadOnly)
	assert.Equal(t, 0, f.queue.Len())
}

func TestCreateLocalFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	correo := "juan@email.com"

	first := juan()
	first.CorreoCliente = &correo
	_, err := f.gateway.Create(ctx, first)
	require.NoError(t, err)
	require.Len(t, f.core.Requests(), 1)

	// Same unique correo: the local insert fails and nothing else happens.
	dup := &models.Cliente{NombreCliente: "Juana", ApellidoCliente: "Díaz", TelefonoCliente: "8095550003", CorreoCliente: &correo}
	_, err = f.gateway.Create(ctx, dup)
	require.Error(t, err)
	assert.NotErrorIs(t, err, dualwrite.ErrValidation)
	assert.NotErrorIs(t, err, store.ErrNotFound)

	assert.Len(t, f.core.Requests(), 1)
	assert.Equal(t, 0, f.queue.Len())
	rows, err := f.repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCreateUnexpectedCoreError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{garbage`))
	}))
	defer srv.Close()
	g := dualwrite.New[models.Cliente, *models.Cliente](f.repo, core.NewClient(srv.URL), f.queue, zerolog.Nop())

	res, err := g.Create(ctx, juan())
	require.NoError(t, err)
	assert.False(t, res.Synced)
	assert.False(t, res.TaskID.IsZero())
	assert.Equal(t, 1, f.queue.Len())
	assert.Equal(t, http.MethodPost, f.queue.Snapshot()[0].Op.Method())

	local, err := f.repo.Get(ctx, res.Data.ID)
	require.NoError(t, err)
	require.NotNil(t, local)
}
