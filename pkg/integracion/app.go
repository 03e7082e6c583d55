package integracion

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/sistemamasajes/integracion/pkg/core"
	"github.com/sistemamasajes/integracion/pkg/dualwrite"
	"github.com/sistemamasajes/integracion/pkg/events"
	"github.com/sistemamasajes/integracion/pkg/logger"
	"github.com/sistemamasajes/integracion/pkg/models"
	"github.com/sistemamasajes/integracion/pkg/outbox"
	"github.com/sistemamasajes/integracion/pkg/store/gormstore"
	"github.com/sistemamasajes/integracion/pkg/syncqueue"
	"github.com/sistemamasajes/integracion/pkg/syncworker"
)

// App is the composition root. It owns the sync queue and hands it to the
// gateways as producers and to the worker as the only consumer.
type App struct {
	config  *Config
	log     zerolog.Logger
	started time.Time

	db      *gormstore.DB
	core    *core.Client
	queue   *syncqueue.Queue
	journal *outbox.Journal // nil unless sync.durable
	outbox  *outbox.Queue   // nil unless sync.durable
	hub     *events.Hub
	worker  *syncworker.Worker

	deferrer dualwrite.Deferrer
	readOnly atomic.Bool

	citas     *dualwrite.Gateway[models.Cita, *models.Cita]
	cuentas   *dualwrite.Gateway[models.CuentaPorCobrar, *models.CuentaPorCobrar]
	empleados *dualwrite.Gateway[models.Empleado, *models.Empleado]
	productos *dualwrite.Gateway[models.Producto, *models.Producto]
	servicios *dualwrite.Gateway[models.Servicio, *models.Servicio]
	router    *mux.Router
}

// New opens the local store and wires every component. It does not migrate
// the schema or start anything.
func New(config *Config, log zerolog.Logger) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := gormstore.Open(config.StoreDriver, config.StoreDSN, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	log.Info().Str("driver", config.StoreDriver).Msg("connected to local store")

	a := &App{
		config:  config,
		log:     log,
		started: time.Now(),
		db:      db,
		core: core.NewClient(config.CoreURL,
			core.WithTimeout(config.CoreTimeout),
			core.WithLogger(log),
		),
		queue: syncqueue.New(),
		hub:   events.NewHub(log),
	}
	a.readOnly.Store(config.ReadOnly)

	var (
		base    dualwrite.Deferrer = a.queue
		journal syncworker.Journal
	)
	if config.Durable {
		a.journal = outbox.NewJournal(db.Gorm())
		a.outbox = outbox.NewQueue(a.journal, a.queue, a.hub, log)
		base, journal = a.outbox, a.journal
	}
	a.deferrer = &notifyingDeferrer{next: base, notifier: a.hub}

	a.worker = syncworker.New(a.queue, a.core, syncworker.Config{
		Retryer:  config.retryer(),
		Journal:  journal,
		Notifier: a.hub,
		Logger:   log,
	})

	a.router = a.routes()
	return a, nil
}

func (c *Config) retryer() syncworker.Retryer {
	if c.Backoff == BackoffExponential {
		return syncworker.NewExponentialBackoffRetryer(c.RetryDelay, c.MaxRetries)
	}
	return syncworker.NewFixedDelayRetryer(c.RetryDelay, c.MaxRetries)
}

// Close closes the event feed and the local store.
func (a *App) Close() error {
	a.hub.Close()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Handler returns the HTTP handler with all routes and middleware.
func (a *App) Handler() http.Handler {
	return a.router
}

// Queue returns the in-memory sync queue.
func (a *App) Queue() *syncqueue.Queue {
	return a.queue
}

// Worker returns the sync worker. It is started by Run.
func (a *App) Worker() *syncworker.Worker {
	return a.worker
}

// SetReadOnly switches maintenance mode at runtime. While enabled, every local
// write is rejected with store.ErrReadOnly and nothing is sent to Core.
func (a *App) SetReadOnly(readOnly bool) {
	if a.readOnly.Swap(readOnly) != readOnly {
		a.log.Info().Bool("read_only", readOnly).Msg("read-only mode changed")
	}
}

// IsReadOnly is consulted by the local repositories on every write.
func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}

// applyConfig takes the settings that can change without a restart.
func (a *App) applyConfig(next *Config) {
	if level, err := logger.ParseLevel(next.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	a.SetReadOnly(next.ReadOnly)
}

// notifyingDeferrer announces every deferred write on the event feed.
type notifyingDeferrer struct {
	next     dualwrite.Deferrer
	notifier events.Notifier
}

func (d *notifyingDeferrer) Enqueue(task syncqueue.Task) {
	d.next.Enqueue(task)
	d.notifier.Notify(events.Event{
		Kind:     events.KindEnqueued,
		TaskID:   task.ID.String(),
		Endpoint: task.Endpoint,
		Method:   task.Op.Method(),
		Attempts: task.Attempts,
	})
}
