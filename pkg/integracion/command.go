package integracion

import "time"

// Command represents a discrete application operation with its specific options.
//
// Parse turns the command line into one Command plus the shared [Config], and
// Main routes it to the matching method of [App]:
//   - [ServeCommand]: HTTP gateway and sync worker
//   - [MigrateCommand]: local schema migration and seed data
//   - [QueueCommand]: pending outbox entries
//   - [StatusCommand]: sync status of a running gateway
type Command interface {
	// Name returns the CLI sub-command name.
	Name() string
}

// ServeCommand starts the HTTP gateway together with the sync worker.
//
// The process runs until its context is cancelled. When the outbox is enabled
// (sync.durable), tasks left pending by a previous run are restored into the
// queue before the worker starts.
//
//	integracion serve
//	integracion --core-url http://core:5000/api/ --durable serve
type ServeCommand struct {
	// AutoMigrate migrates the local schema before serving.
	AutoMigrate bool
}

func (c *ServeCommand) Name() string {
	return "serve"
}

// MigrateCommand creates or updates the local tables, including the outbox.
// It is safe to run repeatedly.
//
//	integracion migrate
//	integracion migrate --seed
type MigrateCommand struct {
	// Seed inserts the sample clientes when they are missing.
	Seed bool
}

func (c *MigrateCommand) Name() string {
	return "migrate"
}

// QueueCommand lists the outbox entries still waiting for a replay.
//
//	integracion queue --limit 10
//	integracion queue --purge-before 168h
type QueueCommand struct {
	// Limit caps the number of entries shown. Zero shows all.
	Limit int
	// PurgeBefore deletes replayed entries processed longer ago than this
	// before listing. Zero keeps everything.
	PurgeBefore time.Duration
}

func (c *QueueCommand) Name() string {
	return "queue"
}

// StatusCommand asks a running gateway for its sync status.
type StatusCommand struct {
	// Addr is the base URL of the gateway, e.g. http://localhost:8080.
	Addr string
}

func (c *StatusCommand) Name() string {
	return "status"
}
