// Package store defines the local persistence contract used by the dual-write
// gateway.
//
// A [Repository] is the authoritative local copy of one entity type. Each write
// method runs in its own local transaction: either the whole write commits or
// nothing does. Remote synchronization never happens inside a repository call,
// so a committed local write is visible before any attempt to mirror it.
//
// The [github.com/sistemamasajes/integracion/pkg/store/gormstore] package
// provides the GORM implementation for PostgreSQL and embedded SQLite.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Update and Delete when no row has the given key.
	ErrNotFound = errors.New("record not found")

	// ErrReadOnly is returned by every write while the store is in maintenance mode.
	ErrReadOnly = errors.New("operation denied: store is in read-only mode")
)

// Filter restricts a local listing by column equality, e.g.
// Filter{"cliente_id": 3}. A [Contains] value matches a substring instead.
type Filter map[string]any

// Contains matches rows whose column contains the text, ignoring case, e.g.
// Filter{"nombre_producto": Contains("aceite")}.
type Contains string

// Repository is the transactional local store for one entity type.
//
// Get returns nil, nil when the key does not exist, matching how callers fall
// back between sources. Update and Delete report a missing key as ErrNotFound
// because the caller asked to mutate something specific.
type Repository[T any] interface {
	List(ctx context.Context) ([]T, error)
	Find(ctx context.Context, filter Filter) ([]T, error)
	Get(ctx context.Context, id int) (*T, error)

	// Create inserts entity and fills in its key.
	Create(ctx context.Context, entity *T) error

	// Update loads the row with the given key and overwrites its fields with
	// entity. The caller guarantees the entity carries the same key.
	Update(ctx context.Context, id int, entity *T) error

	// Delete removes the row with the given key and returns it as it was.
	Delete(ctx context.Context, id int) (*T, error)
}
