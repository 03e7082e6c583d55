// Package dualwrite implements the local-first write protocol shared by every
// entity the gateway exposes.
//
// A write first commits to the local store. Only then is it mirrored to Core.
// If Core cannot take it, for whatever reason, the write is still reported as
// successful, because the durable local copy exists, and a sync task is
// queued so the worker can replay it later:
//
//	| Failure point             | Local txn | Remote call   | Outcome                    |
//	|---------------------------|-----------|---------------|----------------------------|
//	| Local write fails         | rollback  | not attempted | error, nothing queued      |
//	| Entity missing (PUT/DEL)  | rollback  | not attempted | store.ErrNotFound          |
//	| Core unreachable / error  | commit    | failed        | Synced=false, task queued  |
//	| Core succeeds             | commit    | applied       | Synced=true, Core's answer |
//
// Reads go the other way: Core first, then the local store when Core is down
// or does not know the record. The two stores are never reconciled
// automatically.
//
// The protocol is written once as [Gateway] and instantiated per entity type.
package dualwrite

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sistemamasajes/integracion/pkg/core"
	"github.com/sistemamasajes/integracion/pkg/models"
	"github.com/sistemamasajes/integracion/pkg/store"
	"github.com/sistemamasajes/integracion/pkg/syncqueue"
)

var (
	// ErrValidation wraps field validation failures of the request entity.
	ErrValidation = errors.New("invalid entity")

	// ErrIDMismatch is returned by Update when the path id and the body id differ.
	ErrIDMismatch = errors.New("path id does not match body id")
)

// Remote is the typed side of the Core client.
type Remote interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Deferrer accepts tasks for later replay. It must not block or fail.
type Deferrer interface {
	Enqueue(task syncqueue.Task)
}

// Record constrains the type parameters of a Gateway: P is *T and implements
// models.Entity.
type Record[T any] interface {
	*T
	models.Entity
}

// Source tells which store answered a read.
type Source string

const (
	SourceCore  Source = "core"
	SourceLocal Source = "local"
)

// Result is the outcome of a write.
type Result[T any] struct {
	// Data is Core's representation when Synced, otherwise the local one.
	Data *T
	// Synced reports whether Core accepted the write.
	Synced bool
	// TaskID identifies the queued replay when not Synced.
	TaskID syncqueue.TaskID
}

// Gateway runs the dual-write protocol for entity type T.
type Gateway[T any, P Record[T]] struct {
	repo     store.Repository[T]
	remote   Remote
	deferrer Deferrer
	log      zerolog.Logger
}

// New creates the gateway for T.
func New[T any, P Record[T]](repo store.Repository[T], remote Remote, deferrer Deferrer, log zerolog.Logger) *Gateway[T, P] {
	g := &Gateway[T, P]{
		repo:     repo,
		remote:   remote,
		deferrer: deferrer,
	}
	g.log = log.With().Str("resource", g.Resource()).Logger()
	return g
}

// Resource returns the Core resource name of T.
func (g *Gateway[T, P]) Resource() string {
	var zero T
	return P(&zero).Resource()
}

func (g *Gateway[T, P]) endpoint(id int) string {
	return fmt.Sprintf("%s/%d", g.Resource(), id)
}

// logger prefers the request-scoped logger carried by ctx.
func (g *Gateway[T, P]) logger(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l.With().Str("resource", g.Resource()).Logger()
	}
	return g.log
}

func validate(entity models.Entity) error {
	if v, ok := entity.(models.Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return nil
}

// Create inserts entity locally, then mirrors it to Core.
func (g *Gateway[T, P]) Create(ctx context.Context, entity *T) (Result[T], error) {
	if err := validate(P(entity)); err != nil {
		return Result[T]{}, err
	}
	log := g.logger(ctx)

	if err := g.repo.Create(ctx, entity); err != nil {
		return Result[T]{}, fmt.Errorf("create %s locally: %w", g.Resource(), err)
	}
	log.Info().Int("id", P(entity).Key()).Msg("saved locally")

	var remote T
	if err := g.remote.Post(ctx, g.Resource(), entity, &remote); err != nil {
		op, opErr := syncqueue.NewCreate(entity)
		return g.deferWrite(log, err, g.Resource(), op, opErr, entity), nil
	}
	log.Info().Int("id", P(entity).Key()).Msg("confirmed by core")
	return Result[T]{Data: g.answer(&remote, entity), Synced: true}, nil
}

// Update overwrites the local row with entity, then mirrors it to Core. The
// entity must carry id as its key.
func (g *Gateway[T, P]) Update(ctx context.Context, id int, entity *T) (Result[T], error) {
	if P(entity).Key() != id {
		return Result[T]{}, ErrIDMismatch
	}
	if err := validate(P(entity)); err != nil {
		return Result[T]{}, err
	}
	log := g.logger(ctx)

	if err := g.repo.Update(ctx, id, entity); err != nil {
		return Result[T]{}, fmt.Errorf("update %s %d locally: %w", g.Resource(), id, err)
	}
	log.Info().Int("id", id).Msg("updated locally")

	var remote T
	if err := g.remote.Put(ctx, g.endpoint(id), entity, &remote); err != nil {
		op, opErr := syncqueue.NewUpdate(entity)
		return g.deferWrite(log, err, g.endpoint(id), op, opErr, entity), nil
	}
	log.Info().Int("id", id).Msg("update confirmed by core")
	return Result[T]{Data: g.answer(&remote, entity), Synced: true}, nil
}

// Modify loads the local row, applies mutate to it and runs Update with the
// result.
func (g *Gateway[T, P]) Modify(ctx context.Context, id int, mutate func(*T)) (Result[T], error) {
	current, err := g.repo.Get(ctx, id)
	if err != nil {
		return Result[T]{}, fmt.Errorf("load %s %d locally: %w", g.Resource(), id, err)
	}
	if current == nil {
		return Result[T]{}, fmt.Errorf("load %s %d locally: %w", g.Resource(), id, store.ErrNotFound)
	}
	mutate(current)
	P(current).SetKey(id)
	return g.Update(ctx, id, current)
}

// Delete removes the local row, then mirrors the removal to Core. Data holds
// the row as it was before removal.
func (g *Gateway[T, P]) Delete(ctx context.Context, id int) (Result[T], error) {
	log := g.logger(ctx)

	removed, err := g.repo.Delete(ctx, id)
	if err != nil {
		return Result[T]{}, fmt.Errorf("delete %s %d locally: %w", g.Resource(), id, err)
	}
	log.Info().Int("id", id).Msg("deleted locally")

	if err := g.remote.Delete(ctx, g.endpoint(id)); err != nil {
		return g.deferWrite(log, err, g.endpoint(id), syncqueue.Delete{}, nil, removed), nil
	}
	log.Info().Int("id", id).Msg("delete confirmed by core")
	return Result[T]{Data: removed, Synced: true}, nil
}

// answer returns Core's representation, or the local one when Core replied
// without a usable body.
func (g *Gateway[T, P]) answer(remote, local *T) *T {
	if P(remote).Key() == 0 {
		return local
	}
	return remote
}

// deferWrite queues the replay of a write Core did not accept. Transport
// failures and unexpected errors are handled alike and only logged apart.
func (g *Gateway[T, P]) deferWrite(log zerolog.Logger, cause error, endpoint string, op syncqueue.Op, opErr error, local *T) Result[T] {
	if errors.Is(cause, core.ErrUnavailable) {
		log.Warn().Err(cause).Str("endpoint", endpoint).Msg("core unavailable, write kept locally")
	} else {
		log.Error().Err(cause).Str("endpoint", endpoint).Msg("unexpected core error, write kept locally")
	}

	if opErr != nil {
		log.Error().Err(opErr).Str("endpoint", endpoint).Msg("write could not be queued for sync")
		return Result[T]{Data: local}
	}

	task := syncqueue.NewTask(endpoint, op)
	g.deferrer.Enqueue(task)
	log.Info().
		Str("task_id", task.ID.String()).
		Str("endpoint", endpoint).
		Str("method", op.Method()).
		Msg("queued for sync")
	return Result[T]{Data: local, TaskID: task.ID}
}

// List returns Core's list, or the local one when Core is unavailable.
func (g *Gateway[T, P]) List(ctx context.Context) ([]T, Source, error) {
	var remote []T
	err := g.remote.Get(ctx, g.Resource(), &remote)
	if err == nil {
		if remote == nil {
			remote = []T{}
		}
		return remote, SourceCore, nil
	}
	log := g.logger(ctx)
	log.Warn().Err(err).Msg("core list failed, falling back to local store")

	local, err := g.repo.List(ctx)
	if err != nil {
		return nil, SourceLocal, fmt.Errorf("list %s locally: %w", g.Resource(), err)
	}
	return local, SourceLocal, nil
}

// Get returns the record from Core, falling back to the local store when Core
// is unavailable or does not have it. store.ErrNotFound means neither has it.
func (g *Gateway[T, P]) Get(ctx context.Context, id int) (*T, Source, error) {
	var remote T
	err := g.remote.Get(ctx, g.endpoint(id), &remote)
	log := g.logger(ctx)
	switch {
	case err == nil && P(&remote).Key() != 0:
		return &remote, SourceCore, nil
	case err == nil || core.IsNotFound(err):
		log.Info().Int("id", id).Msg("not found in core, checking local store")
	default:
		log.Warn().Err(err).Int("id", id).Msg("core get failed, falling back to local store")
	}

	local, err := g.GetLocal(ctx, id)
	if err != nil {
		return nil, SourceLocal, err
	}
	return local, SourceLocal, nil
}

// ListLocal reads the local store only.
func (g *Gateway[T, P]) ListLocal(ctx context.Context) ([]T, error) {
	out, err := g.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s locally: %w", g.Resource(), err)
	}
	return out, nil
}

// FindLocal reads the local rows matching filter.
func (g *Gateway[T, P]) FindLocal(ctx context.Context, filter store.Filter) ([]T, error) {
	out, err := g.repo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find %s locally: %w", g.Resource(), err)
	}
	return out, nil
}

// GetLocal reads one local row. store.ErrNotFound means it does not exist.
func (g *Gateway[T, P]) GetLocal(ctx context.Context, id int) (*T, error) {
	out, err := g.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get %s %d locally: %w", g.Resource(), id, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%s %d: %w", g.Resource(), id, store.ErrNotFound)
	}
	return out, nil
}
