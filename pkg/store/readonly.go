package store

import (
	"context"
)

// ReadOnly wraps a Repository and rejects writes while isReadOnly reports true.
//
// The flag is consulted on every call, so maintenance mode can be toggled at
// runtime without rebuilding the gateways. Reads always pass through.
type ReadOnly[T any] struct {
	Repository[T]
	isReadOnly func() bool
}

// NewReadOnly creates a read-only guard around repo.
func NewReadOnly[T any](repo Repository[T], isReadOnly func() bool) Repository[T] {
	return &ReadOnly[T]{
		Repository: repo,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying repository
func (r *ReadOnly[T]) Unwrap() Repository[T] {
	return r.Repository
}

func (r *ReadOnly[T]) checkReadOnly() error {
	if r.isReadOnly() {
		return ErrReadOnly
	}
	return nil
}

func (r *ReadOnly[T]) Create(ctx context.Context, entity *T) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Repository.Create(ctx, entity)
}

func (r *ReadOnly[T]) Update(ctx context.Context, id int, entity *T) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Repository.Update(ctx, id, entity)
}

func (r *ReadOnly[T]) Delete(ctx context.Context, id int) (*T, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Repository.Delete(ctx, id)
}
