package gormstore

import (
	"context"
	"errors"
	"strings"

	"github.com/sistemamasajes/integracion/pkg/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repo is the GORM repository for one entity type. T must be a GORM model with
// an integer primary key.
type Repo[T any] struct {
	db      *gorm.DB
	preload []string
}

// RepoOption configures a Repo.
type RepoOption func(*repoOptions)

type repoOptions struct {
	preload []string
}

// WithPreload loads the named associations on every read, e.g. the lines of
// an invoice.
func WithPreload(associations ...string) RepoOption {
	return func(o *repoOptions) {
		o.preload = append(o.preload, associations...)
	}
}

// NewRepo creates a repository for T on the shared connection.
func NewRepo[T any](d *DB, opts ...RepoOption) *Repo[T] {
	var o repoOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Repo[T]{db: d.db, preload: o.preload}
}

var _ store.Repository[struct{}] = (*Repo[struct{}])(nil)

func (r *Repo[T]) read(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	for _, assoc := range r.preload {
		q = q.Preload(assoc)
	}
	return q
}

func (r *Repo[T]) List(ctx context.Context) ([]T, error) {
	out := []T{}
	err := r.read(ctx).Find(&out).Error
	return out, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *Repo[T]) Find(ctx context.Context, filter store.Filter) ([]T, error) {
	q := r.read(ctx)
	equal := map[string]any{}
	for column, value := range filter {
		if text, ok := value.(store.Contains); ok {
			pattern := "%" + likeEscaper.Replace(strings.ToLower(string(text))) + "%"
			q = q.Where("LOWER("+column+`) LIKE ? ESCAPE '\'`, pattern)
			continue
		}
		equal[column] = value
	}
	if len(equal) > 0 {
		q = q.Where(equal)
	}
	out := []T{}
	err := q.Find(&out).Error
	return out, err
}

func (r *Repo[T]) Get(ctx context.Context, id int) (*T, error) {
	var entity T
	err := r.read(ctx).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

func (r *Repo[T]) Create(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(entity).Error
	})
}

func (r *Repo[T]) Update(ctx context.Context, id int, entity *T) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing T
		if err := tx.First(&existing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		// Associations are owned by their own resources; only the row itself
		// is overwritten.
		return tx.Omit(clause.Associations).Save(entity).Error
	})
}

func (r *Repo[T]) Delete(ctx context.Context, id int) (*T, error) {
	var existing T
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		for _, assoc := range r.preload {
			q = q.Preload(assoc)
		}
		if err := q.First(&existing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		return tx.Select(clause.Associations).Delete(&existing).Error
	})
	if err != nil {
		return nil, err
	}
	return &existing, nil
}
