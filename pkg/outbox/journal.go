// Package outbox makes the sync queue durable.
//
// The in-memory [github.com/sistemamasajes/integracion/pkg/syncqueue.Queue]
// loses its tasks when the process stops. When durability is enabled, every
// task is first recorded as an [Entry] in the outbox table of the local store.
// The sync worker then marks entries done or dropped as it replays them, and
// [Queue.Restore] feeds the entries still pending back into the queue at the
// next start.
//
// The journal follows the queue, never the other way round: a task that could
// not be journaled is still enqueued in memory.
package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/sistemamasajes/integracion/pkg/syncqueue"
	"gorm.io/gorm"
)

// Stats counts outbox entries by status.
type Stats struct {
	Pending int64 `json:"pending"`
	Done    int64 `json:"done"`
	Dropped int64 `json:"dropped"`
}

// Journal stores sync tasks in the outbox table.
type Journal struct {
	db *gorm.DB
}

// NewJournal creates a journal on the local store connection.
func NewJournal(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

// Migrate creates the outbox table.
func (j *Journal) Migrate(ctx context.Context) error {
	return j.db.WithContext(ctx).AutoMigrate(&Entry{})
}

// Record journals a task that is about to be enqueued.
func (j *Journal) Record(ctx context.Context, task syncqueue.Task) error {
	if err := j.db.WithContext(ctx).Create(newEntry(task)).Error; err != nil {
		return fmt.Errorf("record task %s: %w", task.ID, err)
	}
	return nil
}

func (j *Journal) update(ctx context.Context, id syncqueue.TaskID, apply func(*Entry)) error {
	return j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e Entry
		if err := tx.Where("task_id = ?", id).First(&e).Error; err != nil {
			return fmt.Errorf("load task %s: %w", id, err)
		}
		apply(&e)
		return tx.Save(&e).Error
	})
}

// MarkProcessed records a successful replay.
func (j *Journal) MarkProcessed(ctx context.Context, id syncqueue.TaskID) error {
	return j.update(ctx, id, func(e *Entry) {
		e.MarkProcessed(time.Now())
	})
}

// MarkRetry records a transport failure; the entry stays pending.
func (j *Journal) MarkRetry(ctx context.Context, id syncqueue.TaskID, attempts int, cause error) error {
	return j.update(ctx, id, func(e *Entry) {
		e.MarkError(attempts, cause.Error())
	})
}

// MarkDropped records that the task was abandoned.
func (j *Journal) MarkDropped(ctx context.Context, id syncqueue.TaskID, cause error) error {
	return j.update(ctx, id, func(e *Entry) {
		e.MarkDropped(time.Now(), cause.Error())
	})
}

// Pending lists entries still waiting for a replay, oldest first. A limit of
// zero or less returns all of them.
func (j *Journal) Pending(ctx context.Context, limit int) ([]Entry, error) {
	q := j.db.WithContext(ctx).Where("status = ?", StatusPending).Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entries []Entry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return entries, nil
}

// Stats counts entries by status.
func (j *Journal) Stats(ctx context.Context) (Stats, error) {
	type row struct {
		Status Status
		N      int64
	}
	var rows []row
	err := j.db.WithContext(ctx).
		Model(&Entry{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return Stats{}, fmt.Errorf("count outbox entries: %w", err)
	}
	var s Stats
	for _, r := range rows {
		switch r.Status {
		case StatusPending:
			s.Pending = r.N
		case StatusDone:
			s.Done = r.N
		case StatusDropped:
			s.Dropped = r.N
		}
	}
	return s, nil
}

// Purge deletes done entries processed before cutoff and returns how many
// were removed. Dropped entries are kept for inspection.
func (j *Journal) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res := j.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", StatusDone, cutoff).
		Delete(&Entry{})
	return res.RowsAffected, res.Error
}
