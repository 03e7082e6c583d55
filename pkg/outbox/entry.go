package outbox

import (
	"time"

	"github.com/sistemamasajes/integracion/pkg/syncqueue"
)

// Status is the lifecycle state of a journaled task.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusDropped Status = "dropped"
)

// Entry is one row of the outbox table: a sync task as it was handed to the
// in-memory queue, plus what happened to it since.
//
// Entries are written in the same process that enqueues the task and updated
// by the sync worker. On start-up every pending entry is replayed into the
// queue, which is what lets deferred writes survive a restart.
type Entry struct {
	ID          uint64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TaskID      syncqueue.TaskID `gorm:"type:varchar(36);uniqueIndex;not null" json:"taskId"`
	Endpoint    string           `gorm:"not null" json:"endpoint"`
	Method      string           `gorm:"size:8;not null" json:"method"`
	Payload     []byte           `json:"payload,omitempty"`
	Status      Status           `gorm:"size:16;not null;index" json:"status"`
	Attempts    int              `gorm:"default:0" json:"attempts"`
	LastError   string           `gorm:"type:text" json:"lastError,omitempty"`
	CreatedAt   time.Time        `gorm:"index" json:"createdAt"`
	ProcessedAt *time.Time       `json:"processedAt,omitempty"`
}

// TableName returns the table name for the outbox model
func (Entry) TableName() string {
	return "outbox"
}

// IsProcessed returns true once the entry reached a final state
func (e *Entry) IsProcessed() bool {
	return e.ProcessedAt != nil
}

// MarkProcessed marks the entry as successfully replayed
func (e *Entry) MarkProcessed(at time.Time) {
	e.Status = StatusDone
	e.ProcessedAt = &at
	e.LastError = ""
}

// MarkError records a failed attempt that will be retried
func (e *Entry) MarkError(attempts int, msg string) {
	e.Attempts = attempts
	e.LastError = msg
}

// MarkDropped marks the entry as abandoned
func (e *Entry) MarkDropped(at time.Time, msg string) {
	e.Status = StatusDropped
	e.ProcessedAt = &at
	e.LastError = msg
}

// Task rebuilds the queue task the entry was recorded from.
func (e *Entry) Task() (syncqueue.Task, error) {
	op, err := syncqueue.OpFor(e.Method, e.Payload)
	if err != nil {
		return syncqueue.Task{}, err
	}
	return syncqueue.Task{
		ID:         e.TaskID,
		Endpoint:   e.Endpoint,
		Op:         op,
		Attempts:   e.Attempts,
		EnqueuedAt: e.CreatedAt,
	}, nil
}

func newEntry(task syncqueue.Task) *Entry {
	return &Entry{
		TaskID:    task.ID,
		Endpoint:  task.Endpoint,
		Method:    task.Op.Method(),
		Payload:   task.Op.Payload(),
		Status:    StatusPending,
		Attempts:  task.Attempts,
		CreatedAt: task.EnqueuedAt,
	}
}
