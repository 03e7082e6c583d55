package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sistemamasajes/integracion/pkg/events"
	"github.com/sistemamasajes/integracion/pkg/syncqueue"
)

const recordTimeout = 5 * time.Second

// Queue journals each task before handing it to the in-memory queue.
type Queue struct {
	journal  *Journal
	queue    *syncqueue.Queue
	notifier events.Notifier
	log      zerolog.Logger
}

// NewQueue wraps queue with journal. Restored tasks are announced to notifier,
// which may be nil.
func NewQueue(journal *Journal, queue *syncqueue.Queue, notifier events.Notifier, log zerolog.Logger) *Queue {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &Queue{
		journal:  journal,
		queue:    queue,
		notifier: notifier,
		log:      log.With().Str("component", "outbox").Logger(),
	}
}

// Enqueue records task and enqueues it. A journaling failure is logged and the
// task is enqueued anyway.
func (q *Queue) Enqueue(task syncqueue.Task) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := q.journal.Record(ctx, task); err != nil {
		q.log.Error().Err(err).Str("task_id", task.ID.String()).Msg("task not journaled, it will not survive a restart")
	}
	q.queue.Enqueue(task)
}

// Restore enqueues every pending entry and returns how many were restored.
// Entries that can no longer be decoded are marked dropped.
func (q *Queue) Restore(ctx context.Context) (int, error) {
	entries, err := q.journal.Pending(ctx, 0)
	if err != nil {
		return 0, err
	}
	restored := 0
	for i := range entries {
		task, err := entries[i].Task()
		if err != nil {
			q.log.Error().Err(err).Uint64("entry", entries[i].ID).Msg("undecodable outbox entry dropped")
			if markErr := q.journal.MarkDropped(ctx, entries[i].TaskID, err); markErr != nil {
				return restored, errors.Join(err, markErr)
			}
			continue
		}
		q.queue.Enqueue(task)
		q.notifier.Notify(events.Event{
			Kind:     events.KindRestored,
			TaskID:   task.ID.String(),
			Endpoint: task.Endpoint,
			Method:   task.Op.Method(),
			Attempts: task.Attempts,
		})
		restored++
	}
	return restored, nil
}
