// Package syncworker drains the sync queue into the Core API.
//
// A single [Worker] runs for the lifetime of the process. For every task it
// issues exactly one fire-and-forget remote call:
//
//   - On success the task is done.
//   - On a transport failure the task goes back to the tail of the queue and
//     the worker pauses before taking the next one. The pause comes from a
//     [Retryer]; by default it is a flat 10 seconds with unlimited retries.
//   - On any other failure the task is logged and dropped. Core will never
//     accept a payload it could not accept the first time, so retrying would
//     loop forever.
//
// The worker only stops when its context is cancelled, either while waiting
// for a task or while pausing. A remote call already in flight runs to
// completion or to the client timeout.
package syncworker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sistemamasajes/integracion/pkg/core"
	"github.com/sistemamasajes/integracion/pkg/events"
	"github.com/sistemamasajes/integracion/pkg/syncqueue"
)

// Journal records task outcomes when the queue is backed by a durable log.
type Journal interface {
	MarkProcessed(ctx context.Context, id syncqueue.TaskID) error
	MarkRetry(ctx context.Context, id syncqueue.TaskID, attempts int, cause error) error
	MarkDropped(ctx context.Context, id syncqueue.TaskID, cause error) error
}

// Config holds the optional collaborators of a Worker.
type Config struct {
	// Retryer defaults to a FixedDelayRetryer of DefaultRetryDelay with no cap.
	Retryer  Retryer
	Journal  Journal
	Notifier events.Notifier
	Logger   zerolog.Logger
}

// Stats counts task outcomes since the worker started.
type Stats struct {
	Processed uint64 `json:"processed"`
	Retried   uint64 `json:"retried"`
	Dropped   uint64 `json:"dropped"`
}

// Worker replays queued tasks against Core.
type Worker struct {
	queue    *syncqueue.Queue
	remote   syncqueue.Replayer
	retryer  Retryer
	journal  Journal
	notifier events.Notifier
	log      zerolog.Logger

	processed atomic.Uint64
	retried   atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a worker consuming queue and replaying into remote.
func New(queue *syncqueue.Queue, remote syncqueue.Replayer, cfg Config) *Worker {
	w := &Worker{
		queue:    queue,
		remote:   remote,
		retryer:  cfg.Retryer,
		journal:  cfg.Journal,
		notifier: cfg.Notifier,
		log:      cfg.Logger.With().Str("component", "syncworker").Logger(),
	}
	if w.retryer == nil {
		w.retryer = NewFixedDelayRetryer(DefaultRetryDelay, 0)
	}
	if w.journal == nil {
		w.journal = nopJournal{}
	}
	if w.notifier == nil {
		w.notifier = events.Nop{}
	}
	return w
}

// Stats returns the outcome counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Processed: w.processed.Load(),
		Retried:   w.retried.Load(),
		Dropped:   w.dropped.Load(),
	}
}

// Run processes tasks until ctx is cancelled. It returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Msg("sync worker started")
	defer w.log.Info().Msg("sync worker stopped")

	for ctx.Err() == nil {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if delay, pause := w.process(ctx, task); pause {
			if !sleep(ctx, delay) {
				return nil
			}
		}
	}
	return nil
}

// process replays one task and reports whether the worker should pause.
func (w *Worker) process(ctx context.Context, task syncqueue.Task) (time.Duration, bool) {
	log := w.log.With().
		Str("task_id", task.ID.String()).
		Str("endpoint", task.Endpoint).
		Str("method", task.Op.Method()).
		Int("attempts", task.Attempts).
		Logger()

	// Outcomes are recorded even when shutdown starts mid-call.
	detached := context.WithoutCancel(ctx)

	err := task.Op.Replay(detached, w.remote, task.Endpoint)
	if err == nil {
		log.Info().Msg("task replayed")
		w.record(log, w.journal.MarkProcessed(detached, task.ID))
		w.notify(events.KindReplayed, task, nil)
		w.processed.Add(1)
		return 0, false
	}

	if !errors.Is(err, core.ErrUnavailable) {
		log.Error().Err(err).Msg("unexpected error replaying task, dropped")
		w.record(log, w.journal.MarkDropped(detached, task.ID, err))
		w.notify(events.KindDropped, task, err)
		w.dropped.Add(1)
		return 0, false
	}

	delay, retry := w.retryer.NextDelay(task.Attempts, err)
	task.Attempts++
	if !retry {
		log.Error().Err(err).Msg("retry budget exhausted, task dropped")
		w.record(log, w.journal.MarkDropped(detached, task.ID, err))
		w.notify(events.KindDropped, task, err)
		w.dropped.Add(1)
		return 0, false
	}

	log.Warn().Err(err).Dur("backoff", delay).Msg("core unavailable, task re-enqueued")
	w.record(log, w.journal.MarkRetry(detached, task.ID, task.Attempts, err))
	w.queue.Enqueue(task)
	w.notify(events.KindRetrying, task, err)
	w.retried.Add(1)
	return delay, true
}

func (w *Worker) record(log zerolog.Logger, err error) {
	if err != nil {
		log.Error().Err(err).Msg("failed to journal task outcome")
	}
}

func (w *Worker) notify(kind events.Kind, task syncqueue.Task, err error) {
	ev := events.Event{
		Kind:     kind,
		TaskID:   task.ID.String(),
		Endpoint: task.Endpoint,
		Method:   task.Op.Method(),
		Attempts: task.Attempts,
		At:       time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	w.notifier.Notify(ev)
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

type nopJournal struct{}

func (nopJournal) MarkProcessed(context.Context, syncqueue.TaskID) error         { return nil }
func (nopJournal) MarkRetry(context.Context, syncqueue.TaskID, int, error) error { return nil }
func (nopJournal) MarkDropped(context.Context, syncqueue.TaskID, error) error    { return nil }
