// Package events broadcasts sync queue activity to websocket subscribers.
//
// Operators connect to the feed to watch writes being deferred, replayed,
// retried and dropped as they happen. Frames are JSON text by default;
// clients that pass ?encoding=cbor receive CBOR binary frames instead.
package events

import (
	"time"
)

// Kind names a step in the life of a sync task.
type Kind string

const (
	KindEnqueued Kind = "enqueued"
	KindRestored Kind = "restored"
	KindReplayed Kind = "replayed"
	KindRetrying Kind = "retrying"
	KindDropped  Kind = "dropped"
)

// Event describes one state change of a sync task.
type Event struct {
	Kind     Kind      `json:"kind" cbor:"kind"`
	TaskID   string    `json:"taskId" cbor:"taskId"`
	Endpoint string    `json:"endpoint" cbor:"endpoint"`
	Method   string    `json:"method" cbor:"method"`
	Attempts int       `json:"attempts" cbor:"attempts"`
	Error    string    `json:"error,omitempty" cbor:"error,omitempty"`
	At       time.Time `json:"at" cbor:"at"`
}

// Notifier receives task events. Implementations must not block.
type Notifier interface {
	Notify(ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(Event) {}
