package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Replayer performs the fire-and-forget remote calls a task replays into.
// The Core client implements it.
type Replayer interface {
	Create(ctx context.Context, endpoint string, payload json.RawMessage) error
	Update(ctx context.Context, endpoint string, payload json.RawMessage) error
	Remove(ctx context.Context, endpoint string) error
}

// Op is the remote operation a task replays. The set of operations is closed:
// Create, Update and Delete are its only implementations, and each one knows
// which remote call it maps to.
type Op interface {
	// Method returns the HTTP method the operation replays as.
	Method() string
	// Payload returns the encoded entity, or nil for Delete.
	Payload() json.RawMessage
	// Replay issues the remote call for endpoint.
	Replay(ctx context.Context, r Replayer, endpoint string) error

	sealed()
}

// Create replays a POST of the original entity.
type Create struct {
	Body json.RawMessage
}

func (Create) Method() string             { return http.MethodPost }
func (c Create) Payload() json.RawMessage { return c.Body }
func (Create) sealed()                    {}
func (c Create) Replay(ctx context.Context, r Replayer, endpoint string) error {
	return r.Create(ctx, endpoint, c.Body)
}

// Update replays a PUT of the entity as it was written locally.
type Update struct {
	Body json.RawMessage
}

func (Update) Method() string             { return http.MethodPut }
func (u Update) Payload() json.RawMessage { return u.Body }
func (Update) sealed()                    {}
func (u Update) Replay(ctx context.Context, r Replayer, endpoint string) error {
	return r.Update(ctx, endpoint, u.Body)
}

// Delete replays a DELETE. The endpoint carries the identifier.
type Delete struct{}

func (Delete) Method() string           { return http.MethodDelete }
func (Delete) Payload() json.RawMessage { return nil }
func (Delete) sealed()                  {}
func (Delete) Replay(ctx context.Context, r Replayer, endpoint string) error {
	return r.Remove(ctx, endpoint)
}

// NewCreate encodes entity into a Create operation.
func NewCreate(entity any) (Op, error) {
	body, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("encode create payload: %w", err)
	}
	return Create{Body: body}, nil
}

// NewUpdate encodes entity into an Update operation.
func NewUpdate(entity any) (Op, error) {
	body, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("encode update payload: %w", err)
	}
	return Update{Body: body}, nil
}

// OpFor rebuilds an operation from its persisted method and payload.
func OpFor(method string, payload []byte) (Op, error) {
	switch method {
	case http.MethodPost:
		return Create{Body: payload}, nil
	case http.MethodPut:
		return Update{Body: payload}, nil
	case http.MethodDelete:
		return Delete{}, nil
	}
	return nil, fmt.Errorf("unknown sync method %q", method)
}

// Task is one pending remote replay.
type Task struct {
	ID         TaskID
	Endpoint   string
	Op         Op
	Attempts   int
	EnqueuedAt time.Time
}

// NewTask creates a task for a first attempt.
func NewTask(endpoint string, op Op) Task {
	return Task{
		ID:         NewTaskID(),
		Endpoint:   endpoint,
		Op:         op,
		EnqueuedAt: time.Now(),
	}
}

type taskJSON struct {
	ID         TaskID          `json:"id"`
	Endpoint   string          `json:"endpoint"`
	Method     string          `json:"method"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(taskJSON{
		ID:         t.ID,
		Endpoint:   t.Endpoint,
		Method:     t.Op.Method(),
		Payload:    t.Op.Payload(),
		Attempts:   t.Attempts,
		EnqueuedAt: t.EnqueuedAt,
	})
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var raw taskJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	op, err := OpFor(raw.Method, raw.Payload)
	if err != nil {
		return err
	}
	*t = Task{
		ID:         raw.ID,
		Endpoint:   raw.Endpoint,
		Op:         op,
		Attempts:   raw.Attempts,
		EnqueuedAt: raw.EnqueuedAt,
	}
	return nil
}
