package syncqueue

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// cborTagUUID is the registered CBOR tag for a binary UUID.
const cborTagUUID = 37

// TaskID identifies one pending remote replay across retries, the outbox
// journal and the event feed.
type TaskID struct {
	uuid uuid.UUID
}

func NewTaskID() TaskID {
	return TaskID{uuid: uuid.New()}
}

func ParseTaskID(s string) (TaskID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return TaskID{}, fmt.Errorf("invalid task ID: %w", err)
	}
	return TaskID{uuid: id}, nil
}

func (t TaskID) String() string { return t.uuid.String() }
func (t TaskID) IsZero() bool   { return t.uuid == uuid.Nil }

func (t TaskID) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.uuid.String())
}

func (t *TaskID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	t.uuid = id
	return nil
}

func (t TaskID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  cborTagUUID,
		Content: t.uuid[:],
	})
}

func (t *TaskID) UnmarshalCBOR(data []byte) error {
	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return err
	}
	if tag.Number != cborTagUUID {
		return fmt.Errorf("invalid task ID: unexpected CBOR tag %d", tag.Number)
	}
	b, ok := tag.Content.([]byte)
	if !ok {
		return fmt.Errorf("invalid task ID: tag content is %T, not bytes", tag.Content)
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return fmt.Errorf("invalid task ID: %w", err)
	}
	t.uuid = id
	return nil
}

func (t TaskID) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.uuid.String(), nil
}

func (t *TaskID) Scan(value any) error {
	if value == nil {
		t.uuid = uuid.Nil
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into TaskID", value)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	t.uuid = id
	return nil
}
