package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"moodcal/internal/core"
)

// ChangeKind names the write that produced a change message.
type ChangeKind string

const (
	KindEntryUpserted ChangeKind = "entry.upserted"
	KindEntryDeleted  ChangeKind = "entry.deleted"
	KindPersonSaved   ChangeKind = "person.saved"
	KindPersonDeleted ChangeKind = "person.deleted"
	KindCycleApplied  ChangeKind = "cycle.applied"
)

func (k ChangeKind) Valid() bool {
	switch k {
	case KindEntryUpserted, KindEntryDeleted, KindPersonSaved, KindPersonDeleted, KindCycleApplied:
		return true
	}
	return false
}

// ChangeMessage announces a committed write. It carries references only;
// consumers re-read current state from the store.
type ChangeMessage struct {
	ID        string      `json:"id"`
	Kind      ChangeKind  `json:"kind"`
	PersonID  int64       `json:"person_id"`
	Dates     []core.Date `json:"dates,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewChangeMessage creates a message with a fresh ID and timestamp.
func NewChangeMessage(kind ChangeKind, personID int64, dates ...core.Date) *ChangeMessage {
	return &ChangeMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		PersonID:  personID,
		Dates:     dates,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and checks a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("unknown change kind %q", msg.Kind)
	}
	return &msg, nil
}
