package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// SyncKind names the dataset a sync message refers to.
type SyncKind string

const (
	SyncLedger SyncKind = "ledger"
	SyncNotes  SyncKind = "notes"
)

// SyncMessage tells the mirror worker that a dataset changed in the primary
// store. It carries no rows: the worker re-reads the store, so a late or
// duplicated message still mirrors the latest state.
type SyncMessage struct {
	Kind      SyncKind  `json:"kind"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSyncMessage creates a new sync message stamped with the current time.
func NewSyncMessage(kind SyncKind, count int) *SyncMessage {
	return &SyncMessage{
		Kind:      kind,
		Count:     count,
		Timestamp: time.Now().UTC(),
	}
}

func (m *SyncMessage) Validate() error {
	switch m.Kind {
	case SyncLedger, SyncNotes:
		return nil
	default:
		return fmt.Errorf("unknown sync kind %q", m.Kind)
	}
}

// ToJSON converts the message to JSON bytes
func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncMessageFromJSON decodes and validates a message.
func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
