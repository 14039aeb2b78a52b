package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// MutationMessage announces one committed ledger mutation. It carries only
// the transaction id and the ledger version; consumers fetch the current
// row from storage, so a late delivery can never resurrect stale data.
type MutationMessage struct {
	Op        string    `json:"op"`
	ID        string    `json:"id"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewUpsertMessage(id string, version uint64) *MutationMessage {
	return &MutationMessage{Op: OpUpsert, ID: id, Version: version, Timestamp: time.Now()}
}

func NewDeleteMessage(id string, version uint64) *MutationMessage {
	return &MutationMessage{Op: OpDelete, ID: id, Version: version, Timestamp: time.Now()}
}

func (m *MutationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MutationMessageFromJSON(data []byte) (*MutationMessage, error) {
	var m MutationMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal mutation message: %w", err)
	}
	switch m.Op {
	case OpUpsert, OpDelete:
	default:
		return nil, fmt.Errorf("unknown mutation op %q", m.Op)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("mutation message without transaction id")
	}
	return &m, nil
}
