package models

import (
	"encoding/json"
	"time"
)

// Operation is the kind of change carried by a ChangeEvent.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ChangeEvent is one remote change. Pulled batches and realtime
// notifications both decode into this shape so the engine applies them
// through a single path.
type ChangeEvent struct {
	Entity    EntityType      `json:"entity"`
	Op        Operation       `json:"op"`
	RecordID  string          `json:"record_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BroadcastEvent is a non-table-scoped realtime message, e.g. a server-side
// hint that clients should resynchronize.
type BroadcastEvent struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Broadcast topics the engine reacts to.
const (
	BroadcastResync = "resync"
)
