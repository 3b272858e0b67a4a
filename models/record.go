package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// EntityType identifies one syncable table.
type EntityType string

const (
	EntityUser       EntityType = "users"
	EntityProperty   EntityType = "properties"
	EntityListing    EntityType = "listings"
	EntityTask       EntityType = "tasks"
	EntityNote       EntityType = "notes"
	EntityAuditEntry EntityType = "audit_entries"
)

// EntityOrder is the sync dependency order: owner entity types come before
// entity types that reference them, so foreign keys resolve on first pass.
var EntityOrder = []EntityType{
	EntityUser,
	EntityProperty,
	EntityListing,
	EntityTask,
	EntityNote,
	EntityAuditEntry,
}

// SyncState is the local synchronization state of a record.
type SyncState string

const (
	StateSynced  SyncState = "synced"
	StatePending SyncState = "pending"
	StateFailed  SyncState = "failed"
)

// ConflictStrategy decides how a remote change is merged over a local copy.
type ConflictStrategy string

const (
	LastWriteWins ConflictStrategy = "last_write_wins"
	ServerWins    ConflictStrategy = "server_wins"
	Manual        ConflictStrategy = "manual"
)

// strategyByEntity fixes the conflict policy per entity type. Audit entries
// are append-only server truth; notes hold free text the user must merge by
// hand; everything else resolves on timestamps.
var strategyByEntity = map[EntityType]ConflictStrategy{
	EntityAuditEntry: ServerWins,
	EntityNote:       Manual,
}

// StrategyFor returns the conflict policy for an entity type.
// LastWriteWins is the default.
func StrategyFor(entity EntityType) ConflictStrategy {
	if s, ok := strategyByEntity[entity]; ok {
		return s
	}
	return LastWriteWins
}

// SyncMeta is the sync bookkeeping shared by every record regardless of its
// business payload.
type SyncMeta struct {
	SyncedAt      *time.Time `json:"synced_at,omitempty"`
	State         SyncState  `json:"sync_state"`
	LastSyncError string     `json:"last_sync_error,omitempty"`
	RetryCount    int        `json:"retry_count"`
	Deleted       bool       `json:"deleted"`

	// RemoteChangeWhilePending flags a latent conflict: a remote update for
	// this id arrived while the local copy was still pending. Never sent to
	// the server.
	RemoteChangeWhilePending bool `json:"-"`
}

// Syncable is implemented by every concrete record type eligible for
// synchronization. The engine operates on this interface only; it never
// switches on concrete entity types.
type Syncable interface {
	RecordID() string
	EntityKind() EntityType
	ModifiedAt() time.Time
	Strategy() ConflictStrategy
}

// Record is the generic envelope the engine and the local store move around:
// identity and sync bookkeeping plus the business fields as raw JSON.
type Record struct {
	ID        string          `json:"id"`
	Entity    EntityType      `json:"entity"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`

	SyncMeta
}

var _ Syncable = (*Record)(nil)

func (r *Record) RecordID() string           { return r.ID }
func (r *Record) EntityKind() EntityType     { return r.Entity }
func (r *Record) ModifiedAt() time.Time      { return r.UpdatedAt }
func (r *Record) Strategy() ConflictStrategy { return StrategyFor(r.Entity) }
func (r *Record) Meta() *SyncMeta            { return &r.SyncMeta }

// Fingerprint returns a stable content hash of the record's business payload.
// The store uses it to turn re-applies of an unchanged remote record into
// no-ops.
func (r *Record) Fingerprint() string {
	return fmt.Sprintf("%016x", xxhash.Sum64(r.Payload))
}
