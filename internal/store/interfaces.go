// Package store implements the local persistent store collaborator: a
// SQLite database holding the offline copy of every syncable record plus
// the per-entity pull watermarks.
//
// Two write paths exist. UI mutations (CreateLocal, UpdateLocal,
// SoftDelete) mark the row pending so the next pass pushes it. Engine
// mutations carry a [WriteSession] token and never re-mark rows pending;
// the token replaces the ambient "suppress pending during sync" flag the
// engine would otherwise need.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fieldkit/fieldsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

var (
	ErrNotFound = errors.New("record not found")

	// ErrNoSession is returned when an engine-only mutation is attempted
	// without a write session.
	ErrNoSession = errors.New("write session required")
)

// WriteSession is an opaque token identifying one engine sync pass. Store
// mutations bearing a session do not mark rows pending.
type WriteSession struct {
	id string
}

// NewWriteSession mints a session token for one sync pass.
func NewWriteSession() WriteSession {
	return WriteSession{id: uuid.New().String()}
}

// Valid reports whether the token was minted by NewWriteSession.
func (s WriteSession) Valid() bool { return s.id != "" }

// ID returns the session identifier for logging.
func (s WriteSession) ID() string { return s.id }

// LocalStore is the contract the sync engine depends on. All batch
// operations are transactional: a pulled batch either fully applies,
// together with its watermark advance, or not at all.
type LocalStore interface {
	// CreateLocal inserts a UI-created record, assigning an id when empty,
	// and marks it pending.
	CreateLocal(ctx context.Context, rec *models.Record) error

	// UpdateLocal overwrites a record's payload from the UI, advances
	// updated_at and marks it pending.
	UpdateLocal(ctx context.Context, rec *models.Record) error

	// SoftDelete sets the tombstone from the UI and marks the row pending
	// so the deletion syncs like any other mutation.
	SoftDelete(ctx context.Context, entity models.EntityType, id string) error

	// Get returns one record or ErrNotFound.
	Get(ctx context.Context, entity models.EntityType, id string) (*models.Record, error)

	// Pending returns all records of the entity type in state pending,
	// oldest modification first.
	Pending(ctx context.Context, entity models.EntityType) ([]models.Record, error)

	// ApplyRemoteBatch upserts remote records as synced inside one
	// transaction and, when watermark is non-zero, advances the entity's
	// watermark in the same transaction. Re-applying a record whose
	// updated_at and payload fingerprint are unchanged is a no-op.
	ApplyRemoteBatch(ctx context.Context, sess WriteSession, entity models.EntityType, recs []models.Record, watermark time.Time) error

	// MarkSynced records a successful push of the given record snapshots:
	// state synced, synced_at set, retry_count zeroed, last_sync_error
	// cleared. Only rows still matching the snapshot's updated_at are
	// touched; a row edited while its older version was mid-push stays
	// pending.
	MarkSynced(ctx context.Context, sess WriteSession, entity models.EntityType, recs []models.Record, at time.Time) error

	// MarkRetry records a retryable push failure: retry_count incremented,
	// state left pending, last_sync_error set.
	MarkRetry(ctx context.Context, sess WriteSession, entity models.EntityType, id, reason string) error

	// MarkFailed records a non-retryable push failure: state failed,
	// last_sync_error set. Failed rows are not picked up by Pending.
	MarkFailed(ctx context.Context, sess WriteSession, entity models.EntityType, id, reason string) error

	// RequeueFailed flips every failed row of the entity type back to
	// pending. Used by the user-initiated retry.
	RequeueFailed(ctx context.Context, sess WriteSession, entity models.EntityType) error

	// FlagRemoteChange sets the remote-change-while-pending marker without
	// touching the local values.
	FlagRemoteChange(ctx context.Context, sess WriteSession, entity models.EntityType, id string) error

	// Watermark returns the entity's last pull watermark, zero when the
	// entity has never been pulled.
	Watermark(ctx context.Context, entity models.EntityType) (time.Time, error)

	// Purge physically removes tombstoned rows older than the cutoff. The
	// engine never calls this; it exists for the external purger.
	Purge(ctx context.Context, entity models.EntityType, olderThan time.Time) (int64, error)

	Close() error
}
