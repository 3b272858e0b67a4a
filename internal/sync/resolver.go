// Package sync contains the synchronization engine: the conflict resolver,
// the entity sync worker and the coordinator facade the UI talks to.
package sync

import (
	stdsync "sync"
	"time"

	"github.com/fieldkit/fieldsync/models"
)

// Verdict is the resolver's decision for one incoming remote change.
type Verdict int

const (
	// ApplyRemote: overwrite the local copy with the remote values.
	ApplyRemote Verdict = iota
	// SkipInFlight: the id is being pushed right now; the incoming change
	// is most likely our own echo.
	SkipInFlight
	// SkipStale: the remote version is not newer than the local pending
	// edit under last-write-wins.
	SkipStale
	// SkipConflict: a manual-strategy record has a local pending edit; the
	// conflict flag must be raised instead of overwriting.
	SkipConflict
)

// Resolver is the pure decision component gating every remote write. It
// tracks which record ids are currently in flight (being pushed this pass)
// per entity type, and composes that echo-suppression rule with the
// per-strategy timestamp rules.
//
// The two rules are kept here, in one place, so the worker never
// re-implements either.
type Resolver struct {
	strategyFor func(models.EntityType) models.ConflictStrategy

	mu       stdsync.Mutex
	inFlight map[models.EntityType]map[string]struct{}
}

// NewResolver builds a Resolver using the per-entity-type strategy table
// from models.
func NewResolver() *Resolver {
	return &Resolver{
		strategyFor: models.StrategyFor,
		inFlight:    make(map[models.EntityType]map[string]struct{}),
	}
}

// MarkInFlight records the ids about to be pushed for the entity type.
func (r *Resolver) MarkInFlight(entity models.EntityType, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.inFlight[entity]
	if set == nil {
		set = make(map[string]struct{}, len(ids))
		r.inFlight[entity] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
}

// ClearInFlight drops every in-flight mark for the entity type. Called when
// the push completes, successfully or not, so no id stays in flight forever.
func (r *Resolver) ClearInFlight(entity models.EntityType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, entity)
}

// IsInFlight reports whether the id is being pushed this pass.
func (r *Resolver) IsInFlight(entity models.EntityType, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inFlight[entity][id]
	return ok
}

// ShouldApplyRemote decides whether an incoming remote change with the
// given modification timestamp may overwrite the local record. local is nil
// when the id is unknown locally.
//
// Failed records still hold an unpushed local edit, so they are treated
// like pending ones.
func (r *Resolver) ShouldApplyRemote(local *models.Record, entity models.EntityType, id string, incoming time.Time) Verdict {
	if r.IsInFlight(entity, id) {
		return SkipInFlight
	}
	if local == nil {
		return ApplyRemote
	}

	locallyDirty := local.State == models.StatePending || local.State == models.StateFailed

	switch r.strategyFor(entity) {
	case models.ServerWins:
		return ApplyRemote

	case models.Manual:
		if locallyDirty {
			return SkipConflict
		}
		return ApplyRemote

	default: // models.LastWriteWins
		if !locallyDirty {
			return ApplyRemote
		}
		if incoming.After(local.UpdatedAt) {
			return ApplyRemote
		}
		return SkipStale
	}
}
