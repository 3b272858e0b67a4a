package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fieldkit/fieldsync/internal/adapter"
	"github.com/fieldkit/fieldsync/internal/logger"
	"github.com/fieldkit/fieldsync/internal/store"
	"github.com/fieldkit/fieldsync/internal/syncerr"
	"github.com/fieldkit/fieldsync/models"
)

// Worker pushes pending local records to the backend and pulls remote
// changes into the local store, one entity type at a time in dependency
// order, with every remote write gated by the Resolver.
type Worker struct {
	store    store.LocalStore
	backend  adapter.Backend
	resolver *Resolver
	log      *logger.Logger
	entities []models.EntityType
}

// NewWorker constructs a Worker over the engine's collaborators. The entity
// order is models.EntityOrder.
func NewWorker(st store.LocalStore, backend adapter.Backend, resolver *Resolver, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{
		store:    st,
		backend:  backend,
		resolver: resolver,
		log:      log.Component("worker"),
		entities: models.EntityOrder,
	}
}

// RunPass executes one full sync pass: sync-up of every entity type in
// dependency order, then sync-down. full ignores the pull watermarks.
//
// Per-record failures are classified and recorded on the row; only
// failures that affect the whole pass (connectivity, fetch errors, store
// errors) surface in the returned error, which drives the coordinator's
// circuit breaker.
func (w *Worker) RunPass(ctx context.Context, full bool) error {
	sess := store.NewWriteSession()
	w.log.Debug().Str("session", sess.ID()).Bool("full", full).Msg("sync pass started")

	var errs []error
	for _, entity := range w.entities {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.syncUp(ctx, sess, entity); err != nil {
			errs = append(errs, &syncerr.TableError{Table: entity, Err: err})
		}
	}
	for _, entity := range w.entities {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.syncDown(ctx, sess, entity, full); err != nil {
			errs = append(errs, &syncerr.TableError{Table: entity, Err: err})
		}
	}

	return errors.Join(errs...)
}

// RequeueFailed flips every failed record back to pending, for the
// user-initiated retry.
func (w *Worker) RequeueFailed(ctx context.Context) error {
	sess := store.NewWriteSession()
	var errs []error
	for _, entity := range w.entities {
		if err := w.store.RequeueFailed(ctx, sess, entity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// syncUp pushes the entity's pending records. Ids are marked in flight for
// the duration of the network round-trip so a concurrent realtime echo
// cannot clobber the write, and cleared regardless of outcome.
func (w *Worker) syncUp(ctx context.Context, sess store.WriteSession, entity models.EntityType) error {
	pending, err := w.store.Pending(ctx, entity)
	if err != nil {
		return fmt.Errorf("collect pending: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	ids := make([]string, len(pending))
	for i := range pending {
		ids[i] = pending[i].ID
	}
	w.resolver.MarkInFlight(entity, ids)
	defer w.resolver.ClearInFlight(entity)

	now := time.Now()
	var pushed []models.Record
	for i := range pending {
		rec := &pending[i]

		pushErr := w.backend.Upsert(ctx, *rec)
		if pushErr == nil {
			pushed = append(pushed, *rec)
			continue
		}

		c := syncerr.Classify(pushErr)
		if !c.Retryable {
			w.log.Warn().
				Str("entity", string(entity)).
				Str("id", rec.ID).
				Str("kind", string(c.Kind)).
				Msg("push failed terminally")
			if err = w.store.MarkFailed(ctx, sess, entity, rec.ID, c.Message); err != nil {
				return fmt.Errorf("mark failed: %w", err)
			}
			continue
		}

		// Retryable: record the attempt and stop pushing this entity; the
		// backend is unreachable and the remaining records retry next pass.
		if err = w.store.MarkRetry(ctx, sess, entity, rec.ID, c.Message); err != nil {
			return fmt.Errorf("mark retry: %w", err)
		}
		if err = w.store.MarkSynced(ctx, sess, entity, pushed, now); err != nil {
			return fmt.Errorf("mark synced: %w", err)
		}
		return fmt.Errorf("push %s: %w", rec.ID, pushErr)
	}

	if err = w.store.MarkSynced(ctx, sess, entity, pushed, now); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	w.log.Debug().
		Str("entity", string(entity)).
		Int("pushed", len(pushed)).
		Msg("sync-up finished")
	return nil
}

// syncDown pulls the entity's remote changes since the watermark and
// applies them through applyEvents.
func (w *Worker) syncDown(ctx context.Context, sess store.WriteSession, entity models.EntityType, full bool) error {
	var since time.Time
	if !full {
		var err error
		if since, err = w.store.Watermark(ctx, entity); err != nil {
			return fmt.Errorf("read watermark: %w", err)
		}
	}

	events, err := w.backend.FetchChanged(ctx, entity, since)
	if err != nil {
		return fmt.Errorf("fetch changes: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	return w.applyEvents(ctx, sess, entity, events, true)
}

// ApplyRemote feeds a single realtime change event through the same apply
// path the pull uses, so the resolver rules hold uniformly. Realtime
// applies never advance the watermark.
func (w *Worker) ApplyRemote(ctx context.Context, ev models.ChangeEvent) error {
	sess := store.NewWriteSession()
	return w.applyEvents(ctx, sess, ev.Entity, []models.ChangeEvent{ev}, false)
}

// applyEvents is the single remote-apply path shared by pulls and realtime
// events. Events apply in increasing updated_at order. A malformed event is
// skipped without aborting the batch; the watermark advance covers every
// observed event and happens atomically with the batch, only when the whole
// batch stores successfully.
func (w *Worker) applyEvents(ctx context.Context, sess store.WriteSession, entity models.EntityType, events []models.ChangeEvent, advanceWatermark bool) error {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].UpdatedAt.Before(events[j].UpdatedAt)
	})

	var (
		batch     []models.Record
		watermark time.Time
	)
	for i := range events {
		ev := events[i]
		if ev.UpdatedAt.After(watermark) {
			watermark = ev.UpdatedAt
		}

		rec, err := w.decodeEvent(ev)
		if err != nil {
			w.log.Warn().
				Err(err).
				Str("entity", string(entity)).
				Str("id", ev.RecordID).
				Msg("skipping undecodable remote record")
			continue
		}

		local, err := w.store.Get(ctx, entity, rec.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load local record %s: %w", rec.ID, err)
		}

		switch w.resolver.ShouldApplyRemote(local, entity, rec.ID, rec.UpdatedAt) {
		case ApplyRemote:
			batch = append(batch, *rec)
		case SkipConflict:
			if err = w.store.FlagRemoteChange(ctx, sess, entity, rec.ID); err != nil {
				return fmt.Errorf("flag conflict on %s: %w", rec.ID, err)
			}
		case SkipInFlight, SkipStale:
			w.log.Debug().
				Str("entity", string(entity)).
				Str("id", rec.ID).
				Msg("suppressed remote change")
		}
	}

	if !advanceWatermark {
		watermark = time.Time{}
	}
	if len(batch) == 0 && watermark.IsZero() {
		return nil
	}

	if err := w.store.ApplyRemoteBatch(ctx, sess, entity, batch, watermark); err != nil {
		return fmt.Errorf("apply remote batch: %w", err)
	}
	return nil
}

// decodeEvent turns a wire change event into the record envelope. Deletes
// may arrive without a payload; everything else must decode into the
// entity's concrete type.
func (w *Worker) decodeEvent(ev models.ChangeEvent) (*models.Record, error) {
	rec := &models.Record{
		ID:        ev.RecordID,
		Entity:    ev.Entity,
		Payload:   ev.Payload,
		UpdatedAt: ev.UpdatedAt,
	}
	if len(rec.Payload) == 0 {
		rec.Payload = []byte(`{}`)
	}

	if ev.Op == models.OpDelete {
		rec.Deleted = true
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: delete event without record id", models.ErrInvalidPayload)
		}
		return rec, nil
	}

	decoded, err := models.DecodePayload(ev.Entity, ev.Payload)
	if err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = decoded.RecordID()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = decoded.ModifiedAt()
	}
	return rec, nil
}
