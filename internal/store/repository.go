package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/fieldkit/fieldsync/internal/logger"
	"github.com/fieldkit/fieldsync/models"
)

// repository is the SQLite-backed implementation of [LocalStore]. All
// queries run against the "records" and "sync_watermarks" tables through
// the embedded *sql.DB.
type repository struct {
	db  *sql.DB
	log *logger.Logger
}

// NewRepository constructs a [LocalStore] over an already-migrated
// database handle.
func NewRepository(db *sql.DB, log *logger.Logger) LocalStore {
	if log == nil {
		log = logger.Nop()
	}
	return &repository{db: db, log: log.Component("store")}
}

var recordColumns = []string{
	"entity", "id", "payload", "updated_at", "synced_at", "sync_state",
	"last_sync_error", "retry_count", "deleted", "remote_change_pending",
	"fingerprint",
}

func (r *repository) CreateLocal(ctx context.Context, rec *models.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	rec.State = models.StatePending
	rec.LastSyncError = ""

	query, args, err := sq.Insert("records").
		Columns(recordColumns...).
		Values(rec.Entity, rec.ID, string(rec.Payload), encodeTime(rec.UpdatedAt),
			nil, rec.State, "", rec.RetryCount, rec.Deleted, false, rec.Fingerprint()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create query: %w", err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create %s/%s: %w", rec.Entity, rec.ID, err)
	}
	return nil
}

func (r *repository) UpdateLocal(ctx context.Context, rec *models.Record) error {
	rec.UpdatedAt = time.Now()
	rec.State = models.StatePending
	rec.LastSyncError = ""

	query, args, err := sq.Update("records").
		Set("payload", string(rec.Payload)).
		Set("updated_at", encodeTime(rec.UpdatedAt)).
		Set("sync_state", models.StatePending).
		Set("last_sync_error", "").
		Set("fingerprint", rec.Fingerprint()).
		Where(sq.Eq{"entity": rec.Entity, "id": rec.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", rec.Entity, rec.ID, err)
	}
	return requireRowAffected(res, rec.Entity, rec.ID)
}

func (r *repository) SoftDelete(ctx context.Context, entity models.EntityType, id string) error {
	query, args, err := sq.Update("records").
		Set("deleted", true).
		Set("updated_at", encodeTime(time.Now())).
		Set("sync_state", models.StatePending).
		Set("last_sync_error", "").
		Where(sq.Eq{"entity": entity, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build soft delete query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("soft delete %s/%s: %w", entity, id, err)
	}
	return requireRowAffected(res, entity, id)
}

func (r *repository) Get(ctx context.Context, entity models.EntityType, id string) (*models.Record, error) {
	query, args, err := sq.Select(recordColumns...).
		From("records").
		Where(sq.Eq{"entity": entity, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, entity, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", entity, id, err)
	}
	return rec, nil
}

func (r *repository) Pending(ctx context.Context, entity models.EntityType) ([]models.Record, error) {
	query, args, err := sq.Select(recordColumns...).
		From("records").
		Where(sq.Eq{"entity": entity, "sync_state": models.StatePending}).
		OrderBy("updated_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending %s: %w", entity, err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan pending %s row: %w", entity, scanErr)
		}
		out = append(out, *rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending %s rows: %w", entity, err)
	}
	return out, nil
}

const applyRemoteUpsert = `INSERT INTO records
    (entity, id, payload, updated_at, synced_at, sync_state, last_sync_error,
     retry_count, deleted, remote_change_pending, fingerprint)
VALUES (?, ?, ?, ?, ?, 'synced', '', 0, ?, 0, ?)
ON CONFLICT(entity, id) DO UPDATE SET
    payload               = excluded.payload,
    updated_at            = excluded.updated_at,
    synced_at             = excluded.synced_at,
    sync_state            = 'synced',
    last_sync_error       = '',
    retry_count           = 0,
    deleted               = excluded.deleted,
    remote_change_pending = 0,
    fingerprint           = excluded.fingerprint
WHERE NOT (records.updated_at = excluded.updated_at
           AND records.fingerprint = excluded.fingerprint)`

const watermarkUpsert = `INSERT INTO sync_watermarks (entity, watermark)
VALUES (?, ?)
ON CONFLICT(entity) DO UPDATE SET watermark = excluded.watermark`

func (r *repository) ApplyRemoteBatch(ctx context.Context, sess WriteSession, entity models.EntityType, recs []models.Record, watermark time.Time) error {
	if !sess.Valid() {
		return ErrNoSession
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply batch tx: %w", err)
	}
	defer tx.Rollback()

	now := encodeTime(time.Now())
	for i := range recs {
		rec := &recs[i]
		if _, err = tx.ExecContext(ctx, applyRemoteUpsert,
			entity, rec.ID, string(rec.Payload), encodeTime(rec.UpdatedAt),
			now, rec.Deleted, rec.Fingerprint(),
		); err != nil {
			return fmt.Errorf("apply remote %s/%s: %w", entity, rec.ID, err)
		}
	}

	if !watermark.IsZero() {
		if _, err = tx.ExecContext(ctx, watermarkUpsert, entity, encodeTime(watermark)); err != nil {
			return fmt.Errorf("advance %s watermark: %w", entity, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit apply batch: %w", err)
	}

	r.log.Debug().
		Str("entity", string(entity)).
		Int("records", len(recs)).
		Str("session", sess.ID()).
		Msg("applied remote batch")
	return nil
}

// MarkSynced records a successful push of the exact snapshots in recs. The
// update is guarded by updated_at: a row the UI edited while its older
// version was mid-push no longer matches the pushed snapshot and stays
// pending for the next pass.
func (r *repository) MarkSynced(ctx context.Context, sess WriteSession, entity models.EntityType, recs []models.Record, at time.Time) error {
	if !sess.Valid() {
		return ErrNoSession
	}
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark synced tx: %w", err)
	}
	defer tx.Rollback()

	for i := range recs {
		rec := &recs[i]

		query, args, buildErr := sq.Update("records").
			Set("sync_state", models.StateSynced).
			Set("synced_at", encodeTime(at)).
			Set("last_sync_error", "").
			Set("retry_count", 0).
			Where(sq.Eq{"entity": entity, "id": rec.ID, "updated_at": encodeTime(rec.UpdatedAt)}).
			ToSql()
		if buildErr != nil {
			return fmt.Errorf("build mark synced query: %w", buildErr)
		}

		res, execErr := tx.ExecContext(ctx, query, args...)
		if execErr != nil {
			return fmt.Errorf("mark %s/%s synced: %w", entity, rec.ID, execErr)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			r.log.Debug().
				Str("entity", string(entity)).
				Str("id", rec.ID).
				Msg("record changed during push, left pending")
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit mark synced: %w", err)
	}
	return nil
}

func (r *repository) MarkRetry(ctx context.Context, sess WriteSession, entity models.EntityType, id, reason string) error {
	if !sess.Valid() {
		return ErrNoSession
	}

	query, args, err := sq.Update("records").
		Set("retry_count", sq.Expr("retry_count + 1")).
		Set("last_sync_error", reason).
		Where(sq.Eq{"entity": entity, "id": id, "sync_state": models.StatePending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark retry query: %w", err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark %s/%s for retry: %w", entity, id, err)
	}
	return nil
}

func (r *repository) MarkFailed(ctx context.Context, sess WriteSession, entity models.EntityType, id, reason string) error {
	if !sess.Valid() {
		return ErrNoSession
	}

	query, args, err := sq.Update("records").
		Set("sync_state", models.StateFailed).
		Set("last_sync_error", reason).
		Where(sq.Eq{"entity": entity, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark failed query: %w", err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark %s/%s failed: %w", entity, id, err)
	}
	return nil
}

func (r *repository) RequeueFailed(ctx context.Context, sess WriteSession, entity models.EntityType) error {
	if !sess.Valid() {
		return ErrNoSession
	}

	query, args, err := sq.Update("records").
		Set("sync_state", models.StatePending).
		Set("last_sync_error", "").
		Where(sq.Eq{"entity": entity, "sync_state": models.StateFailed}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build requeue query: %w", err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("requeue failed %s: %w", entity, err)
	}
	return nil
}

func (r *repository) FlagRemoteChange(ctx context.Context, sess WriteSession, entity models.EntityType, id string) error {
	if !sess.Valid() {
		return ErrNoSession
	}

	query, args, err := sq.Update("records").
		Set("remote_change_pending", true).
		Where(sq.Eq{"entity": entity, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build flag remote change query: %w", err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("flag remote change %s/%s: %w", entity, id, err)
	}
	return nil
}

func (r *repository) Watermark(ctx context.Context, entity models.EntityType) (time.Time, error) {
	query, args, err := sq.Select("watermark").
		From("sync_watermarks").
		Where(sq.Eq{"entity": entity}).
		ToSql()
	if err != nil {
		return time.Time{}, fmt.Errorf("build watermark query: %w", err)
	}

	var raw string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query %s watermark: %w", entity, err)
	}
	return decodeTime(raw)
}

func (r *repository) Purge(ctx context.Context, entity models.EntityType, olderThan time.Time) (int64, error) {
	query, args, err := sq.Delete("records").
		Where(sq.Eq{"entity": entity, "deleted": true, "sync_state": models.StateSynced}).
		Where(sq.Lt{"updated_at": encodeTime(olderThan)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", entity, err)
	}
	return res.RowsAffected()
}

func (r *repository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		rec       models.Record
		payload   string
		updatedAt string
		syncedAt  sql.NullString
		state     string
		fp        string
	)

	if err := row.Scan(
		&rec.Entity, &rec.ID, &payload, &updatedAt, &syncedAt, &state,
		&rec.LastSyncError, &rec.RetryCount, &rec.Deleted,
		&rec.RemoteChangeWhilePending, &fp,
	); err != nil {
		return nil, err
	}

	rec.Payload = []byte(payload)
	rec.State = models.SyncState(state)

	var err error
	if rec.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	if syncedAt.Valid {
		t, decErr := decodeTime(syncedAt.String)
		if decErr != nil {
			return nil, decErr
		}
		rec.SyncedAt = &t
	}
	return &rec, nil
}

func requireRowAffected(res sql.Result, entity models.EntityType, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s/%s: %w", entity, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, entity, id)
	}
	return nil
}
