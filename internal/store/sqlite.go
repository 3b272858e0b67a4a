package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fieldkit/fieldsync/internal/logger"
	"github.com/fieldkit/fieldsync/migrations"
)

// timeLayout is the canonical text encoding for every timestamp column.
const timeLayout = time.RFC3339Nano

// Open opens (or creates) the local SQLite database at path, applies
// pragmas for single-writer concurrent use and runs the embedded
// migrations.
func Open(path string, log *logger.Logger) (LocalStore, error) {
	if path == "" {
		path = ":memory:"
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local store %s: %w", path, err)
	}

	// SQLite allows one writer; funnel everything through one connection so
	// database/sql's pool does not produce SQLITE_BUSY storms.
	db.SetMaxOpenConns(1)

	if err = migrations.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate local store: %w", err)
	}

	return NewRepository(db, log), nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode stored timestamp %q: %w", s, err)
	}
	return t, nil
}
