// Package store persists the record cache to a local SQLite database so
// cached extractions survive a restart.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/DonatFortini/mailmate/internal/cache"
	"github.com/DonatFortini/mailmate/internal/model"
)

// SQLiteStore implements cache.Persister using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SaveEntry inserts or replaces a cached record.
func (s *SQLiteStore) SaveEntry(record *model.EmailRecord, storedAt time.Time) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling record %s: %w", record.ID, err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO cache_entries (id, provider, record, stored_at)
		VALUES (?, ?, ?, ?)`,
		record.ID, string(record.Provider), string(payload), storedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving cache entry %s: %w", record.ID, err)
	}

	return nil
}

// LoadEntries retrieves every persisted cache entry.
func (s *SQLiteStore) LoadEntries() ([]cache.StoredEntry, error) {
	rows, err := s.db.Queryx("SELECT record, stored_at FROM cache_entries")
	if err != nil {
		return nil, fmt.Errorf("querying cache entries: %w", err)
	}
	defer rows.Close()

	var entries []cache.StoredEntry
	for rows.Next() {
		var (
			payload  string
			storedAt time.Time
		)
		if err := rows.Scan(&payload, &storedAt); err != nil {
			return nil, fmt.Errorf("scanning cache entry row: %w", err)
		}

		var record model.EmailRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return nil, fmt.Errorf("unmarshaling cache entry: %w", err)
		}

		entries = append(entries, cache.StoredEntry{
			Record:   &record,
			StoredAt: storedAt,
		})
	}

	return entries, rows.Err()
}

// DeleteEntry removes a cached record by ID.
func (s *SQLiteStore) DeleteEntry(id string) error {
	_, err := s.db.Exec("DELETE FROM cache_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting cache entry %s: %w", id, err)
	}
	return nil
}

// DeleteAll clears every cached record and the current pointer.
func (s *SQLiteStore) DeleteAll() error {
	if _, err := s.db.Exec("DELETE FROM cache_entries"); err != nil {
		return fmt.Errorf("clearing cache entries: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM current_pointer"); err != nil {
		return fmt.Errorf("clearing current pointer: %w", err)
	}
	return nil
}

// SetCurrent records the id of the most recently cached extraction. The
// pointer is a single-slot table.
func (s *SQLiteStore) SetCurrent(id string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO current_pointer (slot, record_id)
		VALUES (0, ?)`, id,
	)
	if err != nil {
		return fmt.Errorf("saving current pointer: %w", err)
	}
	return nil
}

// Current returns the persisted current pointer, or empty when none is set.
func (s *SQLiteStore) Current() (string, error) {
	var id string
	err := s.db.Get(&id, "SELECT record_id FROM current_pointer WHERE slot = 0")
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading current pointer: %w", err)
	}
	return id, nil
}
