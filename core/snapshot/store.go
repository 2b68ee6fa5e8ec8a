// Package snapshot persists context entry records to sqlite. It is the
// durable-storage collaborator the core deliberately does not have: it talks
// to the store only through the public record codec, and the core never
// imports it.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/adalundhe/cwa/core/cwa"
)

var (
	ErrStoreClosed      = errors.New("snapshot store is closed")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Store saves and restores whole-store snapshots.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	closed bool
}

// SnapshotInfo describes one saved snapshot.
type SnapshotInfo struct {
	ID         string
	CreatedAt  time.Time
	EntryCount int
}

// Open opens (and if needed initializes) a snapshot database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	s := &Store{db: db, logger: normalizeLogger(logger)}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func normalizeLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func (s *Store) ensureSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			entry_count INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS snapshot_entries (
			snapshot_id TEXT NOT NULL,
			entry_id TEXT NOT NULL,
			entry_type TEXT NOT NULL,
			source TEXT NOT NULL,
			content TEXT,
			summary TEXT,
			created_at TEXT NOT NULL,
			refs TEXT,
			searchable INTEGER NOT NULL,
			compressed INTEGER NOT NULL,
			ttl INTEGER,
			parent_id TEXT,
			derived_from TEXT,
			priority INTEGER NOT NULL,
			PRIMARY KEY (snapshot_id, entry_id)
		);

		CREATE INDEX IF NOT EXISTS idx_snapshot_entries ON snapshot_entries(snapshot_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Saving
// =============================================================================

// Save writes every entry of the store as a record under a fresh snapshot id.
func (s *Store) Save(store *cwa.CentralContextStore) (string, error) {
	if s.closed {
		return "", ErrStoreClosed
	}

	entries := store.GetAll()
	snapshotID := uuid.New().String()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO snapshots (id, created_at, entry_count) VALUES (?, ?, ?)`,
		snapshotID, time.Now().Unix(), len(entries),
	); err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	for _, entry := range entries {
		if err := insertRecord(tx, snapshotID, entry.ToRecord()); err != nil {
			return "", fmt.Errorf("insert entry %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit snapshot: %w", err)
	}

	s.logger.Info("snapshot saved", "snapshot_id", snapshotID, "entries", len(entries))
	return snapshotID, nil
}

func insertRecord(tx *sql.Tx, snapshotID string, r cwa.Record) error {
	refs, _ := json.Marshal(r.References)
	derived, _ := json.Marshal(r.DerivedFrom)

	var ttl any
	if r.TTL != nil {
		ttl = *r.TTL
	}

	_, err := tx.Exec(`
		INSERT INTO snapshot_entries
		(snapshot_id, entry_id, entry_type, source, content, summary,
		 created_at, refs, searchable, compressed, ttl, parent_id,
		 derived_from, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, snapshotID, r.ID, r.EntryType, r.Source,
		nullableString(r.Content), nullableString(r.Summary),
		r.CreatedAt, string(refs), r.Searchable, r.Compressed,
		ttl, r.ParentID, string(derived), r.Priority)
	return err
}

func nullableString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// =============================================================================
// Loading
// =============================================================================

// Load replays a snapshot's records through the record codec into a fresh
// store.
func (s *Store) Load(snapshotID string) (*cwa.CentralContextStore, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}

	if err := s.snapshotExists(snapshotID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT entry_id, entry_type, source, content, summary, created_at,
		       refs, searchable, compressed, ttl, parent_id, derived_from,
		       priority
		FROM snapshot_entries
		WHERE snapshot_id = ?
		ORDER BY rowid ASC
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	store := cwa.NewStore()
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		entry, err := cwa.FromRecord(record)
		if err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", record.ID, err)
		}
		if _, err := store.Add(entry); err != nil {
			return nil, fmt.Errorf("restore entry %s: %w", record.ID, err)
		}
	}
	return store, rows.Err()
}

func (s *Store) snapshotExists(snapshotID string) error {
	var count int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM snapshots WHERE id = ?`, snapshotID,
	).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, snapshotID)
	}
	return nil
}

func scanRecord(rows *sql.Rows) (cwa.Record, error) {
	var r cwa.Record
	var content, summary, parentID sql.NullString
	var refs, derived sql.NullString
	var ttl sql.NullInt64

	err := rows.Scan(
		&r.ID, &r.EntryType, &r.Source, &content, &summary, &r.CreatedAt,
		&refs, &r.Searchable, &r.Compressed, &ttl, &parentID, &derived,
		&r.Priority,
	)
	if err != nil {
		return r, err
	}

	if content.Valid {
		r.Content = &content.String
	}
	if summary.Valid {
		r.Summary = &summary.String
	}
	if ttl.Valid {
		v := int(ttl.Int64)
		r.TTL = &v
	}
	r.ParentID = parentID.String

	unmarshalIfValid(refs, &r.References)
	unmarshalIfValid(derived, &r.DerivedFrom)
	return r, nil
}

func unmarshalIfValid[T any](ns sql.NullString, target *T) {
	if ns.Valid && ns.String != "" {
		_ = json.Unmarshal([]byte(ns.String), target)
	}
}

// =============================================================================
// Management
// =============================================================================

// List returns the saved snapshots, newest first.
func (s *Store) List() ([]SnapshotInfo, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(
		`SELECT id, created_at, entry_count FROM snapshots ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var createdAt int64
		if err := rows.Scan(&info.ID, &createdAt, &info.EntryCount); err != nil {
			return nil, err
		}
		info.CreatedAt = time.Unix(createdAt, 0)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes a snapshot and its entries. Absent ids are a no-op.
func (s *Store) Delete(snapshotID string) error {
	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`DELETE FROM snapshot_entries WHERE snapshot_id = ?`, snapshotID); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM snapshots WHERE id = ?`, snapshotID)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
