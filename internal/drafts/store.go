// Package drafts persists in-progress workflow drafts to a local sqlite
// database so an operator can close the console and resume later. The draft
// payload is stored as an opaque JSON document; this package knows nothing
// about the workflow's internal shape.
package drafts

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"opsdeck/internal/logging"
)

// ErrNotFound is returned when a draft id resolves to nothing.
var ErrNotFound = errors.New("draft not found")

// Meta describes a stored draft without its payload.
type Meta struct {
	ID          string    `json:"id"`
	ProjectName string    `json:"project_name"`
	Mode        string    `json:"mode"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is the sqlite-backed draft store. Safe for use from one process;
// sqlite's busy timeout covers concurrent console instances.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	id           TEXT PRIMARY KEY,
	project_name TEXT NOT NULL DEFAULT '',
	mode         TEXT NOT NULL DEFAULT '',
	payload      TEXT NOT NULL,
	updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_drafts_updated ON drafts(updated_at DESC);
`

// Open opens (or creates) the draft database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open draft database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize draft schema: %w", err)
	}
	logging.Store("Draft store opened at %s", path)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts a draft payload. An empty id allocates a new one; the assigned
// id is returned either way.
func (s *Store) Save(id, projectName, mode string, payload any) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft payload: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO drafts (id, project_name, mode, payload, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET
			project_name = excluded.project_name,
			mode = excluded.mode,
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP`,
		id, projectName, mode, string(data),
	)
	if err != nil {
		logging.StoreError("Failed to save draft %s: %v", id, err)
		return "", fmt.Errorf("failed to save draft: %w", err)
	}
	logging.StoreDebug("Draft saved: id=%s project=%q mode=%s bytes=%d", id, projectName, mode, len(data))
	return id, nil
}

// Load reads a draft payload into out.
func (s *Store) Load(id string, out any) error {
	var data string
	err := s.db.QueryRow("SELECT payload FROM drafts WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load draft %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("failed to decode draft %s: %w", id, err)
	}
	return nil
}

// List returns draft metadata, newest first.
func (s *Store) List() ([]Meta, error) {
	rows, err := s.db.Query(
		"SELECT id, project_name, mode, updated_at FROM drafts ORDER BY updated_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		var m Meta
		if err := rows.Scan(&m.ID, &m.ProjectName, &m.Mode, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draft row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a draft. Deleting a missing id returns ErrNotFound.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM drafts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	logging.StoreDebug("Draft deleted: id=%s", id)
	return nil
}
