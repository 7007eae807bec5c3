// Package sqlite provides an AutomationStore backed by a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/ports"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirPermissions = 0750

	// busyTimeoutMS bounds the wait for a locked database.
	busyTimeoutMS = 5000

	connectionTimeout = 5 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS automations (
	id         TEXT PRIMARY KEY,
	alias      TEXT NOT NULL DEFAULT '',
	yaml       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store implements ports.AutomationStore on a single SQLite table.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the database directory if needed, opens the file in WAL mode
// and applies the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		path = filepath.Join(".cafe", "cafe.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL", path, busyTimeoutMS)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Save inserts or replaces the automation.
func (s *Store) Save(ctx context.Context, a *ports.StoredAutomation) error {
	if err := ports.ValidateID(a.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO automations (id, alias, yaml, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET alias = excluded.alias, yaml = excluded.yaml, updated_at = excluded.updated_at`,
		a.ID, a.Alias, a.YAML, a.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("saving automation %s: %w", a.ID, err)
	}
	return nil
}

// Load returns the automation or domain.ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) (*ports.StoredAutomation, error) {
	if err := ports.ValidateID(id); err != nil {
		return nil, err
	}
	var (
		a       ports.StoredAutomation
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, alias, yaml, updated_at FROM automations WHERE id = ?`, id).
		Scan(&a.ID, &a.Alias, &a.YAML, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading automation %s: %w", id, err)
	}
	a.UpdatedAt = time.Unix(0, updated)
	return &a, nil
}

// Delete removes the automation. Missing ids are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ports.ValidateID(id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM automations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting automation %s: %w", id, err)
	}
	return nil
}

// List returns all ids ordered by id.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM automations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing automations: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning automation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}
