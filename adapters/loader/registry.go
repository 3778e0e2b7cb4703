package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spindleworks/spindle/domain/manifest"
)

// Registry is a sqlite-backed manifest registry: published manifests are
// addressable by `registry:<name>` locators.
type Registry struct {
	db *sql.DB
}

// OpenRegistry opens (and if needed initializes) a registry database.
func OpenRegistry(dsn string) (*Registry, error) {
	db, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS manifests (
			locator    TEXT PRIMARY KEY,
			body       TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init registry schema: %w", err)
	}
	return &Registry{db: db}, nil
}

// Load fetches a published manifest body.
func (r *Registry) Load(ctx context.Context, locator string) ([]byte, error) {
	var body string
	err := r.db.QueryRowContext(ctx,
		`SELECT body FROM manifests WHERE locator = ?`, locator,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &manifest.LoadError{Locator: locator, Err: fmt.Errorf("not in registry")}
		}
		return nil, &manifest.LoadError{Locator: locator, Err: err}
	}
	return []byte(body), nil
}

// Publish stores or replaces a manifest body under locator.
func (r *Registry) Publish(ctx context.Context, locator string, body []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO manifests (locator, body, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(locator) DO UPDATE SET
			body = excluded.body,
			updated_at = CURRENT_TIMESTAMP
	`, locator, string(body))
	if err != nil {
		return fmt.Errorf("publish %q: %w", locator, err)
	}
	return nil
}

// Close closes the registry database.
func (r *Registry) Close() error {
	return r.db.Close()
}
