package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/glassfocus/core/internal/infrastructure/database"
	"github.com/glassfocus/core/internal/ports"
)

// ShellCacheRepository implements the versioned response cache on SQLite.
// Entries live under a cache name; deleting the name removes every entry
// with it, which is what makes version upgrades atomic-by-replacement.
type ShellCacheRepository struct {
	db *database.DB
}

// NewShellCacheRepository creates a new shell cache repository
func NewShellCacheRepository(db *database.DB) *ShellCacheRepository {
	return &ShellCacheRepository{db: db}
}

// Open creates the named cache if it does not exist
func (r *ShellCacheRepository) Open(ctx context.Context, name string) error {
	query := `INSERT OR IGNORE INTO shell_caches (name, created_at) VALUES (?, ?)`

	_, err := r.db.DB.ExecContext(ctx, query, name, nowRFC3339())
	if err != nil {
		return fmt.Errorf("failed to open cache %q: %w", name, err)
	}
	return nil
}

// Put stores a response in the named cache, replacing any existing entry
// for the same URL
func (r *ShellCacheRepository) Put(ctx context.Context, name string, res *ports.CachedResponse) error {
	headers, err := json.Marshal(res.Header)
	if err != nil {
		return fmt.Errorf("failed to marshal headers for %q: %w", res.URL, err)
	}

	query := `
		INSERT INTO shell_entries (cache_name, url, status, headers, body, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_name, url) DO UPDATE SET
			status = excluded.status,
			headers = excluded.headers,
			body = excluded.body,
			fetched_at = excluded.fetched_at
	`

	_, err = r.db.DB.ExecContext(ctx, query,
		name,
		res.URL,
		res.Status,
		string(headers),
		res.Body,
		res.FetchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to put cache entry %q: %w", res.URL, err)
	}
	return nil
}

// Match returns the cached response for url in the named cache
func (r *ShellCacheRepository) Match(ctx context.Context, name, url string) (*ports.CachedResponse, error) {
	query := `
		SELECT url, status, headers, body, fetched_at
		FROM shell_entries WHERE cache_name = ? AND url = ?
	`

	var (
		res       ports.CachedResponse
		headers   string
		fetchedAt string
	)
	err := r.db.DB.QueryRowContext(ctx, query, name, url).Scan(
		&res.URL,
		&res.Status,
		&headers,
		&res.Body,
		&fetchedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to match cache entry %q: %w", url, err)
	}

	res.Header = make(http.Header)
	if err := json.Unmarshal([]byte(headers), &res.Header); err != nil {
		// A mangled header blob does not invalidate the body.
		res.Header = make(http.Header)
	}
	res.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)

	return &res, nil
}

// Names lists all existing cache names
func (r *ShellCacheRepository) Names(ctx context.Context) ([]string, error) {
	rows, err := r.db.DB.QueryContext(ctx, `SELECT name FROM shell_caches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes a named cache and all of its entries
func (r *ShellCacheRepository) Delete(ctx context.Context, name string) error {
	_, err := r.db.DB.ExecContext(ctx, `DELETE FROM shell_caches WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete cache %q: %w", name, err)
	}
	return nil
}
