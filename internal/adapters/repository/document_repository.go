package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/glassfocus/core/internal/infrastructure/database"
	"github.com/glassfocus/core/internal/ports"
)

// DocumentRepository implements the document store interface on SQLite.
// Every logical document is its own row, so corruption or loss of one
// never affects the others.
type DocumentRepository struct {
	db *database.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *database.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Get returns the raw serialized document for key
func (r *DocumentRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	query := `SELECT value FROM documents WHERE key = ?`

	err := r.db.DB.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document %q: %w", key, err)
	}

	return value, nil
}

// Put writes a single document
func (r *DocumentRepository) Put(ctx context.Context, key string, value []byte) error {
	_, err := r.db.DB.ExecContext(ctx, upsertQuery, key, value, nowRFC3339())
	if err != nil {
		return fmt.Errorf("failed to put document %q: %w", key, err)
	}
	return nil
}

// PutAll writes the given documents in one transaction, so a partial write
// never becomes durable.
func (r *DocumentRepository) PutAll(ctx context.Context, docs map[string][]byte) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		now := nowRFC3339()
		for key, value := range docs {
			if _, err := tx.ExecContext(ctx, upsertQuery, key, value, now); err != nil {
				return fmt.Errorf("failed to put document %q: %w", key, err)
			}
		}
		return nil
	})
}

// Delete removes a document
func (r *DocumentRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.DB.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete document %q: %w", key, err)
	}
	return nil
}

const upsertQuery = `
	INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
