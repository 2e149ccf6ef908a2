package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/crosse/internal/store"
)

// SourceRepository handles external source data access
type SourceRepository struct {
	db *store.Database
}

// NewSourceRepository creates a new source repository
func NewSourceRepository(db *store.Database) *SourceRepository {
	return &SourceRepository{db: db}
}

// GetByName finds a source by name, case-insensitively
func (r *SourceRepository) GetByName(ctx context.Context, name string) (*store.Source, error) {
	query := `
		SELECT source_id, name, base_url, created_at, updated_at
		FROM external_sources
		WHERE LOWER(name) = LOWER($1)
	`

	src := &store.Source{}
	err := r.db.DB().QueryRowContext(ctx, query, name).Scan(
		&src.SourceID, &src.Name, &src.BaseURL, &src.CreatedAt, &src.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %q: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying source: %w", err)
	}

	return src, nil
}

// Ensure returns the source with the given name, creating it if absent.
// Concurrent creators race; the unique index on LOWER(name) keeps one row.
func (r *SourceRepository) Ensure(ctx context.Context, name, baseURL string) (*store.Source, error) {
	src, err := r.GetByName(ctx, name)
	if err == nil {
		return src, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	query := `
		INSERT INTO external_sources (name, base_url)
		VALUES ($1, $2)
		RETURNING source_id, name, base_url, created_at, updated_at
	`

	src = &store.Source{}
	err = r.db.DB().QueryRowContext(ctx, query, name, baseURL).Scan(
		&src.SourceID, &src.Name, &src.BaseURL, &src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating source: %w", err)
	}

	return src, nil
}
