package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/crosse/internal/store"
)

// LinkRepository handles external entity link data access.
// Links are the sole mechanism mapping a source site's identifiers
// to internal entities.
type LinkRepository struct {
	db *store.Database
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db *store.Database) *LinkRepository {
	return &LinkRepository{db: db}
}

// Find looks up a link by its (source_id, entity_type, external_id) key
func (r *LinkRepository) Find(ctx context.Context, sourceID int, entityType, externalID string) (*store.ExternalLink, error) {
	query := `
		SELECT link_id, source_id, entity_type, entity_id, external_id,
			external_url, last_synced_at, created_at
		FROM external_entity_links
		WHERE source_id = $1 AND entity_type = $2 AND external_id = $3
	`

	link := &store.ExternalLink{}
	err := r.db.DB().QueryRowContext(ctx, query, sourceID, entityType, externalID).Scan(
		&link.LinkID, &link.SourceID, &link.EntityType, &link.EntityID,
		&link.ExternalID, &link.ExternalURL, &link.LastSyncedAt, &link.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("link %s/%s: %w", entityType, externalID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying link: %w", err)
	}

	return link, nil
}

// Create inserts a new link, stamping last_synced_at
func (r *LinkRepository) Create(ctx context.Context, link *store.ExternalLink) error {
	query := `
		INSERT INTO external_entity_links (source_id, entity_type, entity_id, external_id, external_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING link_id, last_synced_at, created_at
	`

	err := r.db.DB().QueryRowContext(ctx, query,
		link.SourceID, link.EntityType, link.EntityID, link.ExternalID, link.ExternalURL,
	).Scan(&link.LinkID, &link.LastSyncedAt, &link.CreatedAt)

	if err != nil {
		return fmt.Errorf("creating link: %w", err)
	}

	return nil
}

// TouchSync bumps a link's last_synced_at to now
func (r *LinkRepository) TouchSync(ctx context.Context, linkID int) error {
	query := `
		UPDATE external_entity_links
		SET last_synced_at = NOW()
		WHERE link_id = $1
	`

	if _, err := r.db.DB().ExecContext(ctx, query, linkID); err != nil {
		return fmt.Errorf("touching link: %w", err)
	}

	return nil
}
