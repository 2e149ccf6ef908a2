package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fortuna/crosse/internal/store"
)

// QueueRepository handles scrape queue state access
type QueueRepository struct {
	db *store.Database
}

// NewQueueRepository creates a new queue repository
func NewQueueRepository(db *store.Database) *QueueRepository {
	return &QueueRepository{db: db}
}

// UpsertState records the outcome of the most recent attempt for a URL.
// One row per URL, updated in place, never appended.
func (r *QueueRepository) UpsertState(ctx context.Context, url, source string, status store.QueueStatus, lastErr error) error {
	query := `
		INSERT INTO scrape_queue (url, source, status, last_run_at, last_error)
		VALUES ($1, $2, $3, NOW(), $4)
		ON CONFLICT (url) DO UPDATE SET
			source = EXCLUDED.source,
			status = EXCLUDED.status,
			last_run_at = NOW(),
			last_error = EXCLUDED.last_error
	`

	var errText sql.NullString
	if lastErr != nil {
		errText = sql.NullString{String: lastErr.Error(), Valid: true}
	}

	if _, err := r.db.DB().ExecContext(ctx, query, url, source, string(status), errText); err != nil {
		return fmt.Errorf("upserting queue state: %w", err)
	}

	return nil
}

// ListRecent returns the most recently attempted queue entries
func (r *QueueRepository) ListRecent(ctx context.Context, limit int) ([]*store.QueueEntry, error) {
	query := `
		SELECT queue_id, url, source, status, last_run_at, last_error, created_at
		FROM scrape_queue
		ORDER BY last_run_at DESC
		LIMIT $1
	`

	rows, err := r.db.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying queue: %w", err)
	}
	defer rows.Close()

	var entries []*store.QueueEntry
	for rows.Next() {
		entry := &store.QueueEntry{}
		err := rows.Scan(
			&entry.QueueID, &entry.URL, &entry.Source, &entry.Status,
			&entry.LastRunAt, &entry.LastError, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning queue entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
