package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/crosse/internal/store"
)

// EventRepository handles event data access
type EventRepository struct {
	db *store.Database
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *store.Database) *EventRepository {
	return &EventRepository{db: db}
}

// Upsert inserts or refreshes an event keyed on (name, start_date)
// and returns its id. Fails if the deployed schema enforces a
// different uniqueness constraint; see FindByName for the fallback.
func (r *EventRepository) Upsert(ctx context.Context, name string, startDate sql.NullTime) (int, error) {
	query := `
		INSERT INTO events (name, start_date)
		VALUES ($1, $2)
		ON CONFLICT (name, start_date) DO UPDATE SET
			updated_at = NOW()
		RETURNING event_id
	`

	var eventID int
	err := r.db.DB().QueryRowContext(ctx, query, name, startDate).Scan(&eventID)
	if err != nil {
		return 0, fmt.Errorf("upserting event: %w", err)
	}

	return eventID, nil
}

// FindByName returns the first event matching the name case-insensitively
func (r *EventRepository) FindByName(ctx context.Context, name string) (int, error) {
	query := `
		SELECT event_id
		FROM events
		WHERE LOWER(name) = LOWER($1)
		ORDER BY event_id
		LIMIT 1
	`

	var eventID int
	err := r.db.DB().QueryRowContext(ctx, query, name).Scan(&eventID)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("event %q: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("querying event: %w", err)
	}

	return eventID, nil
}
