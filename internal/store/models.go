package store

import (
	"database/sql"
	"time"
)

// Source represents an external site we scrape, identified by a stable name.
type Source struct {
	SourceID  int       `json:"source_id" db:"source_id"`
	Name      string    `json:"name" db:"name"`
	BaseURL   string    `json:"base_url" db:"base_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Team represents a club team created from scraped schedule pages.
type Team struct {
	TeamID    int           `json:"team_id" db:"team_id"`
	Name      string        `json:"name" db:"name"`
	GradYear  sql.NullInt32 `json:"grad_year,omitempty" db:"grad_year"`
	IsActive  bool          `json:"is_active" db:"is_active"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// ExternalLink maps a source site's identifier to an internal entity.
// Lookup key is (source_id, entity_type, external_id).
type ExternalLink struct {
	LinkID       int            `json:"link_id" db:"link_id"`
	SourceID     int            `json:"source_id" db:"source_id"`
	EntityType   string         `json:"entity_type" db:"entity_type"`
	EntityID     int            `json:"entity_id" db:"entity_id"`
	ExternalID   string         `json:"external_id" db:"external_id"`
	ExternalURL  sql.NullString `json:"external_url,omitempty" db:"external_url"`
	LastSyncedAt time.Time      `json:"last_synced_at" db:"last_synced_at"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// Event represents a tournament or league event games belong to.
type Event struct {
	EventID   int          `json:"event_id" db:"event_id"`
	Name      string       `json:"name" db:"name"`
	StartDate sql.NullTime `json:"start_date,omitempty" db:"start_date"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// Game is a persisted scraped game, deduplicated by (source, source_game_key).
type Game struct {
	GameID        int            `json:"game_id" db:"game_id"`
	Source        string         `json:"source" db:"source"`
	SourceGameKey string         `json:"source_game_key" db:"source_game_key"`
	TeamID        int            `json:"team_id" db:"team_id"`
	EventID       sql.NullInt32  `json:"event_id,omitempty" db:"event_id"`
	OpponentName  string         `json:"opponent_name" db:"opponent_name"`
	GameDate      sql.NullTime   `json:"game_date,omitempty" db:"game_date"`
	Result        sql.NullString `json:"result,omitempty" db:"result"`
	TeamScore     sql.NullInt32  `json:"team_score,omitempty" db:"team_score"`
	OpponentScore sql.NullInt32  `json:"opponent_score,omitempty" db:"opponent_score"`
	RawJSON       sql.NullString `json:"raw_json,omitempty" db:"raw_json"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// QueueStatus is the lifecycle state of a scrape attempt for a URL.
type QueueStatus string

const (
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueueEntry tracks the most recent ingestion attempt per URL.
// One row per distinct URL, updated in place on every attempt.
type QueueEntry struct {
	QueueID   int            `json:"queue_id" db:"queue_id"`
	URL       string         `json:"url" db:"url"`
	Source    string         `json:"source" db:"source"`
	Status    QueueStatus    `json:"status" db:"status"`
	LastRunAt time.Time      `json:"last_run_at" db:"last_run_at"`
	LastError sql.NullString `json:"last_error,omitempty" db:"last_error"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
