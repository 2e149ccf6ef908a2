package repository

import (
	"context"
	"database/sql"

	"github.com/fortuna/crosse/internal/store"
)

// Store bundles the repositories behind the narrow interface the
// ingestion pipeline depends on, so pipeline logic can be tested
// against an in-memory fake.
type Store struct {
	Sources *SourceRepository
	Teams   *TeamRepository
	Links   *LinkRepository
	Events  *EventRepository
	Games   *GameRepository
	Queue   *QueueRepository
}

// NewStore creates the repository bundle
func NewStore(db *store.Database) *Store {
	return &Store{
		Sources: NewSourceRepository(db),
		Teams:   NewTeamRepository(db),
		Links:   NewLinkRepository(db),
		Events:  NewEventRepository(db),
		Games:   NewGameRepository(db),
		Queue:   NewQueueRepository(db),
	}
}

// EnsureSource resolves or creates an external source by name
func (s *Store) EnsureSource(ctx context.Context, name, baseURL string) (*store.Source, error) {
	return s.Sources.Ensure(ctx, name, baseURL)
}

// FindTeamLink looks up the team link for a source's external id
func (s *Store) FindTeamLink(ctx context.Context, sourceID int, externalID string) (*store.ExternalLink, error) {
	return s.Links.Find(ctx, sourceID, "team", externalID)
}

// CreateTeam inserts a new team
func (s *Store) CreateTeam(ctx context.Context, team *store.Team) error {
	return s.Teams.Create(ctx, team)
}

// UpdateTeamMeta refreshes a team's name and grad year in place
func (s *Store) UpdateTeamMeta(ctx context.Context, teamID int, name string, gradYear sql.NullInt32) error {
	return s.Teams.UpdateMeta(ctx, teamID, name, gradYear)
}

// CreateTeamLink inserts the external link row for a newly created team
func (s *Store) CreateTeamLink(ctx context.Context, link *store.ExternalLink) error {
	return s.Links.Create(ctx, link)
}

// TouchTeamLink bumps a link's last_synced_at
func (s *Store) TouchTeamLink(ctx context.Context, linkID int) error {
	return s.Links.TouchSync(ctx, linkID)
}

// UpsertEvent resolves an event by (name, start_date)
func (s *Store) UpsertEvent(ctx context.Context, name string, startDate sql.NullTime) (int, error) {
	return s.Events.Upsert(ctx, name, startDate)
}

// FindEventByName is the case-insensitive fallback for deployments whose
// event uniqueness constraint differs from (name, start_date)
func (s *Store) FindEventByName(ctx context.Context, name string) (int, error) {
	return s.Events.FindByName(ctx, name)
}

// UpsertGame writes a content-addressed game row
func (s *Store) UpsertGame(ctx context.Context, game *store.Game) error {
	return s.Games.Upsert(ctx, game)
}

// UpsertQueueState records a URL's most recent attempt outcome
func (s *Store) UpsertQueueState(ctx context.Context, url, source string, status store.QueueStatus, lastErr error) error {
	return s.Queue.UpsertState(ctx, url, source, status, lastErr)
}
