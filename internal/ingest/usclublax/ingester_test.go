package usclublax

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/crosse/internal/store"
)

// fakeStore is an in-memory Store for pipeline tests.
type fakeStore struct {
	nextID int

	sources map[string]*store.Source
	links   map[string]*store.ExternalLink // source_id|external_id
	teams   map[int]*store.Team
	events  map[string]int // name|date
	games   map[string]*store.Game
	queue   map[string]*store.QueueEntry

	gameUpserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sources: make(map[string]*store.Source),
		links:   make(map[string]*store.ExternalLink),
		teams:   make(map[int]*store.Team),
		events:  make(map[string]int),
		games:   make(map[string]*store.Game),
		queue:   make(map[string]*store.QueueEntry),
	}
}

func (f *fakeStore) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) EnsureSource(_ context.Context, name, baseURL string) (*store.Source, error) {
	if src, ok := f.sources[name]; ok {
		return src, nil
	}
	src := &store.Source{SourceID: f.id(), Name: name, BaseURL: baseURL}
	f.sources[name] = src
	return src, nil
}

func (f *fakeStore) FindTeamLink(_ context.Context, sourceID int, externalID string) (*store.ExternalLink, error) {
	if link, ok := f.links[fmt.Sprintf("%d|%s", sourceID, externalID)]; ok {
		return link, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateTeam(_ context.Context, team *store.Team) error {
	team.TeamID = f.id()
	f.teams[team.TeamID] = team
	return nil
}

func (f *fakeStore) UpdateTeamMeta(_ context.Context, teamID int, name string, gradYear sql.NullInt32) error {
	team, ok := f.teams[teamID]
	if !ok {
		return store.ErrNotFound
	}
	team.Name = name
	team.GradYear = gradYear
	return nil
}

func (f *fakeStore) CreateTeamLink(_ context.Context, link *store.ExternalLink) error {
	link.LinkID = f.id()
	f.links[fmt.Sprintf("%d|%s", link.SourceID, link.ExternalID)] = link
	return nil
}

func (f *fakeStore) TouchTeamLink(_ context.Context, _ int) error { return nil }

func (f *fakeStore) UpsertEvent(_ context.Context, name string, startDate sql.NullTime) (int, error) {
	key := fmt.Sprintf("%s|%v", name, startDate.Time)
	if eventID, ok := f.events[key]; ok {
		return eventID, nil
	}
	eventID := f.id()
	f.events[key] = eventID
	return eventID, nil
}

func (f *fakeStore) FindEventByName(_ context.Context, _ string) (int, error) {
	return 0, store.ErrNotFound
}

func (f *fakeStore) UpsertGame(_ context.Context, game *store.Game) error {
	f.gameUpserts++
	key := game.Source + "|" + game.SourceGameKey
	if existing, ok := f.games[key]; ok {
		game.GameID = existing.GameID
	} else {
		game.GameID = f.id()
	}
	f.games[key] = game
	return nil
}

func (f *fakeStore) UpsertQueueState(_ context.Context, url, source string, status store.QueueStatus, lastErr error) error {
	entry, ok := f.queue[url]
	if !ok {
		entry = &store.QueueEntry{QueueID: f.id(), URL: url, Source: source}
		f.queue[url] = entry
	}
	entry.Status = status
	entry.LastError = sql.NullString{}
	if lastErr != nil {
		entry.LastError = sql.NullString{String: lastErr.Error(), Valid: true}
	}
	return nil
}

func newTestServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Query().Get("t")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestIngester(st *fakeStore) *Ingester {
	ing := NewIngester(NewClient(), st, nil)
	ing.SetDelays(0, 0)
	return ing
}

func TestRunIngestsSchedule(t *testing.T) {
	srv := newTestServer(t, map[string]string{"42": schedulePageHTML})
	st := newFakeStore()
	ing := newTestIngester(st)

	results, err := ing.Run(context.Background(), []string{srv.URL + "/schedule?t=42"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.True(t, res.OK)
	assert.Empty(t, res.Error)
	assert.Equal(t, "State University Club Lacrosse (2025)", res.TeamName)
	assert.Equal(t, 2, res.GamesFound)
	assert.Equal(t, 2, res.GamesUpserted)

	team := st.teams[res.TeamID]
	require.NotNil(t, team)
	assert.True(t, team.IsActive)
	require.True(t, team.GradYear.Valid)
	assert.Equal(t, int32(2025), team.GradYear.Int32)

	entry := st.queue[res.URL]
	require.NotNil(t, entry)
	assert.Equal(t, store.QueueStatusCompleted, entry.Status)

	assert.Len(t, st.games, 2)
	for _, game := range st.games {
		assert.Equal(t, SourceName, game.Source)
		assert.Equal(t, team.TeamID, game.TeamID)
		assert.Len(t, game.SourceGameKey, 64)
		assert.True(t, game.RawJSON.Valid)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	srv := newTestServer(t, map[string]string{"42": schedulePageHTML})
	st := newFakeStore()
	ing := newTestIngester(st)

	url := srv.URL + "/schedule?t=42"

	first, err := ing.Run(context.Background(), []string{url})
	require.NoError(t, err)
	require.True(t, first[0].OK)

	second, err := ing.Run(context.Background(), []string{url})
	require.NoError(t, err)
	require.True(t, second[0].OK)

	// Re-scraping unchanged content recomputes identical keys: the
	// second run upserts the same rows instead of inserting new ones.
	assert.Equal(t, first[0].GamesUpserted, second[0].GamesUpserted)
	assert.Len(t, st.games, 2)
	assert.Len(t, st.teams, 1)
	assert.Equal(t, 4, st.gameUpserts)
}

func TestRunCapsBatchSize(t *testing.T) {
	srv := newTestServer(t, map[string]string{"42": schedulePageHTML})
	st := newFakeStore()
	ing := newTestIngester(st)

	urls := make([]string, 12)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/schedule?t=42&n=%d", srv.URL, i)
	}

	results, err := ing.Run(context.Background(), urls)
	require.NoError(t, err)
	assert.Len(t, results, MaxURLsPerBatch)
}

func TestRunIsolatesURLFailures(t *testing.T) {
	srv := newTestServer(t, map[string]string{"42": schedulePageHTML})
	st := newFakeStore()
	ing := newTestIngester(st)

	good := srv.URL + "/schedule?t=42"
	bad := srv.URL + "/schedule?t=404" // server returns not found

	results, err := ing.Run(context.Background(), []string{bad, good})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.False(t, results[0].OK)
	assert.NotEmpty(t, results[0].Error)
	assert.Equal(t, store.QueueStatusFailed, st.queue[bad].Status)
	require.True(t, st.queue[bad].LastError.Valid)

	assert.True(t, results[1].OK)
	assert.Equal(t, store.QueueStatusCompleted, st.queue[good].Status)
	assert.Len(t, st.games, 2)
}

func TestRunRejectsURLWithoutTeamParam(t *testing.T) {
	st := newFakeStore()
	ing := newTestIngester(st)

	url := "https://usclublax.com/schedule?s=9"
	results, err := ing.Run(context.Background(), []string{url})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.False(t, results[0].OK)
	assert.Contains(t, results[0].Error, "t=")
	assert.Equal(t, store.QueueStatusFailed, st.queue[url].Status)
}

func TestRunReusesExistingTeamLink(t *testing.T) {
	srv := newTestServer(t, map[string]string{"42": schedulePageHTML})
	st := newFakeStore()
	ing := newTestIngester(st)

	ctx := context.Background()
	src, err := st.EnsureSource(ctx, SourceName, SourceBaseURL)
	require.NoError(t, err)

	team := &store.Team{Name: "Old Name", IsActive: true}
	require.NoError(t, st.CreateTeam(ctx, team))
	require.NoError(t, st.CreateTeamLink(ctx, &store.ExternalLink{
		SourceID:   src.SourceID,
		EntityType: "team",
		EntityID:   team.TeamID,
		ExternalID: "42",
	}))

	results, err := ing.Run(ctx, []string{srv.URL + "/schedule?t=42"})
	require.NoError(t, err)
	require.True(t, results[0].OK)

	// Existing team is reused and its scraped metadata refreshed.
	assert.Equal(t, team.TeamID, results[0].TeamID)
	assert.Len(t, st.teams, 1)
	assert.Equal(t, "State University Club Lacrosse (2025)", st.teams[team.TeamID].Name)
}

func TestGameKeyStability(t *testing.T) {
	game := GameRecord{
		RowIndex:      3,
		OpponentName:  "Rival University",
		EventName:     "Spring Invitational",
		GameDate:      "2024-03-04",
		Result:        "W",
		TeamScore:     12,
		OpponentScore: 7,
	}

	key := GameKey("42", game)
	assert.Len(t, key, 64)
	assert.Equal(t, key, GameKey("42", game))

	// Any field change yields a distinct key.
	changed := game
	changed.OpponentName = "Other University"
	assert.NotEqual(t, key, GameKey("42", changed))

	moved := game
	moved.RowIndex = 4
	assert.NotEqual(t, key, GameKey("42", moved))

	assert.NotEqual(t, key, GameKey("43", game))
}
