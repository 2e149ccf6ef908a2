package usclublax

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/fortuna/crosse/internal/store"
)

const (
	// SourceName identifies this scraper in external_sources, games and scrape_queue
	SourceName = "usclublax"

	// SourceBaseURL is recorded on the external_sources row
	SourceBaseURL = "https://usclublax.com"

	// MaxURLsPerBatch caps one ingestion request; excess URLs are ignored
	MaxURLsPerBatch = 10

	// DefaultURLDelay throttles requests against the source site
	DefaultURLDelay = 1500 * time.Millisecond

	// DefaultUpsertDelay throttles writes against the persistence store
	DefaultUpsertDelay = 150 * time.Millisecond
)

// Store is the narrow persistence interface the ingester depends on.
// repository.Store implements it against Postgres; tests use an
// in-memory fake.
type Store interface {
	EnsureSource(ctx context.Context, name, baseURL string) (*store.Source, error)
	FindTeamLink(ctx context.Context, sourceID int, externalID string) (*store.ExternalLink, error)
	CreateTeam(ctx context.Context, team *store.Team) error
	UpdateTeamMeta(ctx context.Context, teamID int, name string, gradYear sql.NullInt32) error
	CreateTeamLink(ctx context.Context, link *store.ExternalLink) error
	TouchTeamLink(ctx context.Context, linkID int) error
	UpsertEvent(ctx context.Context, name string, startDate sql.NullTime) (int, error)
	FindEventByName(ctx context.Context, name string) (int, error)
	UpsertGame(ctx context.Context, game *store.Game) error
	UpsertQueueState(ctx context.Context, url, source string, status store.QueueStatus, lastErr error) error
}

// PageCache optionally short-circuits repeat fetches of the same URL.
// Parsing and upserting still run on cached bodies, so ingestion
// counts are unaffected.
type PageCache interface {
	GetPage(ctx context.Context, url string) (string, error)
	SetPage(ctx context.Context, url, body string) error
}

// URLResult is the per-URL outcome of an ingestion batch.
type URLResult struct {
	URL           string `json:"url"`
	OK            bool   `json:"ok"`
	TeamID        int    `json:"team_id,omitempty"`
	TeamName      string `json:"team_name,omitempty"`
	GamesFound    int    `json:"games_found"`
	GamesUpserted int    `json:"games_upserted"`
	Error         string `json:"error,omitempty"`
}

// Ingester runs the scrape pipeline: fetch, parse, resolve entities,
// upsert games, and track per-URL queue state. URLs are processed
// sequentially; one bad URL never aborts the batch.
type Ingester struct {
	fetcher Fetcher
	store   Store
	cache   PageCache

	urlDelay    time.Duration
	upsertDelay time.Duration
}

// NewIngester creates an ingester. cache may be nil.
func NewIngester(fetcher Fetcher, st Store, cache PageCache) *Ingester {
	return &Ingester{
		fetcher:     fetcher,
		store:       st,
		cache:       cache,
		urlDelay:    DefaultURLDelay,
		upsertDelay: DefaultUpsertDelay,
	}
}

// SetDelays overrides the rate-limiting delays (useful for tests)
func (i *Ingester) SetDelays(urlDelay, upsertDelay time.Duration) {
	i.urlDelay = urlDelay
	i.upsertDelay = upsertDelay
}

// Run ingests a batch of schedule URLs, capped at MaxURLsPerBatch.
// The returned results correspond 1:1, in order, to the processed URLs.
// Only infrastructure failures (source resolution) return an error;
// per-URL failures land in the result entries.
func (i *Ingester) Run(ctx context.Context, urls []string) ([]URLResult, error) {
	if len(urls) > MaxURLsPerBatch {
		log.Printf("[ingest] Batch of %d URLs capped to %d", len(urls), MaxURLsPerBatch)
		urls = urls[:MaxURLsPerBatch]
	}

	src, err := i.store.EnsureSource(ctx, SourceName, SourceBaseURL)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}

	results := make([]URLResult, 0, len(urls))
	for _, url := range urls {
		res := i.ingestURL(ctx, src.SourceID, url)
		if res.OK {
			log.Printf("[ingest] ✓ %s: %d games found, %d upserted", url, res.GamesFound, res.GamesUpserted)
		} else {
			log.Printf("[ingest] ⚠️  %s failed: %s", url, res.Error)
		}
		results = append(results, res)

		i.sleep(ctx, i.urlDelay)
	}

	return results, nil
}

// ingestURL runs the full pipeline for one URL and records its queue state.
func (i *Ingester) ingestURL(ctx context.Context, sourceID int, url string) URLResult {
	res := URLResult{URL: url}

	if err := i.store.UpsertQueueState(ctx, url, SourceName, store.QueueStatusProcessing, nil); err != nil {
		return i.fail(ctx, res, fmt.Errorf("mark queue processing: %w", err))
	}

	externalID, err := ExternalTeamID(url)
	if err != nil {
		return i.fail(ctx, res, err)
	}

	html, err := i.fetchPage(ctx, url)
	if err != nil {
		return i.fail(ctx, res, err)
	}

	doc, err := ParseHTML(html)
	if err != nil {
		return i.fail(ctx, res, err)
	}

	schedule := ParseSchedule(doc)
	res.TeamName = schedule.TeamName
	res.GamesFound = len(schedule.Games)

	teamID, err := i.resolveTeam(ctx, sourceID, externalID, url, schedule)
	if err != nil {
		return i.fail(ctx, res, err)
	}
	res.TeamID = teamID

	upserted, err := i.upsertGames(ctx, teamID, externalID, schedule.Games)
	res.GamesUpserted = upserted
	if err != nil {
		return i.fail(ctx, res, err)
	}

	if err := i.store.UpsertQueueState(ctx, url, SourceName, store.QueueStatusCompleted, nil); err != nil {
		return i.fail(ctx, res, fmt.Errorf("mark queue completed: %w", err))
	}

	res.OK = true
	return res
}

// fail records the failed queue state and the error on the result.
func (i *Ingester) fail(ctx context.Context, res URLResult, err error) URLResult {
	res.OK = false
	res.Error = err.Error()

	if qerr := i.store.UpsertQueueState(ctx, res.URL, SourceName, store.QueueStatusFailed, err); qerr != nil {
		log.Printf("[ingest] ⚠️  Failed to record queue state for %s: %v", res.URL, qerr)
	}

	return res
}

// fetchPage retrieves a page body, consulting the cache first.
func (i *Ingester) fetchPage(ctx context.Context, url string) (string, error) {
	if i.cache != nil {
		if body, err := i.cache.GetPage(ctx, url); err == nil && body != "" {
			log.Printf("[ingest] Cache hit for %s", url)
			return body, nil
		}
	}

	body, err := i.fetcher.FetchPage(ctx, url)
	if err != nil {
		return "", err
	}

	if i.cache != nil {
		if err := i.cache.SetPage(ctx, url, body); err != nil {
			log.Printf("[ingest] ⚠️  Failed to cache page %s: %v", url, err)
		}
	}

	return body, nil
}

// resolveTeam maps the external team id to an internal team, creating it
// on first sight and refreshing its scraped metadata on re-scrapes.
// The link table guarantees at most one team per (source, external_id).
//
// Concurrent batches for the same external id can race between the link
// lookup and insert; there is no cross-invocation lock, and the link
// table's unique key rejects the losing insert.
func (i *Ingester) resolveTeam(ctx context.Context, sourceID int, externalID, externalURL string, schedule *Schedule) (int, error) {
	gradYear := nullGradYear(schedule.GradYear)

	link, err := i.store.FindTeamLink(ctx, sourceID, externalID)
	if err == nil {
		if err := i.store.UpdateTeamMeta(ctx, link.EntityID, schedule.TeamName, gradYear); err != nil {
			return 0, err
		}
		if err := i.store.TouchTeamLink(ctx, link.LinkID); err != nil {
			log.Printf("[ingest] ⚠️  Failed to touch link %d: %v", link.LinkID, err)
		}
		return link.EntityID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	team := &store.Team{
		Name:     schedule.TeamName,
		GradYear: gradYear,
		IsActive: true,
	}
	if err := i.store.CreateTeam(ctx, team); err != nil {
		return 0, err
	}

	newLink := &store.ExternalLink{
		SourceID:    sourceID,
		EntityType:  "team",
		EntityID:    team.TeamID,
		ExternalID:  externalID,
		ExternalURL: sql.NullString{String: externalURL, Valid: externalURL != ""},
	}
	if err := i.store.CreateTeamLink(ctx, newLink); err != nil {
		return 0, err
	}

	return team.TeamID, nil
}

// resolveEvent resolves an event by (name, start_date). Deployments whose
// events table enforces a different uniqueness constraint reject the keyed
// upsert; fall back to a case-insensitive name lookup and keep the original
// error when that also misses. This is a compatibility shim, not a silent
// behavior change.
func (i *Ingester) resolveEvent(ctx context.Context, game GameRecord) (int, error) {
	eventID, err := i.store.UpsertEvent(ctx, game.EventName, nullDate(game.GameDate))
	if err == nil {
		return eventID, nil
	}

	if id, ferr := i.store.FindEventByName(ctx, game.EventName); ferr == nil {
		return id, nil
	}

	return 0, err
}

// upsertGames writes each game under its content-addressed key and
// returns the number upserted before any failure.
func (i *Ingester) upsertGames(ctx context.Context, teamID int, externalTeamID string, games []GameRecord) (int, error) {
	upserted := 0
	for _, game := range games {
		eventID, err := i.resolveEvent(ctx, game)
		if err != nil {
			return upserted, fmt.Errorf("resolve event %q: %w", game.EventName, err)
		}

		raw, err := json.Marshal(game)
		if err != nil {
			return upserted, fmt.Errorf("encode raw game: %w", err)
		}

		row := &store.Game{
			Source:        SourceName,
			SourceGameKey: GameKey(externalTeamID, game),
			TeamID:        teamID,
			EventID:       sql.NullInt32{Int32: int32(eventID), Valid: true},
			OpponentName:  game.OpponentName,
			GameDate:      nullDate(game.GameDate),
			Result:        sql.NullString{String: game.Result, Valid: game.Result != ""},
			TeamScore:     sql.NullInt32{Int32: int32(game.TeamScore), Valid: true},
			OpponentScore: sql.NullInt32{Int32: int32(game.OpponentScore), Valid: true},
			RawJSON:       sql.NullString{String: string(raw), Valid: true},
		}

		if err := i.store.UpsertGame(ctx, row); err != nil {
			return upserted, fmt.Errorf("upsert game %d: %w", game.RowIndex, err)
		}
		upserted++

		i.sleep(ctx, i.upsertDelay)
	}

	return upserted, nil
}

// GameKey computes the stable content-addressed dedup key for a game.
// Identical page content recomputes identical keys; any change to date,
// event, opponent, scores, result or row position yields a distinct key
// (and therefore a distinct row) so that source drift stays detectable.
func GameKey(externalTeamID string, game GameRecord) string {
	parts := []string{
		externalTeamID,
		game.GameDate,
		game.EventName,
		game.OpponentName,
		strconv.Itoa(game.TeamScore),
		strconv.Itoa(game.OpponentScore),
		game.Result,
		strconv.Itoa(game.RowIndex),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func (i *Ingester) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func nullGradYear(year int) sql.NullInt32 {
	if year == 0 {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(year), Valid: true}
}

func nullDate(date string) sql.NullTime {
	if date == "" {
		return sql.NullTime{}
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
