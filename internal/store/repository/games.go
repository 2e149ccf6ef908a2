package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fortuna/crosse/internal/store"
)

// GameRepository handles game data access
type GameRepository struct {
	db *store.Database
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *store.Database) *GameRepository {
	return &GameRepository{db: db}
}

// Upsert inserts or overwrites a game keyed on (source, source_game_key).
// Re-ingesting identical page content recomputes identical keys, so this
// is a no-op write; any field change produces a new key and a new row.
func (r *GameRepository) Upsert(ctx context.Context, game *store.Game) error {
	query := `
		INSERT INTO games (source, source_game_key, team_id, event_id, opponent_name,
			game_date, result, team_score, opponent_score, raw_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source, source_game_key) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			event_id = EXCLUDED.event_id,
			opponent_name = EXCLUDED.opponent_name,
			game_date = EXCLUDED.game_date,
			result = EXCLUDED.result,
			team_score = EXCLUDED.team_score,
			opponent_score = EXCLUDED.opponent_score,
			raw_json = EXCLUDED.raw_json,
			updated_at = NOW()
		RETURNING game_id
	`

	err := r.db.DB().QueryRowContext(ctx, query,
		game.Source, game.SourceGameKey, game.TeamID, game.EventID, game.OpponentName,
		game.GameDate, game.Result, game.TeamScore, game.OpponentScore, game.RawJSON,
	).Scan(&game.GameID)

	if err != nil {
		return fmt.Errorf("upserting game: %w", err)
	}

	return nil
}

// GetByTeam returns a team's ingested games, most recent first
func (r *GameRepository) GetByTeam(ctx context.Context, teamID int, limit int) ([]*store.Game, error) {
	query := `
		SELECT game_id, source, source_game_key, team_id, event_id, opponent_name,
			game_date, result, team_score, opponent_score, raw_json,
			created_at, updated_at
		FROM games
		WHERE team_id = $1
		ORDER BY game_date DESC NULLS LAST, game_id DESC
		LIMIT $2
	`

	rows, err := r.db.DB().QueryContext(ctx, query, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying team games: %w", err)
	}
	defer rows.Close()

	return r.scanGames(rows)
}

// scanGames scans multiple game rows
func (r *GameRepository) scanGames(rows *sql.Rows) ([]*store.Game, error) {
	var games []*store.Game
	for rows.Next() {
		game := &store.Game{}
		err := rows.Scan(
			&game.GameID, &game.Source, &game.SourceGameKey, &game.TeamID, &game.EventID,
			&game.OpponentName, &game.GameDate, &game.Result, &game.TeamScore,
			&game.OpponentScore, &game.RawJSON, &game.CreatedAt, &game.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		games = append(games, game)
	}

	return games, rows.Err()
}
