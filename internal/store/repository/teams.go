package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/crosse/internal/store"
)

// TeamRepository handles team data access
type TeamRepository struct {
	db *store.Database
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *store.Database) *TeamRepository {
	return &TeamRepository{db: db}
}

// GetByID finds a team by ID
func (r *TeamRepository) GetByID(ctx context.Context, teamID int) (*store.Team, error) {
	query := `
		SELECT team_id, name, grad_year, is_active, created_at, updated_at
		FROM teams
		WHERE team_id = $1
	`

	team := &store.Team{}
	err := r.db.DB().QueryRowContext(ctx, query, teamID).Scan(
		&team.TeamID, &team.Name, &team.GradYear, &team.IsActive,
		&team.CreatedAt, &team.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team %d: %w", teamID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying team: %w", err)
	}

	return team, nil
}

// GetAll returns all active teams
func (r *TeamRepository) GetAll(ctx context.Context) ([]*store.Team, error) {
	query := `
		SELECT team_id, name, grad_year, is_active, created_at, updated_at
		FROM teams
		WHERE is_active = true
		ORDER BY name
	`

	rows, err := r.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying teams: %w", err)
	}
	defer rows.Close()

	var teams []*store.Team
	for rows.Next() {
		team := &store.Team{}
		err := rows.Scan(
			&team.TeamID, &team.Name, &team.GradYear, &team.IsActive,
			&team.CreatedAt, &team.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, team)
	}

	return teams, rows.Err()
}

// Create inserts a new team and populates its generated fields
func (r *TeamRepository) Create(ctx context.Context, team *store.Team) error {
	query := `
		INSERT INTO teams (name, grad_year, is_active)
		VALUES ($1, $2, $3)
		RETURNING team_id, created_at, updated_at
	`

	err := r.db.DB().QueryRowContext(ctx, query,
		team.Name, team.GradYear, team.IsActive,
	).Scan(&team.TeamID, &team.CreatedAt, &team.UpdatedAt)

	if err != nil {
		return fmt.Errorf("creating team: %w", err)
	}

	return nil
}

// UpdateMeta refreshes a team's scraped metadata in place
func (r *TeamRepository) UpdateMeta(ctx context.Context, teamID int, name string, gradYear sql.NullInt32) error {
	query := `
		UPDATE teams
		SET name = $2, grad_year = $3, updated_at = NOW()
		WHERE team_id = $1
	`

	if _, err := r.db.DB().ExecContext(ctx, query, teamID, name, gradYear); err != nil {
		return fmt.Errorf("updating team: %w", err)
	}

	return nil
}
