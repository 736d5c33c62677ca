package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"nhldfs/ingestion/internal/metrics"
	"nhldfs/ingestion/internal/models"
)

// StatsRepository handles the validated team_game_stats table.
type StatsRepository struct {
	db *Database
}

// GameIDs returns the distinct game IDs already promoted for a team.
func (r *StatsRepository) GameIDs(ctx context.Context, team string) ([]string, error) {
	query := `SELECT DISTINCT game_id FROM team_game_stats WHERE team = $1`

	rows, err := r.db.Pool.Query(ctx, query, team)
	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats", "error").Inc()
		return nil, fmt.Errorf("failed to query game ids for %s: %w", team, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan game id: %w", err)
		}
		ids = append(ids, id)
	}

	metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats", "success").Inc()
	return ids, rows.Err()
}

// ListByTeam returns a team's rows in a date range, newest first.
func (r *StatsRepository) ListByTeam(ctx context.Context, team string, start, end time.Time) ([]models.RawTeamGameStat, error) {
	query := `
		SELECT ` + statColumns + `
		FROM team_game_stats
		WHERE team = $1 AND game_date >= $2 AND game_date <= $3
		ORDER BY game_date DESC, game_id DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, team, start, end)
	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats", "error").Inc()
		return nil, fmt.Errorf("failed to query stats for %s: %w", team, err)
	}
	defer rows.Close()

	stats, err := scanStats(rows)
	if err != nil {
		return nil, err
	}

	metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats", "success").Inc()
	return stats, nil
}

// ListLastN returns a team's most recent n rows on or before asOf,
// newest first. The ordering here is the canonical one used by the
// rolling-window aggregator.
func (r *StatsRepository) ListLastN(ctx context.Context, team string, asOf time.Time, n int) ([]models.RawTeamGameStat, error) {
	query := `
		SELECT ` + statColumns + `
		FROM team_game_stats
		WHERE team = $1 AND game_date <= $2
		ORDER BY game_date DESC, game_id DESC
		LIMIT $3
	`

	rows, err := r.db.Pool.Query(ctx, query, team, asOf, n)
	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats", "error").Inc()
		return nil, fmt.Errorf("failed to query last %d games for %s: %w", n, team, err)
	}
	defer rows.Close()

	stats, err := scanStats(rows)
	if err != nil {
		return nil, err
	}

	metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats", "success").Inc()
	return stats, nil
}

// Teams returns every team code with at least one promoted row.
func (r *StatsRepository) Teams(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT team FROM team_game_stats ORDER BY team ASC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats", "error").Inc()
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	var teams []string
	for rows.Next() {
		var team string
		if err := rows.Scan(&team); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}

	metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats", "success").Inc()
	return teams, rows.Err()
}

func scanStats(rows pgx.Rows) ([]models.RawTeamGameStat, error) {
	var stats []models.RawTeamGameStat
	for rows.Next() {
		var s models.RawTeamGameStat
		if err := rows.Scan(
			&s.GameID, &s.GameDate, &s.Team, &s.Side,
			&s.CF, &s.CA, &s.SCF, &s.SCA,
			&s.HDC, &s.HDCA, &s.HDCO, &s.HDCOA, &s.HDSF, &s.HDSFA,
			&s.XGF, &s.XGA,
			&s.PenTaken, &s.PenDrawn,
			&s.PPGoals, &s.PPOpps, &s.PPGoalsAgainst, &s.PPOppsAgainst,
			&s.FaceoffWins, &s.FaceoffLosses, &s.TOISeconds,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stat row: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
