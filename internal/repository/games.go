package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"nhldfs/ingestion/internal/metrics"
	"nhldfs/ingestion/internal/models"
)

// GameRepository handles the season schedule table.
type GameRepository struct {
	db *Database
}

// Upsert inserts or updates a scheduled game.
func (r *GameRepository) Upsert(ctx context.Context, game *models.Game) error {
	start := time.Now()

	query := `
		INSERT INTO games (
			game_id, season, game_type, game_date, game_state,
			home_team, away_team, home_score, away_score, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (game_id) DO UPDATE SET
			game_date = EXCLUDED.game_date,
			game_state = EXCLUDED.game_state,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			updated_at = NOW()
	`

	_, err := r.db.Pool.Exec(ctx, query,
		game.GameID,
		game.Season,
		game.GameType,
		game.GameDate,
		game.GameState,
		game.HomeTeam,
		game.AwayTeam,
		game.HomeScore,
		game.AwayScore,
	)

	duration := time.Since(start).Seconds()
	metrics.DBQueryDuration.WithLabelValues("upsert", "games").Observe(duration)

	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("upsert", "games", "error").Inc()
		return fmt.Errorf("failed to upsert game %s: %w", game.GameID, err)
	}

	metrics.DBQueriesTotal.WithLabelValues("upsert", "games", "success").Inc()
	return nil
}

// UpsertBatch stores a full schedule payload.
func (r *GameRepository) UpsertBatch(ctx context.Context, games []models.Game) (int, error) {
	count := 0
	for i := range games {
		if err := r.Upsert(ctx, &games[i]); err != nil {
			log.Error().Err(err).Str("game_id", games[i].GameID).Msg("Failed to upsert game")
			continue
		}
		count++
	}
	return count, nil
}

// CompletedGames returns the IDs of finished games for a team, ordered by date.
func (r *GameRepository) CompletedGames(ctx context.Context, team string) ([]string, error) {
	start := time.Now()

	query := `
		SELECT game_id FROM games
		WHERE (home_team = $1 OR away_team = $1)
		  AND game_state IN ('OFF', 'FINAL')
		ORDER BY game_date ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, team)

	duration := time.Since(start).Seconds()
	metrics.DBQueryDuration.WithLabelValues("select", "games").Observe(duration)

	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("select", "games", "error").Inc()
		return nil, fmt.Errorf("failed to query completed games for %s: %w", team, err)
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

	metrics.DBQueriesTotal.WithLabelValues("select", "games", "success").Inc()
	return ids, rows.Err()
}

// ListByDate returns all games scheduled on a date (YYYY-MM-DD).
func (r *GameRepository) ListByDate(ctx context.Context, date string) ([]models.Game, error) {
	query := `
		SELECT game_id, season, game_type, game_date, game_state,
		       home_team, away_team, home_score, away_score
		FROM games
		WHERE game_date::date = $1::date
		ORDER BY game_id ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, date)
	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("select", "games", "error").Inc()
		return nil, fmt.Errorf("failed to query games for %s: %w", date, err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		var g models.Game
		if err := rows.Scan(
			&g.GameID,
			&g.Season,
			&g.GameType,
			&g.GameDate,
			&g.GameState,
			&g.HomeTeam,
			&g.AwayTeam,
			&g.HomeScore,
			&g.AwayScore,
		); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}

	metrics.DBQueriesTotal.WithLabelValues("select", "games", "success").Inc()
	return games, rows.Err()
}
