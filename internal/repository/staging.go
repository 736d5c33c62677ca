package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"nhldfs/ingestion/internal/metrics"
	"nhldfs/ingestion/internal/models"
)

const statColumns = `
	game_id, game_date, team, side,
	cf, ca, scf, sca,
	hdc, hdca, hdco, hdcoa, hdsf, hdsfa,
	xgf, xga,
	pen_taken, pen_drawn,
	pp_goals, pp_opps, pp_goals_against, pp_opps_against,
	faceoff_wins, faceoff_losses, toi_seconds
`

// StagingRepository handles the quarantine table new rows land in before
// batch validation promotes them to team_game_stats.
type StagingRepository struct {
	db *Database
}

// Insert stages one team-game row. Duplicate (game_id, team) pairs are
// ignored so re-running a fetch never doubles rows.
func (r *StagingRepository) Insert(ctx context.Context, stat *models.RawTeamGameStat) error {
	start := time.Now()

	query := `
		INSERT INTO team_game_stats_staging (` + statColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (game_id, team) DO NOTHING
	`

	_, err := r.db.Pool.Exec(ctx, query, statArgs(stat)...)

	duration := time.Since(start).Seconds()
	metrics.DBQueryDuration.WithLabelValues("insert", "team_game_stats_staging").Observe(duration)

	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("insert", "team_game_stats_staging", "error").Inc()
		return fmt.Errorf("failed to stage stats for game %s team %s: %w", stat.GameID, stat.Team, err)
	}

	metrics.DBQueriesTotal.WithLabelValues("insert", "team_game_stats_staging", "success").Inc()
	return nil
}

// GameIDs returns the distinct game IDs staged for a team.
func (r *StagingRepository) GameIDs(ctx context.Context, team string) ([]string, error) {
	query := `SELECT DISTINCT game_id FROM team_game_stats_staging WHERE team = $1`

	rows, err := r.db.Pool.Query(ctx, query, team)
	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats_staging", "error").Inc()
		return nil, fmt.Errorf("failed to query staged game ids for %s: %w", team, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan staged game id: %w", err)
		}
		ids = append(ids, id)
	}

	metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats_staging", "success").Inc()
	return ids, rows.Err()
}

// CountByGameIDs counts staged rows across both sides of the given games.
// A fully staged game contributes two rows, one per team.
func (r *StagingRepository) CountByGameIDs(ctx context.Context, gameIDs []string) (int, error) {
	if len(gameIDs) == 0 {
		return 0, nil
	}

	query := `SELECT COUNT(*) FROM team_game_stats_staging WHERE game_id = ANY($1)`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, gameIDs).Scan(&count); err != nil {
		metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats_staging", "error").Inc()
		return 0, fmt.Errorf("failed to count staged rows: %w", err)
	}

	metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats_staging", "success").Inc()
	return count, nil
}

// All returns every staged row for batch validation.
func (r *StagingRepository) All(ctx context.Context) ([]models.RawTeamGameStat, error) {
	query := `SELECT ` + statColumns + ` FROM team_game_stats_staging ORDER BY game_id, team`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats_staging", "error").Inc()
		return nil, fmt.Errorf("failed to query staging rows: %w", err)
	}
	defer rows.Close()

	stats, err := scanStats(rows)
	if err != nil {
		return nil, err
	}

	metrics.DBQueriesTotal.WithLabelValues("select", "team_game_stats_staging", "success").Inc()
	metrics.StagingRows.Set(float64(len(stats)))
	return stats, nil
}

// Clear empties the staging table. Called after promotion and after a
// rejected batch alike.
func (r *StagingRepository) Clear(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM team_game_stats_staging`)
	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("delete", "team_game_stats_staging", "error").Inc()
		return fmt.Errorf("failed to clear staging table: %w", err)
	}

	metrics.DBQueriesTotal.WithLabelValues("delete", "team_game_stats_staging", "success").Inc()
	metrics.StagingRows.Set(0)
	return nil
}

// Promote copies every staged row into team_game_stats and clears staging,
// in one transaction. Rows already present in production are skipped, so
// promotion is idempotent. Returns the number of rows copied.
func (r *StagingRepository) Promote(ctx context.Context) (int, error) {
	start := time.Now()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin promotion transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	copyQuery := `
		INSERT INTO team_game_stats (` + statColumns + `)
		SELECT ` + statColumns + ` FROM team_game_stats_staging
		ON CONFLICT (game_id, team) DO NOTHING
	`

	tag, err := tx.Exec(ctx, copyQuery)
	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("insert", "team_game_stats", "error").Inc()
		return 0, fmt.Errorf("failed to promote staging rows: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM team_game_stats_staging`); err != nil {
		return 0, fmt.Errorf("failed to clear staging after promotion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit promotion: %w", err)
	}

	promoted := int(tag.RowsAffected())

	duration := time.Since(start).Seconds()
	metrics.DBQueryDuration.WithLabelValues("insert", "team_game_stats").Observe(duration)
	metrics.DBQueriesTotal.WithLabelValues("insert", "team_game_stats", "success").Inc()
	metrics.RowsPromotedTotal.Add(float64(promoted))
	metrics.StagingRows.Set(0)

	log.Info().Int("rows", promoted).Msg("Promoted staging rows to production")
	return promoted, nil
}

func statArgs(s *models.RawTeamGameStat) []interface{} {
	return []interface{}{
		s.GameID, s.GameDate, s.Team, s.Side,
		s.CF, s.CA, s.SCF, s.SCA,
		s.HDC, s.HDCA, s.HDCO, s.HDCOA, s.HDSF, s.HDSFA,
		s.XGF, s.XGA,
		s.PenTaken, s.PenDrawn,
		s.PPGoals, s.PPOpps, s.PPGoalsAgainst, s.PPOppsAgainst,
		s.FaceoffWins, s.FaceoffLosses, s.TOISeconds,
	}
}
