package repository

import (
	"context"
	"fmt"
	"time"

	"nhldfs/ingestion/internal/metrics"
	"nhldfs/ingestion/internal/models"
)

// AggregateRepository caches computed per-team averages so downstream
// consumers do not recompute them on every read.
type AggregateRepository struct {
	db *Database
}

// Upsert stores one team's averages for a window.
func (r *AggregateRepository) Upsert(ctx context.Context, agg *models.TeamAggregate) error {
	start := time.Now()

	query := `
		INSERT INTO team_aggregates (
			team, stat_window, as_of_date, games_count,
			cf_pct_avg, scf_pct_avg, hdc_pct_avg, hdco_pct_avg, hdf_pct_avg,
			xgf_avg, xga_avg,
			pp_pct_avg, pk_pct_avg, fow_pct_avg,
			pen_taken_60_avg, pen_drawn_60_avg, net_pen_60_avg,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		          $14, $15, $16, $17, NOW())
		ON CONFLICT (team, stat_window, as_of_date) DO UPDATE SET
			games_count = EXCLUDED.games_count,
			cf_pct_avg = EXCLUDED.cf_pct_avg,
			scf_pct_avg = EXCLUDED.scf_pct_avg,
			hdc_pct_avg = EXCLUDED.hdc_pct_avg,
			hdco_pct_avg = EXCLUDED.hdco_pct_avg,
			hdf_pct_avg = EXCLUDED.hdf_pct_avg,
			xgf_avg = EXCLUDED.xgf_avg,
			xga_avg = EXCLUDED.xga_avg,
			pp_pct_avg = EXCLUDED.pp_pct_avg,
			pk_pct_avg = EXCLUDED.pk_pct_avg,
			fow_pct_avg = EXCLUDED.fow_pct_avg,
			pen_taken_60_avg = EXCLUDED.pen_taken_60_avg,
			pen_drawn_60_avg = EXCLUDED.pen_drawn_60_avg,
			net_pen_60_avg = EXCLUDED.net_pen_60_avg,
			updated_at = NOW()
	`

	_, err := r.db.Pool.Exec(ctx, query,
		agg.Team, agg.Window, agg.AsOfDate, agg.GamesCount,
		agg.CFPctAvg, agg.SCFPctAvg, agg.HDCPctAvg, agg.HDCOPctAvg, agg.HDFPctAvg,
		agg.XGFAvg, agg.XGAAvg,
		agg.PPPctAvg, agg.PKPctAvg, agg.FOWPctAvg,
		agg.PenTaken60Avg, agg.PenDrawn60Avg, agg.NetPen60Avg,
	)

	duration := time.Since(start).Seconds()
	metrics.DBQueryDuration.WithLabelValues("upsert", "team_aggregates").Observe(duration)

	if err != nil {
		metrics.DBQueriesTotal.WithLabelValues("upsert", "team_aggregates", "error").Inc()
		return fmt.Errorf("failed to upsert aggregate for %s/%s: %w", agg.Team, agg.Window, err)
	}

	metrics.DBQueriesTotal.WithLabelValues("upsert", "team_aggregates", "success").Inc()
	return nil
}

// Get returns a team's most recent cached averages for a window, or nil
// when absent. One row exists per (team, window, as-of date); reads want
// the newest snapshot.
func (r *AggregateRepository) Get(ctx context.Context, team, window string) (*models.TeamAggregate, error) {
	query := `
		SELECT team, stat_window, as_of_date, games_count,
		       cf_pct_avg, scf_pct_avg, hdc_pct_avg, hdco_pct_avg, hdf_pct_avg,
		       xgf_avg, xga_avg,
		       pp_pct_avg, pk_pct_avg, fow_pct_avg,
		       pen_taken_60_avg, pen_drawn_60_avg, net_pen_60_avg
		FROM team_aggregates
		WHERE team = $1 AND stat_window = $2
		ORDER BY as_of_date DESC
		LIMIT 1
	`

	var agg models.TeamAggregate
	err := r.db.Pool.QueryRow(ctx, query, team, window).Scan(
		&agg.Team, &agg.Window, &agg.AsOfDate, &agg.GamesCount,
		&agg.CFPctAvg, &agg.SCFPctAvg, &agg.HDCPctAvg, &agg.HDCOPctAvg, &agg.HDFPctAvg,
		&agg.XGFAvg, &agg.XGAAvg,
		&agg.PPPctAvg, &agg.PKPctAvg, &agg.FOWPctAvg,
		&agg.PenTaken60Avg, &agg.PenDrawn60Avg, &agg.NetPen60Avg,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		metrics.DBQueriesTotal.WithLabelValues("select", "team_aggregates", "error").Inc()
		return nil, fmt.Errorf("failed to query aggregate for %s/%s: %w", team, window, err)
	}

	metrics.DBQueriesTotal.WithLabelValues("select", "team_aggregates", "success").Inc()
	return &agg, nil
}
