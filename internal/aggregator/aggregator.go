package aggregator

import (
	"context"
	"fmt"
	"math"
	"time"

	"nhldfs/ingestion/internal/models"
)

// StatsSource is the slice of the production store the aggregator reads.
// Staging rows are never visible here: unvalidated data must not reach
// any derived statistic.
type StatsSource interface {
	ListByTeam(ctx context.Context, team string, start, end time.Time) ([]models.RawTeamGameStat, error)
	ListLastN(ctx context.Context, team string, asOf time.Time, n int) ([]models.RawTeamGameStat, error)
	Teams(ctx context.Context) ([]string, error)
}

// Aggregator turns validated per-game rows into per-team averages and
// league-wide normalization context. Everything here is a projection,
// recomputable from production at any time.
type Aggregator struct {
	stats StatsSource
}

func New(stats StatsSource) *Aggregator {
	return &Aggregator{stats: stats}
}

// SeasonStats averages a team's rate stats over a date range. Returns nil
// when the team has no rows in range: absent, not zero.
func (a *Aggregator) SeasonStats(ctx context.Context, team string, start, end time.Time) (*models.TeamAverages, error) {
	rows, err := a.stats.ListByTeam(ctx, team, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load season rows for %s: %w", team, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return &models.TeamAverages{
		Team:       team,
		Window:     models.WindowSeason,
		AsOf:       end,
		GamesCount: len(rows),
		Stats:      averageRates(rows),
	}, nil
}

// RollingStats averages a team's most recent n games on or before asOf.
// Fewer than n available rows is not an error: the average covers what
// exists and GamesCount tells the caller it is under-sampled.
func (a *Aggregator) RollingStats(ctx context.Context, team string, asOf time.Time, n int) (*models.TeamAverages, error) {
	rows, err := a.stats.ListLastN(ctx, team, asOf, n)
	if err != nil {
		return nil, fmt.Errorf("failed to load last %d rows for %s: %w", n, team, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return &models.TeamAverages{
		Team:       team,
		Window:     fmt.Sprintf("%s%d", models.WindowLastNBase, n),
		AsOf:       asOf,
		GamesCount: len(rows),
		Stats:      averageRates(rows),
	}, nil
}

// AllSeasonStats computes season averages for every team with promoted
// rows. Teams without rows are simply absent from the result.
func (a *Aggregator) AllSeasonStats(ctx context.Context, start, end time.Time) (map[string]*models.TeamAverages, error) {
	teams, err := a.stats.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	out := make(map[string]*models.TeamAverages, len(teams))
	for _, team := range teams {
		avg, err := a.SeasonStats(ctx, team, start, end)
		if err != nil {
			return nil, err
		}
		if avg != nil {
			out[team] = avg
		}
	}
	return out, nil
}

// LeagueContext computes each statistic's population mean and population
// standard deviation across all teams' season averages. The divisor is
// the team count, not count-1: the league is the whole population, not a
// sample of one. Statistics with no contributing teams are omitted.
func (a *Aggregator) LeagueContext(ctx context.Context, start, end time.Time) (models.LeagueContext, error) {
	perTeam, err := a.AllSeasonStats(ctx, start, end)
	if err != nil {
		return nil, err
	}

	values := make(map[string][]float64)
	for _, avg := range perTeam {
		for stat, v := range avg.Stats {
			values[stat] = append(values[stat], v)
		}
	}

	lctx := make(models.LeagueContext, len(values))
	for stat, vs := range values {
		if len(vs) == 0 {
			continue
		}
		mean := 0.0
		for _, v := range vs {
			mean += v
		}
		mean /= float64(len(vs))

		variance := 0.0
		for _, v := range vs {
			d := v - mean
			variance += d * d
		}
		variance /= float64(len(vs))

		lctx[stat] = models.StatContext{
			Mean:  mean,
			Std:   math.Sqrt(variance),
			Count: len(vs),
		}
	}
	return lctx, nil
}

func averageRates(rows []models.RawTeamGameStat) map[string]float64 {
	sums := make(map[string]float64)
	for i := range rows {
		for stat, v := range rows[i].RateStats() {
			sums[stat] += v
		}
	}
	out := make(map[string]float64, len(sums))
	for stat, sum := range sums {
		out[stat] = sum / float64(len(rows))
	}
	return out
}
