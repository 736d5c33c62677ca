package pipeline

import (
	"context"
	"fmt"

	"nhldfs/ingestion/internal/models"
)

// ScheduleSource lists a team's completed game IDs in schedule order.
type ScheduleSource interface {
	CompletedGames(ctx context.Context, team string) ([]string, error)
}

// StagingStore is the transient holding area new rows land in. Only the
// fetch orchestrator writes to it; only promotion or rejection clears it.
type StagingStore interface {
	Insert(ctx context.Context, stat *models.RawTeamGameStat) error
	GameIDs(ctx context.Context, team string) ([]string, error)
	CountByGameIDs(ctx context.Context, gameIDs []string) (int, error)
	All(ctx context.Context) ([]models.RawTeamGameStat, error)
	Clear(ctx context.Context) error
	Promote(ctx context.Context) (int, error)
}

// ProductionStore is the read surface of the validated stats table needed
// for gap assessment.
type ProductionStore interface {
	GameIDs(ctx context.Context, team string) ([]string, error)
}

// GapReport is the result of assessing one team.
type GapReport struct {
	Team             string
	FetchedCount     int
	TotalCompleted   int
	UnfetchedGameIDs []string
}

// Assessor decides which completed games still need fetching.
type Assessor struct {
	schedule   ScheduleSource
	staging    StagingStore
	production ProductionStore
}

func NewAssessor(schedule ScheduleSource, staging StagingStore, production ProductionStore) *Assessor {
	return &Assessor{schedule: schedule, staging: staging, production: production}
}

// Assess compares a team's completed schedule against staging plus
// production. A game needs fetching only when absent from both: rows
// sitting in staging are awaiting validation and must not be re-fetched.
// A nil schedule source means no completed games, not an error.
func (a *Assessor) Assess(ctx context.Context, team string) (*GapReport, error) {
	report := &GapReport{Team: team}

	if a.schedule == nil {
		return report, nil
	}

	completed, err := a.schedule.CompletedGames(ctx, team)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed games for %s: %w", team, err)
	}
	report.TotalCompleted = len(completed)

	stored := make(map[string]struct{})
	for _, source := range []func(context.Context, string) ([]string, error){
		a.staging.GameIDs,
		a.production.GameIDs,
	} {
		ids, err := source(ctx, team)
		if err != nil {
			return nil, fmt.Errorf("failed to load stored game ids for %s: %w", team, err)
		}
		for _, id := range ids {
			stored[id] = struct{}{}
		}
	}

	for _, id := range completed {
		if _, ok := stored[id]; ok {
			report.FetchedCount++
		} else {
			report.UnfetchedGameIDs = append(report.UnfetchedGameIDs, id)
		}
	}

	return report, nil
}
