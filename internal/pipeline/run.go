package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"nhldfs/ingestion/internal/metrics"
)

// Batch states. A run moves FETCHING → STAGED → VALIDATING and ends in
// exactly one of PROMOTED, REJECTED or ABORTED.
const (
	StateFetching   = "FETCHING"
	StateStaged     = "STAGED"
	StateValidating = "VALIDATING"
	StatePromoted   = "PROMOTED"
	StateRejected   = "REJECTED"
	StateAborted    = "ABORTED"
)

// RunReport is what a pipeline pass hands back to the operator: either
// rows were promoted and Errors is empty, or nothing was promoted and
// Errors itemizes every reason.
type RunReport struct {
	State          string
	TeamsProcessed int
	GamesFetched   int
	GamesFailed    int
	RowsPromoted   int
	Errors         []string
	Duration       time.Duration
}

// Pipeline wires gap assessment, bounded fetch, batch validation and
// promotion into one batch pass over a set of teams.
type Pipeline struct {
	assessor     *Assessor
	orchestrator *Orchestrator
	validator    *Validator
	promoter     *Promoter
	staging      StagingStore
}

func New(assessor *Assessor, orchestrator *Orchestrator, staging StagingStore) *Pipeline {
	return &Pipeline{
		assessor:     assessor,
		orchestrator: orchestrator,
		validator:    NewValidator(),
		promoter:     NewPromoter(staging),
		staging:      staging,
	}
}

// Run executes one batch pass over the given teams. Staging is cleared on
// every exit path, including structural aborts, so no orphaned rows
// survive into the next run.
func (p *Pipeline) Run(ctx context.Context, teams []string) (report *RunReport, err error) {
	start := time.Now()
	report = &RunReport{State: StateFetching}

	defer func() {
		report.Duration = time.Since(start)
		metrics.PipelineRunDuration.Observe(report.Duration.Seconds())
		metrics.PipelineRunsTotal.WithLabelValues(report.State).Inc()

		if report.State == StateAborted {
			if clearErr := p.staging.Clear(context.WithoutCancel(ctx)); clearErr != nil {
				log.Error().Err(clearErr).Msg("Failed to clear staging after abort")
			}
		}

		log.Info().
			Str("state", report.State).
			Int("teams", report.TeamsProcessed).
			Int("games_fetched", report.GamesFetched).
			Int("games_failed", report.GamesFailed).
			Int("rows_promoted", report.RowsPromoted).
			Dur("duration", report.Duration).
			Msg("Pipeline run finished")
	}()

	for _, team := range teams {
		gap, assessErr := p.assessor.Assess(ctx, team)
		if assessErr != nil {
			report.State = StateAborted
			report.Errors = append(report.Errors, assessErr.Error())
			return report, assessErr
		}

		if len(gap.UnfetchedGameIDs) == 0 {
			report.TeamsProcessed++
			continue
		}

		log.Info().
			Str("team", team).
			Int("completed", gap.TotalCompleted).
			Int("unfetched", len(gap.UnfetchedGameIDs)).
			Msg("Fetching games for team")

		result, fetchErr := p.orchestrator.FetchTeam(ctx, team, gap.UnfetchedGameIDs)
		if result != nil {
			report.GamesFetched += result.Fetched
			report.GamesFailed += len(result.FailedGames)
		}
		if fetchErr != nil {
			// structural failure for one team poisons the whole batch
			report.State = StateAborted
			report.Errors = append(report.Errors, fetchErr.Error())
			return report, fetchErr
		}
		report.TeamsProcessed++
	}

	report.State = StateStaged

	rows, err := p.staging.All(ctx)
	if err != nil {
		report.State = StateAborted
		report.Errors = append(report.Errors, err.Error())
		return report, err
	}

	if len(rows) == 0 {
		// nothing new: already-promoted teams assess as fully fetched
		report.State = StatePromoted
		return report, nil
	}

	report.State = StateValidating
	verdict := p.validator.Validate(rows)

	promoted, err := p.promoter.Promote(ctx, verdict)
	if err != nil {
		report.State = StateAborted
		report.Errors = append(report.Errors, err.Error())
		return report, err
	}

	if !verdict.Passed {
		report.State = StateRejected
		report.Errors = append(report.Errors, verdict.Errors...)
		return report, nil
	}

	report.State = StatePromoted
	report.RowsPromoted = promoted
	return report, nil
}
