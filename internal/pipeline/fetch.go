package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"nhldfs/ingestion/internal/client"
	"nhldfs/ingestion/internal/metrics"
	"nhldfs/ingestion/internal/models"
)

// StatsFetcher produces both teams' stat rows for a finished game.
type StatsFetcher interface {
	FetchGame(ctx context.Context, gameID string) (home, away *models.RawTeamGameStat, err error)
}

// ErrRowCountMismatch is the structural integrity failure raised when a
// team's staged row count does not match what its fetches should have
// written. It aborts the whole run before promotion.
var ErrRowCountMismatch = errors.New("staging row count mismatch")

// FetchConfig is the orchestrator's immutable tuning. Passed in at
// construction rather than read from ambient state.
type FetchConfig struct {
	Workers           int
	JitterMin         time.Duration
	JitterMax         time.Duration
	BaseDelay         time.Duration
	BackoffMultiplier float64
	MaxRetries        int
}

func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Workers:           5,
		JitterMin:         time.Second,
		JitterMax:         2 * time.Second,
		BaseDelay:         2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxRetries:        2,
	}
}

// TeamResult summarizes one team's fetch pass.
type TeamResult struct {
	Team        string
	Requested   int
	Fetched     int
	FailedGames []string
}

// Orchestrator pulls raw stats for unfetched games into staging under a
// run-wide concurrency cap.
type Orchestrator struct {
	fetcher StatsFetcher
	staging StagingStore
	cfg     FetchConfig

	// one slot per in-flight fetch, shared across all teams in a run
	slots chan struct{}
}

func NewOrchestrator(fetcher StatsFetcher, staging StagingStore, cfg FetchConfig) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Orchestrator{
		fetcher: fetcher,
		staging: staging,
		cfg:     cfg,
		slots:   make(chan struct{}, cfg.Workers),
	}
}

// FetchTeam fetches every listed game for a team, then runs the row-count
// barrier: staging must hold exactly two rows for every game that fetched
// successfully. A mismatch means a partial write and returns
// ErrRowCountMismatch so the caller aborts the run.
func (o *Orchestrator) FetchTeam(ctx context.Context, team string, gameIDs []string) (*TeamResult, error) {
	result := &TeamResult{Team: team, Requested: len(gameIDs)}
	if len(gameIDs) == 0 {
		return result, nil
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		succeeded []string
	)

	for _, gameID := range gameIDs {
		wg.Add(1)
		go func(gameID string) {
			defer wg.Done()

			if err := o.fetchOne(ctx, gameID); err != nil {
				log.Warn().Err(err).
					Str("team", team).
					Str("game_id", gameID).
					Msg("Game fetch failed after retries")
				metrics.GamesFailedTotal.Inc()

				mu.Lock()
				result.FailedGames = append(result.FailedGames, gameID)
				mu.Unlock()
				return
			}

			metrics.GamesFetchedTotal.Inc()
			mu.Lock()
			succeeded = append(succeeded, gameID)
			mu.Unlock()
		}(gameID)
	}
	wg.Wait()

	result.Fetched = len(succeeded)

	staged, err := o.staging.CountByGameIDs(ctx, succeeded)
	if err != nil {
		return result, fmt.Errorf("failed to count staged rows for %s: %w", team, err)
	}
	if expected := 2 * len(succeeded); staged != expected {
		return result, fmt.Errorf("%w: team %s staged %d rows, expected %d",
			ErrRowCountMismatch, team, staged, expected)
	}

	log.Info().
		Str("team", team).
		Int("requested", result.Requested).
		Int("fetched", result.Fetched).
		Int("failed", len(result.FailedGames)).
		Msg("Team fetch complete")

	return result, nil
}

// fetchOne runs the jitter-then-retry loop for a single game. Each attempt
// holds a pool slot only for the duration of the fetch itself; backoff
// sleeps happen outside the slot so a stalled game does not starve others.
func (o *Orchestrator) fetchOne(ctx context.Context, gameID string) error {
	// spread first attempts out to avoid a request burst at run start
	if err := o.sleep(ctx, o.jitter()); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.FetchRetriesTotal.Inc()
			delay := time.Duration(float64(o.cfg.BaseDelay) * math.Pow(o.cfg.BackoffMultiplier, float64(attempt)))
			if err := o.sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := o.attempt(ctx, gameID)
		if err == nil {
			return nil
		}
		lastErr = err

		// a missing game will not appear on a later attempt
		if errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("game %s not found: %w", gameID, err)
		}
	}

	return fmt.Errorf("game %s failed after %d attempts: %w", gameID, o.cfg.MaxRetries+1, lastErr)
}

func (o *Orchestrator) attempt(ctx context.Context, gameID string) error {
	select {
	case o.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-o.slots }()

	home, away, err := o.fetcher.FetchGame(ctx, gameID)
	if err != nil {
		return err
	}

	// duplicate (game, team) pairs from retries are dropped by the store
	if err := o.staging.Insert(ctx, home); err != nil {
		return err
	}
	return o.staging.Insert(ctx, away)
}

func (o *Orchestrator) jitter() time.Duration {
	if o.cfg.JitterMax <= o.cfg.JitterMin {
		return o.cfg.JitterMin
	}
	return o.cfg.JitterMin + time.Duration(rand.Int63n(int64(o.cfg.JitterMax-o.cfg.JitterMin)))
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
