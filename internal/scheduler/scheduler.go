package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"nhldfs/ingestion/internal/aggregator"
	"nhldfs/ingestion/internal/cache"
	"nhldfs/ingestion/internal/client"
	"nhldfs/ingestion/internal/config"
	"nhldfs/ingestion/internal/index"
	"nhldfs/ingestion/internal/models"
	"nhldfs/ingestion/internal/pipeline"
	"nhldfs/ingestion/internal/repository"
)

// Scheduler runs the nightly batch pass: sync the schedule, fill stat
// gaps through the staged pipeline, then recompute aggregates, league
// context and rankings and refresh the cache.
type Scheduler struct {
	cfg        *config.Config
	client     *client.Client
	db         *repository.Database
	pipeline   *pipeline.Pipeline
	aggregator *aggregator.Aggregator
	cache      *cache.RedisCache // nil when Redis is unavailable
	cron       *cron.Cron
}

func NewScheduler(cfg *config.Config, apiClient *client.Client, db *repository.Database, p *pipeline.Pipeline, redisCache *cache.RedisCache) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		client:     apiClient,
		db:         db,
		pipeline:   p,
		aggregator: aggregator.New(db.Stats),
		cache:      redisCache,
		cron:       cron.New(),
	}
}

// Start registers the nightly refresh job and begins the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.NightlyRefreshCron, func() {
		log.Info().Msg("Running nightly refresh...")
		if err := s.RunNightly(ctx); err != nil {
			log.Error().Err(err).Msg("Nightly refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule nightly refresh: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.NightlyRefreshCron).
		Msg("Nightly refresh scheduled")

	return nil
}

// Stop stops the cron loop.
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	if s.cron != nil {
		s.cron.Stop()
	}
	log.Info().Msg("Scheduler stopped")
}

// RunNightly executes one full refresh pass. Each stage logs its own
// failure; a failed pipeline run leaves last night's derived data in
// place rather than publishing partial results.
func (s *Scheduler) RunNightly(ctx context.Context) error {
	start := time.Now()

	if err := s.SyncSchedules(ctx); err != nil {
		return fmt.Errorf("schedule sync failed: %w", err)
	}

	report, err := s.pipeline.Run(ctx, models.AllTeams)
	if err != nil {
		return fmt.Errorf("pipeline run failed in state %s: %w", report.State, err)
	}
	if report.State == pipeline.StateRejected {
		return fmt.Errorf("batch rejected with %d validation errors", len(report.Errors))
	}

	if err := s.RefreshDerived(ctx); err != nil {
		return fmt.Errorf("derived refresh failed: %w", err)
	}

	log.Info().
		Int("rows_promoted", report.RowsPromoted).
		Dur("duration", time.Since(start)).
		Msg("Nightly refresh complete")
	return nil
}

// SyncSchedules pulls every team's season schedule into the games table.
func (s *Scheduler) SyncSchedules(ctx context.Context) error {
	total := 0
	for _, team := range models.AllTeams {
		games, err := s.client.FetchTeamSchedule(ctx, team, s.cfg.Season)
		if err != nil {
			log.Error().Err(err).Str("team", team).Msg("Failed to fetch team schedule")
			continue
		}
		for _, g := range games {
			if err := s.db.Games.Upsert(ctx, g); err != nil {
				log.Error().Err(err).Str("game_id", g.GameID).Msg("Failed to store scheduled game")
				continue
			}
			total++
		}
	}
	log.Info().Int("games", total).Msg("Schedule sync complete")
	return nil
}

// RefreshDerived recomputes aggregates, league context and rankings from
// production rows and refreshes the cache.
func (s *Scheduler) RefreshDerived(ctx context.Context) error {
	now := time.Now().UTC()
	seasonStart := seasonStartDate(s.cfg.Season)

	perTeam, err := s.aggregator.AllSeasonStats(ctx, seasonStart, now)
	if err != nil {
		return err
	}

	for team, avg := range perTeam {
		if err := s.db.Aggregates.Upsert(ctx, avg.ToAggregate()); err != nil {
			log.Error().Err(err).Str("team", team).Msg("Failed to cache season aggregate")
		}

		rolling, err := s.aggregator.RollingStats(ctx, team, now, s.cfg.RollingWindow)
		if err != nil {
			log.Error().Err(err).Str("team", team).Msg("Failed to compute rolling stats")
			continue
		}
		if rolling != nil {
			if err := s.db.Aggregates.Upsert(ctx, rolling.ToAggregate()); err != nil {
				log.Error().Err(err).Str("team", team).Msg("Failed to cache rolling aggregate")
			}
		}
	}

	lctx, err := s.aggregator.LeagueContext(ctx, seasonStart, now)
	if err != nil {
		return err
	}

	ranked := index.NewEngine(nil).Rank(perTeam, lctx)

	if s.cache != nil {
		ttl := time.Duration(s.cfg.CacheTTLLeagueContext) * time.Second
		if err := s.cache.SetJSON(ctx, cache.KeyLeagueContext, lctx, ttl); err != nil {
			log.Warn().Err(err).Msg("Failed to cache league context")
		}
		ttl = time.Duration(s.cfg.CacheTTLRankings) * time.Second
		if err := s.cache.SetJSON(ctx, cache.KeyRankings, ranked, ttl); err != nil {
			log.Warn().Err(err).Msg("Failed to cache rankings")
		}

		// slates ranked before the refresh were built on the old rankings
		slateKey := cache.KeySlatePrefix + now.Format("2006-01-02")
		if err := s.cache.Invalidate(ctx, slateKey); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate cached slate")
		}
	}

	log.Info().
		Int("teams", len(perTeam)).
		Int("context_stats", len(lctx)).
		Msg("Derived statistics refreshed")
	return nil
}

// seasonStartDate maps a season code like "20252026" to October 1st of
// the opening year, a safe lower bound for the regular season.
func seasonStartDate(season string) time.Time {
	year := time.Now().Year()
	if len(season) >= 4 {
		if y, err := time.Parse("2006", season[:4]); err == nil {
			year = y.Year()
		}
	}
	return time.Date(year, time.October, 1, 0, 0, 0, 0, time.UTC)
}
