// Command slaterank ranks a date's games for daily-fantasy slate
// construction: it computes league context and composite power indices
// from promoted stats, scores every game on the slate, and prints the
// prioritized list with stack guidance.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"nhldfs/ingestion/internal/aggregator"
	"nhldfs/ingestion/internal/cache"
	"nhldfs/ingestion/internal/client"
	"nhldfs/ingestion/internal/config"
	"nhldfs/ingestion/internal/index"
	"nhldfs/ingestion/internal/models"
	"nhldfs/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

func main() {
	date := flag.String("date", time.Now().Format("2006-01-02"), "slate date (YYYY-MM-DD)")
	window := flag.Int("window", 5, "rolling window for recent form")
	flag.Parse()

	ctx := context.Background()
	cfg := config.MustLoad()

	asOf, err := time.Parse("2006-01-02", *date)
	if err != nil {
		log.Fatal().Err(err).Str("date", *date).Msg("Invalid slate date")
	}

	var redisCache *cache.RedisCache
	if rc, err := cache.NewRedisCache(cache.Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, ranking without cache")
	} else {
		redisCache = rc
		defer redisCache.Close()
	}

	// a slate ranked within the TTL is served straight from cache
	slateKey := cache.KeySlatePrefix + *date
	if redisCache != nil {
		var cached []index.SlateGameIndex
		if hit, err := redisCache.GetJSON(ctx, slateKey, &cached); err == nil && hit && len(cached) > 0 {
			printSlate(*date, cached)
			return
		}
	}

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	games, err := db.Games.ListByDate(ctx, *date)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load slate games")
	}
	if len(games) == 0 {
		// schedule table may lag the remote source; look the date up live
		apiClient := client.NewClient(cfg.NHLAPIBaseURL, cfg.LegacyAPIBaseURL, cfg.NHLAPITimeout)
		fetched, err := apiClient.FetchScheduleByDate(ctx, *date)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to fetch slate schedule")
		}
		if len(fetched) == 0 {
			log.Info().Str("date", *date).Msg("No games scheduled. Exiting.")
			return
		}
		for _, g := range fetched {
			games = append(games, *g)
		}
		if stored, err := db.Games.UpsertBatch(ctx, games); err == nil {
			log.Info().Int("games", stored).Msg("Stored slate schedule")
		}
	}

	// a finished game cannot be rostered
	upcoming := games[:0]
	for _, g := range games {
		if g.IsCompleted() {
			continue
		}
		upcoming = append(upcoming, g)
	}
	games = upcoming

	agg := aggregator.New(db.Stats)
	seasonStart := time.Date(asOf.Year()-1, time.October, 1, 0, 0, 0, 0, time.UTC)
	if asOf.Month() >= time.October {
		seasonStart = time.Date(asOf.Year(), time.October, 1, 0, 0, 0, 0, time.UTC)
	}

	composite := loadComposites(ctx, redisCache)
	if composite == nil {
		lctx := loadLeagueContext(ctx, redisCache, agg, seasonStart, asOf)

		perTeam, err := agg.AllSeasonStats(ctx, seasonStart, asOf)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to compute season stats")
		}

		engine := index.NewEngine(nil)
		composite = make(map[string]float64, len(perTeam))
		for team, avg := range perTeam {
			composite[team] = engine.Compute(team, avg.Stats, lctx).Composite
		}
	}

	windowName := models.WindowLastNBase + strconv.Itoa(*window)
	inputs := make(map[string]index.TeamSlateInput)
	for _, g := range games {
		for _, team := range []string{g.HomeTeam, g.AwayTeam} {
			if _, done := inputs[team]; done {
				continue
			}
			// live schedules carry exhibition codes with no stat history
			if !models.IsKnownTeam(team) {
				log.Warn().Str("team", team).Msg("Skipping non-league team")
				continue
			}
			form := cachedForm(ctx, db, team, windowName, asOf)
			if form == nil {
				var err error
				form, err = agg.RollingStats(ctx, team, asOf, *window)
				if err != nil {
					log.Error().Err(err).Str("team", team).Msg("Failed to compute rolling form")
					continue
				}
			}
			inputs[team] = index.TeamSlateInput{
				Team:      team,
				Form:      form,
				Composite: composite[team],
			}
		}
	}

	ranked := index.NewSlateEngine(cfg.VenueBoost).RankSlate(games, inputs)
	if len(ranked) == 0 {
		log.Warn().Str("date", *date).Msg("No games had enough data to rank")
		os.Exit(1)
	}

	if redisCache != nil {
		ttl := time.Duration(cfg.CacheTTLSlate) * time.Second
		if err := redisCache.SetJSON(ctx, slateKey, ranked, ttl); err != nil {
			log.Warn().Err(err).Msg("Failed to cache ranked slate")
		}
	}

	printSlate(*date, ranked)
}

// loadComposites serves composite indices from the nightly rankings cache.
// Returns nil on a miss so the caller recomputes from promoted stats.
func loadComposites(ctx context.Context, redisCache *cache.RedisCache) map[string]float64 {
	if redisCache == nil {
		return nil
	}
	var ranked []index.RankedTeam
	hit, err := redisCache.GetJSON(ctx, cache.KeyRankings, &ranked)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read cached rankings")
		return nil
	}
	if !hit || len(ranked) == 0 {
		return nil
	}
	composite := make(map[string]float64, len(ranked))
	for _, r := range ranked {
		composite[r.Team] = r.Composite
	}
	return composite
}

func loadLeagueContext(ctx context.Context, redisCache *cache.RedisCache, agg *aggregator.Aggregator, start, end time.Time) models.LeagueContext {
	if redisCache != nil {
		var lctx models.LeagueContext
		if hit, err := redisCache.GetJSON(ctx, cache.KeyLeagueContext, &lctx); err == nil && hit && len(lctx) > 0 {
			return lctx
		}
	}
	lctx, err := agg.LeagueContext(ctx, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute league context")
	}
	return lctx
}

// cachedForm serves rolling form from the nightly aggregate table. Only
// aggregates computed near the slate date stand in; anything else forces
// a recompute so historical slates never see future games.
func cachedForm(ctx context.Context, db *repository.Database, team, window string, asOf time.Time) *models.TeamAverages {
	agg, err := db.Aggregates.Get(ctx, team, window)
	if err != nil || agg == nil {
		return nil
	}
	if agg.AsOfDate.Before(asOf.AddDate(0, 0, -2)) || agg.AsOfDate.After(asOf.AddDate(0, 0, 1)) {
		return nil
	}
	return agg.ToAverages()
}

func printSlate(date string, ranked []index.SlateGameIndex) {
	fmt.Printf("Slate priorities for %s\n", date)
	for _, g := range ranked {
		fmt.Printf("%2d. %s @ %s  priority=%.3f  (form %.2f, matchup %.2f)\n",
			g.Rank, g.AwayTeam, g.HomeTeam, g.Priority, g.FormFactor, g.MatchupFactor)
		fmt.Printf("    %s\n", g.StackAdvice)
	}
}
