package pipeline

import (
	"context"
	"fmt"

	"nhldfs/ingestion/internal/extractor"
	"nhldfs/ingestion/internal/models"
)

// BoxscoreSource is the slice of the API client the game source needs.
type BoxscoreSource interface {
	FetchBoxscore(ctx context.Context, gameID string) (*models.Boxscore, error)
	FetchPlayByPlay(ctx context.Context, gameID string) (*models.PlayByPlay, error)
}

// GameSource adapts the API client plus the raw extractor into the
// StatsFetcher the orchestrator consumes. An unusable game (not yet
// played, unknown team) surfaces as a fetch failure and is retried like
// any transient error.
type GameSource struct {
	api       BoxscoreSource
	extractor *extractor.Extractor
}

func NewGameSource(api BoxscoreSource, ex *extractor.Extractor) *GameSource {
	return &GameSource{api: api, extractor: ex}
}

func (s *GameSource) FetchGame(ctx context.Context, gameID string) (*models.RawTeamGameStat, *models.RawTeamGameStat, error) {
	box, err := s.api.FetchBoxscore(ctx, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("boxscore fetch for %s: %w", gameID, err)
	}

	pbp, err := s.api.FetchPlayByPlay(ctx, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("play-by-play fetch for %s: %w", gameID, err)
	}

	home, away, err := s.extractor.ExtractBoth(ctx, box, pbp)
	if err != nil {
		return nil, nil, fmt.Errorf("extraction for %s: %w", gameID, err)
	}
	return home, away, nil
}
