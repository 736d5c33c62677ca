package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"nhldfs/ingestion/internal/metrics"
	"nhldfs/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrNotFound marks a well-defined "no such resource" response from the
// API. It is never retried; every other failure mode (network errors,
// timeouts, 429/5xx) is treated as transient and eligible for retry.
var ErrNotFound = errors.New("resource not found")

// Client is the NHL web API client
type Client struct {
	baseURL     string
	legacyURL   string
	httpClient  *http.Client
	rateLimiter chan struct{} // Rate limiting semaphore
	maxRetries  int
	retryDelay  time.Duration
}

// NewClient creates a new NHL API client with optimizations
func NewClient(baseURL, legacyBaseURL string, timeout time.Duration) *Client {
	// Create rate limiter (max 20 concurrent requests, burst of 20)
	rateLimiter := make(chan struct{}, 20)
	for i := 0; i < 20; i++ {
		rateLimiter <- struct{}{}
	}

	return &Client{
		baseURL:     baseURL,
		legacyURL:   legacyBaseURL,
		rateLimiter: rateLimiter,
		maxRetries:  3,
		retryDelay:  1 * time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// get performs a GET request against a fully-formed URL with retry logic
// and rate limiting.
func (c *Client) get(ctx context.Context, endpoint, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		// Rate limiting: acquire semaphore
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.rateLimiter:
		}

		body, err := c.do(ctx, endpoint, url)
		c.rateLimiter <- struct{}{}

		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrNotFound) || !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// retryableError wraps failures worth another attempt.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

func (c *Client) do(ctx context.Context, endpoint, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "nhl-dfs-ingestion/2.0")

	log.Debug().
		Str("url", url).
		Str("method", req.Method).
		Msg("Making API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APICallsTotal.WithLabelValues(endpoint, "error").Inc()
		// Network errors and timeouts are transient
		return nil, &retryableError{fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{fmt.Errorf("failed to read response body: %w", err)}
	}

	metrics.APICallsTotal.WithLabelValues(endpoint, resp.Status).Inc()
	metrics.APICallDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	switch {
	case resp.StatusCode == http.StatusOK:
		log.Debug().
			Str("url", url).
			Int("status", resp.StatusCode).
			Int("size", len(body)).
			Msg("API request successful")
		return body, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		log.Warn().
			Str("url", url).
			Int("status", resp.StatusCode).
			Msg("Received retryable error, will retry")
		return nil, &retryableError{fmt.Errorf("API returned retryable status %d: %s", resp.StatusCode, string(body))}

	default:
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
}

// FetchBoxscore fetches the gamecenter boxscore for a game
func (c *Client) FetchBoxscore(ctx context.Context, gameID string) (*models.Boxscore, error) {
	url := fmt.Sprintf("%s/v1/gamecenter/%s/boxscore", c.baseURL, gameID)
	body, err := c.get(ctx, "boxscore", url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch boxscore for game %s: %w", gameID, err)
	}

	var box models.Boxscore
	if err := json.Unmarshal(body, &box); err != nil {
		return nil, fmt.Errorf("failed to unmarshal boxscore: %w", err)
	}

	return &box, nil
}

// FetchPlayByPlay fetches the gamecenter play-by-play for a game
func (c *Client) FetchPlayByPlay(ctx context.Context, gameID string) (*models.PlayByPlay, error) {
	url := fmt.Sprintf("%s/v1/gamecenter/%s/play-by-play", c.baseURL, gameID)
	body, err := c.get(ctx, "play-by-play", url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch play-by-play for game %s: %w", gameID, err)
	}

	var pbp models.PlayByPlay
	if err := json.Unmarshal(body, &pbp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal play-by-play: %w", err)
	}

	return &pbp, nil
}

// FetchTeamSchedule fetches a team's full season schedule
func (c *Client) FetchTeamSchedule(ctx context.Context, team, season string) ([]*models.Game, error) {
	url := fmt.Sprintf("%s/v1/club-schedule-season/%s/%s", c.baseURL, team, season)
	body, err := c.get(ctx, "club-schedule", url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule for %s: %w", team, err)
	}

	var payload struct {
		Games []models.GameInput `json:"games"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}

	games := make([]*models.Game, 0, len(payload.Games))
	for i := range payload.Games {
		games = append(games, payload.Games[i].ToGame())
	}

	return games, nil
}

// FetchScheduleByDate fetches all games scheduled on a date (YYYY-MM-DD)
func (c *Client) FetchScheduleByDate(ctx context.Context, date string) ([]*models.Game, error) {
	url := fmt.Sprintf("%s/v1/schedule/%s", c.baseURL, date)
	body, err := c.get(ctx, "schedule", url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule for %s: %w", date, err)
	}

	var payload struct {
		GameWeek []struct {
			Date  string             `json:"date"`
			Games []models.GameInput `json:"games"`
		} `json:"gameWeek"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}

	var games []*models.Game
	for _, day := range payload.GameWeek {
		if day.Date != date {
			continue
		}
		for i := range day.Games {
			games = append(games, day.Games[i].ToGame())
		}
	}

	return games, nil
}

// legacyBoxscore mirrors the team-level stat block of the legacy stats API.
type legacyBoxscore struct {
	Teams map[string]struct {
		Team struct {
			Abbreviation string `json:"abbreviation"`
		} `json:"team"`
		TeamStats struct {
			TeamSkaterStats struct {
				PowerPlayGoals         float64 `json:"powerPlayGoals"`
				PowerPlayOpportunities float64 `json:"powerPlayOpportunities"`
			} `json:"teamSkaterStats"`
		} `json:"teamStats"`
	} `json:"teams"`
}

// PowerPlay fetches the authoritative power-play counters for one team in
// a game from the legacy stats API. Implements extractor.PPSource.
func (c *Client) PowerPlay(ctx context.Context, gameID, team string) (*models.PPStats, error) {
	url := fmt.Sprintf("%s/api/v1/game/%s/boxscore", c.legacyURL, gameID)
	body, err := c.get(ctx, "legacy-boxscore", url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch legacy boxscore for game %s: %w", gameID, err)
	}

	var box legacyBoxscore
	if err := json.Unmarshal(body, &box); err != nil {
		return nil, fmt.Errorf("failed to unmarshal legacy boxscore: %w", err)
	}

	var ours, theirs *models.PPStats
	for _, side := range []string{"home", "away"} {
		data, ok := box.Teams[side]
		if !ok {
			continue
		}
		stats := &models.PPStats{
			Goals: int(data.TeamStats.TeamSkaterStats.PowerPlayGoals),
			Opps:  int(data.TeamStats.TeamSkaterStats.PowerPlayOpportunities),
		}
		if data.Team.Abbreviation == team {
			ours = stats
		} else {
			theirs = stats
		}
	}

	if ours == nil || theirs == nil {
		return nil, fmt.Errorf("team %s not present in legacy boxscore for game %s", team, gameID)
	}

	// The opponent's power-play line is our penalty-kill line.
	ours.GoalsAgainst = theirs.Goals
	ours.OppsAgainst = theirs.Opps
	return ours, nil
}
