package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nhldfs/ingestion/internal/client"
	"nhldfs/ingestion/internal/models"
)

// In-memory doubles for the store and fetcher interfaces.

type fakeSchedule struct {
	completed map[string][]string
}

func (f *fakeSchedule) CompletedGames(_ context.Context, team string) ([]string, error) {
	return f.completed[team], nil
}

type fakeProduction struct {
	mu   sync.Mutex
	rows map[string]models.RawTeamGameStat // key game|team
}

func newFakeProduction() *fakeProduction {
	return &fakeProduction{rows: make(map[string]models.RawTeamGameStat)}
}

func (f *fakeProduction) GameIDs(_ context.Context, team string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for _, r := range f.rows {
		if r.Team == team && !seen[r.GameID] {
			seen[r.GameID] = true
			ids = append(ids, r.GameID)
		}
	}
	return ids, nil
}

type fakeStaging struct {
	mu         sync.Mutex
	rows       map[string]models.RawTeamGameStat
	production *fakeProduction
	dropAway   bool // simulate a lost write for the row-count barrier
}

func newFakeStaging(prod *fakeProduction) *fakeStaging {
	return &fakeStaging{rows: make(map[string]models.RawTeamGameStat), production: prod}
}

func key(gameID, team string) string { return gameID + "|" + team }

func (f *fakeStaging) Insert(_ context.Context, stat *models.RawTeamGameStat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dropAway && stat.Side == models.SideAway {
		return nil
	}
	k := key(stat.GameID, stat.Team)
	if _, exists := f.rows[k]; exists {
		return nil
	}
	f.rows[k] = *stat
	return nil
}

func (f *fakeStaging) GameIDs(_ context.Context, team string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for _, r := range f.rows {
		if r.Team == team && !seen[r.GameID] {
			seen[r.GameID] = true
			ids = append(ids, r.GameID)
		}
	}
	return ids, nil
}

func (f *fakeStaging) CountByGameIDs(_ context.Context, gameIDs []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]bool, len(gameIDs))
	for _, id := range gameIDs {
		want[id] = true
	}
	count := 0
	for _, r := range f.rows {
		if want[r.GameID] {
			count++
		}
	}
	return count, nil
}

func (f *fakeStaging) All(_ context.Context) ([]models.RawTeamGameStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RawTeamGameStat
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStaging) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = make(map[string]models.RawTeamGameStat)
	return nil
}

func (f *fakeStaging) Promote(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.production.mu.Lock()
	defer f.production.mu.Unlock()
	promoted := 0
	for k, r := range f.rows {
		if _, exists := f.production.rows[k]; !exists {
			f.production.rows[k] = r
			promoted++
		}
	}
	f.rows = make(map[string]models.RawTeamGameStat)
	return promoted, nil
}

type fakeFetcher struct {
	mu        sync.Mutex
	games     map[string][2]models.RawTeamGameStat
	failFirst map[string]int  // gameID -> attempts that fail before succeeding
	notFound  map[string]bool // gameID -> respond as missing upstream
	attempts  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		games:     make(map[string][2]models.RawTeamGameStat),
		failFirst: make(map[string]int),
		notFound:  make(map[string]bool),
		attempts:  make(map[string]int),
	}
}

func (f *fakeFetcher) addGame(gameID, home, away string) {
	f.games[gameID] = [2]models.RawTeamGameStat{
		gameRow(gameID, home, models.SideHome),
		gameRow(gameID, away, models.SideAway),
	}
}

func (f *fakeFetcher) FetchGame(_ context.Context, gameID string) (*models.RawTeamGameStat, *models.RawTeamGameStat, error) {
	f.mu.Lock()
	f.attempts[gameID]++
	attempt := f.attempts[gameID]
	pair, ok := f.games[gameID]
	failUntil := f.failFirst[gameID]
	missing := f.notFound[gameID]
	f.mu.Unlock()

	if missing {
		return nil, nil, fmt.Errorf("boxscore fetch for %s: %w", gameID, client.ErrNotFound)
	}
	if !ok {
		return nil, nil, fmt.Errorf("unknown game %s", gameID)
	}
	if attempt <= failUntil {
		return nil, nil, errors.New("simulated timeout")
	}
	home, away := pair[0], pair[1]
	return &home, &away, nil
}

func gameRow(gameID, team, side string) models.RawTeamGameStat {
	return models.RawTeamGameStat{
		GameID:     gameID,
		GameDate:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Team:       team,
		Side:       side,
		CF:         models.NullInt32(55),
		CA:         models.NullInt32(48),
		SCF:        models.NullInt32(28),
		SCA:        models.NullInt32(22),
		HDC:        models.NullInt32(12),
		HDCA:       models.NullInt32(9),
		XGF:        models.NullFloat64(3.1),
		XGA:        models.NullFloat64(2.4),
		PPGoals:    models.NullInt32(1),
		PPOpps:     models.NullInt32(4),
		TOISeconds: models.NullInt32(3600),
	}
}

func fastFetchConfig() FetchConfig {
	return FetchConfig{
		Workers:           5,
		JitterMin:         0,
		JitterMax:         0,
		BaseDelay:         time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxRetries:        2,
	}
}

func buildPipeline(schedule *fakeSchedule, fetcher *fakeFetcher) (*Pipeline, *fakeStaging, *fakeProduction, *Assessor) {
	prod := newFakeProduction()
	staging := newFakeStaging(prod)
	assessor := NewAssessor(schedule, staging, prod)
	orch := NewOrchestrator(fetcher, staging, fastFetchConfig())
	return New(assessor, orch, staging), staging, prod, assessor
}

func TestAssessor_UnionOfStagingAndProduction(t *testing.T) {
	ctx := context.Background()
	schedule := &fakeSchedule{completed: map[string][]string{
		"BOS": {"g1", "g2", "g3"},
	}}
	prod := newFakeProduction()
	prod.rows[key("g1", "BOS")] = gameRow("g1", "BOS", models.SideHome)
	staging := newFakeStaging(prod)
	require.NoError(t, staging.Insert(ctx, ptr(gameRow("g2", "BOS", models.SideAway))))

	report, err := NewAssessor(schedule, staging, prod).Assess(ctx, "BOS")
	require.NoError(t, err)

	// g1 is promoted, g2 still awaits validation; neither is re-fetched
	assert.Equal(t, 3, report.TotalCompleted)
	assert.Equal(t, 2, report.FetchedCount)
	assert.Equal(t, []string{"g3"}, report.UnfetchedGameIDs)
}

func TestAssessor_NilScheduleMeansNothingToDo(t *testing.T) {
	prod := newFakeProduction()
	report, err := NewAssessor(nil, newFakeStaging(prod), prod).Assess(context.Background(), "BOS")
	require.NoError(t, err)
	assert.Zero(t, report.TotalCompleted)
	assert.Empty(t, report.UnfetchedGameIDs)
}

func TestOrchestrator_RetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	fetcher := newFakeFetcher()
	fetcher.addGame("g1", "BOS", "TOR")
	fetcher.failFirst["g1"] = 2 // succeed on third attempt

	staging := newFakeStaging(newFakeProduction())
	orch := NewOrchestrator(fetcher, staging, fastFetchConfig())

	result, err := orch.FetchTeam(ctx, "BOS", []string{"g1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Fetched)
	assert.Empty(t, result.FailedGames)
	assert.Equal(t, 3, fetcher.attempts["g1"])
}

func TestOrchestrator_ExhaustedRetriesRecordFailure(t *testing.T) {
	ctx := context.Background()
	fetcher := newFakeFetcher()
	fetcher.addGame("g1", "BOS", "TOR")
	fetcher.addGame("g2", "BOS", "NYR")
	fetcher.failFirst["g1"] = 10

	staging := newFakeStaging(newFakeProduction())
	orch := NewOrchestrator(fetcher, staging, fastFetchConfig())

	result, err := orch.FetchTeam(ctx, "BOS", []string{"g1", "g2"})
	require.NoError(t, err, "A failed game continues the run, it does not abort it")
	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, []string{"g1"}, result.FailedGames)

	// only the successful game reached staging
	count, _ := staging.CountByGameIDs(ctx, []string{"g1", "g2"})
	assert.Equal(t, 2, count)
}

func TestOrchestrator_NotFoundIsNotRetried(t *testing.T) {
	ctx := context.Background()
	fetcher := newFakeFetcher()
	fetcher.addGame("g1", "BOS", "TOR")
	fetcher.addGame("g2", "BOS", "NYR")
	fetcher.notFound["g1"] = true

	staging := newFakeStaging(newFakeProduction())
	orch := NewOrchestrator(fetcher, staging, fastFetchConfig())

	result, err := orch.FetchTeam(ctx, "BOS", []string{"g1", "g2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, result.FailedGames)
	assert.Equal(t, 1, fetcher.attempts["g1"], "A missing game fails on the first attempt")
	assert.Equal(t, 1, result.Fetched)
}

func TestOrchestrator_RowCountMismatchAborts(t *testing.T) {
	ctx := context.Background()
	fetcher := newFakeFetcher()
	fetcher.addGame("g1", "BOS", "TOR")

	staging := newFakeStaging(newFakeProduction())
	staging.dropAway = true
	orch := NewOrchestrator(fetcher, staging, fastFetchConfig())

	_, err := orch.FetchTeam(ctx, "BOS", []string{"g1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRowCountMismatch)
}

func TestPipeline_EndToEndPromotion(t *testing.T) {
	ctx := context.Background()
	schedule := &fakeSchedule{completed: map[string][]string{
		"BOS": {"g1", "g2", "g3"},
	}}
	fetcher := newFakeFetcher()
	fetcher.addGame("g1", "BOS", "TOR")
	fetcher.addGame("g2", "BOS", "NYR")
	fetcher.addGame("g3", "BOS", "MTL")

	p, staging, prod, assessor := buildPipeline(schedule, fetcher)

	report, err := p.Run(ctx, []string{"BOS"})
	require.NoError(t, err)

	assert.Equal(t, StatePromoted, report.State)
	assert.Equal(t, 3, report.GamesFetched)
	assert.Equal(t, 6, report.RowsPromoted, "Three games promote two rows each")
	assert.Empty(t, report.Errors)

	rows, _ := staging.All(ctx)
	assert.Empty(t, rows, "Staging must be empty after promotion")
	assert.Len(t, prod.rows, 6)

	// idempotence: a second run finds nothing to fetch and stages nothing
	gap, err := assessor.Assess(ctx, "BOS")
	require.NoError(t, err)
	assert.Empty(t, gap.UnfetchedGameIDs)
	assert.Equal(t, 3, gap.FetchedCount)

	report, err = p.Run(ctx, []string{"BOS"})
	require.NoError(t, err)
	assert.Equal(t, StatePromoted, report.State)
	assert.Zero(t, report.RowsPromoted)
	assert.Zero(t, report.GamesFetched)
}

func TestPipeline_RejectedBatchClearsStaging(t *testing.T) {
	ctx := context.Background()
	schedule := &fakeSchedule{completed: map[string][]string{
		"BOS": {"g1", "g2", "g3"},
	}}
	fetcher := newFakeFetcher()
	fetcher.addGame("g1", "BOS", "TOR")
	fetcher.addGame("g2", "BOS", "NYR")
	fetcher.addGame("g3", "BOS", "MTL")

	// poison one row
	pair := fetcher.games["g2"]
	pair[0].CF = models.NullInt32(-1)
	fetcher.games["g2"] = pair

	p, staging, prod, _ := buildPipeline(schedule, fetcher)

	report, err := p.Run(ctx, []string{"BOS"})
	require.NoError(t, err, "A data-quality failure is not a process error")

	assert.Equal(t, StateRejected, report.State)
	assert.Zero(t, report.RowsPromoted)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0], RuleNegativeValue)

	rows, _ := staging.All(ctx)
	assert.Empty(t, rows, "Rejected batch must still clear staging")
	assert.Empty(t, prod.rows, "Nothing may reach production from a rejected batch")
}

func ptr(s models.RawTeamGameStat) *models.RawTeamGameStat { return &s }
