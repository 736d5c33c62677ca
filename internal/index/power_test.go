package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nhldfs/ingestion/internal/models"
)

func TestZScore(t *testing.T) {
	assert.Equal(t, 0.0, ZScore(52.0, 52.0, 4.0), "Value at the mean scores 0")
	assert.Equal(t, 1.5, ZScore(58.0, 52.0, 4.0))
	assert.Equal(t, -2.0, ZScore(44.0, 52.0, 4.0))
	assert.Equal(t, 0.0, ZScore(99.0, 52.0, 0.0), "Zero std never divides, never NaN")
}

func leagueCtx() models.LeagueContext {
	return models.LeagueContext{
		models.StatCFPct:      {Mean: 50, Std: 5, Count: 32},
		models.StatSCFPct:     {Mean: 50, Std: 5, Count: 32},
		models.StatHDCPct:     {Mean: 50, Std: 5, Count: 32},
		models.StatXGF:        {Mean: 2.8, Std: 0.4, Count: 32},
		models.StatPPPct:      {Mean: 20, Std: 4, Count: 32},
		models.StatXGA:        {Mean: 2.8, Std: 0.4, Count: 32},
		models.StatPenTaken60: {Mean: 3.5, Std: 0.5, Count: 32},
		models.StatFOWPct:     {Mean: 50, Std: 2, Count: 32},
		models.StatPenDrawn60: {Mean: 3.5, Std: 0.5, Count: 32},
		models.StatHDCOPct:    {Mean: 50, Std: 5, Count: 32},
	}
}

func averageStats() map[string]float64 {
	return map[string]float64{
		models.StatCFPct:      50,
		models.StatSCFPct:     50,
		models.StatHDCPct:     50,
		models.StatXGF:        2.8,
		models.StatPPPct:      20,
		models.StatXGA:        2.8,
		models.StatPenTaken60: 3.5,
		models.StatFOWPct:     50,
		models.StatPenDrawn60: 3.5,
		models.StatHDCOPct:    50,
	}
}

func TestCompute_AverageTeamScoresZero(t *testing.T) {
	result := NewEngine(nil).Compute("BOS", averageStats(), leagueCtx())
	assert.InDelta(t, 0.0, result.Composite, 1e-9)
	for name, score := range result.BucketScores {
		assert.InDelta(t, 0.0, score, 1e-9, "bucket %s", name)
	}
}

func TestCompute_ReverseBucketFlipsSign(t *testing.T) {
	stats := averageStats()
	stats[models.StatXGA] = 3.6           // two std worse than league
	stats[models.StatPenTaken60] = 4.5    // two std worse

	result := NewEngine(nil).Compute("BOS", stats, leagueCtx())

	// both defense members sit at z=+2 raw; reverse polarity makes the
	// bucket -2: allowing more is worse
	assert.InDelta(t, -2.0, result.BucketScores["defense"], 1e-9)
	assert.Less(t, result.Composite, 0.0)
}

func TestCompute_WeightScalingInvariance(t *testing.T) {
	stats := averageStats()
	stats[models.StatCFPct] = 57.5
	stats[models.StatXGA] = 2.4

	base := NewEngine(DefaultBuckets()).Compute("BOS", stats, leagueCtx())

	scaled := DefaultBuckets()
	for i := range scaled {
		scaled[i].Weight *= 7.3
	}
	result := NewEngine(scaled).Compute("BOS", stats, leagueCtx())

	assert.InDelta(t, base.Composite, result.Composite, 1e-9,
		"Composite must be invariant to uniform weight scaling")
}

func TestCompute_MissingContextStatsAreSkipped(t *testing.T) {
	stats := averageStats()
	lctx := models.LeagueContext{
		models.StatCFPct: {Mean: 50, Std: 5, Count: 32},
	}

	result := NewEngine(nil).Compute("BOS", stats, lctx)
	assert.Len(t, result.ZScores, 1)
	_, hasDefense := result.BucketScores["defense"]
	assert.False(t, hasDefense, "A bucket with no scored members is omitted")
}

func TestRank_OrderAndSummary(t *testing.T) {
	lctx := models.LeagueContext{
		models.StatCFPct: {Mean: 50, Std: 10, Count: 4},
	}
	// single-stat buckets make composite == cf_pct z-score
	buckets := []Bucket{{Name: "offense", Weight: 1, Stats: []string{models.StatCFPct}}}

	perTeam := map[string]*models.TeamAverages{
		"BOS": {Team: "BOS", Stats: map[string]float64{models.StatCFPct: 58.5}},
		"COL": {Team: "COL", Stats: map[string]float64{models.StatCFPct: 57.2}},
		"TOR": {Team: "TOR", Stats: map[string]float64{models.StatCFPct: 56.1}},
		"SJS": {Team: "SJS", Stats: map[string]float64{models.StatCFPct: 41.8}},
	}

	ranked := NewEngine(buckets).Rank(perTeam, lctx)
	require.Len(t, ranked, 4)

	assert.Equal(t, []string{"BOS", "COL", "TOR", "SJS"},
		[]string{ranked[0].Team, ranked[1].Team, ranked[2].Team, ranked[3].Team})
	for i, r := range ranked {
		assert.Equal(t, i+1, r.Rank)
	}
	assert.InDelta(t, 0.85, ranked[0].Composite, 1e-9)
	assert.InDelta(t, -0.82, ranked[3].Composite, 1e-9)

	summary := Summarize(ranked)
	assert.Equal(t, 4, summary.Teams)
	assert.InDelta(t, ranked[3].Composite, summary.Min, 1e-9,
		"Last by rank equals the summary minimum")
	assert.InDelta(t, ranked[0].Composite, summary.Max, 1e-9)
}

func TestRank_TiesBreakOnTeamCode(t *testing.T) {
	lctx := models.LeagueContext{
		models.StatCFPct: {Mean: 50, Std: 5, Count: 3},
	}
	buckets := []Bucket{{Name: "offense", Weight: 1, Stats: []string{models.StatCFPct}}}
	perTeam := map[string]*models.TeamAverages{
		"TOR": {Team: "TOR", Stats: map[string]float64{models.StatCFPct: 55}},
		"BOS": {Team: "BOS", Stats: map[string]float64{models.StatCFPct: 55}},
		"MTL": {Team: "MTL", Stats: map[string]float64{models.StatCFPct: 55}},
	}

	ranked := NewEngine(buckets).Rank(perTeam, lctx)
	require.Len(t, ranked, 3)
	assert.Equal(t, "BOS", ranked[0].Team)
	assert.Equal(t, "MTL", ranked[1].Team)
	assert.Equal(t, "TOR", ranked[2].Team)
}
