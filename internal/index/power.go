package index

import (
	"sort"

	"nhldfs/ingestion/internal/models"
)

// Bucket groups related statistics under one weight. Reverse marks
// buckets where lower raw values are better (goals against, penalties
// taken): member z-scores are sign-flipped before averaging.
type Bucket struct {
	Name    string
	Weight  float64
	Reverse bool
	Stats   []string
}

// DefaultBuckets is the production bucketing: possession and finishing
// quality drive the offense bucket, suppression the defense bucket, and
// special-teams/faceoff tempo the pace bucket.
func DefaultBuckets() []Bucket {
	return []Bucket{
		{
			Name:   "offense",
			Weight: 0.4,
			Stats:  []string{models.StatCFPct, models.StatSCFPct, models.StatHDCPct, models.StatXGF, models.StatPPPct},
		},
		{
			Name:    "defense",
			Weight:  0.3,
			Reverse: true,
			Stats:   []string{models.StatXGA, models.StatPenTaken60},
		},
		{
			Name:   "pace",
			Weight: 0.3,
			Stats:  []string{models.StatFOWPct, models.StatPenDrawn60, models.StatHDCOPct},
		},
	}
}

// CompositeResult is one team's normalized scoring.
type CompositeResult struct {
	Team         string
	ZScores      map[string]float64
	BucketScores map[string]float64
	Composite    float64
}

// RankedTeam pairs a composite result with its league rank (1 = best).
type RankedTeam struct {
	Rank int
	CompositeResult
}

// Engine computes composite power indices from aggregated team stats and
// league context.
type Engine struct {
	buckets []Bucket
}

func NewEngine(buckets []Bucket) *Engine {
	if len(buckets) == 0 {
		buckets = DefaultBuckets()
	}
	return &Engine{buckets: buckets}
}

// Compute normalizes one team's stats and folds them into a single
// composite score. Bucket score is the mean of its member z-scores after
// polarity. Composite is the weighted mean of bucket scores, normalized
// by total weight so scaling every weight by the same constant changes
// nothing.
func (e *Engine) Compute(team string, stats map[string]float64, lctx models.LeagueContext) *CompositeResult {
	result := &CompositeResult{
		Team:         team,
		ZScores:      ZScores(stats, lctx),
		BucketScores: make(map[string]float64, len(e.buckets)),
	}

	weightedSum := 0.0
	totalWeight := 0.0
	for _, bucket := range e.buckets {
		sum := 0.0
		n := 0
		for _, stat := range bucket.Stats {
			z, ok := result.ZScores[stat]
			if !ok {
				continue
			}
			if bucket.Reverse {
				z = -z
			}
			sum += z
			n++
		}
		if n == 0 {
			continue
		}
		score := sum / float64(n)
		result.BucketScores[bucket.Name] = score
		weightedSum += score * bucket.Weight
		totalWeight += bucket.Weight
	}

	if totalWeight > 0 {
		result.Composite = weightedSum / totalWeight
	}
	return result
}

// Rank orders teams by composite score descending. Equal scores fall
// back to team code ascending so ranking output is reproducible
// regardless of map iteration order.
func (e *Engine) Rank(perTeam map[string]*models.TeamAverages, lctx models.LeagueContext) []RankedTeam {
	results := make([]CompositeResult, 0, len(perTeam))
	for team, avg := range perTeam {
		results = append(results, *e.Compute(team, avg.Stats, lctx))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Composite != results[j].Composite {
			return results[i].Composite > results[j].Composite
		}
		return results[i].Team < results[j].Team
	})

	ranked := make([]RankedTeam, len(results))
	for i, r := range results {
		ranked[i] = RankedTeam{Rank: i + 1, CompositeResult: r}
	}
	return ranked
}

// Summary of a ranking pass.
type Summary struct {
	Teams int
	Max   float64
	Min   float64
	Mean  float64
}

func Summarize(ranked []RankedTeam) Summary {
	s := Summary{Teams: len(ranked)}
	if len(ranked) == 0 {
		return s
	}
	s.Max = ranked[0].Composite
	s.Min = ranked[len(ranked)-1].Composite
	for _, r := range ranked {
		s.Mean += r.Composite
	}
	s.Mean /= float64(len(ranked))
	return s
}
