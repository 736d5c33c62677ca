package index

import "nhldfs/ingestion/internal/models"

// ZScore expresses a value's distance from the league mean in standard
// deviations. A zero std means the statistic cannot discriminate teams,
// so every team is exactly average: the result is 0, never NaN or Inf.
func ZScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (value - mean) / std
}

// ZScores normalizes a team's averaged stats against league context.
// Stats without a context entry are skipped, not zero-filled.
func ZScores(stats map[string]float64, lctx models.LeagueContext) map[string]float64 {
	out := make(map[string]float64, len(stats))
	for name, value := range stats {
		sctx, ok := lctx[name]
		if !ok {
			continue
		}
		out[name] = ZScore(value, sctx.Mean, sctx.Std)
	}
	return out
}
