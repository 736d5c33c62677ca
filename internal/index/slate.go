package index

import (
	"fmt"
	"sort"
	"strings"

	"nhldfs/ingestion/internal/models"
)

// Slate factor weights and trigger thresholds.
const (
	formWeight    = 0.4
	matchupWeight = 0.3
	venueWeight   = 0.2
	restWeight    = 0.1

	formRangeLow  = 40.0 // expected operating range of shot share, percent
	formRangeHigh = 60.0

	matchupRangeHigh = 3.5 // expected goals against per game

	defaultVenueBoost = 0.08

	stackIndexDiffThreshold  = 1.5
	stackPPMismatchThreshold = 15.0
	stackHighDangerThreshold = 55.0
)

// TeamSlateInput is everything the slate engine needs about one side of a
// game: recent-form averages and the composite power index.
type TeamSlateInput struct {
	Team      string
	Form      *models.TeamAverages
	Composite float64
}

// SlateGameIndex is one game's derived priority record.
type SlateGameIndex struct {
	GameID   string
	HomeTeam string
	AwayTeam string

	FormFactor    float64
	MatchupFactor float64
	VenueFactor   float64
	RestFactor    float64

	Priority float64
	Rank     int

	StackAdvice string
}

// SlateEngine ranks a date's games by how attractive they are for
// daily-fantasy stacking.
type SlateEngine struct {
	venueBoost float64
}

func NewSlateEngine(venueBoost float64) *SlateEngine {
	if venueBoost == 0 {
		venueBoost = defaultVenueBoost
	}
	return &SlateEngine{venueBoost: venueBoost}
}

// Score derives one game's priority index from both teams' recent form
// and matchup context.
func (e *SlateEngine) Score(gameID string, home, away TeamSlateInput) *SlateGameIndex {
	idx := &SlateGameIndex{
		GameID:   gameID,
		HomeTeam: home.Team,
		AwayTeam: away.Team,
	}

	idx.FormFactor = formScore(home.Form) - formScore(away.Form)
	idx.MatchupFactor = matchupScore(away.Form) - matchupScore(home.Form)
	idx.VenueFactor = e.venueBoost
	// Rest is neutral until back-to-back detection lands.
	idx.RestFactor = 0

	idx.Priority = formWeight*idx.FormFactor +
		matchupWeight*idx.MatchupFactor +
		venueWeight*idx.VenueFactor +
		restWeight*idx.RestFactor

	idx.StackAdvice = stackAdvice(home, away)
	return idx
}

// RankSlate scores every game on a date and assigns ranks, 1 = highest
// priority. Ties break on game ID ascending.
func (e *SlateEngine) RankSlate(games []models.Game, inputs map[string]TeamSlateInput) []SlateGameIndex {
	var out []SlateGameIndex
	for _, g := range games {
		home, homeOK := inputs[g.HomeTeam]
		away, awayOK := inputs[g.AwayTeam]
		if !homeOK || !awayOK {
			continue
		}
		out = append(out, *e.Score(g.GameID, home, away))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].GameID < out[j].GameID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// formScore maps a team's recent shot share onto [0,1] over the 40-60%
// operating range. Teams with no recent rows sit at the midpoint.
func formScore(form *models.TeamAverages) float64 {
	if form == nil {
		return 0.5
	}
	cf := form.Stats[models.StatCFPct]
	return clamp01((cf - formRangeLow) / (formRangeHigh - formRangeLow))
}

// matchupScore measures how generous a defense is: the more expected
// goals a team allows, the better the matchup for its opponent.
func matchupScore(form *models.TeamAverages) float64 {
	if form == nil {
		return 0.5
	}
	return clamp01(form.Stats[models.StatXGA] / matchupRangeHigh)
}

// stackAdvice concatenates every triggered signal; the triggers are
// independent, not exclusive.
func stackAdvice(home, away TeamSlateInput) string {
	var signals []string

	diff := home.Composite - away.Composite
	if diff > stackIndexDiffThreshold {
		signals = append(signals, fmt.Sprintf("stack %s: power index edge %.2f over %s", home.Team, diff, away.Team))
	} else if -diff > stackIndexDiffThreshold {
		signals = append(signals, fmt.Sprintf("stack %s: power index edge %.2f over %s", away.Team, -diff, home.Team))
	}

	if s := ppMismatch(home, away); s != "" {
		signals = append(signals, s)
	}
	if s := ppMismatch(away, home); s != "" {
		signals = append(signals, s)
	}

	if highDangerShare(home.Form) > stackHighDangerThreshold &&
		highDangerShare(away.Form) > stackHighDangerThreshold {
		signals = append(signals, "both teams generating high-danger volume, game stack candidate")
	}

	if len(signals) == 0 {
		return "no strong signal"
	}
	return strings.Join(signals, "; ")
}

// ppMismatch flags a power play converting well above the kill rate it
// will face.
func ppMismatch(attacking, defending TeamSlateInput) string {
	if attacking.Form == nil || defending.Form == nil {
		return ""
	}
	pp := attacking.Form.Stats[models.StatPPPct]
	pk := defending.Form.Stats[models.StatPKPct]
	if pp-pk > stackPPMismatchThreshold {
		return fmt.Sprintf("%s power-play stack (PP%% %.0f vs PK%% %.0f)", attacking.Team, pp, pk)
	}
	return ""
}

func highDangerShare(form *models.TeamAverages) float64 {
	if form == nil {
		return 0
	}
	return form.Stats[models.StatHDCPct]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
