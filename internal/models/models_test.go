package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGameIsCompleted(t *testing.T) {
	g := Game{GameState: GameStateFuture}
	assert.False(t, g.IsCompleted())

	g.GameState = GameStateLive
	assert.False(t, g.IsCompleted())

	g.GameState = GameStateOff
	assert.True(t, g.IsCompleted())

	g.GameState = GameStateFinal
	assert.True(t, g.IsCompleted())
}

func TestIsKnownTeam(t *testing.T) {
	assert.True(t, IsKnownTeam("BOS"))
	assert.True(t, IsKnownTeam("SEA"))
	assert.False(t, IsKnownTeam("ATL"))
	assert.False(t, IsKnownTeam(""))
}

func TestTeamAveragesRoundTrip(t *testing.T) {
	avg := &TeamAverages{
		Team:       "BOS",
		Window:     WindowLastNBase + "5",
		AsOf:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		GamesCount: 5,
		Stats: map[string]float64{
			StatPPPct:      22.5,
			StatPKPct:      81.0,
			StatFOWPct:     51.2,
			StatCFPct:      53.4,
			StatSCFPct:     52.0,
			StatHDCPct:     55.1,
			StatHDCOPct:    54.3,
			StatHDFPct:     50.9,
			StatXGF:        3.12,
			StatXGA:        2.48,
			StatPenTaken60: 3.4,
			StatPenDrawn60: 3.9,
			StatNetPen60:   -0.5,
		},
	}

	back := avg.ToAggregate().ToAverages()
	assert.Equal(t, avg.Team, back.Team)
	assert.Equal(t, avg.Window, back.Window)
	assert.Equal(t, avg.AsOf, back.AsOf)
	assert.Equal(t, avg.GamesCount, back.GamesCount)
	assert.Equal(t, avg.Stats, back.Stats)
}
