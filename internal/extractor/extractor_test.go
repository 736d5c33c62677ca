package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nhldfs/ingestion/internal/models"
)

const (
	homeID = 6  // BOS
	awayID = 10 // TOR
)

func finishedBoxscore() *models.Boxscore {
	return &models.Boxscore{
		ID:        2026020001,
		GameDate:  "2026-01-05",
		GameState: models.GameStateOff,
		HomeTeam:  models.BoxscoreTeam{ID: homeID, Abbrev: "BOS", Score: 4},
		AwayTeam:  models.BoxscoreTeam{ID: awayID, Abbrev: "TOR", Score: 2},
	}
}

func shot(teamID int, typeKey string, x, y float64, shotType string) models.Play {
	return models.Play{
		TypeDescKey: typeKey,
		Details: models.PlayDetails{
			EventOwnerTeamID: teamID,
			XCoord:           x,
			YCoord:           y,
			ShotType:         shotType,
		},
	}
}

func TestExtract_CorsiAndScoringChances(t *testing.T) {
	pbp := &models.PlayByPlay{
		GameState: models.GameStateOff,
		Plays: []models.Play{
			shot(homeID, models.EventShotOnGoal, 85, 2, "wrist"),  // high danger, on net
			shot(homeID, models.EventMissedShot, 60, 20, "wrist"), // long range, off net
			shot(homeID, models.EventBlockedShot, 70, 5, "slap"),
			shot(awayID, models.EventShotOnGoal, -80, -3, "wrist"), // high danger against
		},
	}

	row, err := New(nil).Extract(context.Background(), finishedBoxscore(), pbp, "BOS")
	require.NoError(t, err)

	assert.Equal(t, int32(3), row.CF.Int32, "All attempt types count toward corsi")
	assert.Equal(t, int32(1), row.CA.Int32)
	assert.Equal(t, int32(1), row.SCF.Int32, "Only on-net attempts are scoring chances")
	assert.Equal(t, int32(1), row.HDC.Int32)
	assert.Equal(t, int32(1), row.HDCA.Int32)
	assert.Equal(t, models.SideHome, row.Side)
	assert.Equal(t, "2026020001", row.GameID)
}

func TestExtract_ExpectedGoalsOnlyFromOnNetAttempts(t *testing.T) {
	pbp := &models.PlayByPlay{
		GameState: models.GameStateOff,
		Plays: []models.Play{
			shot(homeID, models.EventShotOnGoal, 85, 0, "wrist"),   // 0.22
			shot(homeID, models.EventGoal, 70, 0, "slap"),          // mid range, 0.08
			shot(homeID, models.EventMissedShot, 85, 0, "wrist"),   // off net, no xG
			shot(homeID, models.EventBlockedShot, 85, 0, "wrist"),  // blocked, no xG
			shot(awayID, models.EventShotOnGoal, -40, 10, "wrist"), // long range against, 0.04
		},
	}

	row, err := New(nil).Extract(context.Background(), finishedBoxscore(), pbp, "BOS")
	require.NoError(t, err)

	assert.InDelta(t, 0.30, row.XGF.Float64, 1e-9)
	assert.InDelta(t, 0.04, row.XGA.Float64, 1e-9)
}

func TestExtract_PenaltiesAndPowerPlayOpportunities(t *testing.T) {
	minor := models.Play{
		TypeDescKey: models.EventPenalty,
		Details:     models.PlayDetails{EventOwnerTeamID: awayID, TypeCode: "MIN"},
	}
	major := models.Play{
		TypeDescKey: models.EventPenalty,
		Details:     models.PlayDetails{EventOwnerTeamID: awayID, TypeCode: "MAJ"},
	}
	ownMinor := models.Play{
		TypeDescKey: models.EventPenalty,
		Details:     models.PlayDetails{EventOwnerTeamID: homeID, TypeCode: "MIN"},
	}
	ppGoal := models.Play{
		TypeDescKey:   models.EventGoal,
		SituationCode: "1451",
		Details:       models.PlayDetails{EventOwnerTeamID: homeID, XCoord: 80, YCoord: 0, ShotType: "wrist"},
	}
	evenGoal := models.Play{
		TypeDescKey:   models.EventGoal,
		SituationCode: "1551",
		Details:       models.PlayDetails{EventOwnerTeamID: homeID, XCoord: 80, YCoord: 0, ShotType: "wrist"},
	}

	pbp := &models.PlayByPlay{
		GameState: models.GameStateOff,
		Plays:     []models.Play{minor, major, ownMinor, ppGoal, evenGoal},
	}

	row, err := New(nil).Extract(context.Background(), finishedBoxscore(), pbp, "BOS")
	require.NoError(t, err)

	assert.Equal(t, int32(2), row.PenDrawn.Int32)
	assert.Equal(t, int32(1), row.PenTaken.Int32)
	assert.Equal(t, int32(1), row.PPOpps.Int32, "Only minors create opportunities")
	assert.Equal(t, int32(1), row.PPOppsAgainst.Int32)
	assert.Equal(t, int32(1), row.PPGoals.Int32, "Situation code separates PP goals from even strength")
}

func TestExtract_FaceoffWinnerFromEventOwner(t *testing.T) {
	pbp := &models.PlayByPlay{
		GameState: models.GameStateOff,
		Plays: []models.Play{
			{TypeDescKey: models.EventFaceoff, Details: models.PlayDetails{EventOwnerTeamID: homeID}},
			{TypeDescKey: models.EventFaceoff, Details: models.PlayDetails{EventOwnerTeamID: homeID}},
			{TypeDescKey: models.EventFaceoff, Details: models.PlayDetails{EventOwnerTeamID: awayID}},
		},
	}

	row, err := New(nil).Extract(context.Background(), finishedBoxscore(), pbp, "BOS")
	require.NoError(t, err)
	assert.Equal(t, int32(2), row.FaceoffWins.Int32)
	assert.Equal(t, int32(1), row.FaceoffLosses.Int32)
}

func TestExtract_UnusableInputs(t *testing.T) {
	e := New(nil)
	ctx := context.Background()
	box := finishedBoxscore()
	pbp := &models.PlayByPlay{GameState: models.GameStateOff}

	_, err := e.Extract(ctx, nil, pbp, "BOS")
	assert.ErrorIs(t, err, ErrUnusable)

	_, err = e.Extract(ctx, box, pbp, "VAN")
	assert.ErrorIs(t, err, ErrUnusable, "Non-participant team is unusable")

	future := finishedBoxscore()
	future.GameState = models.GameStateFuture
	_, err = e.Extract(ctx, future, pbp, "BOS")
	assert.ErrorIs(t, err, ErrUnusable, "A game not yet played has no stats")
}

func TestExtractBoth_TwoRowsPerGame(t *testing.T) {
	pbp := &models.PlayByPlay{
		GameState: models.GameStateOff,
		Plays: []models.Play{
			shot(homeID, models.EventShotOnGoal, 85, 0, "wrist"),
			shot(awayID, models.EventShotOnGoal, -85, 0, "wrist"),
		},
	}

	home, away, err := New(nil).ExtractBoth(context.Background(), finishedBoxscore(), pbp)
	require.NoError(t, err)

	assert.Equal(t, "BOS", home.Team)
	assert.Equal(t, "TOR", away.Team)
	assert.Equal(t, home.GameID, away.GameID)
	// mirror invariant: one side's for is the other side's against
	assert.Equal(t, home.CF.Int32, away.CA.Int32)
	assert.Equal(t, home.CA.Int32, away.CF.Int32)
}

type fixedPPSource struct {
	stats *models.PPStats
	err   error
}

func (f *fixedPPSource) PowerPlay(context.Context, string, string) (*models.PPStats, error) {
	return f.stats, f.err
}

func TestExtract_SecondaryPPSourceWins(t *testing.T) {
	pbp := &models.PlayByPlay{
		GameState: models.GameStateOff,
		Plays: []models.Play{
			{TypeDescKey: models.EventPenalty, Details: models.PlayDetails{EventOwnerTeamID: awayID, TypeCode: "MIN"}},
		},
	}
	src := &fixedPPSource{stats: &models.PPStats{Goals: 2, Opps: 5, GoalsAgainst: 1, OppsAgainst: 4}}

	row, err := New(src).Extract(context.Background(), finishedBoxscore(), pbp, "BOS")
	require.NoError(t, err)

	assert.Equal(t, int32(2), row.PPGoals.Int32)
	assert.Equal(t, int32(5), row.PPOpps.Int32)
	assert.Equal(t, int32(1), row.PPGoalsAgainst.Int32)
	assert.Equal(t, int32(4), row.PPOppsAgainst.Int32)
}

func TestExtract_SecondaryPPFailureKeepsDerivation(t *testing.T) {
	pbp := &models.PlayByPlay{
		GameState: models.GameStateOff,
		Plays: []models.Play{
			{TypeDescKey: models.EventPenalty, Details: models.PlayDetails{EventOwnerTeamID: awayID, TypeCode: "MIN"}},
		},
	}
	src := &fixedPPSource{err: errors.New("legacy api down")}

	row, err := New(src).Extract(context.Background(), finishedBoxscore(), pbp, "BOS")
	require.NoError(t, err, "Secondary source failure degrades, never fails extraction")
	assert.Equal(t, int32(1), row.PPOpps.Int32)
}
