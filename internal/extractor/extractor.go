// Package extractor turns a game's boxscore and play-by-play payloads
// into the flat per-team stat vector stored by the pipeline. Extraction
// is a pure function of its inputs; the only side channel is an optional
// secondary power-play source with documented precedence.
package extractor

import (
	"context"
	"errors"
	"math"
	"time"

	"nhldfs/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrUnusable marks input that cannot produce a stat vector: missing
// payloads, a game that has not been played, or a team that did not
// participate. Callers treat it like any other fetch failure.
var ErrUnusable = errors.New("unusable game data")

// PPSource supplies authoritative team-level power-play counters for a
// game. The legacy stats API implements this; nil disables the override.
type PPSource interface {
	PowerPlay(ctx context.Context, gameID, team string) (*models.PPStats, error)
}

// Extractor derives raw team-game stat rows from API payloads.
type Extractor struct {
	pp PPSource
}

// New creates an extractor. pp may be nil, in which case power-play
// counters come solely from the play-by-play derivation.
func New(pp PPSource) *Extractor {
	return &Extractor{pp: pp}
}

// ExtractBoth extracts the stat rows for both participants of a game.
// Every usable game yields exactly two rows.
func (e *Extractor) ExtractBoth(ctx context.Context, box *models.Boxscore, pbp *models.PlayByPlay) (*models.RawTeamGameStat, *models.RawTeamGameStat, error) {
	if box == nil || pbp == nil {
		return nil, nil, ErrUnusable
	}

	home, err := e.Extract(ctx, box, pbp, box.HomeTeam.Abbrev)
	if err != nil {
		return nil, nil, err
	}
	away, err := e.Extract(ctx, box, pbp, box.AwayTeam.Abbrev)
	if err != nil {
		return nil, nil, err
	}
	return home, away, nil
}

// Extract builds one team's stat row for a game. Returns ErrUnusable when
// the payloads are missing, the game has not been played, or the team was
// not a participant.
func (e *Extractor) Extract(ctx context.Context, box *models.Boxscore, pbp *models.PlayByPlay, team string) (*models.RawTeamGameStat, error) {
	if box == nil || pbp == nil {
		return nil, ErrUnusable
	}
	if pbp.GameState == models.GameStateFuture || box.GameState == models.GameStateFuture {
		return nil, ErrUnusable
	}

	side := box.TeamSide(team)
	if side == "" {
		return nil, ErrUnusable
	}

	teamID := box.HomeTeam.ID
	if side == models.SideAway {
		teamID = box.AwayTeam.ID
	}

	row := countPlays(pbp.Plays, teamID)
	row.GameID = box.GameID()
	row.Team = team
	row.Side = side
	if d, err := time.Parse("2006-01-02", box.GameDate); err == nil {
		row.GameDate = d
	}

	e.mergePowerPlay(ctx, row)

	return row, nil
}

// countPlays walks the play-by-play once and accumulates every counter
// for the team identified by teamID.
func countPlays(plays []models.Play, teamID int) *models.RawTeamGameStat {
	var (
		cf, ca, scf, sca             int
		hdc, hdca, hdco, hdcoa       int
		hdsf, hdsfa                  int
		xgf, xga                     float64
		penTaken, penDrawn           int
		ppGoals, ppGoalsAgainst      int
		ppOpps, ppOppsAgainst        int
		faceoffWins, faceoffLosses   int
	)

	for _, play := range plays {
		details := play.Details
		isFor := details.EventOwnerTeamID == teamID

		switch play.TypeDescKey {
		case models.EventShotOnGoal, models.EventMissedShot, models.EventBlockedShot, models.EventGoal:
			highDanger := IsHighDanger(details.XCoord, details.YCoord)
			onNet := play.TypeDescKey == models.EventShotOnGoal || play.TypeDescKey == models.EventGoal

			if onNet {
				xg := ExpectedGoals(details.XCoord, details.YCoord, details.ShotType)
				if isFor {
					xgf += xg
				} else {
					xga += xg
				}
			}

			if isFor {
				cf++
				if highDanger {
					hdc++
					if onNet {
						hdco++
						hdsf++
					}
				}
				if onNet {
					scf++
				}
			} else {
				ca++
				if highDanger {
					hdca++
					if onNet {
						hdcoa++
						hdsfa++
					}
				}
				if onNet {
					sca++
				}
			}

		case models.EventPenalty:
			if isFor {
				penTaken++
			} else {
				penDrawn++
			}
			// Only minor penalties create a power-play opportunity;
			// majors and misconducts do not change skater counts the
			// same way and are excluded.
			if details.TypeCode == "MIN" {
				if isFor {
					ppOppsAgainst++
				} else {
					ppOpps++
				}
			}

		case models.EventFaceoff:
			// eventOwnerTeamId identifies the faceoff winner.
			if isFor {
				faceoffWins++
			} else {
				faceoffLosses++
			}
		}

		// Power-play goals are detected from the situation code; the
		// strength field on goal events is unreliable.
		if play.TypeDescKey == models.EventGoal && isPowerPlaySituation(play.SituationCode) {
			if isFor {
				ppGoals++
			} else {
				ppGoalsAgainst++
			}
		}
	}

	return &models.RawTeamGameStat{
		CF:             models.NullInt32(cf),
		CA:             models.NullInt32(ca),
		SCF:            models.NullInt32(scf),
		SCA:            models.NullInt32(sca),
		HDC:            models.NullInt32(hdc),
		HDCA:           models.NullInt32(hdca),
		HDCO:           models.NullInt32(hdco),
		HDCOA:          models.NullInt32(hdcoa),
		HDSF:           models.NullInt32(hdsf),
		HDSFA:          models.NullInt32(hdsfa),
		XGF:            models.NullFloat64(round2(xgf)),
		XGA:            models.NullFloat64(round2(xga)),
		PenTaken:       models.NullInt32(penTaken),
		PenDrawn:       models.NullInt32(penDrawn),
		PPGoals:        models.NullInt32(ppGoals),
		PPGoalsAgainst: models.NullInt32(ppGoalsAgainst),
		PPOpps:         models.NullInt32(ppOpps),
		PPOppsAgainst:  models.NullInt32(ppOppsAgainst),
		FaceoffWins:    models.NullInt32(faceoffWins),
		FaceoffLosses:  models.NullInt32(faceoffLosses),
		// Regulation length; the gamecenter payload does not expose
		// team TOI, so per-60 rates assume a 60-minute game.
		TOISeconds: models.NullInt32(3600),
	}
}

// powerPlaySituationCodes: 5v4, 5v3, and 4v3 man-advantage states.
var powerPlaySituationCodes = map[string]bool{
	"1451": true,
	"1351": true,
	"1341": true,
	"1241": true,
}

func isPowerPlaySituation(code string) bool {
	return powerPlaySituationCodes[code]
}

// mergePowerPlay overrides the play-by-play power-play derivation with
// counters from the secondary source when it is configured and responds.
// Precedence: secondary source wins outright; on any failure the
// play-by-play values stand untouched.
func (e *Extractor) mergePowerPlay(ctx context.Context, row *models.RawTeamGameStat) {
	if e.pp == nil {
		return
	}

	pp, err := e.pp.PowerPlay(ctx, row.GameID, row.Team)
	if err != nil {
		log.Debug().
			Err(err).
			Str("game_id", row.GameID).
			Str("team", row.Team).
			Msg("Secondary PP source unavailable, keeping play-by-play derivation")
		return
	}

	row.PPGoals = models.NullInt32(pp.Goals)
	row.PPOpps = models.NullInt32(pp.Opps)
	row.PPGoalsAgainst = models.NullInt32(pp.GoalsAgainst)
	row.PPOppsAgainst = models.NullInt32(pp.OppsAgainst)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
