package models

import (
	"database/sql"
	"time"
)

// Side of a team within a game.
const (
	SideHome = "home"
	SideAway = "away"
)

// RawTeamGameStat is one team's raw counting stats for a single game.
// Exactly two rows exist per completed game, one per participant,
// enforced by the UNIQUE (game_id, team) constraint. The same shape is
// used for the staging and production tables.
type RawTeamGameStat struct {
	ID       int       `db:"id"`
	GameID   string    `db:"game_id"`
	GameDate time.Time `db:"game_date"`
	Team     string    `db:"team"`
	Side     string    `db:"side"`

	// Power play
	PPGoals        sql.NullInt32 `db:"pp_goals"`
	PPOpps         sql.NullInt32 `db:"pp_opps"`
	PPGoalsAgainst sql.NullInt32 `db:"pp_goals_against"`
	PPOppsAgainst  sql.NullInt32 `db:"pp_opps_against"`

	// Faceoffs
	FaceoffWins   sql.NullInt32 `db:"faceoff_wins"`
	FaceoffLosses sql.NullInt32 `db:"faceoff_losses"`

	// Shot attempts (corsi) and scoring chances
	CF  sql.NullInt32 `db:"cf"`
	CA  sql.NullInt32 `db:"ca"`
	SCF sql.NullInt32 `db:"scf"`
	SCA sql.NullInt32 `db:"sca"`

	// High-danger chances and shots
	HDC   sql.NullInt32 `db:"hdc"`
	HDCA  sql.NullInt32 `db:"hdca"`
	HDCO  sql.NullInt32 `db:"hdco"`
	HDCOA sql.NullInt32 `db:"hdcoa"`
	HDSF  sql.NullInt32 `db:"hdsf"`
	HDSFA sql.NullInt32 `db:"hdsfa"`

	// Expected goals
	XGF sql.NullFloat64 `db:"xgf"`
	XGA sql.NullFloat64 `db:"xga"`

	// Penalties
	PenTaken sql.NullInt32 `db:"pen_taken"`
	PenDrawn sql.NullInt32 `db:"pen_drawn"`

	// Time on ice (whole team, seconds)
	TOISeconds sql.NullInt32 `db:"toi_seconds"`

	CreatedAt time.Time `db:"created_at"`
}

// NullInt32 wraps a valid sql.NullInt32.
func NullInt32(v int) sql.NullInt32 {
	return sql.NullInt32{Int32: int32(v), Valid: true}
}

// NullFloat64 wraps a valid sql.NullFloat64.
func NullFloat64(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

// Raw column names for the critical counting stats.
const (
	StatPPGoals = "pp_goals"
	StatPPOpps  = "pp_opps"
	StatCF      = "cf"
	StatCA      = "ca"
)

// Rate stat names tracked by the aggregation and normalization chain.
const (
	StatPPPct      = "pp_pct"
	StatPKPct      = "pk_pct"
	StatFOWPct     = "fow_pct"
	StatCFPct      = "cf_pct"
	StatSCFPct     = "scf_pct"
	StatHDCPct     = "hdc_pct"
	StatHDCOPct    = "hdco_pct"
	StatHDFPct     = "hdf_pct"
	StatXGF        = "xgf"
	StatXGA        = "xga"
	StatPenTaken60 = "pen_taken_60"
	StatPenDrawn60 = "pen_drawn_60"
	StatNetPen60   = "net_pen_60"
)

// RateStatNames lists every tracked rate stat in a stable order.
var RateStatNames = []string{
	StatPPPct, StatPKPct, StatFOWPct,
	StatCFPct, StatSCFPct, StatHDCPct, StatHDCOPct, StatHDFPct,
	StatXGF, StatXGA,
	StatPenTaken60, StatPenDrawn60, StatNetPen60,
}

// RateStats derives per-game percentage and rate statistics from the raw
// counters. Shares with an empty denominator come back as 0, matching how
// the per-game rows have always been averaged.
func (s *RawTeamGameStat) RateStats() map[string]float64 {
	penTaken := float64(s.PenTaken.Int32)
	penDrawn := float64(s.PenDrawn.Int32)
	// Normalize penalties to a 60-minute pace when TOI is known,
	// otherwise fall back to the raw count.
	if s.TOISeconds.Valid && s.TOISeconds.Int32 > 0 {
		factor := 3600.0 / float64(s.TOISeconds.Int32)
		penTaken *= factor
		penDrawn *= factor
	}

	ppPct := 0.0
	if s.PPOpps.Int32 > 0 {
		ppPct = float64(s.PPGoals.Int32) / float64(s.PPOpps.Int32) * 100
	}
	pkPct := 0.0
	if s.PPOppsAgainst.Int32 > 0 {
		pkPct = float64(s.PPOppsAgainst.Int32-s.PPGoalsAgainst.Int32) / float64(s.PPOppsAgainst.Int32) * 100
	}

	return map[string]float64{
		StatPPPct:      ppPct,
		StatPKPct:      pkPct,
		StatFOWPct:     share(s.FaceoffWins.Int32, s.FaceoffLosses.Int32) * 100,
		StatCFPct:      share(s.CF.Int32, s.CA.Int32) * 100,
		StatSCFPct:     share(s.SCF.Int32, s.SCA.Int32) * 100,
		StatHDCPct:     share(s.HDC.Int32, s.HDCA.Int32) * 100,
		StatHDCOPct:    share(s.HDCO.Int32, s.HDCOA.Int32) * 100,
		StatHDFPct:     share(s.HDSF.Int32, s.HDSFA.Int32) * 100,
		StatXGF:        s.XGF.Float64,
		StatXGA:        s.XGA.Float64,
		StatPenTaken60: penTaken,
		StatPenDrawn60: penDrawn,
		StatNetPen60:   penTaken - penDrawn,
	}
}

// share returns f / (f + a), or 0 when the total is 0.
func share(f, a int32) float64 {
	total := f + a
	if total <= 0 {
		return 0
	}
	return float64(f) / float64(total)
}
