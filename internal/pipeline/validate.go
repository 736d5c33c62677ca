package pipeline

import (
	"database/sql"
	"fmt"

	"nhldfs/ingestion/internal/metrics"
	"nhldfs/ingestion/internal/models"
)

// Validation rule names, used in error messages and metrics labels.
const (
	RuleNonEmpty         = "non_empty"
	RuleNullCritical     = "null_critical"
	RuleNegativeValue    = "negative_value"
	RulePPPlausibility   = "pp_plausibility"
	RuleShotDifferential = "shot_differential"
)

// ValidationResult reports whether a staged batch may be promoted. All
// checks run over all rows so the error list is complete, never truncated
// at the first failure.
type ValidationResult struct {
	Passed bool
	Errors []string
}

// Validator runs integrity and plausibility checks over the whole staging
// batch. One bad row rejects the batch: partial promotion would silently
// skew every season aggregate computed downstream.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(rows []models.RawTeamGameStat) *ValidationResult {
	result := &ValidationResult{}

	if len(rows) == 0 {
		result.addError(RuleNonEmpty, "staging is empty, nothing to promote")
		return result
	}

	for i := range rows {
		row := &rows[i]
		v.checkCriticalColumns(row, result)
		v.checkNegatives(row, result)
		v.checkPowerPlay(row, result)
		v.checkShotDifferential(row, result)
	}

	result.Passed = len(result.Errors) == 0
	return result
}

func (r *ValidationResult) addError(rule, format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf("[%s] ", rule)+fmt.Sprintf(format, args...))
	metrics.ValidationFailuresTotal.WithLabelValues(rule).Inc()
}

// checkCriticalColumns rejects rows missing the columns every downstream
// computation depends on.
func (v *Validator) checkCriticalColumns(row *models.RawTeamGameStat, result *ValidationResult) {
	if row.GameID == "" {
		result.addError(RuleNullCritical, "row for team %s has no game id", row.Team)
	}
	if row.Team == "" {
		result.addError(RuleNullCritical, "row for game %s has no team", row.GameID)
	}

	intCriticals := map[string]sql.NullInt32{
		models.StatPPGoals: row.PPGoals,
		models.StatPPOpps:  row.PPOpps,
		models.StatCF:      row.CF,
		models.StatCA:      row.CA,
	}
	for name, val := range intCriticals {
		if !val.Valid {
			result.addError(RuleNullCritical, "game %s team %s: %s is null", row.GameID, row.Team, name)
		}
	}
	if !row.XGF.Valid {
		result.addError(RuleNullCritical, "game %s team %s: %s is null", row.GameID, row.Team, models.StatXGF)
	}
}

func (v *Validator) checkNegatives(row *models.RawTeamGameStat, result *ValidationResult) {
	counts := map[string]sql.NullInt32{
		"cf": row.CF, "ca": row.CA,
		"scf": row.SCF, "sca": row.SCA,
		"hdc": row.HDC, "hdca": row.HDCA,
		"hdco": row.HDCO, "hdcoa": row.HDCOA,
		"hdsf": row.HDSF, "hdsfa": row.HDSFA,
		"pen_taken": row.PenTaken, "pen_drawn": row.PenDrawn,
		"pp_goals": row.PPGoals, "pp_opps": row.PPOpps,
		"pp_goals_against": row.PPGoalsAgainst, "pp_opps_against": row.PPOppsAgainst,
		"faceoff_wins": row.FaceoffWins, "faceoff_losses": row.FaceoffLosses,
		"toi_seconds": row.TOISeconds,
	}
	for name, val := range counts {
		if val.Valid && val.Int32 < 0 {
			result.addError(RuleNegativeValue, "game %s team %s: negative value %s = %d",
				row.GameID, row.Team, name, val.Int32)
		}
	}

	floats := map[string]sql.NullFloat64{"xgf": row.XGF, "xga": row.XGA}
	for name, val := range floats {
		if val.Valid && val.Float64 < 0 {
			result.addError(RuleNegativeValue, "game %s team %s: negative value %s = %.2f",
				row.GameID, row.Team, name, val.Float64)
		}
	}
}

// checkPowerPlay verifies goals never exceed opportunities, on both the
// for and against side. Only checked where opportunities exist.
func (v *Validator) checkPowerPlay(row *models.RawTeamGameStat, result *ValidationResult) {
	if row.PPOpps.Valid && row.PPOpps.Int32 > 0 &&
		row.PPGoals.Valid && row.PPGoals.Int32 > row.PPOpps.Int32 {
		result.addError(RulePPPlausibility, "game %s team %s: pp_goals %d > pp_opps %d",
			row.GameID, row.Team, row.PPGoals.Int32, row.PPOpps.Int32)
	}
	if row.PPOppsAgainst.Valid && row.PPOppsAgainst.Int32 > 0 &&
		row.PPGoalsAgainst.Valid && row.PPGoalsAgainst.Int32 > row.PPOppsAgainst.Int32 {
		result.addError(RulePPPlausibility, "game %s team %s: pp_goals_against %d > pp_opps_against %d",
			row.GameID, row.Team, row.PPGoalsAgainst.Int32, row.PPOppsAgainst.Int32)
	}
}

// checkShotDifferential guards against double-counted or mis-attributed
// events: neither side of the corsi split may exceed 110% of the total.
func (v *Validator) checkShotDifferential(row *models.RawTeamGameStat, result *ValidationResult) {
	if !row.CF.Valid || !row.CA.Valid {
		return
	}
	total := float64(row.CF.Int32 + row.CA.Int32)
	if total == 0 {
		return
	}
	limit := total * 1.10
	if float64(row.CF.Int32) > limit {
		result.addError(RuleShotDifferential, "game %s team %s: cf %d exceeds 110%% of total %d",
			row.GameID, row.Team, row.CF.Int32, int(total))
	}
	if float64(row.CA.Int32) > limit {
		result.addError(RuleShotDifferential, "game %s team %s: ca %d exceeds 110%% of total %d",
			row.GameID, row.Team, row.CA.Int32, int(total))
	}
}
