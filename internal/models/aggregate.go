package models

import "time"

// Aggregation window types.
const (
	WindowSeason    = "season"
	WindowLastNBase = "last_" // last-N windows are "last_5", "last_10", ...
)

// TeamAverages is the aggregated view of a team's per-game rate stats over
// a window. It is a projection: always recomputable from production rows,
// never a source of truth. GamesCount below the requested window size
// signals an under-sample; callers decide whether that is acceptable.
type TeamAverages struct {
	Team       string
	Window     string
	AsOf       time.Time
	GamesCount int
	Stats      map[string]float64
}

// TeamAggregate is the cached, persisted form of TeamAverages, keyed by
// (team, window, as_of_date).
type TeamAggregate struct {
	ID         int       `db:"id"`
	Team       string    `db:"team"`
	Window     string    `db:"stat_window"`
	AsOfDate   time.Time `db:"as_of_date"`
	GamesCount int       `db:"games_count"`

	PPPctAvg      float64 `db:"pp_pct_avg"`
	PKPctAvg      float64 `db:"pk_pct_avg"`
	FOWPctAvg     float64 `db:"fow_pct_avg"`
	CFPctAvg      float64 `db:"cf_pct_avg"`
	SCFPctAvg     float64 `db:"scf_pct_avg"`
	HDCPctAvg     float64 `db:"hdc_pct_avg"`
	HDCOPctAvg    float64 `db:"hdco_pct_avg"`
	HDFPctAvg     float64 `db:"hdf_pct_avg"`
	XGFAvg        float64 `db:"xgf_avg"`
	XGAAvg        float64 `db:"xga_avg"`
	PenTaken60Avg float64 `db:"pen_taken_60_avg"`
	PenDrawn60Avg float64 `db:"pen_drawn_60_avg"`
	NetPen60Avg   float64 `db:"net_pen_60_avg"`

	CreatedAt time.Time `db:"created_at"`
}

// ToAggregate flattens the stat map into the cache-table row shape.
func (a *TeamAverages) ToAggregate() *TeamAggregate {
	return &TeamAggregate{
		Team:          a.Team,
		Window:        a.Window,
		AsOfDate:      a.AsOf,
		GamesCount:    a.GamesCount,
		PPPctAvg:      a.Stats[StatPPPct],
		PKPctAvg:      a.Stats[StatPKPct],
		FOWPctAvg:     a.Stats[StatFOWPct],
		CFPctAvg:      a.Stats[StatCFPct],
		SCFPctAvg:     a.Stats[StatSCFPct],
		HDCPctAvg:     a.Stats[StatHDCPct],
		HDCOPctAvg:    a.Stats[StatHDCOPct],
		HDFPctAvg:     a.Stats[StatHDFPct],
		XGFAvg:        a.Stats[StatXGF],
		XGAAvg:        a.Stats[StatXGA],
		PenTaken60Avg: a.Stats[StatPenTaken60],
		PenDrawn60Avg: a.Stats[StatPenDrawn60],
		NetPen60Avg:   a.Stats[StatNetPen60],
	}
}

// ToAverages rebuilds the stat-map view from a cached row.
func (a *TeamAggregate) ToAverages() *TeamAverages {
	return &TeamAverages{
		Team:       a.Team,
		Window:     a.Window,
		AsOf:       a.AsOfDate,
		GamesCount: a.GamesCount,
		Stats: map[string]float64{
			StatPPPct:      a.PPPctAvg,
			StatPKPct:      a.PKPctAvg,
			StatFOWPct:     a.FOWPctAvg,
			StatCFPct:      a.CFPctAvg,
			StatSCFPct:     a.SCFPctAvg,
			StatHDCPct:     a.HDCPctAvg,
			StatHDCOPct:    a.HDCOPctAvg,
			StatHDFPct:     a.HDFPctAvg,
			StatXGF:        a.XGFAvg,
			StatXGA:        a.XGAAvg,
			StatPenTaken60: a.PenTaken60Avg,
			StatPenDrawn60: a.PenDrawn60Avg,
			StatNetPen60:   a.NetPen60Avg,
		},
	}
}

// StatContext is one statistic's league-wide normalization context:
// population mean and population standard deviation across team season
// aggregates, plus the number of contributing teams.
type StatContext struct {
	Mean  float64
	Std   float64
	Count int
}

// LeagueContext maps stat name to its normalization context. Stats with no
// contributing teams are absent from the map, never defaulted.
type LeagueContext map[string]StatContext
