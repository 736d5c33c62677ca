package models

import "strconv"

// FormatGameID renders a numeric API game id as the opaque string key used
// throughout the store.
func FormatGameID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Boxscore is the gamecenter boxscore payload, trimmed to the fields the
// extractor needs.
type Boxscore struct {
	ID        int64        `json:"id"`
	GameDate  string       `json:"gameDate"` // YYYY-MM-DD
	GameState string       `json:"gameState"`
	HomeTeam  BoxscoreTeam `json:"homeTeam"`
	AwayTeam  BoxscoreTeam `json:"awayTeam"`
}

// BoxscoreTeam is one side of a boxscore.
type BoxscoreTeam struct {
	ID     int    `json:"id"`
	Abbrev string `json:"abbrev"`
	Score  int    `json:"score"`
}

// GameID returns the boxscore's game id as a store key.
func (b *Boxscore) GameID() string {
	return FormatGameID(b.ID)
}

// TeamSide returns which side a team code played on, or "" when the team
// was not a participant.
func (b *Boxscore) TeamSide(team string) string {
	switch team {
	case b.HomeTeam.Abbrev:
		return SideHome
	case b.AwayTeam.Abbrev:
		return SideAway
	}
	return ""
}

// PlayByPlay is the gamecenter play-by-play payload.
type PlayByPlay struct {
	ID        int64  `json:"id"`
	GameState string `json:"gameState"`
	Plays     []Play `json:"plays"`
}

// Play event type keys used by the extractor.
const (
	EventShotOnGoal  = "shot-on-goal"
	EventMissedShot  = "missed-shot"
	EventBlockedShot = "blocked-shot"
	EventGoal        = "goal"
	EventPenalty     = "penalty"
	EventFaceoff     = "faceoff"
)

// Play is a single play-by-play event.
type Play struct {
	TypeDescKey   string      `json:"typeDescKey"`
	SituationCode string      `json:"situationCode"`
	Details       PlayDetails `json:"details"`
}

// PlayDetails carries the event-specific fields.
type PlayDetails struct {
	XCoord           float64 `json:"xCoord"`
	YCoord           float64 `json:"yCoord"`
	EventOwnerTeamID int     `json:"eventOwnerTeamId"`
	ShotType         string  `json:"shotType"`
	TypeCode         string  `json:"typeCode"` // penalty class: MIN, MAJ, ...
	Duration         int     `json:"duration"`
}

// PPStats is the power-play stat family from the secondary boxscore
// source. It overrides the play-by-play derivation when available.
type PPStats struct {
	Goals        int
	Opps         int
	GoalsAgainst int
	OppsAgainst  int
}
