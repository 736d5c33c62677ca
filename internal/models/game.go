package models

import (
	"database/sql"
	"time"
)

// Game states reported by the schedule endpoint.
const (
	GameStateFuture = "FUT"
	GameStateLive   = "LIVE"
	GameStateOff    = "OFF"
	GameStateFinal  = "FINAL"
)

// Game is a master schedule record. Immutable once the game has gone final.
type Game struct {
	ID        int           `db:"id"`
	GameID    string        `db:"game_id"`
	Season    int           `db:"season"`
	GameType  int           `db:"game_type"`
	GameDate  time.Time     `db:"game_date"`
	HomeTeam  string        `db:"home_team"`
	AwayTeam  string        `db:"away_team"`
	GameState string        `db:"game_state"`
	HomeScore sql.NullInt32 `db:"home_score"`
	AwayScore sql.NullInt32 `db:"away_score"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsCompleted reports whether the game is eligible for stat fetching.
// Only games the schedule source flags as finished count.
func (g *Game) IsCompleted() bool {
	return g.GameState == GameStateOff || g.GameState == GameStateFinal
}

// GameInput is a schedule record as returned by the remote API.
type GameInput struct {
	ID        int64  `json:"id"`
	Season    int    `json:"season"`
	GameType  int    `json:"gameType"`
	GameDate  string `json:"gameDate"` // YYYY-MM-DD
	GameState string `json:"gameState"`
	HomeTeam  struct {
		Abbrev string `json:"abbrev"`
		Score  *int   `json:"score,omitempty"`
	} `json:"homeTeam"`
	AwayTeam struct {
		Abbrev string `json:"abbrev"`
		Score  *int   `json:"score,omitempty"`
	} `json:"awayTeam"`
}

// ToGame converts a schedule API record into a Game model.
func (gi *GameInput) ToGame() *Game {
	game := &Game{
		GameID:    FormatGameID(gi.ID),
		Season:    gi.Season,
		GameType:  gi.GameType,
		HomeTeam:  gi.HomeTeam.Abbrev,
		AwayTeam:  gi.AwayTeam.Abbrev,
		GameState: gi.GameState,
	}

	if d, err := time.Parse("2006-01-02", gi.GameDate); err == nil {
		game.GameDate = d
	}

	if gi.HomeTeam.Score != nil {
		game.HomeScore = NullInt32(*gi.HomeTeam.Score)
	}
	if gi.AwayTeam.Score != nil {
		game.AwayScore = NullInt32(*gi.AwayTeam.Score)
	}

	return game
}
