package models

// AllTeams is the full set of league team codes, in schedule order.
var AllTeams = []string{
	"ANA", "ARI", "BOS", "BUF", "CAR", "CBJ", "CGY", "CHI",
	"COL", "DAL", "DET", "EDM", "FLA", "LAK", "MIN", "MTL",
	"NJD", "NSH", "NYI", "NYR", "OTT", "PHI", "PIT", "SJS",
	"STL", "TBL", "TOR", "VAN", "VGK", "WPG", "WSH", "SEA",
}

// IsKnownTeam reports whether code is a league team code.
func IsKnownTeam(code string) bool {
	for _, t := range AllTeams {
		if t == code {
			return true
		}
	}
	return false
}
