package extractor

import (
	"math"
	"strings"
)

// Rink geometry: x runs -100..100 with nets at ±89, y runs -42.5..42.5.
// The high-danger zone is within 15 ft of the net and between the posts.
const (
	netX            = 89.0
	highDangerDist  = 15.0
	highDangerHalfY = 8.5
	midRangeDist    = 30.0
)

// Per-band expected-goal values, calibrated so league average lands near
// 2.8 xGF per team per game. Slap shots carry slightly lower values from
// distance because of the longer release.
const (
	xgHighDangerWrist = 0.22
	xgHighDangerSlap  = 0.17
	xgMidRangeWrist   = 0.10
	xgMidRangeSlap    = 0.08
	xgLongRangeWrist  = 0.04
	xgLongRangeSlap   = 0.03
)

// ShotDistance returns the distance from the shot location to the nearest
// net mouth.
func ShotDistance(x, y float64) float64 {
	dx := math.Abs(x) - netX
	return math.Sqrt(dx*dx + y*y)
}

// IsHighDanger reports whether a shot attempt originated in the
// high-danger zone.
func IsHighDanger(x, y float64) bool {
	return math.Abs(math.Abs(x)-netX) < highDangerDist && math.Abs(y) < highDangerHalfY
}

// ExpectedGoals assigns a modeled goal probability to a shot from its
// location and shot type. Distance dominates the signal; shot type is a
// small correction.
func ExpectedGoals(x, y float64, shotType string) float64 {
	slap := strings.Contains(strings.ToLower(shotType), "slap")

	switch d := ShotDistance(x, y); {
	case d < highDangerDist:
		if slap {
			return xgHighDangerSlap
		}
		return xgHighDangerWrist
	case d < midRangeDist:
		if slap {
			return xgMidRangeSlap
		}
		return xgMidRangeWrist
	default:
		if slap {
			return xgLongRangeSlap
		}
		return xgLongRangeWrist
	}
}
