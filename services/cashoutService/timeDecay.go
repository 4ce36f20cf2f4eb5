package cashoutService

import (
	"math"
	"time"
)

// Calibration constants. The base-heavy configuration: a generous
// floor with modest time and weather contributions, summing exactly to
// the cap so the offer can never exceed the house-edge ceiling.
//
//	single: 0.55 + 0.25 + 0.15 = 0.95
//	multi:  0.50 + 0.25 + 0.15 = 0.90
const (
	SingleBaseRate = 0.55
	MultiBaseRate  = 0.50
	TimeScale      = 0.25
	WeatherScale   = 0.15
	SingleCap      = 0.95
	MultiCap       = 0.90

	// Concave exponent: the bonus accrues quickly early in the window
	// and flattens toward expiry.
	timeCurveExponent = 0.7
)

// TimeBonus maps elapsed wager lifetime into a bounded contribution in
// [0, TimeScale]. The progress ratio is clamped so bonus never runs
// backwards before creation or keeps growing past expiry.
func TimeBonus(createdAt, expiresAt, now time.Time) float64 {
	window := expiresAt.Sub(createdAt)
	if window <= 0 {
		return TimeScale
	}

	progress := float64(now.Sub(createdAt)) / float64(window)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	return TimeScale * math.Pow(progress, timeCurveExponent)
}
