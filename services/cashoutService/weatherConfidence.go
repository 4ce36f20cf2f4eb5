package cashoutService

import (
	"math"
	"strconv"
	"strings"

	"stormStakes/models"
	"stormStakes/services/weatherService"
)

// WeatherBonus scores how well the current observation supports a leg's
// prediction, in [0, WeatherScale]. A nil observation (signal
// unavailable) contributes nothing.
func WeatherBonus(obs *weatherService.Observation, predictionType, predictionValue string) float64 {
	if obs == nil {
		return 0
	}

	switch predictionType {
	case models.PredictionRain:
		return binaryBonus(obs.Raining, predictionValue)
	case models.PredictionTempRange:
		return rangedBonus(obs.TemperatureC, predictionValue)
	case models.PredictionWindRange:
		return rangedBonus(obs.WindKph, predictionValue)
	case models.PredictionTempExact:
		return exactBonus(obs.TemperatureC, predictionValue)
	case models.PredictionWindExact:
		return exactBonus(obs.WindKph, predictionValue)
	default:
		return 0
	}
}

// Binary predictions get no partial credit: match or nothing.
func binaryBonus(observed bool, predictionValue string) float64 {
	predicted := strings.EqualFold(strings.TrimSpace(predictionValue), "yes")
	if predicted == observed {
		return WeatherScale
	}
	return 0
}

// Ranged predictions ("20-25") score full inside the range, half when
// the observed value is within one range-width of the nearer bound,
// and zero beyond that.
func rangedBonus(observed float64, predictionValue string) float64 {
	min, max, ok := parseRange(predictionValue)
	if !ok {
		return 0
	}

	if observed >= min && observed <= max {
		return WeatherScale
	}

	width := max - min
	if width <= 0 {
		width = 1
	}
	var distance float64
	if observed < min {
		distance = min - observed
	} else {
		distance = observed - max
	}
	if distance <= width {
		return WeatherScale * 0.5
	}
	return 0
}

// Exact predictions decay stepwise with the rounded absolute difference.
func exactBonus(observed float64, predictionValue string) float64 {
	predicted, err := strconv.ParseFloat(strings.TrimSpace(predictionValue), 64)
	if err != nil {
		return 0
	}

	diff := int(math.Round(math.Abs(observed - predicted)))
	switch {
	case diff == 0:
		return WeatherScale
	case diff == 1:
		return WeatherScale * 0.75
	case diff == 2:
		return WeatherScale * 0.5
	case diff <= 4:
		return WeatherScale * 0.25
	default:
		return 0
	}
}

func parseRange(value string) (min, max float64, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(value), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	min, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	max, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || min > max {
		return 0, 0, false
	}
	return min, max, true
}
