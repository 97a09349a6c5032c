package factory

import (
	"math"

	"github.com/couchcryptid/weathernft-service/internal/domain"
)

// Nominal conditions the anomaly scores are measured against.
const (
	nominalTemperature = 15.0   // °C
	temperatureSpan    = 25.0   // deviation scored as 1.0
	nominalPressure    = 1013.0 // hPa
	pressureSpan       = 37.0
	nominalHumidity    = 50.0
	windSpan           = 50.0 // km/h
	clearVisibility    = 10.0 // km
	auroraLatitude     = 60.0

	// dominantFloor is the peak score below which no specialist applies.
	dominantFloor = 0.25
)

type anomaly struct {
	score     float64
	algorithm string
}

// anomalies scores each specialization in [0, 1], in catalog priority order.
func anomalies(s domain.WeatherSample) []anomaly {
	storm := clamp01(s.WindSpeed / windSpan)
	if s.Conditions == domain.ConditionsStormy {
		storm = math.Max(storm, 0.8)
	}

	precipitation := clamp01(math.Abs(s.Humidity-nominalHumidity) / nominalHumidity)
	if s.Conditions == domain.ConditionsRainy {
		precipitation = math.Max(precipitation, 0.6)
	}

	var aurora float64
	if lat := math.Abs(s.Location.Lat); lat >= auroraLatitude {
		aurora = clamp01(0.5 + (lat-auroraLatitude)/20)
	}

	atmospheric := math.Max(
		clamp01(math.Abs(s.Pressure-nominalPressure)/pressureSpan),
		clamp01((clearVisibility-s.Visibility)/clearVisibility),
	)

	return []anomaly{
		{clamp01(math.Abs(s.Temperature-nominalTemperature) / temperatureSpan), "ThermalDrift-v2"},
		{storm, "StormChaser-v4"},
		{precipitation, "AquaDetect-v2"},
		{aurora, "AuroraPredictor-v3"},
		{atmospheric, "EcoBalance-v1"},
	}
}

// Intensity blends the strongest anomaly with the average one into [0, 1].
func Intensity(s domain.WeatherSample) float64 {
	scores := anomalies(s)
	var peak, sum float64
	for _, a := range scores {
		peak = math.Max(peak, a.score)
		sum += a.score
	}
	return clamp01(0.6*peak + 0.4*sum/float64(len(scores)))
}

// DominantAlgorithm names the specialist for the sample's strongest anomaly.
// Samples with no notable anomaly fall to general climate monitoring.
func DominantAlgorithm(s domain.WeatherSample) string {
	best := anomaly{algorithm: "EcoBalance-v1"}
	for _, a := range anomalies(s) {
		if a.score > best.score {
			best = a
		}
	}
	if best.score < dominantFloor {
		return "EcoBalance-v1"
	}
	return best.algorithm
}

// SeverityFor grades an intensity score.
func SeverityFor(intensity float64) domain.Severity {
	switch {
	case intensity < 0.25:
		return domain.SeverityLow
	case intensity < 0.5:
		return domain.SeverityModerate
	case intensity < 0.75:
		return domain.SeverityHigh
	default:
		return domain.SeverityExtreme
	}
}

// baseRarity maps severity to the tier an event starts from before upgrade.
func baseRarity(sev domain.Severity) domain.RarityTier {
	switch sev {
	case domain.SeverityModerate:
		return domain.RarityUncommon
	case domain.SeverityHigh:
		return domain.RarityRare
	case domain.SeverityExtreme:
		return domain.RarityEpic
	default:
		return domain.RarityCommon
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
