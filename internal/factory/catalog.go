package factory

import "strings"

// Algorithm describes one AI detection model.
type Algorithm struct {
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	ModelType      string    `json:"modelType"`
	Accuracy       float64   `json:"accuracy"`
	Title          string    `json:"-"` // prefix of generated event names
	EventTypes     [3]string `json:"eventTypes"`
}

// Catalog lists the built-in algorithms in their canonical order.
var Catalog = []Algorithm{
	{
		Name:           "ThermalDrift-v2",
		Specialization: "Temperature anomalies and thermal flows",
		ModelType:      "LSTM",
		Accuracy:       94.2,
		Title:          "Thermal Anomaly",
		EventTypes:     [3]string{"heat_wave", "cold_snap", "thermal_anomaly"},
	},
	{
		Name:           "StormChaser-v4",
		Specialization: "Storm prediction and extreme weather",
		ModelType:      "CNN-LSTM",
		Accuracy:       97.8,
		Title:          "Storm Symphony",
		EventTypes:     [3]string{"thunderstorm", "tornado", "hurricane"},
	},
	{
		Name:           "EcoBalance-v1",
		Specialization: "Climate change monitoring",
		ModelType:      "Transformer",
		Accuracy:       91.5,
		Title:          "Climate Shift",
		EventTypes:     [3]string{"climate_shift", "seasonal_anomaly", "eco_change"},
	},
	{
		Name:           "AuroraPredictor-v3",
		Specialization: "Aurora and magnetic storms",
		ModelType:      "RNN",
		Accuracy:       89.3,
		Title:          "Aurora Veil",
		EventTypes:     [3]string{"aurora_borealis", "solar_storm", "magnetic_anomaly"},
	},
	{
		Name:           "AquaDetect-v2",
		Specialization: "Water cycles and precipitation",
		ModelType:      "GRU",
		Accuracy:       96.1,
		Title:          "Aqua Surge",
		EventTypes:     [3]string{"heavy_rain", "flood", "drought"},
	},
}

// genericAccuracy is reported for algorithms outside the catalog.
const genericAccuracy = 85.0

// LookupAlgorithm returns the catalog entry for name. Unknown names get a
// generic entry and ok=false.
func LookupAlgorithm(name string) (Algorithm, bool) {
	for _, a := range Catalog {
		if a.Name == name {
			return a, true
		}
	}
	title, _, _ := strings.Cut(name, "-")
	if title == "" {
		title = "Weather Event"
	}
	return Algorithm{
		Name:           name,
		Specialization: "General weather anomalies",
		ModelType:      "custom",
		Accuracy:       genericAccuracy,
		Title:          title,
		EventTypes:     [3]string{"extreme_weather", "weather_anomaly", "weather_pattern"},
	}, false
}

// eventType picks the type by confidence band.
func (a Algorithm) eventType(confidence float64) string {
	switch {
	case confidence > 0.8:
		return a.EventTypes[0]
	case confidence > 0.6:
		return a.EventTypes[1]
	default:
		return a.EventTypes[2]
	}
}
