// Package generator produces synthetic weather samples for a coordinate.
package generator

import (
	"math"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// UnknownPlace names the city and country of an unmatched coordinate.
const UnknownPlace = "Unknown"

// matchEpsilon is the per-axis tolerance, in degrees, for resolving a
// coordinate to a monitored location.
const matchEpsilon = 0.1

// Sample ranges. Each field is drawn independently and rounded to a whole unit.
const (
	minTemperature = -10.0
	maxTemperature = 40.0
	maxHumidity    = 100.0
	maxWindSpeed   = 50.0
	minPressure    = 1000.0
	maxPressure    = 1050.0
	maxVisibility  = 20.0
)

// DefaultLocations are the cities the platform monitors.
var DefaultLocations = []domain.Location{
	{City: "New York", Country: "USA", Lat: 40.7128, Lng: -74.0060},
	{City: "Tokyo", Country: "Japan", Lat: 35.6762, Lng: 139.6503},
	{City: "London", Country: "UK", Lat: 51.5074, Lng: -0.1278},
	{City: "Sydney", Country: "Australia", Lat: -33.8688, Lng: 151.2093},
	{City: "Fairbanks", Country: "USA", Lat: 64.2008, Lng: -149.4937},
	{City: "Miami", Country: "USA", Lat: 25.7617, Lng: -80.1918},
}

// Generator draws weather samples from fixed ranges.
type Generator struct {
	rng       Rand
	clock     clockwork.Clock
	locations []domain.Location
}

// New creates a Generator. A nil locations slice uses DefaultLocations.
func New(rng Rand, clock clockwork.Clock, locations []domain.Location) *Generator {
	if locations == nil {
		locations = DefaultLocations
	}
	return &Generator{
		rng:       rng,
		clock:     clock,
		locations: append([]domain.Location(nil), locations...),
	}
}

// Generate returns a fresh sample for the given coordinate.
func (g *Generator) Generate(lat, lng float64) domain.WeatherSample {
	return domain.WeatherSample{
		Location:    g.Resolve(lat, lng),
		Temperature: math.Round(minTemperature + g.rng.Float64()*(maxTemperature-minTemperature)),
		Humidity:    math.Round(g.rng.Float64() * maxHumidity),
		WindSpeed:   math.Round(g.rng.Float64() * maxWindSpeed),
		Pressure:    math.Round(minPressure + g.rng.Float64()*(maxPressure-minPressure)),
		Visibility:  math.Round(g.rng.Float64() * maxVisibility),
		Conditions:  domain.AllConditions[g.rng.IntN(len(domain.AllConditions))],
		CapturedAt:  g.clock.Now().UTC(),
	}
}

// Resolve returns the first monitored location within matchEpsilon of the
// coordinate on both axes, or an UnknownPlace location at the coordinate itself.
func (g *Generator) Resolve(lat, lng float64) domain.Location {
	for _, loc := range g.locations {
		if math.Abs(loc.Lat-lat) < matchEpsilon && math.Abs(loc.Lng-lng) < matchEpsilon {
			return loc
		}
	}
	return domain.Location{City: UnknownPlace, Country: UnknownPlace, Lat: lat, Lng: lng}
}

// MonitoredLocations returns a copy of the configured locations.
func (g *Generator) MonitoredLocations() []domain.Location {
	return append([]domain.Location(nil), g.locations...)
}
