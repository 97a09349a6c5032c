package factory

import (
	"testing"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		intensity float64
		want      domain.Severity
	}{
		{0, domain.SeverityLow},
		{0.249, domain.SeverityLow},
		{0.25, domain.SeverityModerate},
		{0.5, domain.SeverityHigh},
		{0.749, domain.SeverityHigh},
		{0.75, domain.SeverityExtreme},
		{1, domain.SeverityExtreme},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, SeverityFor(tc.intensity), "intensity %v", tc.intensity)
	}
}

func TestIntensity_Bounds(t *testing.T) {
	assert.InDelta(t, 0.0, Intensity(calmSample()), 1e-9)

	got := Intensity(extremeSample())
	assert.Greater(t, got, 0.95)
	assert.LessOrEqual(t, got, 1.0)
}

func TestDominantAlgorithm(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*domain.WeatherSample)
		want   string
	}{
		{"calm", func(*domain.WeatherSample) {}, "EcoBalance-v1"},
		{"cold snap", func(s *domain.WeatherSample) { s.Temperature = -10 }, "ThermalDrift-v2"},
		{"storm", func(s *domain.WeatherSample) { s.Conditions = domain.ConditionsStormy }, "StormChaser-v4"},
		{"gale", func(s *domain.WeatherSample) { s.WindSpeed = 45 }, "StormChaser-v4"},
		{"rain", func(s *domain.WeatherSample) { s.Conditions = domain.ConditionsRainy }, "AquaDetect-v2"},
		{"high latitude", func(s *domain.WeatherSample) { s.Location.Lat = 64.2 }, "AuroraPredictor-v3"},
		{"southern high latitude", func(s *domain.WeatherSample) { s.Location.Lat = -70 }, "AuroraPredictor-v3"},
		{"pressure drop", func(s *domain.WeatherSample) { s.Pressure = 1000 }, "EcoBalance-v1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := calmSample()
			tc.modify(&s)
			assert.Equal(t, tc.want, DominantAlgorithm(s))
		})
	}
}

func TestBaseRarity(t *testing.T) {
	assert.Equal(t, domain.RarityCommon, baseRarity(domain.SeverityLow))
	assert.Equal(t, domain.RarityUncommon, baseRarity(domain.SeverityModerate))
	assert.Equal(t, domain.RarityRare, baseRarity(domain.SeverityHigh))
	assert.Equal(t, domain.RarityEpic, baseRarity(domain.SeverityExtreme))
}

func TestLookupAlgorithm(t *testing.T) {
	a, ok := LookupAlgorithm("StormChaser-v4")
	assert.True(t, ok)
	assert.Equal(t, "tornado", a.eventType(0.7))

	g, ok := LookupAlgorithm("Custom")
	assert.False(t, ok)
	assert.Equal(t, "Custom", g.Title)
}
