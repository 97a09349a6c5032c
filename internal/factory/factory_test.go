package factory

import (
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/generator"
	"github.com/couchcryptid/weathernft-service/internal/settings"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.July, 4, 15, 0, 0, 0, time.UTC)

func calmSample() domain.WeatherSample {
	return domain.WeatherSample{
		Location:    domain.Location{City: "New York", Country: "USA", Lat: 40.7128, Lng: -74.0060},
		Temperature: 15,
		Humidity:    50,
		WindSpeed:   0,
		Pressure:    1013,
		Visibility:  20,
		Conditions:  domain.ConditionsClear,
		CapturedAt:  testNow,
	}
}

func extremeSample() domain.WeatherSample {
	return domain.WeatherSample{
		Location:    domain.Location{City: "Fairbanks", Country: "USA", Lat: 64.2008, Lng: -149.4937},
		Temperature: 40,
		Humidity:    100,
		WindSpeed:   50,
		Pressure:    1050,
		Visibility:  0,
		Conditions:  domain.ConditionsStormy,
		CapturedAt:  testNow,
	}
}

func tierPtr(r domain.RarityTier) *domain.RarityTier { return &r }

func newFactory(rng generator.Rand) *Factory {
	return New(rng, clockwork.NewFakeClockAt(testNow), 0)
}

func TestCreateEvent_CalmSample(t *testing.T) {
	// jitter, serial
	f := newFactory(generator.NewSequence(0.5, 0.5))

	ev, err := f.CreateEvent(calmSample(), nil, settings.Default())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ev.EventID, "evt_"))
	assert.Equal(t, "EcoBalance-v1", ev.AIAlgorithm)
	assert.Equal(t, "eco_change", ev.Type)
	assert.Equal(t, "Climate Shift #5000", ev.UniqueName)
	assert.Equal(t, domain.SeverityLow, ev.Severity)
	assert.Equal(t, domain.RarityCommon, ev.Rarity)
	assert.Equal(t, 20, ev.CaptureSlots)
	assert.Equal(t, 0, ev.CapturedCount)
	assert.True(t, ev.Price.Equal(decimal.NewFromInt(5)))
	assert.True(t, ev.Active)
	assert.InDelta(t, 0.5, ev.AIPrediction.Confidence, 1e-9)
	assert.InDelta(t, 91.5, ev.AIPrediction.Accuracy, 1e-9)
	assert.Equal(t, testNow, ev.CreatedAt)
	assert.Equal(t, testNow.Add(24*time.Hour), ev.ExpiresAt)
	assert.Equal(t, calmSample(), ev.WeatherData)
}

func TestCreateEvent_ExtremeSampleUpgrades(t *testing.T) {
	// jitter, upgrade roll, serial
	f := newFactory(generator.NewSequence(0.5, 0.1, 0.25))

	ev, err := f.CreateEvent(extremeSample(), nil, settings.Default())
	require.NoError(t, err)

	assert.Equal(t, "ThermalDrift-v2", ev.AIAlgorithm)
	assert.Equal(t, "heat_wave", ev.Type)
	assert.Equal(t, "Thermal Anomaly #2500", ev.UniqueName)
	assert.Equal(t, domain.SeverityExtreme, ev.Severity)
	assert.Equal(t, domain.RarityLegendary, ev.Rarity)
	assert.Equal(t, 1, ev.CaptureSlots)
	assert.True(t, ev.Price.Equal(decimal.NewFromInt(50)))
	assert.Greater(t, ev.AIPrediction.Confidence, 0.9)
}

func TestCreateEvent_ExtremeSampleWithoutUpgrade(t *testing.T) {
	f := newFactory(generator.NewSequence(0.5, 0.9, 0.25))

	ev, err := f.CreateEvent(extremeSample(), nil, settings.Default())
	require.NoError(t, err)
	assert.Equal(t, domain.RarityEpic, ev.Rarity)
	assert.Equal(t, 3, ev.CaptureSlots)
}

func TestCreateEvent_ThresholdGatesUpgrade(t *testing.T) {
	snap := settings.Default()
	snap.AISettings.ConfidenceThreshold = 1

	// jitter pulls confidence down; no upgrade roll is drawn below threshold.
	f := newFactory(generator.NewSequence(0, 0.25))

	ev, err := f.CreateEvent(extremeSample(), nil, snap)
	require.NoError(t, err)
	assert.Equal(t, domain.RarityEpic, ev.Rarity)
	assert.Equal(t, "Thermal Anomaly #2500", ev.UniqueName)
}

func TestCreateEvent_ForcedRarity(t *testing.T) {
	f := newFactory(generator.NewSequence(0.5, 0.5))

	ev, err := f.CreateEvent(calmSample(), tierPtr(domain.RarityLegendary), settings.Default())
	require.NoError(t, err)

	assert.Equal(t, domain.RarityLegendary, ev.Rarity)
	assert.Equal(t, 1, ev.CaptureSlots)
	assert.True(t, ev.Price.Equal(decimal.NewFromInt(50)))
	assert.True(t, ev.Active)
	assert.Equal(t, domain.SeverityLow, ev.Severity)
}

func TestCreateEvent_InvalidForcedRarity(t *testing.T) {
	f := newFactory(generator.NewSequence())

	_, err := f.CreateEvent(calmSample(), tierPtr("mythic"), settings.Default())

	var tierErr *domain.UnknownTierError
	require.ErrorAs(t, err, &tierErr)
	assert.Equal(t, "mythic", tierErr.Tier)
}

func TestCreateEvent_NoAlgorithmEnabled(t *testing.T) {
	snap := settings.Default()
	snap.AISettings.EnabledAlgorithms = nil

	_, err := newFactory(generator.NewSequence()).CreateEvent(calmSample(), nil, snap)
	require.ErrorIs(t, err, domain.ErrNoAlgorithmAvailable)
}

func TestCreateEvent_FallsBackToRandomEnabledAlgorithm(t *testing.T) {
	snap := settings.Default()
	snap.AISettings.EnabledAlgorithms = []string{"StormChaser-v4", "AquaDetect-v2"}

	// algorithm pick, jitter, serial
	f := newFactory(generator.NewSequence(0.6, 0.5, 0.5))

	ev, err := f.CreateEvent(calmSample(), nil, snap)
	require.NoError(t, err)
	assert.Equal(t, "AquaDetect-v2", ev.AIAlgorithm)
	assert.Equal(t, "drought", ev.Type)
	assert.InDelta(t, 96.1, ev.AIPrediction.Accuracy, 1e-9)
}

func TestCreateEvent_UnknownAlgorithmGetsGenericEntry(t *testing.T) {
	snap := settings.Default()
	snap.AISettings.EnabledAlgorithms = []string{"Nimbus-v1"}

	f := newFactory(generator.NewSequence(0, 0.5, 0.5))

	ev, err := f.CreateEvent(calmSample(), nil, snap)
	require.NoError(t, err)
	assert.Equal(t, "Nimbus-v1", ev.AIAlgorithm)
	assert.Equal(t, "Nimbus #5000", ev.UniqueName)
	assert.Equal(t, "weather_pattern", ev.Type)
	assert.InDelta(t, genericAccuracy, ev.AIPrediction.Accuracy, 1e-9)
}

func TestCreateEvent_RandomSamplesHonourRarityTable(t *testing.T) {
	rng := generator.NewRand(99)
	clock := clockwork.NewFakeClockAt(testNow)
	gen := generator.New(rng, clock, nil)
	f := New(rng, clock, time.Hour)
	snap := settings.Default()

	for range 300 {
		ev, err := f.CreateEvent(gen.Generate(64.2, -149.5), nil, snap)
		require.NoError(t, err)

		slots, _ := domain.SlotsFor(ev.Rarity)
		price, _ := domain.PriceFor(ev.Rarity)
		require.Equal(t, slots, ev.CaptureSlots)
		require.True(t, ev.Price.Equal(decimal.NewFromInt(int64(price))))
		require.GreaterOrEqual(t, ev.AIPrediction.Confidence, 0.0)
		require.LessOrEqual(t, ev.AIPrediction.Confidence, 1.0)
		require.True(t, snap.IsEnabled(ev.AIAlgorithm))
		require.Equal(t, testNow.Add(time.Hour), ev.ExpiresAt)
	}
}
