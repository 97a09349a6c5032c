// Package factory turns weather samples into capturable events.
//
// Rarity follows severity: the sample's intensity score grades a severity,
// severity fixes a base tier, and a confident detection may upgrade the tier
// by one step with probability intensity/2. Price and capture slots always
// come from the rarity table.
package factory

import (
	"fmt"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/generator"
	"github.com/couchcryptid/weathernft-service/internal/settings"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

// DefaultTTL is how long an event stays capturable.
const DefaultTTL = 24 * time.Hour

const (
	confidenceBase   = 0.5
	confidenceSlope  = 0.45
	confidenceJitter = 0.05
	upgradeFactor    = 0.5
)

// Factory creates events. It is safe for concurrent use when its Rand is.
type Factory struct {
	rng   generator.Rand
	clock clockwork.Clock
	ttl   time.Duration
	newID func() string
}

// New creates a Factory. A non-positive ttl uses DefaultTTL.
func New(rng generator.Rand, clock clockwork.Clock, ttl time.Duration) *Factory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Factory{
		rng:   rng,
		clock: clock,
		ttl:   ttl,
		newID: func() string { return "evt_" + uuid.NewString() },
	}
}

// CreateEvent builds an event from a sample. A non-nil forced tier is used
// as-is; otherwise the tier is derived from the sample's intensity.
func (f *Factory) CreateEvent(sample domain.WeatherSample, forced *domain.RarityTier, snap settings.Snapshot) (domain.WeatherEvent, error) {
	enabled := snap.AISettings.EnabledAlgorithms
	if len(enabled) == 0 {
		return domain.WeatherEvent{}, domain.ErrNoAlgorithmAvailable
	}
	if forced != nil && !forced.Valid() {
		return domain.WeatherEvent{}, &domain.UnknownTierError{Tier: string(*forced)}
	}

	algoName := DominantAlgorithm(sample)
	if !snap.IsEnabled(algoName) {
		algoName = enabled[f.rng.IntN(len(enabled))]
	}
	algo, _ := LookupAlgorithm(algoName)

	intensity := Intensity(sample)
	severity := SeverityFor(intensity)
	jitter := (f.rng.Float64()*2 - 1) * confidenceJitter
	confidence := clamp01(confidenceBase + confidenceSlope*intensity + jitter)

	var tier domain.RarityTier
	if forced != nil {
		tier = *forced
	} else {
		tier = baseRarity(severity)
		if confidence >= snap.AISettings.ConfidenceThreshold && f.rng.Float64() < intensity*upgradeFactor {
			if next, ok := tier.Next(); ok {
				tier = next
			}
		}
	}

	slots, err := domain.SlotsFor(tier)
	if err != nil {
		return domain.WeatherEvent{}, err
	}
	price, err := domain.PriceFor(tier)
	if err != nil {
		return domain.WeatherEvent{}, err
	}

	now := f.clock.Now().UTC()
	return domain.WeatherEvent{
		EventID:      f.newID(),
		Type:         algo.eventType(confidence),
		AIAlgorithm:  algo.Name,
		UniqueName:   fmt.Sprintf("%s #%04d", algo.Title, f.rng.IntN(10000)),
		Location:     sample.Location,
		Severity:     severity,
		Rarity:       tier,
		CaptureSlots: slots,
		Active:       true,
		ExpiresAt:    now.Add(f.ttl),
		WeatherData:  sample,
		AIPrediction: domain.AIPrediction{
			Confidence: confidence,
			Algorithm:  algo.Name,
			Accuracy:   algo.Accuracy,
			DetectedAt: now,
		},
		Price:     decimal.NewFromInt(int64(price)),
		CreatedAt: now,
	}, nil
}
