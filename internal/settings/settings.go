// Package settings holds the process-wide engine configuration that admins
// edit at runtime: credit pricing, the enabled AI algorithms and generation
// thresholds.
package settings

import (
	"fmt"
	"slices"
	"sync"

	"github.com/couchcryptid/weathernft-service/internal/domain"
)

// Snapshot is a point-in-time copy of the settings. Callers own the copy.
type Snapshot struct {
	CreditPrice  int                       `json:"creditPrice"`
	EventPricing map[domain.RarityTier]int `json:"eventPricing"`
	AISettings   AISettings                `json:"aiSettings"`
}

// AISettings configures event generation.
type AISettings struct {
	ConfidenceThreshold     float64  `json:"confidenceThreshold"`
	EnabledAlgorithms       []string `json:"enabledAlgorithms"`
	RetrainingIntervalHours int      `json:"retrainingInterval"`
	MaxEventsPerHour        int      `json:"maxEventsPerHour"`
}

// Default returns the settings a fresh deployment starts with.
func Default() Snapshot {
	return Snapshot{
		CreditPrice: 5,
		EventPricing: map[domain.RarityTier]int{
			domain.RarityCommon:    5,
			domain.RarityUncommon:  10,
			domain.RarityRare:      20,
			domain.RarityEpic:      35,
			domain.RarityLegendary: 50,
		},
		AISettings: AISettings{
			ConfidenceThreshold: 0.7,
			EnabledAlgorithms: []string{
				"ThermalDrift-v2",
				"StormChaser-v4",
				"EcoBalance-v1",
				"AuroraPredictor-v3",
				"AquaDetect-v2",
			},
			RetrainingIntervalHours: 24,
			MaxEventsPerHour:        10,
		},
	}
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.EventPricing != nil {
		out.EventPricing = make(map[domain.RarityTier]int, len(s.EventPricing))
		for k, v := range s.EventPricing {
			out.EventPricing[k] = v
		}
	}
	out.AISettings.EnabledAlgorithms = slices.Clone(s.AISettings.EnabledAlgorithms)
	return out
}

// IsEnabled reports whether the named algorithm may be assigned to new events.
func (s Snapshot) IsEnabled(name string) bool {
	return slices.Contains(s.AISettings.EnabledAlgorithms, name)
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	CreditPrice  *int             `json:"creditPrice,omitempty"`
	EventPricing map[string]int   `json:"eventPricing,omitempty"`
	AISettings   *AISettingsPatch `json:"aiSettings,omitempty"`
}

// AISettingsPatch is the nested partial update for AISettings. A non-nil
// EnabledAlgorithms replaces the whole set.
type AISettingsPatch struct {
	ConfidenceThreshold     *float64 `json:"confidenceThreshold,omitempty"`
	EnabledAlgorithms       []string `json:"enabledAlgorithms,omitempty"`
	RetrainingIntervalHours *int     `json:"retrainingInterval,omitempty"`
	MaxEventsPerHour        *int     `json:"maxEventsPerHour,omitempty"`
}

// Store guards the live settings.
type Store struct {
	mu      sync.RWMutex
	current Snapshot
}

// NewStore creates a Store seeded with a copy of initial.
func NewStore(initial Snapshot) *Store {
	return &Store{current: initial.Clone()}
}

// Get returns a copy of the current settings.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Replace swaps in a whole snapshot, e.g. one loaded from persistence.
func (s *Store) Replace(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = snap.Clone()
}

// Update validates the patch in full, then merges it field by field. A patch
// that fails validation leaves the settings unchanged.
func (s *Store) Update(p Patch) (Snapshot, error) {
	pricing, err := validate(p)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	if p.CreditPrice != nil {
		next.CreditPrice = *p.CreditPrice
	}
	if len(pricing) > 0 && next.EventPricing == nil {
		next.EventPricing = make(map[domain.RarityTier]int, len(pricing))
	}
	for tier, price := range pricing {
		next.EventPricing[tier] = price
	}
	if ai := p.AISettings; ai != nil {
		if ai.ConfidenceThreshold != nil {
			next.AISettings.ConfidenceThreshold = *ai.ConfidenceThreshold
		}
		if ai.EnabledAlgorithms != nil {
			next.AISettings.EnabledAlgorithms = dedupe(ai.EnabledAlgorithms)
		}
		if ai.RetrainingIntervalHours != nil {
			next.AISettings.RetrainingIntervalHours = *ai.RetrainingIntervalHours
		}
		if ai.MaxEventsPerHour != nil {
			next.AISettings.MaxEventsPerHour = *ai.MaxEventsPerHour
		}
	}

	s.current = next
	return next.Clone(), nil
}

// ToggleAlgorithm adds or removes name from the enabled set. Toggling to the
// current state is a no-op and reports changed=false.
func (s *Store) ToggleAlgorithm(name string, enabled bool) (bool, Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	algos := s.current.AISettings.EnabledAlgorithms
	idx := slices.Index(algos, name)
	switch {
	case enabled && idx < 0:
		s.current.AISettings.EnabledAlgorithms = append(slices.Clone(algos), name)
	case !enabled && idx >= 0:
		s.current.AISettings.EnabledAlgorithms = slices.Delete(slices.Clone(algos), idx, idx+1)
	default:
		return false, s.current.Clone()
	}
	return true, s.current.Clone()
}

func validate(p Patch) (map[domain.RarityTier]int, error) {
	if p.CreditPrice != nil && *p.CreditPrice < 0 {
		return nil, &domain.ValidationError{Field: "creditPrice", Reason: "must not be negative"}
	}

	var pricing map[domain.RarityTier]int
	if len(p.EventPricing) > 0 {
		pricing = make(map[domain.RarityTier]int, len(p.EventPricing))
		for name, price := range p.EventPricing {
			tier, err := domain.ParseRarity(name)
			if err != nil {
				return nil, err
			}
			if price < 0 {
				return nil, &domain.ValidationError{
					Field:  "eventPricing." + string(tier),
					Reason: "must not be negative",
				}
			}
			pricing[tier] = price
		}
	}

	ai := p.AISettings
	if ai == nil {
		return pricing, nil
	}
	if t := ai.ConfidenceThreshold; t != nil && (*t < 0 || *t > 1) {
		return nil, &domain.ValidationError{
			Field:  "aiSettings.confidenceThreshold",
			Reason: fmt.Sprintf("%g is outside [0, 1]", *t),
		}
	}
	if n := ai.RetrainingIntervalHours; n != nil && *n < 0 {
		return nil, &domain.ValidationError{Field: "aiSettings.retrainingInterval", Reason: "must not be negative"}
	}
	if n := ai.MaxEventsPerHour; n != nil && *n < 0 {
		return nil, &domain.ValidationError{Field: "aiSettings.maxEventsPerHour", Reason: "must not be negative"}
	}
	for _, name := range ai.EnabledAlgorithms {
		if name == "" {
			return nil, &domain.ValidationError{Field: "aiSettings.enabledAlgorithms", Reason: "empty algorithm name"}
		}
	}
	return pricing, nil
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
