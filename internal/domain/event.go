package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location is a point on the map, optionally resolved to a monitored city.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	City    string  `json:"city"`
	Country string  `json:"country"`
}

// Conditions is the coarse sky condition reported by a weather sample.
type Conditions string

const (
	ConditionsClear  Conditions = "clear"
	ConditionsCloudy Conditions = "cloudy"
	ConditionsRainy  Conditions = "rainy"
	ConditionsStormy Conditions = "stormy"
	ConditionsSnowy  Conditions = "snowy"
)

// AllConditions is the generator vocabulary, in draw order.
var AllConditions = []Conditions{
	ConditionsClear,
	ConditionsCloudy,
	ConditionsRainy,
	ConditionsStormy,
	ConditionsSnowy,
}

// WeatherSample is one synthetic weather reading. Samples are values; nothing
// mutates a sample after the generator returns it.
type WeatherSample struct {
	Location    Location   `json:"location"`
	Temperature float64    `json:"temperature"` // °C
	Humidity    float64    `json:"humidity"`    // %
	Pressure    float64    `json:"pressure"`    // hPa
	WindSpeed   float64    `json:"windSpeed"`   // km/h
	Visibility  float64    `json:"visibility"`  // km
	Conditions  Conditions `json:"conditions"`
	CapturedAt  time.Time  `json:"timestamp"`
}

// Severity grades how far a sample departs from nominal conditions.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityExtreme  Severity = "extreme"
)

// AIPrediction records which algorithm flagged the event and how sure it was.
type AIPrediction struct {
	Confidence float64   `json:"confidence"` // 0.0–1.0
	Algorithm  string    `json:"algorithm"`
	Accuracy   float64   `json:"accuracy"` // percent, from the algorithm catalog
	DetectedAt time.Time `json:"detectedAt"`
}

// WeatherEvent is a capturable collectible. Once registered, the ledger owns
// it and is the only writer of CapturedCount, Active and Price.
type WeatherEvent struct {
	EventID       string          `json:"eventId"`
	Type          string          `json:"type"`
	AIAlgorithm   string          `json:"aiAlgorithm"`
	UniqueName    string          `json:"uniqueName"`
	Location      Location        `json:"location"`
	Severity      Severity        `json:"severity"`
	Rarity        RarityTier      `json:"rarity"`
	CaptureSlots  int             `json:"captureSlots"`
	CapturedCount int             `json:"capturedCount"`
	Active        bool            `json:"active"`
	ExpiresAt     time.Time       `json:"expiresAt"`
	WeatherData   WeatherSample   `json:"weatherData"`
	AIPrediction  AIPrediction    `json:"aiPrediction"`
	Price         decimal.Decimal `json:"price"`
	CreatedAt     time.Time       `json:"createdAt"`

	DeactivatedReason string `json:"deactivatedReason,omitempty"`
}

// SlotsRemaining reports how many captures are still possible.
func (e WeatherEvent) SlotsRemaining() int {
	return e.CaptureSlots - e.CapturedCount
}

// Expired reports whether the event's deadline lies strictly before now.
func (e WeatherEvent) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// LogLevel classifies an admin log entry.
type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

// ParseLogLevel accepts info, warning (or warn) and error.
func ParseLogLevel(s string) (LogLevel, bool) {
	switch s {
	case "info":
		return LevelInfo, true
	case "warning", "warn":
		return LevelWarning, true
	case "error":
		return LevelError, true
	default:
		return "", false
	}
}

// AdminLogEntry is one record in the admin activity log.
type AdminLogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
}

// ChangeKind names a ledger transition published to downstream sinks.
type ChangeKind string

const (
	ChangeGenerated   ChangeKind = "generated"
	ChangeCaptured    ChangeKind = "captured"
	ChangeBoosted     ChangeKind = "boosted"
	ChangeDeactivated ChangeKind = "deactivated"
	ChangeExpired     ChangeKind = "expired"
)

// EventChange is one ledger transition and the event state after it.
type EventChange struct {
	Kind       ChangeKind   `json:"kind"`
	Event      WeatherEvent `json:"event"`
	OccurredAt time.Time    `json:"occurredAt"`
}
