package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAlgorithmAvailable is returned when every AI algorithm is disabled.
	ErrNoAlgorithmAvailable = errors.New("no AI algorithm enabled")

	// ErrRateLimited is returned when event generation exceeds maxEventsPerHour.
	ErrRateLimited = errors.New("event generation rate limit exceeded")

	// ErrInsufficientCredits is returned when a user cannot pay for a capture.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrRetrainInProgress is returned when an algorithm already has a running job.
	ErrRetrainInProgress = errors.New("retraining already in progress")

	// ErrJobFinished is returned when cancelling a job that is no longer running.
	ErrJobFinished = errors.New("retraining job already finished")

	// ErrNotTokenOwner is returned when a transfer names someone other than
	// the token's current owner as the sender.
	ErrNotTokenOwner = errors.New("sender does not own the token")
)

// UnknownTierError reports a rarity name outside the closed tier set.
type UnknownTierError struct {
	Tier string
}

func (e *UnknownTierError) Error() string {
	return fmt.Sprintf("unknown rarity tier %q", e.Tier)
}

// InvalidHumidityError reports a relative humidity for which the dew point is undefined.
type InvalidHumidityError struct {
	Humidity float64
}

func (e *InvalidHumidityError) Error() string {
	return fmt.Sprintf("dew point undefined for humidity %g%%", e.Humidity)
}

// Capture rejection reasons.
const (
	RejectInactive = "inactive"
	RejectExpired  = "expired"
	RejectNoSlots  = "no_slots"
)

// CaptureRejectedError is returned when a capture cannot consume a slot.
type CaptureRejectedError struct {
	EventID string
	Reason  string
}

func (e *CaptureRejectedError) Error() string {
	return fmt.Sprintf("capture of %s rejected: %s", e.EventID, e.Reason)
}

// BoostNotAllowedError is returned for boosts on legendary or inactive events.
type BoostNotAllowedError struct {
	EventID string
	Rarity  RarityTier
	Reason  string
}

func (e *BoostNotAllowedError) Error() string {
	return fmt.Sprintf("boost of %s (%s) not allowed: %s", e.EventID, e.Rarity, e.Reason)
}

// NotFoundError reports an unknown event, user or job id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ValidationError reports a malformed argument to an operation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
