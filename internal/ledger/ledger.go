// Package ledger owns registered weather events and enforces capture
// accounting: 0 <= capturedCount <= captureSlots, and an event is inactive
// once full or past its deadline.
//
// A single mutex serializes every mutation, so racing captures on the last
// slot resolve with exactly one winner.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

// DefaultBoost is the price multiplier applied when none is given.
const DefaultBoost = 1.5

// Deactivation reasons recorded by the ledger itself.
const (
	ReasonExpired = "expired"
	ReasonSoldOut = "sold_out"
)

// Ledger is the in-memory event store.
type Ledger struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	events map[string]*domain.WeatherEvent
	order  []string // registration order

	// capturedValue sums the prices paid per event, so later boosts do not
	// reprice earlier captures.
	capturedValue map[string]decimal.Decimal
}

// New creates an empty Ledger.
func New(clock clockwork.Clock) *Ledger {
	return &Ledger{
		clock:         clock,
		events:        make(map[string]*domain.WeatherEvent),
		capturedValue: make(map[string]decimal.Decimal),
	}
}

// Register stores a newly created event.
func (l *Ledger) Register(ev domain.WeatherEvent) error {
	if ev.EventID == "" {
		return &domain.ValidationError{Field: "eventId", Reason: "must not be empty"}
	}
	if ev.CapturedCount < 0 || ev.CapturedCount > ev.CaptureSlots {
		return &domain.ValidationError{
			Field:  "capturedCount",
			Reason: fmt.Sprintf("%d outside [0, %d]", ev.CapturedCount, ev.CaptureSlots),
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.events[ev.EventID]; ok {
		return fmt.Errorf("register event %s: already exists", ev.EventID)
	}
	if ev.CapturedCount == ev.CaptureSlots {
		ev.Active = false
	}
	l.events[ev.EventID] = &ev
	l.order = append(l.order, ev.EventID)
	return nil
}

// Get returns the event as currently observable. An event past its deadline
// reads as inactive even before the sweep has run.
func (l *Ledger) Get(id string) (domain.WeatherEvent, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	ev, ok := l.events[id]
	if !ok {
		return domain.WeatherEvent{}, notFound(id)
	}
	return view(ev, now), nil
}

// Capture consumes one slot without payment. See CaptureWith.
func (l *Ledger) Capture(id string) (domain.WeatherEvent, error) {
	res, err := l.CaptureWith(id, nil)
	return res.Event, err
}

// Payment settles a capture at the event's price at the moment of capture.
// It runs under the ledger lock after every slot check has passed; an error
// aborts the capture and leaves the event untouched.
type Payment func(price decimal.Decimal) error

// CaptureResult is the outcome of CaptureWith.
type CaptureResult struct {
	Event   domain.WeatherEvent
	Price   decimal.Decimal // paid for this slot
	Expired bool            // this call moved the event to expired
}

// CaptureWith consumes one slot and settles it through pay, if non-nil. It
// fails with *domain.CaptureRejectedError when the event is inactive,
// expired or full. Filling the last slot deactivates the event in the same
// step. An expired event is deactivated on the way out; the result reports
// that transition even though the capture itself is rejected.
func (l *Ledger) CaptureWith(id string, pay Payment) (CaptureResult, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	ev, ok := l.events[id]
	if !ok {
		return CaptureResult{}, notFound(id)
	}

	switch {
	case ev.Active && ev.Expired(now):
		ev.Active = false
		ev.DeactivatedReason = ReasonExpired
		return CaptureResult{Event: *ev, Expired: true},
			&domain.CaptureRejectedError{EventID: id, Reason: domain.RejectExpired}
	case !ev.Active && ev.DeactivatedReason == ReasonExpired:
		return CaptureResult{Event: *ev}, &domain.CaptureRejectedError{EventID: id, Reason: domain.RejectExpired}
	case ev.CapturedCount >= ev.CaptureSlots:
		return CaptureResult{Event: *ev}, &domain.CaptureRejectedError{EventID: id, Reason: domain.RejectNoSlots}
	case !ev.Active:
		return CaptureResult{Event: *ev}, &domain.CaptureRejectedError{EventID: id, Reason: domain.RejectInactive}
	}

	price := ev.Price
	if pay != nil {
		if err := pay(price); err != nil {
			return CaptureResult{Event: *ev}, err
		}
	}

	ev.CapturedCount++
	if ev.CapturedCount == ev.CaptureSlots {
		ev.Active = false
		ev.DeactivatedReason = ReasonSoldOut
	}
	l.capturedValue[id] = l.capturedValue[id].Add(price)
	return CaptureResult{Event: *ev, Price: price}, nil
}

// Boost multiplies the event's price. A non-positive multiplier uses
// DefaultBoost. Legendary, inactive and expired events cannot be boosted.
func (l *Ledger) Boost(id string, multiplier float64) (domain.WeatherEvent, error) {
	if multiplier <= 0 {
		multiplier = DefaultBoost
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	ev, ok := l.events[id]
	if !ok {
		return domain.WeatherEvent{}, notFound(id)
	}
	if ev.Rarity == domain.RarityLegendary {
		return view(ev, now), &domain.BoostNotAllowedError{EventID: id, Rarity: ev.Rarity, Reason: "legendary"}
	}
	if !ev.Active || ev.Expired(now) {
		return view(ev, now), &domain.BoostNotAllowedError{EventID: id, Rarity: ev.Rarity, Reason: "inactive"}
	}

	ev.Price = ev.Price.Mul(decimal.NewFromFloat(multiplier)).Round(2)
	return *ev, nil
}

// Deactivate force-sets the event inactive. It is idempotent; changed reports
// whether this call made the transition.
func (l *Ledger) Deactivate(id, reason string) (ev domain.WeatherEvent, changed bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored, ok := l.events[id]
	if !ok {
		return domain.WeatherEvent{}, false, notFound(id)
	}
	if stored.Active {
		stored.Active = false
		stored.DeactivatedReason = reason
		changed = true
	}
	return *stored, changed, nil
}

// ExpireSweep deactivates every active event whose deadline is before now
// and returns the events it transitioned.
func (l *Ledger) ExpireSweep(now time.Time) []domain.WeatherEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	var expired []domain.WeatherEvent
	for _, id := range l.order {
		ev := l.events[id]
		if ev.Active && ev.Expired(now) {
			ev.Active = false
			ev.DeactivatedReason = ReasonExpired
			expired = append(expired, *ev)
		}
	}
	return expired
}

// view returns a copy with the lazy expiry applied.
func view(ev *domain.WeatherEvent, now time.Time) domain.WeatherEvent {
	out := *ev
	if out.Active && out.Expired(now) {
		out.Active = false
		out.DeactivatedReason = ReasonExpired
	}
	return out
}

func notFound(id string) error {
	return &domain.NotFoundError{Kind: "event", ID: id}
}
