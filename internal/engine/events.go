package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/generator"
	"github.com/couchcryptid/weathernft-service/internal/ledger"
	"github.com/couchcryptid/weathernft-service/internal/users"
	"github.com/shopspring/decimal"
)

// GenerateRequest asks for a new event at a coordinate. ForceRarity, when
// set, must name a rarity tier.
type GenerateRequest struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	ForceRarity string  `json:"forceRarity,omitempty"`
}

// GenerateEvent samples the weather at the coordinate, creates an event and
// registers it in the ledger.
func (e *Engine) GenerateEvent(ctx context.Context, req GenerateRequest) (domain.WeatherEvent, error) {
	ev, err := e.generate(ctx, req)
	if err != nil {
		outcome := e.recordFailure("Event generation failed", err, map[string]any{
			"lat": req.Lat, "lng": req.Lng, "forceRarity": req.ForceRarity,
		})
		e.metrics.EventOperations.WithLabelValues("generate", outcome).Inc()
		return domain.WeatherEvent{}, err
	}

	e.record(domain.LevelInfo, fmt.Sprintf("Event %s generated", ev.EventID), map[string]any{
		"eventId":   ev.EventID,
		"rarity":    ev.Rarity,
		"algorithm": ev.AIAlgorithm,
		"location":  ev.Location.City,
	})
	e.metrics.EventOperations.WithLabelValues("generate", "success").Inc()
	e.metrics.EventsGenerated.WithLabelValues(string(ev.Rarity)).Inc()
	e.emit(ctx, domain.ChangeGenerated, ev)
	return ev, nil
}

func (e *Engine) generate(ctx context.Context, req GenerateRequest) (domain.WeatherEvent, error) {
	if err := validateCoordinates(req.Lat, req.Lng); err != nil {
		return domain.WeatherEvent{}, err
	}

	var forced *domain.RarityTier
	if req.ForceRarity != "" {
		tier, err := domain.ParseRarity(req.ForceRarity)
		if err != nil {
			return domain.WeatherEvent{}, err
		}
		forced = &tier
	}

	release, ok := e.limiter.take(e.clock.Now())
	if !ok {
		return domain.WeatherEvent{}, domain.ErrRateLimited
	}

	sample := e.gen.Generate(req.Lat, req.Lng)
	sample.Location = e.nameLocation(ctx, sample.Location)
	ev, err := e.factory.CreateEvent(sample, forced, e.settings.Get())
	if err != nil {
		release()
		return domain.WeatherEvent{}, err
	}
	if err := e.ledger.Register(ev); err != nil {
		release()
		return domain.WeatherEvent{}, fmt.Errorf("register event: %w", err)
	}
	return ev, nil
}

// nameLocation asks the geocoder for coordinates the generator could not
// match. Lookup failures keep the unknown location.
func (e *Engine) nameLocation(ctx context.Context, loc domain.Location) domain.Location {
	if e.geocoder == nil || loc.City != generator.UnknownPlace {
		return loc
	}
	ctx, cancel := context.WithTimeout(ctx, e.opts.GeocodeTimeout)
	defer cancel()

	named, found, err := e.geocoder.ReverseGeocode(ctx, loc.Lat, loc.Lng)
	if err != nil {
		e.logger.Warn("reverse geocode failed", "lat", loc.Lat, "lng", loc.Lng, "error", err)
		return loc
	}
	if !found || named.City == "" {
		return loc
	}
	named.Lat, named.Lng = loc.Lat, loc.Lng
	if named.Country == "" {
		named.Country = generator.UnknownPlace
	}
	return named
}

// ListEvents returns ledger events, newest first.
func (e *Engine) ListEvents(f ledger.Filter) ledger.Page {
	return e.ledger.List(f)
}

// GetEvent returns one event.
func (e *Engine) GetEvent(id string) (domain.WeatherEvent, error) {
	return e.ledger.Get(id)
}

// AdminEvent is an event with the figures the admin console shows.
type AdminEvent struct {
	domain.WeatherEvent
	CanBoost       bool            `json:"canBoost"`
	CaptureRate    float64         `json:"captureRate"` // percent of slots taken
	EstimatedValue decimal.Decimal `json:"estimatedValue"`
}

// NewAdminEvent derives the admin view of an event.
func NewAdminEvent(ev domain.WeatherEvent) AdminEvent {
	var rate float64
	if ev.CaptureSlots > 0 {
		rate = math.Round(float64(ev.CapturedCount)/float64(ev.CaptureSlots)*1000) / 10
	}
	return AdminEvent{
		WeatherEvent:   ev,
		CanBoost:       ev.Active && ev.Rarity != domain.RarityLegendary,
		CaptureRate:    rate,
		EstimatedValue: ev.Price.Mul(decimal.NewFromInt(int64(ev.CaptureSlots))),
	}
}

// CaptureEvent consumes one slot of the event. When userID is set the
// capture is paid from that user's credits at the event price, rounded up,
// and a token is minted to them. The charge is taken only once the slot is
// secured.
func (e *Engine) CaptureEvent(ctx context.Context, id, userID string) (CaptureReceipt, error) {
	data := map[string]any{"eventId": id}
	if userID != "" {
		data["userId"] = userID
	}

	var (
		charge ledger.Payment
		payer  users.User
		price  int
	)
	if userID != "" {
		charge = func(p decimal.Decimal) error {
			price = int(p.Ceil().IntPart())
			u, err := e.users.Charge(userID, price)
			payer = u
			return err
		}
	}

	res, err := e.ledger.CaptureWith(id, charge)
	if err != nil {
		if res.Expired {
			data["expired"] = true
		}
		outcome := e.recordFailure(fmt.Sprintf("Capture of event %s rejected", id), err, data)
		e.metrics.EventOperations.WithLabelValues("capture", outcome).Inc()
		if res.Expired {
			e.metrics.EventsExpired.Inc()
			e.emit(ctx, domain.ChangeExpired, res.Event)
		}
		return CaptureReceipt{}, err
	}

	receipt := CaptureReceipt{WeatherEvent: res.Event}
	ev := res.Event
	data["capturedCount"] = ev.CapturedCount
	data["slotsRemaining"] = ev.SlotsRemaining()
	if userID != "" {
		data["price"] = price
		if tok := e.mint(ev, userID, payer.WalletAddress); tok != nil {
			receipt.Token = tok
			data["tokenId"] = tok.TokenID
			data["txHash"] = tok.TxHash
		}
	}
	if !ev.Active {
		data["soldOut"] = true
	}
	e.record(domain.LevelInfo, fmt.Sprintf("Event %s captured", id), data)
	e.metrics.EventOperations.WithLabelValues("capture", "success").Inc()
	e.emit(ctx, domain.ChangeCaptured, ev)
	return receipt, nil
}

// BoostEvent multiplies the event price. A non-positive multiplier uses
// ledger.DefaultBoost.
func (e *Engine) BoostEvent(ctx context.Context, id string, multiplier float64) (domain.WeatherEvent, error) {
	data := map[string]any{"eventId": id, "boostMultiplier": multiplier}

	var (
		ev  domain.WeatherEvent
		err error
	)
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		err = &domain.ValidationError{Field: "boostMultiplier", Reason: "must be a finite number"}
	} else {
		ev, err = e.ledger.Boost(id, multiplier)
	}
	if err != nil {
		outcome := e.recordFailure(fmt.Sprintf("Boost of event %s rejected", id), err, data)
		e.metrics.EventOperations.WithLabelValues("boost", outcome).Inc()
		return domain.WeatherEvent{}, err
	}

	if multiplier <= 0 {
		data["boostMultiplier"] = ledger.DefaultBoost
	}
	data["newPrice"] = ev.Price.String()
	e.record(domain.LevelInfo, fmt.Sprintf("Event %s boosted", id), data)
	e.metrics.EventOperations.WithLabelValues("boost", "success").Inc()
	e.emit(ctx, domain.ChangeBoosted, ev)
	return ev, nil
}

// DeactivateEvent force-closes an event. It is idempotent and always logs
// at warning level.
func (e *Engine) DeactivateEvent(ctx context.Context, id, reason string) (domain.WeatherEvent, error) {
	if reason == "" {
		reason = "admin"
	}
	data := map[string]any{"eventId": id, "reason": reason}

	ev, changed, err := e.ledger.Deactivate(id, reason)
	if err != nil {
		outcome := e.recordFailure(fmt.Sprintf("Deactivation of event %s failed", id), err, data)
		e.metrics.EventOperations.WithLabelValues("deactivate", outcome).Inc()
		return domain.WeatherEvent{}, err
	}

	data["changed"] = changed
	e.record(domain.LevelWarning, fmt.Sprintf("Event %s deactivated", id), data)
	e.metrics.EventOperations.WithLabelValues("deactivate", "success").Inc()
	if changed {
		e.emit(ctx, domain.ChangeDeactivated, ev)
	}
	return ev, nil
}

// ExpireSweep deactivates every event past its deadline and logs each
// transition. It returns the number of events expired.
func (e *Engine) ExpireSweep(ctx context.Context) int {
	expired := e.ledger.ExpireSweep(e.clock.Now())
	for _, ev := range expired {
		e.record(domain.LevelInfo, fmt.Sprintf("Event %s expired", ev.EventID), map[string]any{
			"eventId":       ev.EventID,
			"expiresAt":     ev.ExpiresAt,
			"capturedCount": ev.CapturedCount,
		})
	}
	if len(expired) > 0 {
		e.metrics.EventsExpired.Add(float64(len(expired)))
		e.emit(ctx, domain.ChangeExpired, expired...)
	}
	return len(expired)
}

func validateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return &domain.ValidationError{Field: "lat", Reason: "must be within [-90, 90]"}
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return &domain.ValidationError{Field: "lng", Reason: "must be within [-180, 180]"}
	}
	return nil
}
