package ledger

import (
	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Status values accepted by Filter.
const (
	StatusAll      = "all"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Filter narrows List. Zero values match everything; Limit 0 means no limit.
type Filter struct {
	Status    string
	Rarity    domain.RarityTier
	Algorithm string
	Offset    int
	Limit     int
}

// Page is one slice of a listing, newest first.
type Page struct {
	Events []domain.WeatherEvent `json:"events"`
	Total  int                   `json:"total"`
}

// List returns matching events, newest first.
func (l *Ledger) List(f Filter) Page {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	page := Page{Events: []domain.WeatherEvent{}}
	for i := len(l.order) - 1; i >= 0; i-- {
		ev := view(l.events[l.order[i]], now)
		if !f.matches(ev) {
			continue
		}
		page.Total++
		if page.Total <= f.Offset {
			continue
		}
		if f.Limit > 0 && len(page.Events) >= f.Limit {
			continue
		}
		page.Events = append(page.Events, ev)
	}
	return page
}

func (f Filter) matches(ev domain.WeatherEvent) bool {
	switch f.Status {
	case StatusActive:
		if !ev.Active {
			return false
		}
	case StatusInactive:
		if ev.Active {
			return false
		}
	}
	if f.Rarity != "" && ev.Rarity != f.Rarity {
		return false
	}
	if f.Algorithm != "" && ev.AIAlgorithm != f.Algorithm {
		return false
	}
	return true
}

// TierStats summarises one rarity tier.
type TierStats struct {
	Events   int `json:"events"`
	Active   int `json:"active"`
	Captures int `json:"captures"`
}

// Stats summarises the ledger for the dashboard.
type Stats struct {
	Total      int                             `json:"total"`
	Active     int                             `json:"active"`
	Captures   int                             `json:"captures"`
	TotalValue decimal.Decimal                 `json:"totalValue"` // credits spent on captures
	ByRarity   map[domain.RarityTier]TierStats `json:"byRarity"`
}

// Stats computes totals over every registered event.
func (l *Ledger) Stats() Stats {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	st := Stats{
		TotalValue: decimal.Zero,
		ByRarity:   make(map[domain.RarityTier]TierStats, len(domain.AllRarities)),
	}
	for _, r := range domain.AllRarities {
		st.ByRarity[r] = TierStats{}
	}
	for _, id := range l.order {
		ev := view(l.events[id], now)
		tier := st.ByRarity[ev.Rarity]
		tier.Events++
		tier.Captures += ev.CapturedCount
		st.Total++
		st.Captures += ev.CapturedCount
		if ev.Active {
			tier.Active++
			st.Active++
		}
		st.ByRarity[ev.Rarity] = tier
		st.TotalValue = st.TotalValue.Add(l.capturedValue[id])
	}
	return st
}
