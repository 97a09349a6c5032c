package domain

import "strings"

// RarityTier is the scarcity class of an event.
type RarityTier string

const (
	RarityCommon    RarityTier = "common"
	RarityUncommon  RarityTier = "uncommon"
	RarityRare      RarityTier = "rare"
	RarityEpic      RarityTier = "epic"
	RarityLegendary RarityTier = "legendary"
)

// AllRarities lists the tiers from most to least plentiful.
var AllRarities = []RarityTier{
	RarityCommon,
	RarityUncommon,
	RarityRare,
	RarityEpic,
	RarityLegendary,
}

type rarityTerms struct {
	slots int
	price int
}

// rarityTable must keep slots strictly decreasing and price strictly
// increasing along AllRarities.
var rarityTable = map[RarityTier]rarityTerms{
	RarityCommon:    {slots: 20, price: 5},
	RarityUncommon:  {slots: 10, price: 10},
	RarityRare:      {slots: 5, price: 20},
	RarityEpic:      {slots: 3, price: 35},
	RarityLegendary: {slots: 1, price: 50},
}

func (r RarityTier) String() string { return string(r) }

// Valid reports whether r belongs to the closed tier set.
func (r RarityTier) Valid() bool {
	_, ok := rarityTable[r]
	return ok
}

// Rank is 0 for common through 4 for legendary, and -1 for unknown tiers.
func (r RarityTier) Rank() int {
	for i, t := range AllRarities {
		if t == r {
			return i
		}
	}
	return -1
}

// Next returns the tier one step scarcer than r. Legendary has no successor.
func (r RarityTier) Next() (RarityTier, bool) {
	rank := r.Rank()
	if rank < 0 || rank == len(AllRarities)-1 {
		return r, false
	}
	return AllRarities[rank+1], true
}

// ParseRarity validates a tier name. Matching ignores case and surrounding space.
func ParseRarity(s string) (RarityTier, error) {
	t := RarityTier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", &UnknownTierError{Tier: s}
	}
	return t, nil
}

// SlotsFor returns the capture-slot count for a tier.
func SlotsFor(r RarityTier) (int, error) {
	terms, ok := rarityTable[r]
	if !ok {
		return 0, &UnknownTierError{Tier: string(r)}
	}
	return terms.slots, nil
}

// PriceFor returns the credit price of one capture for a tier.
func PriceFor(r RarityTier) (int, error) {
	terms, ok := rarityTable[r]
	if !ok {
		return 0, &UnknownTierError{Tier: string(r)}
	}
	return terms.price, nil
}

// SlotsForName parses a tier name and returns its capture-slot count.
func SlotsForName(name string) (int, error) {
	r, err := ParseRarity(name)
	if err != nil {
		return 0, err
	}
	return SlotsFor(r)
}

// PriceForName parses a tier name and returns its credit price.
func PriceForName(name string) (int, error) {
	r, err := ParseRarity(name)
	if err != nil {
		return 0, err
	}
	return PriceFor(r)
}
