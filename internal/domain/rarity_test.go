package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRarityTable(t *testing.T) {
	tests := []struct {
		tier  RarityTier
		slots int
		price int
	}{
		{RarityCommon, 20, 5},
		{RarityUncommon, 10, 10},
		{RarityRare, 5, 20},
		{RarityEpic, 3, 35},
		{RarityLegendary, 1, 50},
	}

	for _, tc := range tests {
		t.Run(string(tc.tier), func(t *testing.T) {
			slots, err := SlotsFor(tc.tier)
			require.NoError(t, err)
			assert.Equal(t, tc.slots, slots)

			price, err := PriceFor(tc.tier)
			require.NoError(t, err)
			assert.Equal(t, tc.price, price)
		})
	}
}

func TestRarityTable_MonotonicInRank(t *testing.T) {
	for i := 1; i < len(AllRarities); i++ {
		prev, cur := AllRarities[i-1], AllRarities[i]

		prevSlots, _ := SlotsFor(prev)
		curSlots, _ := SlotsFor(cur)
		assert.Less(t, curSlots, prevSlots, "%s should have fewer slots than %s", cur, prev)

		prevPrice, _ := PriceFor(prev)
		curPrice, _ := PriceFor(cur)
		assert.Greater(t, curPrice, prevPrice, "%s should cost more than %s", cur, prev)
	}
}

func TestRarityTable_UnknownTier(t *testing.T) {
	for _, name := range []string{"", "mythic", "Legendary!", "5"} {
		_, err := SlotsFor(RarityTier(name))
		var tierErr *UnknownTierError
		require.True(t, errors.As(err, &tierErr), "SlotsFor(%q)", name)
		assert.Equal(t, name, tierErr.Tier)

		_, err = PriceFor(RarityTier(name))
		require.True(t, errors.As(err, &tierErr), "PriceFor(%q)", name)
	}
}

func TestParseRarity(t *testing.T) {
	r, err := ParseRarity(" Legendary ")
	require.NoError(t, err)
	assert.Equal(t, RarityLegendary, r)

	_, err = ParseRarity("mythic")
	var tierErr *UnknownTierError
	assert.ErrorAs(t, err, &tierErr)
}

func TestRarityTier_Next(t *testing.T) {
	next, ok := RarityEpic.Next()
	assert.True(t, ok)
	assert.Equal(t, RarityLegendary, next)

	_, ok = RarityLegendary.Next()
	assert.False(t, ok)

	_, ok = RarityTier("mythic").Next()
	assert.False(t, ok)
	assert.Equal(t, -1, RarityTier("mythic").Rank())
}

func TestRarityTable_ByName(t *testing.T) {
	slots, err := SlotsForName("Epic")
	require.NoError(t, err)
	assert.Equal(t, 3, slots)

	price, err := PriceForName(" legendary ")
	require.NoError(t, err)
	assert.Equal(t, 50, price)

	_, err = SlotsForName("mythic")
	var tierErr *UnknownTierError
	require.ErrorAs(t, err, &tierErr)
	assert.Equal(t, "mythic", tierErr.Tier)

	_, err = PriceForName("")
	require.ErrorAs(t, err, &tierErr)
}
