package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		value     string
		valueType string
		want      string
	}{
		{"percentage", "100", "25", domain.TierValuePercentage, "75"},
		{"percentage fractional", "19.99", "10", domain.TierValuePercentage, "17.991"},
		{"currency", "100", "15", domain.TierValueCurrency, "85"},
		{"fixed alias", "100", "15", domain.DiscountTypeFixed, "85"},
		{"currency clamps to zero", "10", "15", domain.TierValueCurrency, "0"},
		{"percentage over 100 clamps", "50", "120", domain.TierValuePercentage, "0"},
		{"zero base stays zero", "0", "30", domain.TierValuePercentage, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyDiscount(dec(tt.base), dec(tt.value), tt.valueType)
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestPriceForTier_NeverNegative(t *testing.T) {
	bases := []string{"0", "0.01", "5", "99.99", "100000"}
	values := []string{"0", "50", "100", "500", "1000000"}
	for _, base := range bases {
		for _, value := range values {
			for _, typ := range []string{domain.TierValuePercentage, domain.TierValueCurrency} {
				tier := domain.QuantityTier{Value: dec(value), Type: typ}
				got := PriceForTier(dec(base), tier)
				assert.False(t, got.IsNegative(), "base=%s value=%s type=%s got=%s", base, value, typ, got)
			}
		}
	}
}

func TestIsBetterPrice(t *testing.T) {
	ten := dec("10")

	assert.True(t, IsBetterPrice(nil, dec("99"), ApplyHighest))
	assert.True(t, IsBetterPrice(nil, dec("99"), ApplyFirst))

	assert.True(t, IsBetterPrice(&ten, dec("8"), ApplyHighest))
	assert.False(t, IsBetterPrice(&ten, dec("12"), ApplyHighest))

	assert.True(t, IsBetterPrice(&ten, dec("12"), ApplyLowest))
	assert.False(t, IsBetterPrice(&ten, dec("8"), ApplyLowest))

	assert.False(t, IsBetterPrice(&ten, dec("1"), ApplyFirst))
}

func TestDedupeQuantityTiers(t *testing.T) {
	base := dec("100")
	tiers := []domain.QuantityTier{
		{ID: 1, Min: 6, Max: 10, Value: dec("20"), Type: domain.TierValuePercentage},
		{ID: 2, Min: 1, Max: 5, Value: dec("5"), Type: domain.TierValuePercentage},
		{ID: 3, Min: 1, Max: 5, Value: dec("10"), Type: domain.TierValuePercentage},
		{ID: 4, Min: 6, Max: 10, Value: dec("12"), Type: domain.TierValueCurrency},
	}

	t.Run("apply_highest keeps lowest resulting price per band", func(t *testing.T) {
		got := DedupeQuantityTiers(tiers, base, ApplyHighest)
		require.Len(t, got, 2)
		assert.EqualValues(t, 3, got[0].ID)
		assert.EqualValues(t, 1, got[1].ID)
	})

	t.Run("apply_lowest keeps highest resulting price per band", func(t *testing.T) {
		got := DedupeQuantityTiers(tiers, base, ApplyLowest)
		require.Len(t, got, 2)
		assert.EqualValues(t, 2, got[0].ID)
		assert.EqualValues(t, 4, got[1].ID)
	})

	t.Run("apply_first keeps first seen per band", func(t *testing.T) {
		got := DedupeQuantityTiers(tiers, base, ApplyFirst)
		require.Len(t, got, 2)
		assert.EqualValues(t, 2, got[0].ID)
		assert.EqualValues(t, 1, got[1].ID)
	})

	t.Run("result sorted ascending by min", func(t *testing.T) {
		got := DedupeQuantityTiers(tiers, base, ApplyHighest)
		for i := 1; i < len(got); i++ {
			assert.Less(t, got[i-1].Min, got[i].Min)
		}
	})
}

func TestQuantityTierFor(t *testing.T) {
	base := dec("100")
	tiers := []domain.QuantityTier{
		{ID: 1, Min: 1, Max: 5, Value: dec("5"), Type: domain.TierValuePercentage},
		{ID: 2, Min: 6, Max: 10, Value: dec("10"), Type: domain.TierValuePercentage},
	}

	tier, ok := QuantityTierFor(tiers, 7, base, ApplyHighest)
	require.True(t, ok)
	assert.EqualValues(t, 2, tier.ID)

	tier, ok = QuantityTierFor(tiers, 5, base, ApplyHighest)
	require.True(t, ok)
	assert.EqualValues(t, 1, tier.ID)

	_, ok = QuantityTierFor(tiers, 11, base, ApplyHighest)
	assert.False(t, ok)
}

func TestResolveBogo(t *testing.T) {
	buy2get1 := []domain.BogoTier{{BuyQuantity: 2, GetQuantity: 1}}

	t.Run("full cycles only", func(t *testing.T) {
		meta := ResolveBogo(buy2get1, 7)
		assert.True(t, meta.IsBogo)
		assert.Equal(t, 2, meta.FreeQuantity)
		assert.Equal(t, 0, meta.NeedToAdd)
		require.NotNil(t, meta.CurrentTier)
		assert.Equal(t, 2, meta.CurrentTier.BuyQuantity)
	})

	t.Run("remainder reaches buy quantity", func(t *testing.T) {
		// 5 = one full buy2get1 cycle of 3, remainder 2 covers the buy
		// portion of the next cycle; one more unit would be free.
		meta := ResolveBogo(buy2get1, 5)
		assert.True(t, meta.IsBogo)
		assert.Equal(t, 1, meta.FreeQuantity)
		assert.Equal(t, 1, meta.NeedToAdd)
	})

	t.Run("partial credit beyond buy", func(t *testing.T) {
		meta := ResolveBogo([]domain.BogoTier{{BuyQuantity: 3, GetQuantity: 2}}, 9)
		// One full cycle of 5 (2 free), remainder 4: 3 cover buy, 1 is
		// free credit, 1 more unit completes the grant.
		assert.True(t, meta.IsBogo)
		assert.Equal(t, 3, meta.FreeQuantity)
		assert.Equal(t, 1, meta.NeedToAdd)
	})

	t.Run("below cheapest buy quantity", func(t *testing.T) {
		meta := ResolveBogo(buy2get1, 1)
		assert.False(t, meta.IsBogo)
		assert.Equal(t, 0, meta.FreeQuantity)
		assert.Nil(t, meta.CurrentTier)
		require.NotNil(t, meta.NextTier)
		assert.Equal(t, 2, meta.NextTier.BuyQuantity)
	})

	t.Run("richest qualifying ratio wins", func(t *testing.T) {
		tiers := []domain.BogoTier{
			{BuyQuantity: 2, GetQuantity: 1},
			{BuyQuantity: 4, GetQuantity: 3},
		}
		meta := ResolveBogo(tiers, 8)
		require.NotNil(t, meta.CurrentTier)
		assert.Equal(t, 4, meta.CurrentTier.BuyQuantity)

		// quantity 3 only qualifies for the cheaper ratio.
		meta = ResolveBogo(tiers, 3)
		require.NotNil(t, meta.CurrentTier)
		assert.Equal(t, 2, meta.CurrentTier.BuyQuantity)
	})

	t.Run("degenerate tiers ignored", func(t *testing.T) {
		meta := ResolveBogo([]domain.BogoTier{{BuyQuantity: 0, GetQuantity: 1}}, 10)
		assert.False(t, meta.IsBogo)
		assert.Nil(t, meta.NextTier)

		meta = ResolveBogo(nil, 10)
		assert.False(t, meta.IsBogo)

		meta = ResolveBogo(buy2get1, 0)
		assert.False(t, meta.IsBogo)
	})
}

func TestEarlybirdCurrentTier(t *testing.T) {
	tiers := []domain.EarlybirdTier{
		{ID: 1, Quantity: 10, Value: dec("30"), Type: domain.TierValuePercentage, Total: 10},
		{ID: 2, Quantity: 20, Value: dec("15"), Type: domain.TierValuePercentage, Total: 20},
	}

	tests := []struct {
		usage    int
		wantID   int64
		wantNone bool
	}{
		{0, 1, false},
		{9, 1, false},
		{10, 2, false},
		{15, 2, false},
		{29, 2, false},
		{30, 0, true},
		{100, 0, true},
		{-3, 1, false},
	}

	for _, tt := range tests {
		tier, ok := EarlybirdCurrentTier(tiers, tt.usage)
		if tt.wantNone {
			assert.False(t, ok, "usage=%d", tt.usage)
			continue
		}
		require.True(t, ok, "usage=%d", tt.usage)
		assert.Equal(t, tt.wantID, tier.ID, "usage=%d", tt.usage)
	}
}

func TestEarlybirdCurrentTier_SkipsEmptyPools(t *testing.T) {
	tiers := []domain.EarlybirdTier{
		{ID: 1, Quantity: 0},
		{ID: 2, Quantity: 5, Value: dec("10"), Type: domain.TierValuePercentage},
	}
	tier, ok := EarlybirdCurrentTier(tiers, 3)
	require.True(t, ok)
	assert.EqualValues(t, 2, tier.ID)
}

func TestSanitizeMessageFormat(t *testing.T) {
	assert.Equal(t, "Buy more, save <b>{percent}</b>!",
		SanitizeMessageFormat(`Buy more, save <b>{percent}</b>!<script>alert(1)</script>`))
	assert.Equal(t, "plain", SanitizeMessageFormat(`<iframe src="x"></iframe>plain`))
	assert.Equal(t, `<span class="promo">deal</span>`,
		SanitizeMessageFormat(`<span class="promo" onclick="x()">deal</span>`))
}

func TestRenderMessage(t *testing.T) {
	got := RenderMessage("Add {need} more, get {free} free!", map[string]string{
		"need": "1",
		"free": "2",
	})
	assert.Equal(t, "Add 1 more, get 2 free!", got)

	// Unknown tokens pass through untouched.
	assert.Equal(t, "Save {unknown}", RenderMessage("Save {unknown}", map[string]string{"pct": "5"}))
}
