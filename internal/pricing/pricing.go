// Package pricing holds the pure discount computations: tier pricing,
// band deduplication, best-price comparison, BOGO accounting, and
// earlybird pool consumption. Everything here is deterministic and safe
// for concurrent use.
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
)

// Policy selects among multiple applicable discounts for the same item.
type Policy string

const (
	ApplyHighest Policy = "apply_highest"
	ApplyLowest  Policy = "apply_lowest"
	ApplyFirst   Policy = "apply_first"
)

// IsValidPolicy checks whether the given string is a known priority policy.
func IsValidPolicy(p string) bool {
	switch Policy(p) {
	case ApplyHighest, ApplyLowest, ApplyFirst:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// ApplyDiscount returns the price after applying a discount value of the
// given type to base. Results clamp to zero.
func ApplyDiscount(base, value decimal.Decimal, valueType string) decimal.Decimal {
	var result decimal.Decimal
	switch valueType {
	case domain.TierValuePercentage:
		result = base.Sub(base.Mul(value).Div(hundred))
	default:
		result = base.Sub(value)
	}
	if result.IsNegative() {
		return decimal.Zero
	}
	return result
}

// PriceForTier computes the unit price a quantity tier yields for base.
func PriceForTier(base decimal.Decimal, tier domain.QuantityTier) decimal.Decimal {
	return ApplyDiscount(base, tier.Value, tier.Type)
}

// IsBetterPrice reports whether candidate beats current under the policy.
// A nil current is always beaten.
func IsBetterPrice(current *decimal.Decimal, candidate decimal.Decimal, policy Policy) bool {
	if current == nil {
		return true
	}
	switch policy {
	case ApplyHighest:
		return candidate.LessThan(*current)
	case ApplyLowest:
		return candidate.GreaterThan(*current)
	default:
		// apply_first keeps whatever arrived first.
		return false
	}
}

// DedupeQuantityTiers collapses tiers sharing an identical (min,max) band
// down to the band's policy-correct tier, then returns the survivors
// sorted ascending by Min.
func DedupeQuantityTiers(tiers []domain.QuantityTier, base decimal.Decimal, policy Policy) []domain.QuantityTier {
	type band struct{ min, max int }
	best := make(map[band]domain.QuantityTier)
	order := make([]band, 0, len(tiers))

	for _, tier := range tiers {
		b := band{tier.Min, tier.Max}
		kept, seen := best[b]
		if !seen {
			best[b] = tier
			order = append(order, b)
			continue
		}
		keptPrice := PriceForTier(base, kept)
		if IsBetterPrice(&keptPrice, PriceForTier(base, tier), policy) {
			best[b] = tier
		}
	}

	result := make([]domain.QuantityTier, 0, len(order))
	for _, b := range order {
		result = append(result, best[b])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Min < result[j].Min
	})
	return result
}

// QuantityTierFor picks the tier whose inclusive band contains quantity,
// deduping bands first. Returns false when no band matches.
func QuantityTierFor(tiers []domain.QuantityTier, quantity int, base decimal.Decimal, policy Policy) (domain.QuantityTier, bool) {
	for _, tier := range DedupeQuantityTiers(tiers, base, policy) {
		if quantity >= tier.Min && quantity <= tier.Max {
			return tier, true
		}
	}
	return domain.QuantityTier{}, false
}
