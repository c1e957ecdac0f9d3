package pricing

import "github.com/dipta-sdd/campaignbay-sub001/internal/domain"

// EarlybirdCurrentTier walks tiers in declaration order, consuming each
// tier's allotment from usageCount until the remainder falls inside a
// tier's pool. That tier is the one currently selling. Returns false when
// usage has exhausted every pool.
func EarlybirdCurrentTier(tiers []domain.EarlybirdTier, usageCount int) (domain.EarlybirdTier, bool) {
	remaining := usageCount
	if remaining < 0 {
		remaining = 0
	}
	for _, tier := range tiers {
		if tier.Quantity <= 0 {
			continue
		}
		if remaining < tier.Quantity {
			return tier, true
		}
		remaining -= tier.Quantity
	}
	return domain.EarlybirdTier{}, false
}
