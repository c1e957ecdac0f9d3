package pricing

import (
	"sort"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
)

// BogoMeta describes the outcome of buy-X-get-Y accounting for one
// quantity.
type BogoMeta struct {
	// IsBogo reports whether any tier's buy quantity is met.
	IsBogo bool
	// FreeQuantity is the number of free units earned.
	FreeQuantity int
	// NeedToAdd is how many more units would trigger the next free-unit
	// grant, when the remainder already covers a tier's buy quantity.
	NeedToAdd int
	// CurrentTier is the richest qualifying tier, nil when none qualifies.
	CurrentTier *domain.BogoTier
	// NextTier is the cheapest tier, set as an upsell hint when no tier
	// qualifies yet.
	NextTier *domain.BogoTier
}

// ResolveBogo computes free-unit accounting for the given tiers and
// purchased quantity. Tiers are ranked by descending free ratio
// (get/buy); the richest tier whose buy quantity fits the purchase wins.
func ResolveBogo(tiers []domain.BogoTier, quantity int) BogoMeta {
	var meta BogoMeta
	if len(tiers) == 0 || quantity <= 0 {
		return meta
	}

	ranked := make([]domain.BogoTier, 0, len(tiers))
	for _, tier := range tiers {
		if tier.BuyQuantity > 0 && tier.GetQuantity > 0 {
			ranked = append(ranked, tier)
		}
	}
	if len(ranked) == 0 {
		return meta
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		// get_i/buy_i > get_j/buy_j, compared without division.
		return ranked[i].GetQuantity*ranked[j].BuyQuantity > ranked[j].GetQuantity*ranked[i].BuyQuantity
	})

	for i := range ranked {
		tier := ranked[i]
		if tier.BuyQuantity > quantity {
			continue
		}
		cycle := tier.BuyQuantity + tier.GetQuantity
		free := (quantity / cycle) * tier.GetQuantity
		remainder := quantity % cycle
		if remainder >= tier.BuyQuantity {
			free += remainder - tier.BuyQuantity
			meta.NeedToAdd = tier.GetQuantity - (remainder - tier.BuyQuantity)
		}
		meta.IsBogo = true
		meta.FreeQuantity = free
		meta.CurrentTier = &tier
		return meta
	}

	// Nothing qualifies yet: surface the cheapest tier for upsell copy.
	cheapest := ranked[0]
	for _, tier := range ranked[1:] {
		if tier.BuyQuantity < cheapest.BuyQuantity {
			cheapest = tier
		}
	}
	meta.NextTier = &cheapest
	return meta
}
