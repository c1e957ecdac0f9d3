package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
	"github.com/dipta-sdd/campaignbay-sub001/internal/pricing"
	"github.com/dipta-sdd/campaignbay-sub001/internal/targeting"
	apperrors "github.com/dipta-sdd/campaignbay-sub001/pkg/errors"
)

var pricingResolutions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pricing_resolutions_total",
		Help: "Number of price resolutions, labelled by the winning campaign type.",
	},
	[]string{"campaign_type"},
)

// PriceResolution is the outcome of resolving a catalog item's price
// against the applicable campaign set.
type PriceResolution struct {
	// FinalPrice is the per-unit price after the winning discount, equal
	// to the base price when nothing applied.
	FinalPrice decimal.Decimal `json:"final_price"`
	// AppliedCampaignID identifies the winning campaign, 0 when none.
	AppliedCampaignID int64 `json:"applied_campaign_id,omitempty"`
	// Message is the campaign's promotional message, already sanitized.
	Message string `json:"message,omitempty"`
	// FreeQuantity is the number of free units a winning BOGO grants.
	FreeQuantity int `json:"free_quantity,omitempty"`
	// NeedToAdd is how many more units would earn the next BOGO grant.
	NeedToAdd int `json:"need_to_add,omitempty"`
}

// ResolvePrice loads the active campaign set and resolves the item's
// price against it.
func (s *CampaignService) ResolvePrice(ctx context.Context, item domain.CatalogItem, viewer domain.Viewer, quantity int, base decimal.Decimal) (PriceResolution, error) {
	if base.IsNegative() {
		return PriceResolution{}, apperrors.InvalidInput("base_price must not be negative")
	}
	campaigns, err := s.ActiveCampaigns(ctx)
	if err != nil {
		return PriceResolution{}, err
	}
	return s.ResolveAgainst(ctx, campaigns, item, viewer, quantity, base), nil
}

// ResolveAgainst resolves the item's price against an explicit campaign
// set. Campaigns that do not target the item, fail their conditions, or
// carry malformed data are skipped; a malformed campaign never fails
// the request.
func (s *CampaignService) ResolveAgainst(ctx context.Context, campaigns []domain.Campaign, item domain.CatalogItem, viewer domain.Viewer, quantity int, base decimal.Decimal) PriceResolution {
	if quantity < 1 {
		quantity = 1
	}

	resolution := PriceResolution{FinalPrice: base}
	var best *decimal.Decimal
	winnerType := "none"

	for i := range campaigns {
		c := &campaigns[i]
		if c.Status != domain.CampaignStatusActive {
			continue
		}
		if !targeting.Matches(item, c) {
			continue
		}
		if !targeting.EvaluateConditions(c.Conditions, viewer) {
			continue
		}

		candidate, ok := s.candidatePrice(ctx, c, quantity, base)
		if !ok {
			continue
		}
		if !pricing.IsBetterPrice(best, candidate.price, s.settings.PriorityPolicy) {
			continue
		}

		price := candidate.price
		best = &price
		winnerType = c.Type
		resolution = PriceResolution{
			FinalPrice:        candidate.price,
			AppliedCampaignID: c.ID,
			Message:           candidate.message,
			FreeQuantity:      candidate.freeQuantity,
			NeedToAdd:         candidate.needToAdd,
		}
	}

	pricingResolutions.WithLabelValues(winnerType).Inc()
	return resolution
}

type priceCandidate struct {
	price        decimal.Decimal
	message      string
	freeQuantity int
	needToAdd    int
}

// candidatePrice computes one campaign's per-unit offer for the given
// quantity. ok is false when the campaign does not produce a usable
// price, including when its stored data is malformed.
func (s *CampaignService) candidatePrice(ctx context.Context, c *domain.Campaign, quantity int, base decimal.Decimal) (priceCandidate, bool) {
	switch c.Type {
	case domain.CampaignTypeScheduled:
		if c.DiscountType == "" {
			s.skipMalformed(ctx, c, "scheduled campaign without discount type")
			return priceCandidate{}, false
		}
		price := pricing.ApplyDiscount(base, c.DiscountValue, c.DiscountType)
		return priceCandidate{
			price:   price,
			message: s.campaignMessage(c, quantity, base, price, 0, 0),
		}, true

	case domain.CampaignTypeQuantity:
		if len(c.Tiers.Quantity) == 0 {
			s.skipMalformed(ctx, c, "quantity campaign without tiers")
			return priceCandidate{}, false
		}
		tiers := pricing.DedupeQuantityTiers(c.Tiers.Quantity, base, s.settings.PriorityPolicy)
		tier, ok := pricing.QuantityTierFor(tiers, quantity, base, s.settings.PriorityPolicy)
		if !ok {
			return priceCandidate{}, false
		}
		price := pricing.PriceForTier(base, tier)
		return priceCandidate{
			price:   price,
			message: s.campaignMessage(c, quantity, base, price, 0, 0),
		}, true

	case domain.CampaignTypeEarlybird:
		if len(c.Tiers.Earlybird) == 0 {
			s.skipMalformed(ctx, c, "earlybird campaign without tiers")
			return priceCandidate{}, false
		}
		tier, ok := pricing.EarlybirdCurrentTier(c.Tiers.Earlybird, c.UsageCount)
		if !ok {
			return priceCandidate{}, false
		}
		price := pricing.ApplyDiscount(base, tier.Value, tier.Type)
		return priceCandidate{
			price:   price,
			message: s.campaignMessage(c, quantity, base, price, 0, 0),
		}, true

	case domain.CampaignTypeBogo:
		if len(c.Tiers.Bogo) == 0 {
			s.skipMalformed(ctx, c, "bogo campaign without tiers")
			return priceCandidate{}, false
		}
		meta := pricing.ResolveBogo(c.Tiers.Bogo, quantity)
		if !meta.IsBogo || meta.FreeQuantity <= 0 {
			return priceCandidate{}, false
		}
		// Free units spread across the line make the effective per-unit
		// price base * (quantity - free) / quantity.
		paid := decimal.NewFromInt(int64(quantity - meta.FreeQuantity))
		price := base.Mul(paid).Div(decimal.NewFromInt(int64(quantity)))
		return priceCandidate{
			price:        price,
			message:      s.campaignMessage(c, quantity, base, price, meta.FreeQuantity, meta.NeedToAdd),
			freeQuantity: meta.FreeQuantity,
			needToAdd:    meta.NeedToAdd,
		}, true

	default:
		s.skipMalformed(ctx, c, fmt.Sprintf("unknown campaign type %q", c.Type))
		return priceCandidate{}, false
	}
}

// campaignMessage renders the campaign's configured message format, if
// any. The format is sanitized before token substitution so stored
// markup cannot smuggle script tags into storefront output.
func (s *CampaignService) campaignMessage(c *domain.Campaign, quantity int, base, final decimal.Decimal, freeQuantity, needToAdd int) string {
	format, _ := c.Settings[messageFormatKey(c.Type)].(string)
	if format == "" {
		return ""
	}

	saved := base.Sub(final)
	tokens := map[string]string{
		"campaign_title":   c.Title,
		"quantity":         strconv.Itoa(quantity),
		"base_price":       base.StringFixed(2),
		"discounted_price": final.StringFixed(2),
		"saved_amount":     saved.StringFixed(2),
		"free_quantity":    strconv.Itoa(freeQuantity),
		"need_to_add":      strconv.Itoa(needToAdd),
	}
	return pricing.RenderMessage(pricing.SanitizeMessageFormat(format), tokens)
}

// messageFormatKey maps a campaign type to its settings key for the
// promotional message format.
func messageFormatKey(campaignType string) string {
	switch campaignType {
	case domain.CampaignTypeQuantity:
		return "cart_quantity_message_format"
	case domain.CampaignTypeEarlybird:
		return "earlybird_message_format"
	case domain.CampaignTypeBogo:
		return "bogo_message_format"
	default:
		return "discount_message_format"
	}
}

func (s *CampaignService) skipMalformed(ctx context.Context, c *domain.Campaign, reason string) {
	s.logger.WarnContext(ctx, "skipping malformed campaign during price resolution",
		slog.Int64("campaign_id", c.ID),
		slog.String("type", c.Type),
		slog.String("reason", reason))
}
