package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
	"github.com/dipta-sdd/campaignbay-sub001/internal/repository"
	apperrors "github.com/dipta-sdd/campaignbay-sub001/pkg/errors"
)

// Create validates a campaign payload, persists it, and fires the saved
// notification. Validation failures return a ValidationError with the
// full field detail map and nothing is persisted.
func (s *CampaignService) Create(ctx context.Context, input map[string]any, actor string) (*domain.Campaign, error) {
	validated, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &domain.Campaign{
		Conditions:   domain.ConditionSet{MatchType: domain.MatchAny, Rules: []domain.ConditionRule{}},
		Settings:     map[string]any{},
		UsageCount:   0,
		DateCreated:  now,
		DateModified: now,
		CreatedBy:    actor,
		UpdatedBy:    actor,
	}
	if err := applyValidated(c, validated, input); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("apply campaign payload: %w", err))
	}

	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist campaign",
			slog.String("title", c.Title),
			slog.String("error", err.Error()))
		return nil, apperrors.Internal(err)
	}

	s.afterSave(ctx, c, domain.AuditActionCreated, actor, "")

	s.logger.InfoContext(ctx, "campaign created",
		slog.Int64("campaign_id", c.ID),
		slog.String("type", c.Type),
		slog.String("status", c.Status))

	return c, nil
}

// Update revalidates and persists a campaign. With partial=true the
// payload is merged onto the current snapshot before validation, so
// omitted fields keep their stored values.
func (s *CampaignService) Update(ctx context.Context, id int64, input map[string]any, partial bool, actor string) (*domain.Campaign, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payload := input
	if partial {
		payload = campaignToPayload(current)
		for k, v := range input {
			payload[k] = v
		}
	}

	validated, err := s.validateInput(payload)
	if err != nil {
		return nil, err
	}

	// Start from a cleared aggregate so fields absent from a full payload
	// do not survive from the previous revision. Partial payloads carry
	// the snapshot's values after the merge above.
	c := *current
	c.DiscountType = ""
	c.DiscountValue = decimal.Zero
	c.Tiers = domain.TierSet{}
	c.TargetIDs = nil
	c.IsExclude = false
	c.ExcludeSaleItems = false
	c.ScheduleEnabled = false
	c.StartDatetime = ""
	c.EndDatetime = ""
	c.Conditions = domain.ConditionSet{MatchType: domain.MatchAny, Rules: []domain.ConditionRule{}}
	c.Settings = map[string]any{}
	c.UsageLimit = nil
	c.UpdatedBy = actor
	if err := applyValidated(&c, validated, payload); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("apply campaign payload: %w", err))
	}

	if err := s.repo.Update(ctx, &c); err != nil {
		if apperrors.HTTPStatus(err) == 500 {
			s.logger.ErrorContext(ctx, "failed to update campaign",
				slog.Int64("campaign_id", id),
				slog.String("error", err.Error()))
			return nil, apperrors.Internal(err)
		}
		return nil, err
	}

	// Reload so callers observe exactly what was persisted.
	reloaded, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.afterSave(ctx, reloaded, domain.AuditActionUpdated, actor, "")

	s.logger.InfoContext(ctx, "campaign updated",
		slog.Int64("campaign_id", id),
		slog.Bool("partial", partial))

	return reloaded, nil
}

// Delete removes a campaign. The scheduler is notified before the row
// goes away so pending jobs are cancelled even if the delete fails.
// Returns false when no row was deleted.
func (s *CampaignService) Delete(ctx context.Context, id int64, actor string) (bool, error) {
	s.notifyDeleted(ctx, id)

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete campaign",
			slog.Int64("campaign_id", id),
			slog.String("error", err.Error()))
		return false, apperrors.Internal(err)
	}
	if !deleted {
		return false, nil
	}

	if err := s.events.PublishCampaignDeleted(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to publish campaign.deleted event",
			slog.Int64("campaign_id", id),
			slog.String("error", err.Error()))
	}
	s.invalidateCache(ctx)
	s.recordAudit(ctx, id, domain.AuditActionDeleted, actor, "")

	s.logger.InfoContext(ctx, "campaign deleted", slog.Int64("campaign_id", id))
	return true, nil
}

// SetStatus is the restricted write path used by the scheduler and the
// status endpoint. It validates the enum, persists only the status
// column, and fires the saved notification with the reloaded campaign.
func (s *CampaignService) SetStatus(ctx context.Context, id int64, status string) error {
	if !domain.IsValidStatus(status) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s",
			status, strings.Join(domain.ValidStatuses(), ", ")))
	}

	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return err
	}

	reloaded, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.afterSave(ctx, reloaded, domain.AuditActionStatusChanged, reloaded.UpdatedBy, status)
	return nil
}

// IncrementUsageCount atomically bumps a campaign's usage counter. When
// the write also flips the campaign to expired the cache is dropped and
// the transition audited. Write failures are logged as warnings and
// surfaced as typed errors.
func (s *CampaignService) IncrementUsageCount(ctx context.Context, id int64) (repository.UsageResult, error) {
	result, err := s.repo.IncrementUsage(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to increment campaign usage",
			slog.Int64("campaign_id", id),
			slog.String("error", err.Error()))
		if apperrors.HTTPStatus(err) == 500 {
			return result, apperrors.Internal(err)
		}
		return result, err
	}

	if result.Status == domain.CampaignStatusExpired {
		s.invalidateCache(ctx)
		s.recordAudit(ctx, id, domain.AuditActionStatusChanged, "system",
			"usage limit reached")
	}

	return result, nil
}

// Get returns one campaign.
func (s *CampaignService) Get(ctx context.Context, id int64) (*domain.Campaign, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns campaigns matching the filter with the total count.
func (s *CampaignService) List(ctx context.Context, filter repository.CampaignFilter) ([]domain.Campaign, int, error) {
	return s.repo.List(ctx, filter)
}

// AuditTrail returns the newest-first activity log for a campaign.
func (s *CampaignService) AuditTrail(ctx context.Context, id int64, limit int) ([]domain.AuditEntry, error) {
	return s.audit.ListByCampaign(ctx, id, limit)
}

// ActiveCampaigns returns the active campaign set, served from cache
// when possible.
func (s *CampaignService) ActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "active-campaign cache read failed",
				slog.String("error", err.Error()))
		} else if hit {
			return cached, nil
		}
	}

	campaigns, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, campaigns); err != nil {
			s.logger.WarnContext(ctx, "active-campaign cache write failed",
				slog.String("error", err.Error()))
		}
	}
	return campaigns, nil
}

// afterSave runs the side effects every successful save shares: the
// scheduler notification, cache invalidation, the saved event, and the
// audit entry. All of them are best-effort; the save itself has already
// committed.
func (s *CampaignService) afterSave(ctx context.Context, c *domain.Campaign, action, actor, note string) {
	if s.notifier != nil {
		if err := s.notifier.OnCampaignSaved(ctx, c); err != nil {
			s.logger.WarnContext(ctx, "campaign saved notification failed",
				slog.Int64("campaign_id", c.ID),
				slog.String("error", err.Error()))
		}
	}
	s.invalidateCache(ctx)

	if err := s.events.PublishCampaignSaved(ctx, c); err != nil {
		s.logger.WarnContext(ctx, "failed to publish campaign.saved event",
			slog.Int64("campaign_id", c.ID),
			slog.String("error", err.Error()))
	}
	s.recordAudit(ctx, c.ID, action, actor, note)
}

func (s *CampaignService) notifyDeleted(ctx context.Context, id int64) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OnCampaignDeleted(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "campaign deleted notification failed",
			slog.Int64("campaign_id", id),
			slog.String("error", err.Error()))
	}
}

func (s *CampaignService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate active-campaign cache",
			slog.String("error", err.Error()))
	}
}

func (s *CampaignService) recordAudit(ctx context.Context, campaignID int64, action, actor, note string) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		CampaignID: campaignID,
		Action:     action,
		Actor:      actor,
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "failed to record audit entry",
			slog.Int64("campaign_id", campaignID),
			slog.String("action", action),
			slog.String("error", err.Error()))
	}
}

// campaignToPayload renders a campaign back into the payload shape the
// validator consumes, used as the merge base for partial updates.
func campaignToPayload(c *domain.Campaign) map[string]any {
	payload := map[string]any{
		"title":              c.Title,
		"status":             c.Status,
		"type":               c.Type,
		"target_type":        c.TargetType,
		"is_exclude":         c.IsExclude,
		"exclude_sale_items": c.ExcludeSaleItems,
		"schedule_enabled":   c.ScheduleEnabled,
	}

	if c.DiscountType != "" {
		payload["discount_type"] = c.DiscountType
		payload["discount_value"] = c.DiscountValue.String()
	}
	if len(c.TargetIDs) > 0 {
		ids := make([]any, len(c.TargetIDs))
		for i, id := range c.TargetIDs {
			ids[i] = float64(id)
		}
		payload["target_ids"] = ids
	}
	if !c.Tiers.IsEmpty() {
		payload["tiers"] = tiersToPayload(c)
	}
	if !c.StartDatetime.IsZero() {
		payload["start_datetime"] = string(c.StartDatetime)
	}
	if !c.EndDatetime.IsZero() {
		payload["end_datetime"] = string(c.EndDatetime)
	}
	if c.UsageLimit != nil {
		payload["usage_limit"] = float64(*c.UsageLimit)
	}
	if !c.Conditions.IsEmpty() {
		payload["conditions"] = map[string]any{
			"match_type": c.Conditions.MatchType,
			"rules":      conditionRulesToPayload(c.Conditions.Rules),
		}
	}
	if len(c.Settings) > 0 {
		payload["settings"] = c.Settings
	}

	return payload
}

func tiersToPayload(c *domain.Campaign) []any {
	switch c.Type {
	case domain.CampaignTypeQuantity:
		tiers := make([]any, len(c.Tiers.Quantity))
		for i, t := range c.Tiers.Quantity {
			tiers[i] = map[string]any{
				"id":    float64(t.ID),
				"min":   float64(t.Min),
				"max":   float64(t.Max),
				"value": t.Value.String(),
				"type":  t.Type,
			}
		}
		return tiers
	case domain.CampaignTypeEarlybird:
		tiers := make([]any, len(c.Tiers.Earlybird))
		for i, t := range c.Tiers.Earlybird {
			tiers[i] = map[string]any{
				"id":       float64(t.ID),
				"quantity": float64(t.Quantity),
				"value":    t.Value.String(),
				"type":     t.Type,
				"total":    float64(t.Total),
			}
		}
		return tiers
	case domain.CampaignTypeBogo:
		tiers := make([]any, len(c.Tiers.Bogo))
		for i, t := range c.Tiers.Bogo {
			tiers[i] = map[string]any{
				"buy_quantity": float64(t.BuyQuantity),
				"get_quantity": float64(t.GetQuantity),
			}
		}
		return tiers
	default:
		return nil
	}
}

func conditionRulesToPayload(rules []domain.ConditionRule) []any {
	out := make([]any, len(rules))
	for i, r := range rules {
		out[i] = map[string]any{
			"type": r.Type,
			"condition": map[string]any{
				"option":      r.Condition.Option,
				"is_included": r.Condition.IsIncluded,
			},
		}
	}
	return out
}
