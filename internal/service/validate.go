package service

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
	"github.com/dipta-sdd/campaignbay-sub001/internal/rules"
	apperrors "github.com/dipta-sdd/campaignbay-sub001/pkg/errors"
)

// baseRules is the rule set every campaign payload must satisfy.
func baseRules() map[string]string {
	return map[string]string{
		"title":          "required|max:120",
		"status":         "required|in:active,inactive,scheduled,expired",
		"type":           "required|in:scheduled,quantity,earlybird,bogo",
		"discount_type":  "required_if:type,scheduled|in:percentage,fixed",
		"discount_value": "required_if:type,scheduled|numeric|min:0|max_if:discount_type,percentage,100",
		"tiers":          "required_if:type,quantity,earlybird,bogo|array",
		"target_type":    "required|in:entire_store,category,product,tag",
		"target_ids":     "required_if:target_type,category,product,tag|array_of_integers",
		"start_datetime": "required_if:status,scheduled|datetime",
		"end_datetime":   "datetime",
		"usage_limit":    "integer|min:0",
	}
}

// Per-tier rule sets, selected by campaign type. The quantity rules read
// previous_tier_max, which validateTiers injects from the preceding
// tier, enforcing ascending non-overlapping bands.
func tierRules(campaignType string) map[string]string {
	switch campaignType {
	case domain.CampaignTypeQuantity:
		return map[string]string{
			"min":   "required|integer|min:1|gte:previous_tier_max",
			"max":   "required|integer|gte:min",
			"value": "required|numeric|min:0|max_if:type,percentage,100",
			"type":  "required|in:percentage,currency",
		}
	case domain.CampaignTypeEarlybird:
		return map[string]string{
			"quantity": "required|integer|min:1",
			"value":    "required|numeric|min:0|max_if:type,percentage,100",
			"type":     "required|in:percentage,currency",
			"total":    "integer|min:0",
		}
	case domain.CampaignTypeBogo:
		return map[string]string{
			"buy_quantity": "required|integer|min:1",
			"get_quantity": "required|integer|min:1",
		}
	default:
		return nil
	}
}

// settingsSchema lists the accepted settings keys per campaign type, with
// the rule string each value must satisfy.
func settingsSchema(campaignType string) map[string]string {
	switch campaignType {
	case domain.CampaignTypeScheduled:
		return map[string]string{
			"apply_as":                "in:line_total,fee,coupon",
			"discount_message_format": "max:500",
		}
	case domain.CampaignTypeQuantity:
		return map[string]string{
			"enable_quantity_table":        "",
			"apply_as":                     "in:line_total,fee,coupon",
			"cart_quantity_message_format": "max:500",
		}
	case domain.CampaignTypeEarlybird:
		return map[string]string{
			"apply_as":                 "in:line_total,fee,coupon",
			"earlybird_message_format": "max:500",
		}
	case domain.CampaignTypeBogo:
		return map[string]string{
			"auto_add_free_items": "",
			"bogo_message_format": "max:500",
		}
	default:
		return map[string]string{}
	}
}

// validateInput runs the full validation pipeline over a campaign
// payload: base rules, per-tier rules, and the settings schema. On
// failure it returns a ValidationError carrying every field error and
// the original input.
func (s *CampaignService) validateInput(input map[string]any) (map[string]any, error) {
	details := make(map[string]string)

	v := rules.New(input, baseRules())
	if !v.Validate() {
		for field, msg := range v.Errors() {
			details[field] = msg
		}
	}
	validated := v.Validated()

	campaignType, _ := input["type"].(string)

	if ruleset := tierRules(campaignType); ruleset != nil {
		validateTiers(input["tiers"], ruleset, campaignType, details)
	}
	validateSettings(input["settings"], settingsSchema(campaignType), details)

	if len(details) > 0 {
		return nil, apperrors.Validation(details, input)
	}
	return validated, nil
}

// validateTiers checks each tier against the type-specific rule set,
// keying errors by tier position. For quantity campaigns the previous
// tier's max is injected so bands must ascend without overlap.
func validateTiers(raw any, ruleset map[string]string, campaignType string, details map[string]string) {
	tiers, ok := raw.([]any)
	if !ok {
		return
	}

	var previousMax any
	for i, entry := range tiers {
		tier, ok := entry.(map[string]any)
		if !ok {
			details[fmt.Sprintf("tiers.%d", i)] = "Each tier must be an object."
			continue
		}

		data := make(map[string]any, len(tier)+1)
		for k, val := range tier {
			data[k] = val
		}
		if campaignType == domain.CampaignTypeQuantity && previousMax != nil {
			data["previous_tier_max"] = previousMax
		}

		v := rules.New(data, ruleset)
		if !v.Validate() {
			for field, msg := range v.Errors() {
				details[fmt.Sprintf("tiers.%d.%s", i, field)] = msg
			}
		}
		previousMax = tier["max"]
	}
}

// validateSettings checks the settings map against the type schema.
// Unknown keys are rejected.
func validateSettings(raw any, schema map[string]string, details map[string]string) {
	if raw == nil {
		return
	}
	settings, ok := raw.(map[string]any)
	if !ok {
		details["settings"] = "The settings field must be an object."
		return
	}

	ruleset := make(map[string]string)
	for key := range settings {
		rule, known := schema[key]
		if !known {
			details[fmt.Sprintf("settings.%s", key)] = fmt.Sprintf("The %s setting is not supported for this campaign type.", key)
			continue
		}
		if rule != "" {
			ruleset[key] = rule
		}
	}

	if len(ruleset) == 0 {
		return
	}
	v := rules.New(settings, ruleset)
	if !v.Validate() {
		for field, msg := range v.Errors() {
			details[fmt.Sprintf("settings.%s", field)] = msg
		}
	}
}

// applyValidated copies validated payload fields onto a campaign. Fields
// absent from the payload are left untouched, which is what makes
// partial updates merge correctly.
func applyValidated(c *domain.Campaign, validated map[string]any, raw map[string]any) error {
	if v, ok := validated["title"].(string); ok {
		c.Title = v
	}
	if v, ok := validated["status"].(string); ok {
		c.Status = v
	}
	if v, ok := validated["type"].(string); ok {
		c.Type = v
	}
	if v, ok := validated["discount_type"].(string); ok {
		c.DiscountType = v
	}
	if v, present := validated["discount_value"]; present {
		d, err := toDecimal(v)
		if err != nil {
			return err
		}
		c.DiscountValue = d
	}
	if v, ok := validated["target_type"].(string); ok {
		c.TargetType = v
	}
	if v, present := validated["target_ids"]; present {
		ids, err := toInt64Slice(v)
		if err != nil {
			return err
		}
		c.TargetIDs = ids
	}
	if v, present := validated["tiers"]; present {
		tiers, err := toTierSet(c.Type, v)
		if err != nil {
			return err
		}
		c.Tiers = tiers
	}
	if v, present := validated["start_datetime"]; present {
		c.StartDatetime = toLocalDateTime(v)
	}
	if v, present := validated["end_datetime"]; present {
		c.EndDatetime = toLocalDateTime(v)
	}
	if v, present := validated["usage_limit"]; present {
		limit, err := toIntPtr(v)
		if err != nil {
			return err
		}
		c.UsageLimit = limit
	}

	// Flags, conditions and settings carry no rule atoms; they come from
	// the raw payload as-is.
	if v, ok := raw["is_exclude"].(bool); ok {
		c.IsExclude = v
	}
	if v, ok := raw["exclude_sale_items"].(bool); ok {
		c.ExcludeSaleItems = v
	}
	if v, ok := raw["schedule_enabled"].(bool); ok {
		c.ScheduleEnabled = v
	}
	if v, present := raw["conditions"]; present {
		set, err := toConditionSet(v)
		if err != nil {
			return err
		}
		c.Conditions = set
	}
	if v, ok := raw["settings"].(map[string]any); ok {
		c.Settings = v
	}

	return nil
}

// The payload converters re-marshal through encoding/json, which handles
// the map-shaped values a decoded JSON body carries.

func toDecimal(v any) (decimal.Decimal, error) {
	switch value := v.(type) {
	case string:
		return decimal.NewFromString(value)
	case float64:
		return decimal.NewFromFloat(value), nil
	case int:
		return decimal.NewFromInt(int64(value)), nil
	case int64:
		return decimal.NewFromInt(value), nil
	case json.Number:
		return decimal.NewFromString(value.String())
	default:
		return decimal.Zero, fmt.Errorf("cannot convert %T to decimal", v)
	}
}

func toInt64Slice(v any) ([]int64, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal target_ids: %w", err)
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("unmarshal target_ids: %w", err)
	}
	return ids, nil
}

func toTierSet(campaignType string, v any) (domain.TierSet, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return domain.TierSet{}, fmt.Errorf("marshal tiers: %w", err)
	}
	return domain.DecodeTierSet(campaignType, raw), nil
}

func toConditionSet(v any) (domain.ConditionSet, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return domain.ConditionSet{}, fmt.Errorf("marshal conditions: %w", err)
	}
	return domain.DecodeConditionSet(raw), nil
}

func toLocalDateTime(v any) domain.LocalDateTime {
	if s, ok := v.(string); ok {
		return domain.LocalDateTime(s)
	}
	return ""
}

func toIntPtr(v any) (*int, error) {
	switch value := v.(type) {
	case float64:
		n := int(value)
		return &n, nil
	case int:
		return &value, nil
	case int64:
		n := int(value)
		return &n, nil
	case string:
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
			return nil, fmt.Errorf("cannot convert %q to integer", value)
		}
		return &n, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to integer", v)
	}
}
