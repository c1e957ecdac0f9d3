package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Campaign type constants. The type selects which tier shape applies.
const (
	CampaignTypeScheduled = "scheduled"
	CampaignTypeQuantity  = "quantity"
	CampaignTypeEarlybird = "earlybird"
	CampaignTypeBogo      = "bogo"
)

// Campaign status constants.
const (
	CampaignStatusActive    = "active"
	CampaignStatusInactive  = "inactive"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusExpired   = "expired"
)

// Discount type constants, used only by scheduled campaigns.
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Tier value type constants.
const (
	TierValuePercentage = "percentage"
	TierValueCurrency   = "currency"
)

// Target type constants.
const (
	TargetEntireStore = "entire_store"
	TargetProduct     = "product"
	TargetCategory    = "category"
	TargetTag         = "tag"
)

// Condition match type constants.
const (
	MatchAny = "any"
	MatchAll = "all"
)

// DateTimeLayout is the canonical naive local-time form campaigns store
// their schedule window in.
const DateTimeLayout = "2006-01-02 15:04:05"

// Campaign is the discount campaign aggregate. Tiers, target IDs,
// conditions and settings persist as JSON text columns; the struct always
// carries them decoded.
type Campaign struct {
	ID               int64           `json:"id"`
	Title            string          `json:"title"`
	Status           string          `json:"status"`
	Type             string          `json:"type"`
	DiscountType     string          `json:"discount_type,omitempty"`
	DiscountValue    decimal.Decimal `json:"discount_value"`
	Tiers            TierSet         `json:"tiers"`
	TargetType       string          `json:"target_type"`
	TargetIDs        []int64         `json:"target_ids"`
	IsExclude        bool            `json:"is_exclude"`
	ExcludeSaleItems bool            `json:"exclude_sale_items"`
	ScheduleEnabled  bool            `json:"schedule_enabled"`
	StartDatetime    LocalDateTime   `json:"start_datetime,omitempty"`
	EndDatetime      LocalDateTime   `json:"end_datetime,omitempty"`
	Conditions       ConditionSet    `json:"conditions"`
	Settings         map[string]any  `json:"settings"`
	UsageCount       int             `json:"usage_count"`
	UsageLimit       *int            `json:"usage_limit,omitempty"`
	DateCreated      time.Time       `json:"date_created"`
	DateModified     time.Time       `json:"date_modified"`
	CreatedBy        string          `json:"created_by,omitempty"`
	UpdatedBy        string          `json:"updated_by,omitempty"`
}

// LocalDateTime is a naive "2006-01-02 15:04:05" wall-clock string,
// interpreted in the configured site timezone. Empty means unset.
type LocalDateTime string

// IsZero reports whether the datetime is unset.
func (d LocalDateTime) IsZero() bool { return d == "" }

// Time parses the datetime in the given location.
func (d LocalDateTime) Time(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateTimeLayout, string(d), loc)
}

// UTC parses the datetime in loc and converts it to UTC.
func (d LocalDateTime) UTC(loc *time.Location) (time.Time, error) {
	t, err := d.Time(loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Unix parses the datetime in loc and returns the Unix timestamp, or 0
// when unset or unparseable.
func (d LocalDateTime) Unix(loc *time.Location) int64 {
	if d.IsZero() {
		return 0
	}
	t, err := d.Time(loc)
	if err != nil {
		return 0
	}
	return t.Unix()
}

// StartTime returns the campaign's start instant in UTC, or false when no
// valid start is set.
func (c *Campaign) StartTime(loc *time.Location) (time.Time, bool) {
	if c.StartDatetime.IsZero() {
		return time.Time{}, false
	}
	t, err := c.StartDatetime.UTC(loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EndTime returns the campaign's end instant in UTC, or false when no
// valid end is set.
func (c *Campaign) EndTime(loc *time.Location) (time.Time, bool) {
	if c.EndDatetime.IsZero() {
		return time.Time{}, false
	}
	t, err := c.EndDatetime.UTC(loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ValidTypes returns the set of valid campaign types.
func ValidTypes() []string {
	return []string{
		CampaignTypeScheduled,
		CampaignTypeQuantity,
		CampaignTypeEarlybird,
		CampaignTypeBogo,
	}
}

// IsValidType checks whether the given type string is a valid campaign type.
func IsValidType(t string) bool {
	for _, v := range ValidTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// ValidStatuses returns the set of valid campaign statuses.
func ValidStatuses() []string {
	return []string{
		CampaignStatusActive,
		CampaignStatusInactive,
		CampaignStatusScheduled,
		CampaignStatusExpired,
	}
}

// IsValidStatus checks whether the given status string is a valid campaign status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// ValidTargetTypes returns the set of valid target types.
func ValidTargetTypes() []string {
	return []string{TargetEntireStore, TargetProduct, TargetCategory, TargetTag}
}

// IsValidTargetType checks whether the given string is a valid target type.
func IsValidTargetType(t string) bool {
	for _, v := range ValidTargetTypes() {
		if v == t {
			return true
		}
	}
	return false
}
