package domain

import "encoding/json"

// ConditionDetail is the rule payload of a single condition.
type ConditionDetail struct {
	Option     string `json:"option"`
	IsIncluded bool   `json:"is_included"`
}

// ConditionRule is one condition attached to a campaign, e.g. a viewer
// role restriction.
type ConditionRule struct {
	Type      string          `json:"type"`
	Condition ConditionDetail `json:"condition"`
}

// ConditionSet holds a campaign's condition rules and how they combine.
type ConditionSet struct {
	MatchType string          `json:"match_type"`
	Rules     []ConditionRule `json:"rules"`
}

// IsEmpty reports whether the set contains no rules.
func (cs ConditionSet) IsEmpty() bool { return len(cs.Rules) == 0 }

// Encode serializes the condition set to the storage encoding.
func (cs ConditionSet) Encode() ([]byte, error) {
	if cs.MatchType == "" {
		cs.MatchType = MatchAny
	}
	if cs.Rules == nil {
		cs.Rules = []ConditionRule{}
	}
	return json.Marshal(cs)
}

// DecodeConditionSet decodes a stored conditions column. Null or malformed
// input yields an empty any-match set rather than an error.
func DecodeConditionSet(raw []byte) ConditionSet {
	cs := ConditionSet{MatchType: MatchAny, Rules: []ConditionRule{}}
	if len(raw) == 0 {
		return cs
	}
	var decoded ConditionSet
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return cs
	}
	if decoded.MatchType == "" {
		decoded.MatchType = MatchAny
	}
	if decoded.Rules == nil {
		decoded.Rules = []ConditionRule{}
	}
	return decoded
}

// EncodeTargetIDs serializes target IDs to the storage encoding.
func EncodeTargetIDs(ids []int64) ([]byte, error) {
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal(ids)
}

// DecodeTargetIDs decodes a stored target_ids column, yielding an empty
// list on null or malformed input.
func DecodeTargetIDs(raw []byte) []int64 {
	if len(raw) == 0 {
		return []int64{}
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil || ids == nil {
		return []int64{}
	}
	return ids
}

// EncodeSettings serializes the settings map to the storage encoding.
func EncodeSettings(settings map[string]any) ([]byte, error) {
	if settings == nil {
		settings = map[string]any{}
	}
	return json.Marshal(settings)
}

// DecodeSettings decodes a stored settings column, yielding an empty map
// on null or malformed input.
func DecodeSettings(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var settings map[string]any
	if err := json.Unmarshal(raw, &settings); err != nil || settings == nil {
		return map[string]any{}
	}
	return settings
}
