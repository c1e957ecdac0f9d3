package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// QuantityTier is one inclusive quantity band of a quantity campaign.
// Across a campaign's tiers the bands must ascend without overlap.
type QuantityTier struct {
	ID    int64           `json:"id"`
	Min   int             `json:"min"`
	Max   int             `json:"max"`
	Value decimal.Decimal `json:"value"`
	Type  string          `json:"type"`
}

// EarlybirdTier is one fixed-size allotment pool of an earlybird campaign.
// Quantity is the number of units this tier covers before the next tier
// takes over; Total records the original allotment for display.
type EarlybirdTier struct {
	ID       int64           `json:"id"`
	Quantity int             `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
	Type     string          `json:"type"`
	Total    int             `json:"total"`
}

// BogoTier is a buy-X-get-Y ratio.
type BogoTier struct {
	BuyQuantity int `json:"buy_quantity"`
	GetQuantity int `json:"get_quantity"`
}

// TierSet is the tagged union of per-type tier lists. Exactly one list is
// populated, selected by the owning campaign's Type.
type TierSet struct {
	Quantity  []QuantityTier
	Earlybird []EarlybirdTier
	Bogo      []BogoTier
}

// MarshalJSON emits whichever tier list is populated as a plain array.
func (ts TierSet) MarshalJSON() ([]byte, error) {
	switch {
	case ts.Quantity != nil:
		return json.Marshal(ts.Quantity)
	case ts.Earlybird != nil:
		return json.Marshal(ts.Earlybird)
	case ts.Bogo != nil:
		return json.Marshal(ts.Bogo)
	default:
		return []byte("[]"), nil
	}
}

// UnmarshalJSON decodes a tier array by sniffing the shape of the first
// element. Quantity tiers carry min/max, earlybird tiers carry
// quantity/total, bogo tiers carry buy_quantity.
func (ts *TierSet) UnmarshalJSON(raw []byte) error {
	*ts = TierSet{}
	var probe []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil || len(probe) == 0 {
		return nil
	}
	first := probe[0]
	switch {
	case hasKey(first, "min") || hasKey(first, "max"):
		*ts = DecodeTierSet(CampaignTypeQuantity, raw)
	case hasKey(first, "buy_quantity"):
		*ts = DecodeTierSet(CampaignTypeBogo, raw)
	case hasKey(first, "quantity"):
		*ts = DecodeTierSet(CampaignTypeEarlybird, raw)
	}
	return nil
}

func hasKey(m map[string]json.RawMessage, key string) bool {
	_, ok := m[key]
	return ok
}

// IsEmpty reports whether no tier list is populated.
func (ts TierSet) IsEmpty() bool {
	return len(ts.Quantity) == 0 && len(ts.Earlybird) == 0 && len(ts.Bogo) == 0
}

// Len returns the number of tiers in whichever list is populated.
func (ts TierSet) Len() int {
	if n := len(ts.Quantity); n > 0 {
		return n
	}
	if n := len(ts.Earlybird); n > 0 {
		return n
	}
	return len(ts.Bogo)
}

// Encode serializes the tier list matching campaignType to the storage
// encoding. An empty set encodes as an empty JSON array.
func (ts TierSet) Encode(campaignType string) ([]byte, error) {
	switch campaignType {
	case CampaignTypeQuantity:
		if ts.Quantity == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(ts.Quantity)
	case CampaignTypeEarlybird:
		if ts.Earlybird == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(ts.Earlybird)
	case CampaignTypeBogo:
		if ts.Bogo == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(ts.Bogo)
	default:
		return []byte("[]"), nil
	}
}

// DecodeTierSet decodes a stored tier column into the list selected by
// campaignType. Null, empty or malformed input yields an empty set rather
// than an error.
func DecodeTierSet(campaignType string, raw []byte) TierSet {
	var ts TierSet
	if len(raw) == 0 {
		return ts
	}
	switch campaignType {
	case CampaignTypeQuantity:
		var tiers []QuantityTier
		if err := json.Unmarshal(raw, &tiers); err == nil {
			ts.Quantity = tiers
		}
	case CampaignTypeEarlybird:
		var tiers []EarlybirdTier
		if err := json.Unmarshal(raw, &tiers); err == nil {
			ts.Earlybird = tiers
		}
	case CampaignTypeBogo:
		var tiers []BogoTier
		if err := json.Unmarshal(raw, &tiers); err == nil {
			ts.Bogo = tiers
		}
	}
	return ts
}
