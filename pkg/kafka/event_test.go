package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	CampaignID int64  `json:"campaign_id"`
	Title      string `json:"title"`
}

func TestNewEvent(t *testing.T) {
	payload := testPayload{CampaignID: 42, Title: "Summer Sale"}

	event, err := NewEvent("campaign.saved", "42", "campaign", "campaign-service", payload)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "campaign.saved", event.EventType)
	assert.Equal(t, "42", event.AggregateID)
	assert.Equal(t, "campaign", event.AggregateType)
	assert.Equal(t, 1, event.Version)
	assert.Equal(t, "campaign-service", event.Source)
	assert.False(t, event.Timestamp.IsZero())
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("campaign.saved", "1", "campaign", "campaign-service", make(chan int))
	assert.Error(t, err)
}

func TestEvent_RoundTrip(t *testing.T) {
	event, err := NewEvent("campaign.deleted", "7", "campaign", "campaign-service",
		testPayload{CampaignID: 7, Title: "Flash"})
	require.NoError(t, err)
	event.WithCorrelationID("corr-123")

	raw, err := event.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "corr-123", decoded.CorrelationID)

	var payload testPayload
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, int64(7), payload.CampaignID)
	assert.Equal(t, "Flash", payload.Title)
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{not json"))
	assert.Error(t, err)
}
