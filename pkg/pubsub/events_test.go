package pubsub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "orderdesk-prod"}

	assert.Equal(t, "projects/orderdesk-prod/topics/orders", c.topicResourceName("orders"))
	assert.Equal(t, "projects/other/topics/orders", c.topicResourceName("projects/other/topics/orders"))
	assert.Equal(t, "", c.topicResourceName("  "))

	var nilClient *Client
	assert.Equal(t, "", nilClient.topicResourceName("orders"))

	noProject := &Client{}
	assert.Equal(t, "", noProject.topicResourceName("orders"))
}

func TestOrderSubmittedEventEncoding(t *testing.T) {
	occurred := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	evt := OrderSubmittedEvent{
		EventID:    "evt-1",
		OrderID:    42,
		PublicCode: "OD-42",
		CustomerID: 7,
		GrandTotal: decimal.RequireFromString("1260.50"),
		Currency:   "INR",
		OccurredAt: occurred,
	}

	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, "evt-1", decoded["eventId"])
	assert.Equal(t, "OD-42", decoded["publicCode"])
	assert.Equal(t, "1260.5", decoded["grandTotal"])
	assert.Equal(t, "2026-03-14T09:30:00Z", decoded["occurredAt"])
}
