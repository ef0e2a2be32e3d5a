package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/shopspring/decimal"
)

const (
	// EventTypeOrderSubmitted is emitted after a manual order is accepted
	// by the store backend.
	EventTypeOrderSubmitted = "order.submitted"

	defaultPublishTimeout = 10 * time.Second
)

// OrderSubmittedEvent is the payload published to the orders topic.
type OrderSubmittedEvent struct {
	EventID    string          `json:"eventId"`
	OrderID    int64           `json:"orderId"`
	PublicCode string          `json:"publicCode"`
	CustomerID int64           `json:"customerId"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
	Currency   string          `json:"currency"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// PublishOrderSubmitted publishes the event to the configured orders topic
// and waits for the server ack.
func (c *Client) PublishOrderSubmitted(ctx context.Context, evt OrderSubmittedEvent) error {
	pub := c.OrdersPublisher()
	if pub == nil {
		return errors.New("orders publisher not configured")
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encoding order event: %w", err)
	}

	msg := &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_id":    evt.EventID,
			"event_type":  EventTypeOrderSubmitted,
			"order_id":    fmt.Sprintf("%d", evt.OrderID),
			"occurred_at": evt.OccurredAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publishing order event: %w", err)
	}
	return nil
}
