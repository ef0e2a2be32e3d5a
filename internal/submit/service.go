// Package submit performs the final gate: validating the assembled draft,
// flattening it into the backend's manual-order payload, and handing it
// over in one atomic call. A failed submit leaves the draft untouched.
package submit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	"github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/metrics"
	"github.com/orderdeskhq/orderdesk-backend/pkg/pubsub"
	"github.com/orderdeskhq/orderdesk-backend/pkg/storeapi"
)

type StoreClient interface {
	CreateManualOrder(ctx context.Context, req storeapi.CreateOrderRequest) (*storeapi.CreateOrderResponse, error)
}

// DraftRemover discards the draft once the backend owns the order.
type DraftRemover interface {
	Delete(id string)
}

// EventPublisher emits the submitted-order event. Optional; a nil
// publisher disables eventing.
type EventPublisher interface {
	PublishOrderSubmitted(ctx context.Context, evt pubsub.OrderSubmittedEvent) error
}

// DeliveryInput carries courier assignment and operator notes.
type DeliveryInput struct {
	PartnerID         *int64
	PartnerName       string
	ExternalReference string
	Notes             string
}

type Service struct {
	store    StoreClient
	registry DraftRemover
	events   EventPublisher
	currency string
	logg     *logger.Logger
	metrics  *metrics.ComposerMetrics
	now      func() time.Time
}

func NewService(store StoreClient, registry DraftRemover, events EventPublisher, currency string, logg *logger.Logger, m *metrics.ComposerMetrics) *Service {
	return &Service{
		store:    store,
		registry: registry,
		events:   events,
		currency: currency,
		logg:     logg,
		metrics:  m,
		now:      time.Now,
	}
}

// SetDelivery records the courier assignment and notes.
func (s *Service) SetDelivery(_ context.Context, d *draft.Draft, input DeliveryInput) {
	d.Lock()
	defer d.Unlock()
	d.Delivery = draft.DeliveryState{
		PartnerID:         input.PartnerID,
		PartnerName:       strings.TrimSpace(input.PartnerName),
		ExternalReference: strings.TrimSpace(input.ExternalReference),
		Notes:             strings.TrimSpace(input.Notes),
	}
	d.Touch(s.now())
}

// Validate runs the submit gate without submitting. The first violated
// rule wins, in the order an operator fills the form: buyer, destination,
// cart, courier.
func (s *Service) Validate(d *draft.Draft) error {
	d.Lock()
	defer d.Unlock()
	return s.validateLocked(d)
}

func (s *Service) validateLocked(d *draft.Draft) error {
	if d.Customer.Resolved == nil {
		return errors.New(errors.CodeValidation, "resolve a customer before submitting")
	}
	if d.Address.Selected() == nil {
		return errors.New(errors.CodeValidation, "select a shipping address before submitting")
	}
	if len(d.Cart.Lines) == 0 {
		return errors.New(errors.CodeValidation, "cart is empty")
	}
	for _, line := range d.Cart.Lines {
		if !line.Configured(d.Cart.OptionCount(line.Product.ID)) {
			return errors.New(errors.CodeValidation, "every cart line needs all options chosen")
		}
		if line.Quantity < 1 {
			return errors.New(errors.CodeValidation, "every cart line needs a quantity of at least one")
		}
	}
	if d.Address.Mode == draft.DestinationDomestic &&
		d.Delivery.PartnerID == nil && d.Delivery.PartnerName == "" {
		return errors.New(errors.CodeValidation, "choose a delivery partner for domestic orders")
	}
	return nil
}

// Submit validates, flattens, and posts the order. On success the draft is
// discarded and a best-effort event is published; on any failure the draft
// survives unchanged for the operator to fix and retry.
func (s *Service) Submit(ctx context.Context, d *draft.Draft) (*storeapi.CreateOrderResponse, error) {
	d.Lock()
	if err := s.validateLocked(d); err != nil {
		d.Unlock()
		return nil, err
	}
	req, err := s.buildPayloadLocked(d)
	if err != nil {
		d.Unlock()
		return nil, err
	}
	grandTotal := d.ComputeTotals(s.currency).GrandTotal
	d.Unlock()

	resp, err := s.store.CreateManualOrder(ctx, req)
	if err != nil {
		s.metrics.IncSubmit("error")
		return nil, err
	}
	s.metrics.IncSubmit("ok")

	s.registry.Delete(d.ID)
	s.publishSubmitted(ctx, resp, grandTotal)
	return resp, nil
}

func (s *Service) publishSubmitted(ctx context.Context, resp *storeapi.CreateOrderResponse, grandTotal decimal.Decimal) {
	if s.events == nil {
		return
	}
	evt := pubsub.OrderSubmittedEvent{
		EventID:    uuid.NewString(),
		OrderID:    resp.ID,
		PublicCode: resp.PublicCode,
		CustomerID: resp.CustomerID,
		GrandTotal: grandTotal,
		Currency:   s.currency,
		OccurredAt: s.now().UTC(),
	}
	go func(publishCtx context.Context) {
		if err := s.events.PublishOrderSubmitted(publishCtx, evt); err != nil {
			s.logg.Error(publishCtx, "order event publish failed", err)
		}
	}(context.WithoutCancel(ctx))
}

type optionJSON struct {
	OptionID   int64           `json:"optionId"`
	OptionName string          `json:"optionName"`
	ValueID    int64           `json:"valueId"`
	ValueLabel string          `json:"valueLabel"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
}

// buildPayloadLocked flattens the validated draft. Caller holds the lock.
func (s *Service) buildPayloadLocked(d *draft.Draft) (storeapi.CreateOrderRequest, error) {
	address := d.Address.Selected()
	totals := d.ComputeTotals(s.currency)

	items := make([]storeapi.OrderItemPayload, 0, len(d.Cart.Lines))
	for _, line := range d.Cart.Lines {
		optionCount := d.Cart.OptionCount(line.Product.ID)
		selections := line.SortedSelections()

		parts := make([]string, 0, len(selections))
		encoded := make([]optionJSON, 0, len(selections))
		for _, sel := range selections {
			parts = append(parts, sel.OptionName+": "+sel.ValueLabel)
			encoded = append(encoded, optionJSON{
				OptionID:   sel.OptionID,
				OptionName: sel.OptionName,
				ValueID:    sel.ValueID,
				ValueLabel: sel.ValueLabel,
				PriceDelta: sel.PriceDelta,
			})
		}

		optionsJSON := ""
		if len(encoded) > 0 {
			raw, err := json.Marshal(encoded)
			if err != nil {
				return storeapi.CreateOrderRequest{}, errors.Wrap(errors.CodeInternal, err, "encoding line options")
			}
			optionsJSON = string(raw)
		}

		items = append(items, storeapi.OrderItemPayload{
			ProductID:   line.Product.ID,
			ProductName: line.Product.Name,
			ProductSlug: line.Product.Slug,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice(optionCount),
			LineTotal:   line.Total(optionCount),
			OptionsText: strings.Join(parts, ", "),
			OptionsJSON: optionsJSON,
			Active:      true,
		})
	}

	order := storeapi.OrderPayload{
		CustomerID:        d.Customer.Resolved.ID,
		ShipName:          address.Name,
		ShipPhone:         address.Phone,
		ShipLine1:         address.Line1,
		ShipLine2:         address.Line2,
		ShipPincode:       address.Pincode,
		ShipCountryID:     address.CountryID,
		ShipStateID:       address.StateID,
		ShipDistrictID:    address.DistrictID,
		ItemsSubtotal:     totals.ItemsSubtotal,
		DiscountTotal:     totals.Discount,
		ShippingFee:       totals.ShippingFee,
		Currency:          s.currency,
		CourierName:       d.Delivery.PartnerName,
		DeliveryPartnerID: d.Delivery.PartnerID,
		ExternalReference: d.Delivery.ExternalReference,
		OrderNotes:        d.Delivery.Notes,
	}
	if d.Pricing.Coupon != nil {
		order.CouponCode = d.Pricing.Coupon.Code
		order.CouponID = d.Pricing.Coupon.ID
	}

	return storeapi.CreateOrderRequest{Order: order, Items: items}, nil
}
