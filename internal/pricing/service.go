// Package pricing keeps the draft's money lanes current: the domestic
// shipping quote, the manually entered international fee, the applied
// coupon, and the order totals.
package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	"github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/metrics"
	"github.com/orderdeskhq/orderdesk-backend/pkg/storeapi"
)

const (
	lookupShippingPreview = "shipping_preview"
	lookupCouponPreview   = "coupon_preview"
)

type StoreClient interface {
	ShippingPreview(ctx context.Context, req storeapi.ShippingPreviewRequest) (*storeapi.ShippingPreviewResponse, error)
	CouponPreview(ctx context.Context, code string, req storeapi.CouponPreviewRequest) (*storeapi.CouponPreviewResponse, error)
}

type Service struct {
	store    StoreClient
	currency string
	logg     *logger.Logger
	metrics  *metrics.ComposerMetrics
	now      func() time.Time
}

func NewService(store StoreClient, currency string, logg *logger.Logger, m *metrics.ComposerMetrics) *Service {
	return &Service{
		store:    store,
		currency: currency,
		logg:     logg,
		metrics:  m,
		now:      time.Now,
	}
}

// Currency returns the configured display currency.
func (s *Service) Currency() string {
	return s.currency
}

// Totals computes the order arithmetic under the draft lock.
func (s *Service) Totals(d *draft.Draft) draft.Totals {
	d.Lock()
	defer d.Unlock()
	return d.ComputeTotals(s.currency)
}

// Refresh recomputes the domestic shipping quote. International drafts
// keep their manually entered fee. Identical inputs skip the round trip,
// and a quote from superseded inputs is dropped by the guard.
func (s *Service) Refresh(ctx context.Context, d *draft.Draft) {
	d.Lock()
	if d.Address.Mode != draft.DestinationDomestic {
		d.Unlock()
		return
	}

	selected := d.Address.Selected()
	if selected == nil {
		d.Pricing.ShippingFee = decimal.Zero
		d.Pricing.ShippingFree = false
		d.Pricing.ShippingNote = ""
		d.Pricing.LastQuoteKey = ""
		d.Unlock()
		return
	}

	subtotal := d.Cart.Subtotal()
	req := storeapi.ShippingPreviewRequest{
		ItemsSubtotal: subtotal,
		StateID:       selected.StateID,
		DistrictID:    selected.DistrictID,
	}
	key := quoteKey(req)
	if key == quoteKeyFromState(d) && d.Pricing.ShippingNote == "" {
		d.Unlock()
		return
	}
	seq := d.ShippingGuard.Next()
	d.Unlock()

	start := s.now()
	resp, err := s.store.ShippingPreview(ctx, req)
	s.metrics.ObserveLookup(lookupShippingPreview, s.now().Sub(start))

	if d.ShippingGuard.Current() != seq {
		s.metrics.IncStaleDropped(lookupShippingPreview)
		return
	}

	d.Lock()
	defer d.Unlock()
	if d.ShippingGuard.Current() != seq {
		s.metrics.IncStaleDropped(lookupShippingPreview)
		return
	}

	if err != nil {
		s.metrics.IncLookupFailure(lookupShippingPreview)
		s.logg.Error(s.logg.WithDraftID(ctx, d.ID), "shipping preview failed", err)
		d.Pricing.ShippingFee = decimal.Zero
		d.Pricing.ShippingFree = false
		d.Pricing.ShippingNote = "could not fetch the shipping fee, totals may be incomplete"
		d.Touch(s.now())
		return
	}

	d.Pricing.ShippingFee = resp.Fee
	d.Pricing.ShippingFree = resp.Free
	d.Pricing.ShippingNote = ""
	d.Pricing.LastQuoteKey = key
	d.Touch(s.now())
}

func quoteKey(req storeapi.ShippingPreviewRequest) string {
	state := int64(0)
	if req.StateID != nil {
		state = *req.StateID
	}
	district := int64(0)
	if req.DistrictID != nil {
		district = *req.DistrictID
	}
	return fmt.Sprintf("%s|%d|%d", req.ItemsSubtotal.String(), state, district)
}

func quoteKeyFromState(d *draft.Draft) string {
	return d.Pricing.LastQuoteKey
}

// SetManualFeeInput buffers the operator's fee entry for international
// orders without touching the committed fee.
func (s *Service) SetManualFeeInput(_ context.Context, d *draft.Draft, input string) error {
	d.Lock()
	mode := d.Address.Mode
	d.Unlock()
	if mode != draft.DestinationInternational {
		return errors.New(errors.CodeValidation, "manual fees apply to international orders only")
	}
	if !isMoneyInput(input) {
		return errors.New(errors.CodeValidation, "fee accepts numbers only")
	}

	d.Lock()
	defer d.Unlock()
	d.Pricing.ManualFeeInput = input
	d.Touch(s.now())
	return nil
}

// CommitManualFee applies the buffered fee. An empty buffer commits zero.
func (s *Service) CommitManualFee(_ context.Context, d *draft.Draft) error {
	d.Lock()
	defer d.Unlock()
	if d.Address.Mode != draft.DestinationInternational {
		return errors.New(errors.CodeValidation, "manual fees apply to international orders only")
	}

	input := strings.TrimSpace(d.Pricing.ManualFeeInput)
	fee := decimal.Zero
	if input != "" {
		parsed, err := decimal.NewFromString(input)
		if err != nil {
			return errors.New(errors.CodeValidation, "fee is not a valid amount")
		}
		fee = parsed
	}
	if fee.IsNegative() {
		fee = decimal.Zero
	}

	d.Pricing.ShippingFee = fee
	d.Pricing.ShippingFree = fee.IsZero()
	d.Pricing.ManualFeeInput = ""
	d.Touch(s.now())
	return nil
}

// ApplyCoupon previews the code against the current order. Only a
// positive discount sticks; a zero or failed preview clears any applied
// coupon and leaves an explanatory note instead of failing the request.
func (s *Service) ApplyCoupon(ctx context.Context, d *draft.Draft, code string) error {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return errors.New(errors.CodeValidation, "coupon code is required")
	}

	d.Lock()
	resolved := d.Customer.Resolved
	subtotal := d.Cart.Subtotal()
	if resolved == nil {
		d.Unlock()
		return errors.New(errors.CodeValidation, "resolve a customer before applying coupons")
	}
	seq := d.CouponGuard.Next()
	d.Unlock()

	resp, err := s.store.CouponPreview(ctx, trimmed, storeapi.CouponPreviewRequest{
		CustomerID: resolved.ID,
		OrderTotal: subtotal,
	})

	d.Lock()
	defer d.Unlock()
	// The customer (or destination) may have changed while the preview was
	// in flight; its result no longer describes this order.
	if d.CouponGuard.Current() != seq {
		s.metrics.IncStaleDropped(lookupCouponPreview)
		return nil
	}
	if err != nil {
		s.logg.Warn(s.logg.WithDraftID(ctx, d.ID), "coupon preview rejected")
		d.Pricing.Coupon = nil
		d.Pricing.CouponNote = "coupon could not be applied"
		d.Touch(s.now())
		return nil
	}
	if !resp.Discount.IsPositive() {
		d.Pricing.Coupon = nil
		d.Pricing.CouponNote = "coupon has no effect on this order"
		d.Touch(s.now())
		return nil
	}

	d.Pricing.Coupon = &draft.AppliedCoupon{
		Code:     trimmed,
		ID:       resp.CouponID,
		Discount: resp.Discount,
	}
	d.Pricing.CouponNote = ""
	d.Touch(s.now())
	return nil
}

// ClearCoupon removes the applied coupon.
func (s *Service) ClearCoupon(_ context.Context, d *draft.Draft) {
	d.Lock()
	defer d.Unlock()
	d.Pricing.Coupon = nil
	d.Pricing.CouponNote = ""
	d.Touch(s.now())
}

// isMoneyInput accepts digit runs with at most one decimal point.
func isMoneyInput(input string) bool {
	dots := 0
	for _, r := range input {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
