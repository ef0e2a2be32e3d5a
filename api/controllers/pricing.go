package controllers

import (
	"net/http"

	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/api/validators"
	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	pricingsvc "github.com/orderdeskhq/orderdesk-backend/internal/pricing"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

type manualFeeRequest struct {
	Input string `json:"input"`
}

type couponRequest struct {
	Code string `json:"code" validate:"required"`
}

// PricingTotals recomputes and returns the draft's money summary.
func PricingTotals(registry *draft.Registry, svc *pricingsvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, totalsView(svc.Totals(d), currency))
	}
}

// ManualFeeInput buffers the shipping fee the operator is typing for an
// international destination.
func ManualFeeInput(registry *draft.Registry, svc *pricingsvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload manualFeeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetManualFeeInput(r.Context(), d, payload.Input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSnapshot(w, d, currency)
	}
}

// ManualFeeCommit settles the buffered fee into the draft.
func ManualFeeCommit(registry *draft.Registry, svc *pricingsvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CommitManualFee(r.Context(), d); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSnapshot(w, d, currency)
	}
}

// CouponApply previews a coupon against the draft. Coupons that fail or have
// no effect leave a note on the snapshot instead of an error.
func CouponApply(registry *draft.Registry, svc *pricingsvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload couponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ApplyCoupon(r.Context(), d, payload.Code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSnapshot(w, d, currency)
	}
}

// CouponClear removes any applied coupon.
func CouponClear(registry *draft.Registry, svc *pricingsvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		svc.ClearCoupon(r.Context(), d)
		writeSnapshot(w, d, currency)
	}
}

func totalsView(t draft.Totals, currency string) draft.TotalsView {
	if t.Currency == "" {
		t.Currency = currency
	}
	return draft.TotalsView{
		ItemsSubtotal: t.ItemsSubtotal,
		ShippingFee:   t.ShippingFee,
		Discount:      t.Discount,
		GrandTotal:    t.GrandTotal,
		Currency:      t.Currency,
	}
}
