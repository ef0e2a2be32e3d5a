package controllers

import (
	"net/http"

	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/api/validators"
	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	submitsvc "github.com/orderdeskhq/orderdesk-backend/internal/submit"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

type deliveryRequest struct {
	PartnerID         *int64 `json:"partnerId"`
	PartnerName       string `json:"partnerName"`
	ExternalReference string `json:"externalReference"`
	Notes             string `json:"notes"`
}

// DeliverySet records the delivery partner details on the draft.
func DeliverySet(registry *draft.Registry, svc *submitsvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload deliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		svc.SetDelivery(r.Context(), d, submitsvc.DeliveryInput{
			PartnerID:         payload.PartnerID,
			PartnerName:       payload.PartnerName,
			ExternalReference: payload.ExternalReference,
			Notes:             payload.Notes,
		})
		writeSnapshot(w, d, currency)
	}
}

// SubmitValidate reports the first rule the draft still violates, if any.
func SubmitValidate(registry *draft.Registry, svc *submitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Validate(d); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"ready": true})
	}
}

// Submit places the order. The draft survives a failed attempt and is
// discarded on success.
func Submit(registry *draft.Registry, svc *submitsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Submit(r.Context(), d)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithFields(logg.WithDraftID(r.Context(), d.ID), map[string]any{
				"order_id":    resp.ID,
				"public_code": resp.PublicCode,
			})
			logg.Info(ctx, "order.submitted")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}
