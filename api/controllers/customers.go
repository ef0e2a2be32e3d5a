package controllers

import (
	"net/http"

	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/api/validators"
	customersvc "github.com/orderdeskhq/orderdesk-backend/internal/customers"
	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/storeapi"
)

type customerQueryRequest struct {
	Query string `json:"query"`
}

type customerSelectRequest struct {
	CustomerID int64 `json:"customerId" validate:"required"`
}

type customerCreateRequest struct {
	DisplayName string `json:"displayName" validate:"required"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone"`
}

// CustomerQuery updates the customer search box. The lookup itself runs
// debounced in the background, so the snapshot returned here may not yet
// carry suggestions.
func CustomerQuery(registry *draft.Registry, svc *customersvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload customerQueryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		svc.SetQuery(r.Context(), d, payload.Query)
		writeSnapshot(w, d, currency)
	}
}

// CustomerSuggestions returns the current suggestion list. Because the
// lookup is debounced, clients poll this after updating the query.
func CustomerSuggestions(registry *draft.Registry, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshotOf(d, currency).Customer)
	}
}

// CustomerSelect resolves the draft to one of the current suggestions.
func CustomerSelect(registry *draft.Registry, svc *customersvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload customerSelectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Select(r.Context(), d, payload.CustomerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSnapshot(w, d, currency)
	}
}

// CustomerCreate registers a new customer in the backend and resolves the
// draft to them.
func CustomerCreate(registry *draft.Registry, svc *customersvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload customerCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := storeapi.CustomerInput{
			DisplayName: payload.DisplayName,
			Email:       payload.Email,
			Phone:       payload.Phone,
		}
		if err := svc.Create(r.Context(), d, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSnapshot(w, d, currency)
	}
}
