package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/api/validators"
	cartsvc "github.com/orderdeskhq/orderdesk-backend/internal/cart"
	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/storeapi"
)

type addProductRequest struct {
	ID        int64           `json:"id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Slug      string          `json:"slug"`
	BasePrice decimal.Decimal `json:"basePrice"`
}

type setOptionRequest struct {
	OptionID int64 `json:"optionId" validate:"required"`
	ValueID  int64 `json:"valueId" validate:"required"`
}

type quantityInputRequest struct {
	Input string `json:"input"`
}

// ProductSearch proxies a catalog search to the store backend.
func ProductSearch(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("q")
		if term == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "query parameter q required"))
			return
		}

		products, err := svc.SearchProducts(r.Context(), term)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

// CartAddProduct adds a catalog product to the draft cart.
func CartAddProduct(registry *draft.Registry, svc *cartsvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product := storeapi.Product{
			ID:        payload.ID,
			Name:      payload.Name,
			Slug:      payload.Slug,
			BasePrice: payload.BasePrice,
		}
		if err := svc.AddProduct(r.Context(), d, product); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSnapshot(w, d, currency)
	}
}

// CartSetOption picks a value for one option of a cart line.
func CartSetOption(registry *draft.Registry, svc *cartsvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setOptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lineKey := lineKeyFromRequest(r)
		if err := svc.SetOptionValue(r.Context(), d, lineKey, payload.OptionID, payload.ValueID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSnapshot(w, d, currency)
	}
}

// CartSetQuantityInput buffers the quantity the operator is typing without
// committing it.
func CartSetQuantityInput(registry *draft.Registry, svc *cartsvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quantityInputRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetQuantityInput(r.Context(), d, lineKeyFromRequest(r), payload.Input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSnapshot(w, d, currency)
	}
}

// CartCommitQuantity settles the buffered quantity into the line.
func CartCommitQuantity(registry *draft.Registry, svc *cartsvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CommitQuantity(r.Context(), d, lineKeyFromRequest(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSnapshot(w, d, currency)
	}
}

// CartRemoveLine drops a line from the cart.
func CartRemoveLine(registry *draft.Registry, svc *cartsvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveLine(r.Context(), d, lineKeyFromRequest(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSnapshot(w, d, currency)
	}
}
