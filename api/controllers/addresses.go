package controllers

import (
	"net/http"
	"strings"

	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/api/validators"
	addresssvc "github.com/orderdeskhq/orderdesk-backend/internal/addresses"
	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/storeapi"
)

type destinationRequest struct {
	Mode string `json:"mode" validate:"required"`
}

type addressSelectRequest struct {
	AddressID int64 `json:"addressId" validate:"required"`
}

type addressCreateRequest struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2" validate:"required"`
	Pincode    string `json:"pincode" validate:"required"`
	CountryID  int64  `json:"countryId"`
	StateID    *int64 `json:"stateId"`
	DistrictID *int64 `json:"districtId"`
	IsDefault  bool   `json:"isDefault"`
}

// DestinationSet switches the draft between domestic and international
// shipping.
func DestinationSet(registry *draft.Registry, svc *addresssvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload destinationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mode, err := parseDestinationMode(payload.Mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetMode(r.Context(), d, mode); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSnapshot(w, d, currency)
	}
}

// AddressList returns the partitioned address book with the per-mode
// selections.
func AddressList(registry *draft.Registry, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshotOf(d, currency).Address)
	}
}

// AddressSelect picks one of the customer's saved addresses for the current
// destination mode.
func AddressSelect(registry *draft.Registry, svc *addresssvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addressSelectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Select(r.Context(), d, payload.AddressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSnapshot(w, d, currency)
	}
}

// AddressCreate saves a new address for the resolved customer and selects it.
func AddressCreate(registry *draft.Registry, svc *addresssvc.Service, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addressCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := storeapi.AddressInput{
			Name:       payload.Name,
			Phone:      payload.Phone,
			Line1:      payload.Line1,
			Line2:      payload.Line2,
			Pincode:    payload.Pincode,
			CountryID:  payload.CountryID,
			StateID:    payload.StateID,
			DistrictID: payload.DistrictID,
			IsDefault:  payload.IsDefault,
		}
		if err := svc.Create(r.Context(), d, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, snapshotOf(d, currency))
	}
}

func parseDestinationMode(raw string) (draft.DestinationMode, error) {
	switch draft.DestinationMode(strings.ToUpper(strings.TrimSpace(raw))) {
	case draft.DestinationDomestic:
		return draft.DestinationDomestic, nil
	case draft.DestinationInternational:
		return draft.DestinationInternational, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "mode must be DOMESTIC or INTERNATIONAL")
}
