package controllers

import (
	"net/http"

	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

// DraftCreate opens a fresh composition draft and returns its snapshot.
func DraftCreate(registry *draft.Registry, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := registry.Create()
		if logg != nil {
			logg.Info(logg.WithDraftID(r.Context(), d.ID), "draft.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, snapshotOf(d, currency))
	}
}

// DraftGet returns the current snapshot of an open draft.
func DraftGet(registry *draft.Registry, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSnapshot(w, d, currency)
	}
}

// DraftDiscard drops a draft without submitting it.
func DraftDiscard(registry *draft.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := draftFromRequest(r, registry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		registry.Delete(d.ID)
		if logg != nil {
			logg.Info(logg.WithDraftID(r.Context(), d.ID), "draft.discarded")
		}
		responses.WriteSuccess(w, map[string]string{"status": "discarded"})
	}
}
