package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orderdeskhq/orderdesk-backend/api/responses"
	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	pkgerrors "github.com/orderdeskhq/orderdesk-backend/pkg/errors"
)

func draftFromRequest(r *http.Request, registry *draft.Registry) (*draft.Draft, error) {
	id := chi.URLParam(r, "draftId")
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draft id required")
	}
	return registry.Get(id)
}

func lineKeyFromRequest(r *http.Request) string {
	return chi.URLParam(r, "lineKey")
}

func snapshotOf(d *draft.Draft, currency string) draft.Snapshot {
	d.Lock()
	defer d.Unlock()
	return d.Snapshot(currency)
}

func writeSnapshot(w http.ResponseWriter, d *draft.Draft, currency string) {
	responses.WriteSuccess(w, snapshotOf(d, currency))
}
