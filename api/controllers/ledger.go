package controllers

import (
	"net/http"

	"github.com/eventra-africa/eventra-backend/api/responses"
	"github.com/eventra-africa/eventra-backend/api/validators"
	"github.com/eventra-africa/eventra-backend/internal/ledger"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
	"github.com/eventra-africa/eventra-backend/pkg/pagination"
)

// ListOrganizerLedger pages through an organizer's ledger entries.
func ListOrganizerLedger(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		organizerID, err := organizerIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListByOrganizer(r.Context(), organizerID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
