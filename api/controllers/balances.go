package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eventra-africa/eventra-backend/api/responses"
	"github.com/eventra-africa/eventra-backend/internal/balances"
	pkgerrors "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

// GetOrganizerBalance returns the cached balance row for an organizer.
func GetOrganizerBalance(svc balances.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		organizerID, err := organizerIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.Get(r.Context(), organizerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

// RecalculateOrganizerBalance rederives the balance from the ledger. With
// ?repair=true the cached figures are overwritten; otherwise it is a dry run
// that only reports drift.
func RecalculateOrganizerBalance(svc balances.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		organizerID, err := organizerIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		repair := strings.EqualFold(r.URL.Query().Get("repair"), "true")
		report, err := svc.RecalculateFromLedger(r.Context(), organizerID, repair)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func organizerIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "organizerID"))
	organizerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "organizer id must be a uuid")
	}
	return organizerID, nil
}
