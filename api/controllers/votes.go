package controllers

import (
	"net/http"

	"github.com/eventra-africa/eventra-backend/api/responses"
	"github.com/eventra-africa/eventra-backend/api/validators"
	"github.com/eventra-africa/eventra-backend/internal/votes"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

// CreateVotePurchase opens a pending vote purchase. The tally moves only
// after payment reconciliation.
func CreateVotePurchase(svc votes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input votes.CreateVoteInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		purchase, err := svc.CreateVotePurchase(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, purchase)
	}
}
