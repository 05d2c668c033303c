package controllers

import (
	"net/http"

	"github.com/eventra-africa/eventra-backend/api/responses"
	"github.com/eventra-africa/eventra-backend/api/validators"
	"github.com/eventra-africa/eventra-backend/internal/orders"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

// CreateOrder reserves inventory and opens a pending ticket order with its
// revenue split already computed.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input orders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
