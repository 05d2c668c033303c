package webhooks

import (
	"io"
	"net/http"

	"github.com/eventra-africa/eventra-backend/api/responses"
	"github.com/eventra-africa/eventra-backend/internal/reconcile"
	pkgerrors "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/hubtel"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

// HubtelWebhook maps a payment callback onto the reconciler. Hubtel signs
// nothing; authenticity comes from the status re-check the poll job performs
// and from the reconciler only acting on known pending references.
func HubtelWebhook(reconciler reconcile.Service, guard deliveryGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook body"))
			return
		}

		callback, err := hubtel.ParseCallback(body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if duplicate, err := seenBefore(r.Context(), guard, "webhook:hubtel", body); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook dedup"))
			return
		} else if duplicate {
			responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
			return
		}

		outcome, err := reconciler.Reconcile(r.Context(), reconcile.Input{
			Reference: callback.Data.ClientReference,
			Status:    callback.ProviderStatus(),
			Channel:   callback.Data.PaymentMethod,
			Reason:    callback.Data.Description,
			Source:    "webhook",
		})
		if err != nil {
			releaseDelivery(r.Context(), guard, "webhook:hubtel", body)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(outcome)})
	}
}
