package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/eventra-africa/eventra-backend/api/responses"
	"github.com/eventra-africa/eventra-backend/internal/reconcile"
	pkgerrors "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
	"github.com/eventra-africa/eventra-backend/pkg/paystack"
)

const (
	maxWebhookBody  = 1 << 20
	webhookGuardTTL = 24 * time.Hour
)

// deliveryGuard deduplicates webhook deliveries before they reach the
// reconciler. The reconciler is idempotent anyway; the guard just keeps
// replay storms off the database.
type deliveryGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
}

// PaystackWebhook verifies the HMAC signature and maps charge events onto the
// reconciler.
func PaystackWebhook(client *paystack.Client, reconciler reconcile.Service, guard deliveryGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook body"))
			return
		}

		signature := r.Header.Get(client.SignatureHeader())
		if !client.VerifySignature(body, signature) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		event, err := paystack.ParseWebhook(body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if duplicate, err := seenBefore(r.Context(), guard, "webhook:paystack", body); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook dedup"))
			return
		} else if duplicate {
			responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
			return
		}

		outcome, err := reconciler.Reconcile(r.Context(), reconcile.Input{
			Reference: event.Data.Reference,
			Status:    event.Data.ProviderStatus(),
			Channel:   event.Data.Channel,
			Reason:    event.Data.GatewayResponse,
			Source:    "webhook",
		})
		if err != nil {
			// Release the claim so the provider's redelivery gets reconciled
			// instead of answered as a duplicate.
			releaseDelivery(r.Context(), guard, "webhook:paystack", body)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(outcome)})
	}
}

func seenBefore(ctx context.Context, guard deliveryGuard, scope string, body []byte) (bool, error) {
	if guard == nil {
		return false, nil
	}
	fresh, err := guard.SetNX(ctx, deliveryKey(guard, scope, body), "1", webhookGuardTTL)
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

func releaseDelivery(ctx context.Context, guard deliveryGuard, scope string, body []byte) {
	if guard == nil {
		return
	}
	_ = guard.Del(ctx, deliveryKey(guard, scope, body))
}

func deliveryKey(guard deliveryGuard, scope string, body []byte) string {
	sum := sha256.Sum256(body)
	return guard.IdempotencyKey(scope, hex.EncodeToString(sum[:]))
}
