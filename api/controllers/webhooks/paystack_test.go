package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eventra-africa/eventra-backend/internal/reconcile"
	"github.com/eventra-africa/eventra-backend/pkg/config"
	pkgerrors "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
	"github.com/eventra-africa/eventra-backend/pkg/paystack"
)

const testPaystackSecret = "sk_test_secret"

type fakeGuard struct {
	seen map[string]bool
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{seen: make(map[string]bool)}
}

func (f *fakeGuard) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeGuard) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeGuard) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.seen, key)
	}
	return nil
}

type fakeReconciler struct {
	inputs  []reconcile.Input
	outcome reconcile.Outcome
	err     error
}

func (f *fakeReconciler) Reconcile(_ context.Context, input reconcile.Input) (reconcile.Outcome, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return "", f.err
	}
	return f.outcome, nil
}

func newPaystackClient(t *testing.T) *paystack.Client {
	t.Helper()
	client, err := paystack.NewClient(config.PaystackConfig{
		BaseURL:   "https://api.paystack.co",
		SecretKey: testPaystackSecret,
		Timeout:   2 * time.Second,
	}, logger.New(logger.Options{ServiceName: "webhooks-test"}))
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return client
}

func signPaystack(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testPaystackSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func deliverPaystack(handler http.HandlerFunc, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", strings.NewReader(string(body)))
	req.Header.Set("x-paystack-signature", signature)
	resp := httptest.NewRecorder()
	handler(resp, req)
	return resp
}

func webhookStatus(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	return payload.Data.Status
}

func TestPaystackWebhookAppliesCharge(t *testing.T) {
	reconciler := &fakeReconciler{outcome: reconcile.OutcomeApplied}
	handler := PaystackWebhook(newPaystackClient(t), reconciler, newFakeGuard(), nil)

	body := []byte(`{"event":"charge.success","data":{"reference":"EVE-TKT-1","status":"success","amount":10000,"currency":"GHS","channel":"mobile_money","gateway_response":"Approved"}}`)
	resp := deliverPaystack(handler, body, signPaystack(body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := webhookStatus(t, resp); got != string(reconcile.OutcomeApplied) {
		t.Fatalf("expected applied outcome got %s", got)
	}
	if len(reconciler.inputs) != 1 {
		t.Fatalf("expected one reconcile call got %d", len(reconciler.inputs))
	}
	input := reconciler.inputs[0]
	if input.Reference != "EVE-TKT-1" || input.Source != "webhook" {
		t.Fatalf("unexpected reconcile input %+v", input)
	}
	if input.Channel != "mobile_money" || input.Reason != "Approved" {
		t.Fatalf("unexpected channel/reason %+v", input)
	}
}

func TestPaystackWebhookRejectsBadSignature(t *testing.T) {
	reconciler := &fakeReconciler{outcome: reconcile.OutcomeApplied}
	handler := PaystackWebhook(newPaystackClient(t), reconciler, newFakeGuard(), nil)

	body := []byte(`{"event":"charge.success","data":{"reference":"EVE-TKT-1","status":"success"}}`)
	resp := deliverPaystack(handler, body, "deadbeef")

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if len(reconciler.inputs) != 0 {
		t.Fatalf("reconciler should not run on bad signature")
	}
}

func TestPaystackWebhookDeduplicatesDelivery(t *testing.T) {
	reconciler := &fakeReconciler{outcome: reconcile.OutcomeApplied}
	guard := newFakeGuard()
	handler := PaystackWebhook(newPaystackClient(t), reconciler, guard, nil)

	body := []byte(`{"event":"charge.success","data":{"reference":"EVE-TKT-1","status":"success","amount":10000}}`)
	sig := signPaystack(body)

	if resp := deliverPaystack(handler, body, sig); resp.Code != http.StatusOK {
		t.Fatalf("first delivery: expected 200 got %d", resp.Code)
	}
	resp := deliverPaystack(handler, body, sig)
	if resp.Code != http.StatusOK {
		t.Fatalf("replay: expected 200 got %d", resp.Code)
	}
	if got := webhookStatus(t, resp); got != "duplicate" {
		t.Fatalf("expected duplicate outcome got %s", got)
	}
	if len(reconciler.inputs) != 1 {
		t.Fatalf("expected one reconcile call got %d", len(reconciler.inputs))
	}
}

func TestPaystackWebhookRedeliveryAfterReconcileFailure(t *testing.T) {
	reconciler := &fakeReconciler{err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}
	guard := newFakeGuard()
	handler := PaystackWebhook(newPaystackClient(t), reconciler, guard, nil)

	body := []byte(`{"event":"charge.success","data":{"reference":"EVE-TKT-1","status":"success","amount":10000}}`)
	sig := signPaystack(body)

	if resp := deliverPaystack(handler, body, sig); resp.Code == http.StatusOK {
		t.Fatalf("expected failure status got %d", resp.Code)
	}

	// A transient failure must not leave the delivery marked as seen.
	reconciler.err = nil
	reconciler.outcome = reconcile.OutcomeApplied
	resp := deliverPaystack(handler, body, sig)
	if resp.Code != http.StatusOK {
		t.Fatalf("redelivery: expected 200 got %d", resp.Code)
	}
	if got := webhookStatus(t, resp); got != string(reconcile.OutcomeApplied) {
		t.Fatalf("expected applied outcome got %s", got)
	}
	if len(reconciler.inputs) != 2 {
		t.Fatalf("expected two reconcile calls got %d", len(reconciler.inputs))
	}
}

func TestPaystackWebhookUnknownReference(t *testing.T) {
	reconciler := &fakeReconciler{err: pkgerrors.New(pkgerrors.CodeNotFound, "unknown payment reference")}
	handler := PaystackWebhook(newPaystackClient(t), reconciler, newFakeGuard(), nil)

	body := []byte(`{"event":"charge.success","data":{"reference":"EVE-UNKNOWN","status":"success"}}`)
	resp := deliverPaystack(handler, body, signPaystack(body))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
