package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eventra-africa/eventra-backend/pkg/config"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
	pkgerrors "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(config.PaystackConfig{
		BaseURL:   baseURL,
		SecretKey: "sk_test_secret",
		Timeout:   2 * time.Second,
	}, logger.New(logger.Options{ServiceName: "paystack-test"}))
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return client
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	client := newTestClient(t, "https://api.paystack.co")
	body := []byte(`{"event":"charge.success","data":{"reference":"EVT-1"}}`)

	if !client.VerifySignature(body, sign("sk_test_secret", body)) {
		t.Fatalf("expected valid signature to verify")
	}
	if client.VerifySignature(body, sign("wrong_secret", body)) {
		t.Fatalf("expected signature from wrong secret to fail")
	}
	if client.VerifySignature(body, "") {
		t.Fatalf("expected empty signature to fail")
	}
}

func TestParseWebhook(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"EVT-TICKET-1","status":"success","amount":10000,"currency":"GHS","channel":"mobile_money"}}`)
	event, err := ParseWebhook(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Event != "charge.success" {
		t.Fatalf("unexpected event %q", event.Event)
	}
	if event.Data.Reference != "EVT-TICKET-1" {
		t.Fatalf("unexpected reference %q", event.Data.Reference)
	}
	if event.Data.ProviderStatus() != enums.ProviderStatusPaid {
		t.Fatalf("expected paid status, got %s", event.Data.ProviderStatus())
	}

	if _, err := ParseWebhook([]byte(`{"event":"charge.success","data":{}}`)); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing reference, got %v", err)
	}
	if _, err := ParseWebhook([]byte(`not-json`)); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for malformed body, got %v", err)
	}
}

func TestVerifyTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/EVT-TICKET-1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_secret" {
			t.Fatalf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"reference":"EVT-TICKET-1","status":"success","amount":10000,"currency":"GHS","channel":"card","gateway_response":"Successful"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	result, err := client.VerifyTransaction(context.Background(), "EVT-TICKET-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != enums.ProviderStatusPaid {
		t.Fatalf("expected paid, got %s", result.Status)
	}
	if !result.Amount.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("expected subunit amount converted to 100, got %s", result.Amount)
	}
}

func TestVerifyTransactionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.VerifyTransaction(context.Background(), "missing-ref")
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want enums.ProviderStatus
	}{
		{"success", enums.ProviderStatusPaid},
		{"SUCCESS", enums.ProviderStatusPaid},
		{"failed", enums.ProviderStatusFailed},
		{"reversed", enums.ProviderStatusFailed},
		{"abandoned", enums.ProviderStatusPending},
		{"ongoing", enums.ProviderStatusPending},
		{"", enums.ProviderStatusPending},
	}
	for _, tt := range tests {
		if got := mapStatus(tt.raw); got != tt.want {
			t.Fatalf("status %q expected %s got %s", tt.raw, tt.want, got)
		}
	}
}
