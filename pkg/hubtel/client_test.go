package hubtel

import (
	"context"
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
	client, err := NewClient(config.HubtelConfig{
		BaseURL:      baseURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		MerchantID:   "11684",
		Timeout:      2 * time.Second,
	}, logger.New(logger.Options{ServiceName: "hubtel-test"}))
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return client
}

func TestCheckStatusPaid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/11684/status" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("clientReference") != "EVT-VOTE-9" {
			t.Fatalf("unexpected reference %q", r.URL.Query().Get("clientReference"))
		}
		if r.Header.Get("Authorization") == "" {
			t.Fatalf("missing basic auth header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Successful","responseCode":"0000","data":{"date":"2026-08-01","status":"Paid","transactionId":"tx-1","externalTransactionId":"ext-1","clientReference":"EVT-VOTE-9","amount":25.00,"paymentMethod":"mobilemoney"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	result, err := client.CheckStatus(context.Background(), "EVT-VOTE-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != enums.ProviderStatusPaid {
		t.Fatalf("expected paid, got %s", result.Status)
	}
	if !result.Amount.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("unexpected amount %s", result.Amount)
	}
	if result.Reference != "EVT-VOTE-9" {
		t.Fatalf("unexpected reference %q", result.Reference)
	}
}

func TestCheckStatusUnpaidMapsToPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Successful","responseCode":"0000","data":{"status":"Unpaid","clientReference":"EVT-VOTE-10","amount":10.00}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	result, err := client.CheckStatus(context.Background(), "EVT-VOTE-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != enums.ProviderStatusPending {
		t.Fatalf("expected pending, got %s", result.Status)
	}
}

func TestCheckStatusRejectedResponseCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"not found","responseCode":"4000"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.CheckStatus(context.Background(), "EVT-VOTE-11")
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want enums.ProviderStatus
	}{
		{"Paid", enums.ProviderStatusPaid},
		{"success", enums.ProviderStatusPaid},
		{"Failed", enums.ProviderStatusFailed},
		{"refunded", enums.ProviderStatusFailed},
		{"Unpaid", enums.ProviderStatusPending},
		{"Pending", enums.ProviderStatusPending},
		{"", enums.ProviderStatusPending},
	}
	for _, tt := range tests {
		if got := mapStatus(tt.raw); got != tt.want {
			t.Fatalf("status %q expected %s got %s", tt.raw, tt.want, got)
		}
	}
}
