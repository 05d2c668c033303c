package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eventra-africa/eventra-backend/pkg/config"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
	pkgerrors "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

const signatureHeader = "x-paystack-signature"

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errBaseURLRequired   = errors.New("paystack base url is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

var subunitFactor = decimal.NewFromInt(100)

// Client wraps the Paystack REST surface used for reconciliation.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient initializes the Paystack wrapper and validates the credentials.
func NewClient(cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logg,
	}, nil
}

// SignatureHeader returns the header Paystack signs webhook bodies with.
func (c *Client) SignatureHeader() string {
	return signatureHeader
}

// VerifySignature checks the HMAC-SHA512 signature over the raw webhook body.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	if c == nil || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// WebhookEvent is the decoded shape of a Paystack webhook body.
type WebhookEvent struct {
	Event string          `json:"event"`
	Data  WebhookData     `json:"data"`
	Raw   json.RawMessage `json:"-"`
}

// WebhookData carries the transaction fields reconciliation needs.
type WebhookData struct {
	Reference       string          `json:"reference"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Channel         string          `json:"channel"`
	GatewayResponse string          `json:"gateway_response"`
	PaidAt          *time.Time      `json:"paid_at"`
}

// ParseWebhook decodes a webhook body after the signature has been verified.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paystack webhook body")
	}
	if strings.TrimSpace(event.Data.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paystack webhook missing reference")
	}
	event.Raw = json.RawMessage(body)
	return &event, nil
}

// ProviderStatus maps the raw Paystack status to the canonical provider status.
func (d WebhookData) ProviderStatus() enums.ProviderStatus {
	return mapStatus(d.Status)
}

// VerifyResult is the outcome of a transaction verify call.
type VerifyResult struct {
	Reference       string
	Status          enums.ProviderStatus
	RawStatus       string
	Amount          decimal.Decimal
	Currency        string
	Channel         string
	GatewayResponse string
	PaidAt          *time.Time
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference       string          `json:"reference"`
		Status          string          `json:"status"`
		Amount          decimal.Decimal `json:"amount"`
		Currency        string          `json:"currency"`
		Channel         string          `json:"channel"`
		GatewayResponse string          `json:"gateway_response"`
		PaidAt          *time.Time      `json:"paid_at"`
	} `json:"data"`
}

// VerifyTransaction fetches the authoritative status for a payment reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	if c == nil {
		return nil, errors.New("paystack client not initialized")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	url := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paystack verify request failed")
	}
	defer resp.Body.Close()

	logCtx := c.logger.WithFields(ctx, map[string]any{
		"reference":   reference,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	c.logger.Info(logCtx, "paystack verify response received")

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found on paystack")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("paystack verify returned status %d: %s", resp.StatusCode, string(body)))
	}

	var decoded verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack verify response")
	}
	if !decoded.Status {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack verify rejected: "+decoded.Message)
	}

	return &VerifyResult{
		Reference:       decoded.Data.Reference,
		Status:          mapStatus(decoded.Data.Status),
		RawStatus:       decoded.Data.Status,
		Amount:          decoded.Data.Amount.Div(subunitFactor),
		Currency:        decoded.Data.Currency,
		Channel:         decoded.Data.Channel,
		GatewayResponse: decoded.Data.GatewayResponse,
		PaidAt:          decoded.Data.PaidAt,
	}, nil
}

func mapStatus(raw string) enums.ProviderStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success":
		return enums.ProviderStatusPaid
	case "failed", "reversed":
		return enums.ProviderStatusFailed
	default:
		return enums.ProviderStatusPending
	}
}
