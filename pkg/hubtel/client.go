package hubtel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eventra-africa/eventra-backend/pkg/config"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
	pkgerrors "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

var (
	errCredentialsRequired = errors.New("hubtel client id and secret are required")
	errMerchantIDRequired  = errors.New("hubtel merchant id is required")
	errBaseURLRequired     = errors.New("hubtel base url is required")
	errLoggerRequired      = errors.New("hubtel logger is required")
)

// Client wraps the Hubtel transaction status check API.
type Client struct {
	baseURL    string
	authHeader string
	merchantID string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient initializes the Hubtel wrapper and validates the credentials.
func NewClient(cfg config.HubtelConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	clientID := strings.TrimSpace(cfg.ClientID)
	clientSecret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errCredentialsRequired
	}
	merchantID := strings.TrimSpace(cfg.MerchantID)
	if merchantID == "" {
		return nil, errMerchantIDRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
	return &Client{
		baseURL:    baseURL,
		authHeader: "Basic " + credentials,
		merchantID: merchantID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logg,
	}, nil
}

// StatusResult is the outcome of a transaction status check.
type StatusResult struct {
	Reference         string
	Status            enums.ProviderStatus
	RawStatus         string
	Amount            decimal.Decimal
	TransactionID     string
	ExternalReference string
	PaymentMethod     string
	Date              string
}

type statusResponse struct {
	Message      string `json:"message"`
	ResponseCode string `json:"responseCode"`
	Data         struct {
		Date              string          `json:"date"`
		Status            string          `json:"status"`
		TransactionID     string          `json:"transactionId"`
		ExternalReference string          `json:"externalTransactionId"`
		ClientReference   string          `json:"clientReference"`
		Amount            decimal.Decimal `json:"amount"`
		PaymentMethod     string          `json:"paymentMethod"`
	} `json:"data"`
}

const successResponseCode = "0000"

// CheckStatus fetches the authoritative status for a client reference.
func (c *Client) CheckStatus(ctx context.Context, reference string) (*StatusResult, error) {
	if c == nil {
		return nil, errors.New("hubtel client not initialized")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	endpoint := fmt.Sprintf("%s/transactions/%s/status?clientReference=%s",
		c.baseURL, url.PathEscape(c.merchantID), url.QueryEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "hubtel status request failed")
	}
	defer resp.Body.Close()

	logCtx := c.logger.WithFields(ctx, map[string]any{
		"reference":   reference,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	c.logger.Info(logCtx, "hubtel status response received")

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found on hubtel")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("hubtel status returned %d: %s", resp.StatusCode, string(body)))
	}

	var decoded statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode hubtel status response")
	}
	if decoded.ResponseCode != successResponseCode {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("hubtel status rejected with code %s: %s", decoded.ResponseCode, decoded.Message))
	}

	return &StatusResult{
		Reference:         decoded.Data.ClientReference,
		Status:            mapStatus(decoded.Data.Status),
		RawStatus:         decoded.Data.Status,
		Amount:            decoded.Data.Amount,
		TransactionID:     decoded.Data.TransactionID,
		ExternalReference: decoded.Data.ExternalReference,
		PaymentMethod:     decoded.Data.PaymentMethod,
		Date:              decoded.Data.Date,
	}, nil
}

func mapStatus(raw string) enums.ProviderStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paid", "success":
		return enums.ProviderStatusPaid
	case "failed", "refunded", "expired":
		return enums.ProviderStatusFailed
	default:
		return enums.ProviderStatusPending
	}
}
