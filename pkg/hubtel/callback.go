package hubtel

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eventra-africa/eventra-backend/pkg/enums"
	pkgerrors "github.com/eventra-africa/eventra-backend/pkg/errors"
)

// Callback is the decoded shape of a Hubtel payment callback body.
type Callback struct {
	ResponseCode string       `json:"ResponseCode"`
	Message      string       `json:"Message"`
	Data         CallbackData `json:"Data"`
}

// CallbackData carries the transaction fields reconciliation needs.
type CallbackData struct {
	ClientReference string          `json:"ClientReference"`
	Status          string          `json:"Status"`
	Amount          decimal.Decimal `json:"Amount"`
	TransactionID   string          `json:"TransactionId"`
	Description     string          `json:"Description"`
	PaymentMethod   string          `json:"PaymentMethod"`
}

// ParseCallback decodes a callback body.
func ParseCallback(body []byte) (*Callback, error) {
	var callback Callback
	if err := json.Unmarshal(body, &callback); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid hubtel callback body")
	}
	if strings.TrimSpace(callback.Data.ClientReference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hubtel callback missing client reference")
	}
	return &callback, nil
}

// ProviderStatus maps the callback outcome to the canonical provider status.
// Hubtel signals success with ResponseCode 0000; any other code is terminal.
func (c Callback) ProviderStatus() enums.ProviderStatus {
	if c.ResponseCode == successResponseCode {
		return enums.ProviderStatusPaid
	}
	if status := mapStatus(c.Data.Status); status != enums.ProviderStatusPending {
		return status
	}
	return enums.ProviderStatusFailed
}
