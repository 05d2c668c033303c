package enums

import "fmt"

// ProviderStatus is the normalized outcome reported by a payment provider,
// whether it arrived via webhook push or a status poll.
type ProviderStatus string

const (
	ProviderStatusPaid    ProviderStatus = "paid"
	ProviderStatusFailed  ProviderStatus = "failed"
	ProviderStatusPending ProviderStatus = "pending"
)

var validProviderStatuses = []ProviderStatus{
	ProviderStatusPaid,
	ProviderStatusFailed,
	ProviderStatusPending,
}

// IsValid reports whether the value is a known ProviderStatus.
func (p ProviderStatus) IsValid() bool {
	for _, candidate := range validProviderStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProviderStatus converts raw input into a ProviderStatus.
func ParseProviderStatus(value string) (ProviderStatus, error) {
	for _, candidate := range validProviderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid provider status %q", value)
}
