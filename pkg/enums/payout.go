package enums

import "fmt"

// PayoutStatus maps to the payout_status enum in Postgres. The state machine
// is strictly forward-moving: pending -> processing -> completed/rejected,
// with pending -> rejected also allowed.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusRejected   PayoutStatus = "rejected"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusPending,
	PayoutStatusProcessing,
	PayoutStatusCompleted,
	PayoutStatusRejected,
}

// String implements fmt.Stringer.
func (p PayoutStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PayoutStatus.
func (p PayoutStatus) IsValid() bool {
	for _, candidate := range validPayoutStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the payout request can no longer move.
func (p PayoutStatus) IsTerminal() bool {
	return p == PayoutStatusCompleted || p == PayoutStatusRejected
}

// CanTransitionTo reports whether the state machine permits the move.
func (p PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	switch p {
	case PayoutStatusPending:
		return next == PayoutStatusProcessing || next == PayoutStatusRejected
	case PayoutStatusProcessing:
		return next == PayoutStatusCompleted || next == PayoutStatusRejected
	default:
		return false
	}
}

// ParsePayoutStatus converts raw input into a PayoutStatus.
func ParsePayoutStatus(value string) (PayoutStatus, error) {
	for _, candidate := range validPayoutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout status %q", value)
}

// PayoutType distinguishes event ticket revenue from award voting revenue.
type PayoutType string

const (
	PayoutTypeEvent PayoutType = "event"
	PayoutTypeAward PayoutType = "award"
)

var validPayoutTypes = []PayoutType{
	PayoutTypeEvent,
	PayoutTypeAward,
}

// IsValid reports whether the value is a known PayoutType.
func (p PayoutType) IsValid() bool {
	for _, candidate := range validPayoutTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePayoutType converts raw input into a PayoutType.
func ParsePayoutType(value string) (PayoutType, error) {
	for _, candidate := range validPayoutTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout type %q", value)
}

// PayoutMethod identifies the settlement rail for a payout request.
type PayoutMethod string

const (
	PayoutMethodBankTransfer PayoutMethod = "bank_transfer"
	PayoutMethodMobileMoney  PayoutMethod = "mobile_money"
)

var validPayoutMethods = []PayoutMethod{
	PayoutMethodBankTransfer,
	PayoutMethodMobileMoney,
}

// IsValid reports whether the value is a known PayoutMethod.
func (p PayoutMethod) IsValid() bool {
	for _, candidate := range validPayoutMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePayoutMethod converts raw input into a PayoutMethod.
func ParsePayoutMethod(value string) (PayoutMethod, error) {
	for _, candidate := range validPayoutMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout method %q", value)
}
