package split

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/money"
)

var hundred = decimal.NewFromInt(100)

// Split is the outcome of dividing a gross payment between the organizer
// and the platform. Components are rounded independently, so they may not
// sum exactly to gross; the drift is accepted rather than reconciled.
type Split struct {
	GrossAmount     decimal.Decimal
	OrganizerAmount decimal.Decimal
	AdminGross      decimal.Decimal
	PaymentFee      decimal.Decimal
	AdminAmount     decimal.Decimal
}

// Exact reports whether the organizer and admin components sum to gross
// after the provider fee is added back.
func (s Split) Exact() bool {
	return s.OrganizerAmount.Add(s.AdminGross).Equal(s.GrossAmount)
}

// Calculator computes revenue splits. It carries no state; the zero value
// is ready to use.
type Calculator struct{}

// NewCalculator returns a split calculator.
func NewCalculator() Calculator {
	return Calculator{}
}

// Split divides gross revenue between the organizer and the platform.
// The organizer keeps (100 - adminSharePercent)% of gross; the provider fee
// comes out of the platform's share and never touches the organizer's.
// The admin amount is clamped at zero when the fee exceeds the admin gross.
func (Calculator) Split(gross, adminSharePercent, paymentFeePercent decimal.Decimal) (Split, error) {
	if gross.IsNegative() {
		return Split{}, pkgerrors.New(pkgerrors.CodeValidation, "gross amount must not be negative")
	}
	if err := money.ValidatePercent("admin share percent", adminSharePercent); err != nil {
		return Split{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid admin share")
	}
	if err := money.ValidatePercent("payment fee percent", paymentFeePercent); err != nil {
		return Split{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment fee")
	}

	gross = money.Round(gross)
	organizerShare := hundred.Sub(adminSharePercent)

	organizerAmount := money.Percent(gross, organizerShare)
	adminGross := money.Percent(gross, adminSharePercent)
	paymentFee := money.Percent(gross, paymentFeePercent)

	adminAmount := adminGross.Sub(paymentFee)
	if adminAmount.IsNegative() {
		adminAmount = decimal.Zero
	}

	return Split{
		GrossAmount:     gross,
		OrganizerAmount: organizerAmount,
		AdminGross:      adminGross,
		PaymentFee:      paymentFee,
		AdminAmount:     adminAmount,
	}, nil
}
