package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eventra-africa/eventra-backend/pkg/config"
	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
	"github.com/eventra-africa/eventra-backend/pkg/money"
)

// Setting keys seeded by the platform_settings migration.
const (
	KeyEventAdminShare = "event_admin_share_percent"
	KeyAwardAdminShare = "award_admin_share_percent"
	KeyPaymentFee      = "payment_fee_percent"
	KeyPayoutHoldDays  = "payout_hold_days"
	KeyMinPayout       = "min_payout_amount"
)

// Service resolves platform settings with config defaults as fallback.
// Values are read at evaluation time so an admin change applies to future
// calculations only.
type Service interface {
	EventAdminShare(ctx context.Context) (decimal.Decimal, error)
	AwardAdminShare(ctx context.Context) (decimal.Decimal, error)
	PaymentFee(ctx context.Context) (decimal.Decimal, error)
	PayoutHoldDays(ctx context.Context) (int, error)
	MinPayout(ctx context.Context) (decimal.Decimal, error)
	Set(ctx context.Context, key, value string) error
}

// Params wires the settings service dependencies.
type Params struct {
	Repo    Repository
	Finance config.FinanceConfig
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	finance config.FinanceConfig
	logg    *logger.Logger
}

// NewService validates dependencies and returns a settings service.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("settings logger required")
	}
	return &service{
		repo:    params.Repo,
		finance: params.Finance,
		logg:    params.Logger,
	}, nil
}

func (s *service) EventAdminShare(ctx context.Context) (decimal.Decimal, error) {
	return s.percent(ctx, KeyEventAdminShare, s.finance.EventAdminSharePercent)
}

func (s *service) AwardAdminShare(ctx context.Context) (decimal.Decimal, error) {
	return s.percent(ctx, KeyAwardAdminShare, s.finance.AwardAdminSharePercent)
}

func (s *service) PaymentFee(ctx context.Context) (decimal.Decimal, error) {
	return s.percent(ctx, KeyPaymentFee, s.finance.PaymentFeePercent)
}

func (s *service) PayoutHoldDays(ctx context.Context) (int, error) {
	raw, err := s.lookup(ctx, KeyPayoutHoldDays)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return s.finance.PayoutHoldDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		s.logg.Warn(s.logg.WithField(ctx, "key", KeyPayoutHoldDays),
			"ignoring malformed setting value "+raw)
		return s.finance.PayoutHoldDays, nil
	}
	return days, nil
}

func (s *service) MinPayout(ctx context.Context) (decimal.Decimal, error) {
	raw, err := s.lookup(ctx, KeyMinPayout)
	if err != nil {
		return decimal.Zero, err
	}
	if raw == "" {
		return s.finance.MinPayout()
	}
	value, err := decimal.NewFromString(raw)
	if err != nil || value.IsNegative() {
		s.logg.Warn(s.logg.WithField(ctx, "key", KeyMinPayout),
			"ignoring malformed setting value "+raw)
		return s.finance.MinPayout()
	}
	return value, nil
}

func (s *service) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return fmt.Errorf("setting key is required")
	}
	if value == "" {
		return fmt.Errorf("setting value is required")
	}
	return s.repo.Upsert(ctx, &models.PlatformSetting{Key: key, Value: value})
}

func (s *service) percent(ctx context.Context, key, fallback string) (decimal.Decimal, error) {
	raw, err := s.lookup(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	if raw == "" {
		raw = fallback
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed percent for %s: %w", key, err)
	}
	if err := money.ValidatePercent(key, value); err != nil {
		return decimal.Zero, err
	}
	return value, nil
}

func (s *service) lookup(ctx context.Context, key string) (string, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if setting == nil {
		return "", nil
	}
	return strings.TrimSpace(setting.Value), nil
}
