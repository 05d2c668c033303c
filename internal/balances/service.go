package balances

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventra-africa/eventra-backend/internal/ledger"
	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	errs "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

// FieldDrift records one cached figure that disagrees with the ledger.
type FieldDrift struct {
	Field   string          `json:"field"`
	Stored  decimal.Decimal `json:"stored"`
	Derived decimal.Decimal `json:"derived"`
	Delta   decimal.Decimal `json:"delta"`
}

// DriftReport is the outcome of recalculating one organizer's balance from
// the ledger stream.
type DriftReport struct {
	OrganizerID uuid.UUID     `json:"organizer_id"`
	Totals      ledger.Totals `json:"totals"`
	Drifts      []FieldDrift  `json:"drifts"`
	Repaired    bool          `json:"repaired"`
	ObservedAt  time.Time     `json:"observed_at"`
}

// HasDrift reports whether any cached figure diverged.
func (r DriftReport) HasDrift() bool {
	return len(r.Drifts) > 0
}

// Service exposes organizer balance reads and the ledger audit.
type Service interface {
	Get(ctx context.Context, organizerID uuid.UUID) (*models.OrganizerBalance, error)
	RecalculateFromLedger(ctx context.Context, organizerID uuid.UUID, repair bool) (*DriftReport, error)
}

// Params wires the balances service dependencies.
type Params struct {
	Repo   Repository
	Ledger ledger.Repository
	Logger *logger.Logger
}

type service struct {
	repo       Repository
	ledgerRepo ledger.Repository
	logg       *logger.Logger
}

// NewService validates dependencies and returns a balances service.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("balances repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("balances logger required")
	}
	return &service{
		repo:       params.Repo,
		ledgerRepo: params.Ledger,
		logg:       params.Logger,
	}, nil
}

func (s *service) Get(ctx context.Context, organizerID uuid.UUID) (*models.OrganizerBalance, error) {
	if organizerID == uuid.Nil {
		return nil, errs.New(errs.CodeValidation, "organizer id is required")
	}
	return s.repo.Ensure(ctx, organizerID)
}

// RecalculateFromLedger derives the organizer's figures from completed ledger
// entries and compares them against the cached row. With repair set, the
// cached row is overwritten with the derived values; otherwise the report is
// observational only.
func (s *service) RecalculateFromLedger(ctx context.Context, organizerID uuid.UUID, repair bool) (*DriftReport, error) {
	if organizerID == uuid.Nil {
		return nil, errs.New(errs.CodeValidation, "organizer id is required")
	}

	totals, err := s.ledgerRepo.OrganizerTotals(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	stored, err := s.repo.Ensure(ctx, organizerID)
	if err != nil {
		return nil, err
	}

	report := &DriftReport{
		OrganizerID: organizerID,
		Totals:      *totals,
		ObservedAt:  time.Now(),
	}
	report.Drifts = appendDrift(report.Drifts, "available_balance", stored.AvailableBalance, totals.AvailableBalance)
	report.Drifts = appendDrift(report.Drifts, "pending_balance", stored.PendingBalance, totals.PendingBalance)
	report.Drifts = appendDrift(report.Drifts, "total_earned", stored.TotalEarned, totals.TotalEarned)
	report.Drifts = appendDrift(report.Drifts, "total_withdrawn", stored.TotalWithdrawn, totals.TotalWithdrawn)

	if !report.HasDrift() {
		return report, nil
	}

	for _, drift := range report.Drifts {
		driftCtx := s.logg.WithFields(ctx, map[string]any{
			"organizer_id": organizerID.String(),
			"field":        drift.Field,
			"stored":       drift.Stored.StringFixed(2),
			"derived":      drift.Derived.StringFixed(2),
		})
		s.logg.Warn(driftCtx, "organizer balance drift detected")
	}

	if repair {
		err = s.repo.Overwrite(ctx, organizerID,
			totals.AvailableBalance, totals.PendingBalance, totals.TotalEarned, totals.TotalWithdrawn)
		if err != nil {
			return nil, err
		}
		report.Repaired = true
		s.logg.Info(s.logg.WithOrganizerID(ctx, organizerID.String()), "organizer balance repaired from ledger")
	}

	return report, nil
}

func appendDrift(drifts []FieldDrift, field string, stored, derived decimal.Decimal) []FieldDrift {
	if stored.Equal(derived) {
		return drifts
	}
	return append(drifts, FieldDrift{
		Field:   field,
		Stored:  stored,
		Derived: derived,
		Delta:   stored.Sub(derived),
	})
}
