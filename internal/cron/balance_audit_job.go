package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/eventra-africa/eventra-backend/internal/balances"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
	"github.com/eventra-africa/eventra-backend/pkg/outbox"
	"github.com/eventra-africa/eventra-backend/pkg/outbox/payloads"
)

const auditPageSize = 100

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// BalanceAuditJobParams configure the ledger-vs-balance audit sweep.
type BalanceAuditJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Repo     balances.Repository
	Balances balances.Service
	Outbox   outboxEmitter
	Repair   bool
	PageSize int
}

// NewBalanceAuditJob rederives every organizer balance from the ledger and
// reports drift. Repair mode also overwrites the cached figures.
func NewBalanceAuditJob(params BalanceAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("balances repository required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balances service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = auditPageSize
	}
	return &balanceAuditJob{
		logg:     params.Logger,
		db:       params.DB,
		repo:     params.Repo,
		balances: params.Balances,
		outbox:   params.Outbox,
		repair:   params.Repair,
		pageSize: pageSize,
		now:      time.Now,
	}, nil
}

type balanceAuditJob struct {
	logg     *logger.Logger
	db       txRunner
	repo     balances.Repository
	balances balances.Service
	outbox   outboxEmitter
	repair   bool
	pageSize int
	now      func() time.Time
}

func (j *balanceAuditJob) Name() string { return "balance-audit" }

func (j *balanceAuditJob) Run(ctx context.Context) error {
	var audited int
	var drifted int
	var failures error
	offset := 0
	for {
		ids, err := j.repo.ListOrganizerIDs(ctx, j.pageSize, offset)
		if err != nil {
			return fmt.Errorf("balance audit: list organizers: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		for _, organizerID := range ids {
			report, err := j.balances.RecalculateFromLedger(ctx, organizerID, j.repair)
			if err != nil {
				failures = multierr.Append(failures, fmt.Errorf("recalculate %s: %w", organizerID, err))
				logCtx := j.logg.WithOrganizerID(ctx, organizerID.String())
				j.logg.Error(logCtx, "balance audit recalculation failed", err)
				continue
			}
			audited++
			if !report.HasDrift() {
				continue
			}
			drifted++
			if err := j.emitDrift(ctx, report); err != nil {
				failures = multierr.Append(failures, fmt.Errorf("emit drift %s: %w", organizerID, err))
				logCtx := j.logg.WithOrganizerID(ctx, organizerID.String())
				j.logg.Error(logCtx, "balance drift event emit failed", err)
			}
		}
		if len(ids) < j.pageSize {
			break
		}
		offset += j.pageSize
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"audited": audited,
		"drifted": drifted,
		"repair":  j.repair,
	})
	j.logg.Info(logCtx, "balance audit sweep complete")
	return failures
}

func (j *balanceAuditJob) emitDrift(ctx context.Context, report *balances.DriftReport) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		for _, drift := range report.Drifts {
			event := outbox.DomainEvent{
				EventType:     enums.EventBalanceDriftDetected,
				AggregateType: enums.AggregateOrganizerBalance,
				AggregateID:   report.OrganizerID,
				Data: payloads.BalanceDriftDetectedEvent{
					OrganizerID:   report.OrganizerID,
					Field:         drift.Field,
					StoredAmount:  drift.Stored,
					DerivedAmount: drift.Derived,
					Delta:         drift.Delta,
					Repaired:      report.Repaired,
					ObservedAt:    report.ObservedAt,
				},
				OccurredAt: j.now().UTC(),
			}
			if err := j.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
}
