package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventra-africa/eventra-backend/internal/balances"
	"github.com/eventra-africa/eventra-backend/internal/ledger"
	"github.com/eventra-africa/eventra-backend/internal/settings"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

const releaseBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BalanceReleaseJobParams configure the hold-period release sweep.
type BalanceReleaseJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Ledger    ledger.Repository
	Balances  balances.Repository
	Settings  settings.Service
	BatchSize int
}

// NewBalanceReleaseJob moves held sale earnings into the available bucket
// once they are older than the configured payout hold period.
func NewBalanceReleaseJob(params BalanceReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balances repository required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = releaseBatchSize
	}
	return &balanceReleaseJob{
		logg:     params.Logger,
		db:       params.DB,
		ledger:   params.Ledger,
		balances: params.Balances,
		settings: params.Settings,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type balanceReleaseJob struct {
	logg     *logger.Logger
	db       txRunner
	ledger   ledger.Repository
	balances balances.Repository
	settings settings.Service
	batch    int
	now      func() time.Time
}

func (j *balanceReleaseJob) Name() string { return "balance-release" }

func (j *balanceReleaseJob) Run(ctx context.Context) error {
	holdDays, err := j.settings.PayoutHoldDays(ctx)
	if err != nil {
		return fmt.Errorf("load payout hold days: %w", err)
	}
	cutoff := j.now().UTC().Add(-time.Duration(holdDays) * 24 * time.Hour)

	var entriesReleased int
	var organizersTouched int
	for {
		processed, organizers, err := j.releaseBatch(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("balance release: %w", err)
		}
		entriesReleased += processed
		organizersTouched += organizers
		if processed < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":           cutoff,
		"hold_days":        holdDays,
		"entries_released": entriesReleased,
		"organizers":       organizersTouched,
	})
	j.logg.Info(logCtx, "balance release sweep complete")
	return nil
}

// releaseBatch marks one page of matured entries as released and credits the
// organizer buckets in the same transaction, so a crash mid-sweep never
// double-releases.
func (j *balanceReleaseJob) releaseBatch(ctx context.Context, cutoff time.Time) (int, int, error) {
	var processed int
	var organizers int
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		entries, err := j.ledger.WithTx(tx).ListReleasable(ctx, cutoff, j.batch)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(entries))
		byOrganizer := make(map[uuid.UUID]decimal.Decimal)
		for _, entry := range entries {
			ids = append(ids, entry.ID)
			byOrganizer[entry.OrganizerID] = byOrganizer[entry.OrganizerID].Add(entry.OrganizerAmount)
		}

		released := j.now().UTC()
		if _, err := j.ledger.WithTx(tx).MarkReleased(ctx, ids, released); err != nil {
			return err
		}
		for organizerID, amount := range byOrganizer {
			if _, err := j.balances.WithTx(tx).Release(ctx, organizerID, amount); err != nil {
				return err
			}
		}
		processed = len(entries)
		organizers = len(byOrganizer)
		return nil
	})
	return processed, organizers, err
}
