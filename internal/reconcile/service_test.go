package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/eventra-africa/eventra-backend/internal/balances"
	"github.com/eventra-africa/eventra-backend/internal/ledger"
	"github.com/eventra-africa/eventra-backend/internal/orders"
	"github.com/eventra-africa/eventra-backend/internal/votes"
	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
	errs "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
	"github.com/eventra-africa/eventra-backend/pkg/outbox"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupReconcileTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	schema := `
CREATE TABLE IF NOT EXISTS ticket_types (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL,
  quantity_total INTEGER NOT NULL,
  quantity_sold INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  reference TEXT NOT NULL,
  event_id TEXT NOT NULL,
  organizer_id TEXT NOT NULL,
  buyer_email TEXT,
  buyer_phone TEXT,
  gross_amount NUMERIC NOT NULL,
  admin_amount NUMERIC NOT NULL DEFAULT 0,
  organizer_amount NUMERIC NOT NULL DEFAULT 0,
  payment_fee NUMERIC NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_reference ON orders (reference);
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  ticket_type_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  subtotal NUMERIC NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS vote_purchases (
  id TEXT PRIMARY KEY,
  reference TEXT NOT NULL,
  award_id TEXT NOT NULL,
  nominee_id TEXT NOT NULL,
  organizer_id TEXT NOT NULL,
  voter_phone TEXT,
  votes INTEGER NOT NULL,
  gross_amount NUMERIC NOT NULL,
  admin_amount NUMERIC NOT NULL DEFAULT 0,
  organizer_amount NUMERIC NOT NULL DEFAULT 0,
  payment_fee NUMERIC NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_vote_purchases_reference ON vote_purchases (reference);
CREATE TABLE IF NOT EXISTS award_nominees (
  id TEXT PRIMARY KEY,
  award_id TEXT NOT NULL,
  category TEXT,
  name TEXT NOT NULL,
  code TEXT NOT NULL,
  vote_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  reference TEXT NOT NULL,
  type TEXT NOT NULL,
  organizer_id TEXT NOT NULL,
  event_id TEXT,
  award_id TEXT,
  order_id TEXT,
  order_item_id TEXT,
  vote_id TEXT,
  payout_id TEXT,
  gross_amount NUMERIC NOT NULL,
  admin_amount NUMERIC NOT NULL,
  organizer_amount NUMERIC NOT NULL,
  payment_fee NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'completed',
  released INTEGER NOT NULL DEFAULT 0,
  released_at DATETIME,
  created_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_entries_reference ON ledger_entries (reference);
CREATE TABLE IF NOT EXISTS organizer_balances (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  organizer_id TEXT NOT NULL UNIQUE,
  available_balance NUMERIC NOT NULL DEFAULT 0,
  pending_balance NUMERIC NOT NULL DEFAULT 0,
  total_earned NUMERIC NOT NULL DEFAULT 0,
  total_withdrawn NUMERIC NOT NULL DEFAULT 0,
  last_payout_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, db.Exec(schema).Error)
	for _, table := range []string{
		"outbox_events", "organizer_balances", "ledger_entries",
		"award_nominees", "vote_purchases", "order_items", "orders", "ticket_types",
	} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}

	return db
}

func newReconciler(t *testing.T, db *gorm.DB, maxAge time.Duration) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "reconcile-test"})
	svc, err := NewService(Params{
		Tx:            testTxRunner{db: db},
		Orders:        orders.NewRepository(db),
		Votes:         votes.NewRepository(db),
		Ledger:        ledger.NewRepository(db),
		Balances:      balances.NewRepository(db),
		Outbox:        outbox.NewService(outbox.NewRepository(db), logg),
		Logger:        logg,
		PendingMaxAge: maxAge,
	})
	require.NoError(t, err)
	return svc
}

func seedOrder(t *testing.T, db *gorm.DB, reference string) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:              uuid.New(),
		Reference:       reference,
		EventID:         uuid.New(),
		OrganizerID:     uuid.New(),
		GrossAmount:     decimal.RequireFromString("100.00"),
		AdminAmount:     decimal.RequireFromString("13.05"),
		OrganizerAmount: decimal.RequireFromString("85.00"),
		PaymentFee:      decimal.RequireFromString("1.95"),
		Status:          enums.PaymentStatusPending,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func seedVote(t *testing.T, db *gorm.DB, reference string) (*models.VotePurchase, *models.AwardNominee) {
	t.Helper()
	nominee := &models.AwardNominee{
		ID:      uuid.New(),
		AwardID: uuid.New(),
		Name:    "Best New Artist - B",
		Code:    "BNA02",
	}
	require.NoError(t, db.Create(nominee).Error)

	vote := &models.VotePurchase{
		ID:              uuid.New(),
		Reference:       reference,
		AwardID:         nominee.AwardID,
		NomineeID:       nominee.ID,
		OrganizerID:     uuid.New(),
		Votes:           25,
		GrossAmount:     decimal.RequireFromString("25.00"),
		AdminAmount:     decimal.RequireFromString("7.01"),
		OrganizerAmount: decimal.RequireFromString("17.50"),
		PaymentFee:      decimal.RequireFromString("0.49"),
		Status:          enums.PaymentStatusPending,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, db.Create(vote).Error)
	return vote, nominee
}

func TestReconcilePaidOrderAppliesOnce(t *testing.T) {
	db := setupReconcileTestDB(t)
	svc := newReconciler(t, db, time.Hour)
	ctx := context.Background()
	order := seedOrder(t, db, "EVE-TKT-PAID-A")

	outcome, err := svc.Reconcile(ctx, Input{Reference: order.Reference, Status: enums.ProviderStatusPaid, Source: "webhook"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	var stored models.Order
	require.NoError(t, db.First(&stored, "reference = ?", order.Reference).Error)
	assert.Equal(t, enums.PaymentStatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)

	var entry models.LedgerEntry
	require.NoError(t, db.First(&entry, "reference = ?", order.Reference).Error)
	assert.True(t, entry.OrganizerAmount.Equal(order.OrganizerAmount))
	assert.False(t, entry.Released)

	var balance models.OrganizerBalance
	require.NoError(t, db.First(&balance, "organizer_id = ?", order.OrganizerID).Error)
	assert.True(t, balance.PendingBalance.Equal(order.OrganizerAmount))
	assert.True(t, balance.AvailableBalance.IsZero())

	var outboxCount int64
	require.NoError(t, db.Table("outbox_events").Where("event_type = ?", "payment_completed").Count(&outboxCount).Error)
	assert.Equal(t, int64(1), outboxCount)
}

func TestReconcileReplayIsNoOp(t *testing.T) {
	db := setupReconcileTestDB(t)
	svc := newReconciler(t, db, time.Hour)
	ctx := context.Background()
	order := seedOrder(t, db, "EVE-TKT-REPLAY")
	input := Input{Reference: order.Reference, Status: enums.ProviderStatusPaid, Source: "webhook"}

	outcome, err := svc.Reconcile(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	for i := 0; i < 3; i++ {
		outcome, err = svc.Reconcile(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyProcessed, outcome)
	}

	var entryCount int64
	require.NoError(t, db.Table("ledger_entries").Where("reference = ?", order.Reference).Count(&entryCount).Error)
	assert.Equal(t, int64(1), entryCount)

	var balance models.OrganizerBalance
	require.NoError(t, db.First(&balance, "organizer_id = ?", order.OrganizerID).Error)
	assert.True(t, balance.PendingBalance.Equal(order.OrganizerAmount), "no double credit, got %s", balance.PendingBalance)
}

func TestReconcileConcurrentAttemptsCreditOnce(t *testing.T) {
	db := setupReconcileTestDB(t)
	svc := newReconciler(t, db, time.Hour)
	order := seedOrder(t, db, "EVE-TKT-RACE")
	input := Input{Reference: order.Reference, Status: enums.ProviderStatusPaid, Source: "webhook"}

	var wg sync.WaitGroup
	outcomes := make(chan Outcome, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := svc.Reconcile(context.Background(), input)
			if err == nil {
				outcomes <- outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	applied := 0
	for outcome := range outcomes {
		if outcome == OutcomeApplied {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "exactly one attempt may apply")

	var balance models.OrganizerBalance
	require.NoError(t, db.First(&balance, "organizer_id = ?", order.OrganizerID).Error)
	assert.True(t, balance.PendingBalance.Equal(order.OrganizerAmount))
}

func TestReconcileFailedOrderRestoresInventory(t *testing.T) {
	db := setupReconcileTestDB(t)
	svc := newReconciler(t, db, time.Hour)
	ctx := context.Background()
	order := seedOrder(t, db, "EVE-TKT-FAIL")

	ticketType := &models.TicketType{
		ID:            uuid.New(),
		EventID:       order.EventID,
		Name:          "Regular",
		Price:         decimal.RequireFromString("50.00"),
		QuantityTotal: 100,
		QuantitySold:  2,
	}
	require.NoError(t, db.Create(ticketType).Error)
	require.NoError(t, db.Create(&models.OrderItem{
		ID:           uuid.New(),
		OrderID:      order.ID,
		TicketTypeID: ticketType.ID,
		Quantity:     2,
		UnitPrice:    ticketType.Price,
		Subtotal:     decimal.RequireFromString("100.00"),
	}).Error)

	outcome, err := svc.Reconcile(ctx, Input{Reference: order.Reference, Status: enums.ProviderStatusFailed, Reason: "declined", Source: "webhook"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailedMarked, outcome)

	var stored models.Order
	require.NoError(t, db.First(&stored, "reference = ?", order.Reference).Error)
	assert.Equal(t, enums.PaymentStatusFailed, stored.Status)

	var tier models.TicketType
	require.NoError(t, db.First(&tier, "id = ?", ticketType.ID).Error)
	assert.Equal(t, 0, tier.QuantitySold)

	var entryCount int64
	require.NoError(t, db.Table("ledger_entries").Count(&entryCount).Error)
	assert.Equal(t, int64(0), entryCount, "failed payments never touch the ledger")

	var outboxCount int64
	require.NoError(t, db.Table("outbox_events").Where("event_type = ?", "payment_failed").Count(&outboxCount).Error)
	assert.Equal(t, int64(1), outboxCount)
}

func TestReconcilePaidVoteMovesTally(t *testing.T) {
	db := setupReconcileTestDB(t)
	svc := newReconciler(t, db, time.Hour)
	ctx := context.Background()
	vote, nominee := seedVote(t, db, "EVE-VOTE-PAID-A")

	outcome, err := svc.Reconcile(ctx, Input{Reference: vote.Reference, Status: enums.ProviderStatusPaid, Source: "poll"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	var storedNominee models.AwardNominee
	require.NoError(t, db.First(&storedNominee, "id = ?", nominee.ID).Error)
	assert.Equal(t, 25, storedNominee.VoteCount)

	// Replay must not move the tally again.
	outcome, err = svc.Reconcile(ctx, Input{Reference: vote.Reference, Status: enums.ProviderStatusPaid, Source: "poll"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, outcome)

	require.NoError(t, db.First(&storedNominee, "id = ?", nominee.ID).Error)
	assert.Equal(t, 25, storedNominee.VoteCount)
}

func TestReconcilePendingIsNoOpUntilAgedOut(t *testing.T) {
	db := setupReconcileTestDB(t)
	svc := newReconciler(t, db, time.Hour)
	ctx := context.Background()

	fresh := seedOrder(t, db, "EVE-TKT-FRESH-P")
	outcome, err := svc.Reconcile(ctx, Input{Reference: fresh.Reference, Status: enums.ProviderStatusPending, Source: "poll"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStillPending, outcome)

	var stored models.Order
	require.NoError(t, db.First(&stored, "reference = ?", fresh.Reference).Error)
	assert.Equal(t, enums.PaymentStatusPending, stored.Status)

	stale := seedOrder(t, db, "EVE-TKT-STALE-P")
	require.NoError(t, db.Model(&models.Order{}).
		Where("reference = ?", stale.Reference).
		Update("created_at", time.Now().Add(-2*time.Hour)).Error)

	outcome, err = svc.Reconcile(ctx, Input{Reference: stale.Reference, Status: enums.ProviderStatusPending, Source: "poll"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailedMarked, outcome)
}

func TestReconcileUnknownReference(t *testing.T) {
	db := setupReconcileTestDB(t)
	svc := newReconciler(t, db, time.Hour)

	_, err := svc.Reconcile(context.Background(), Input{Reference: "EVE-TKT-GHOST", Status: enums.ProviderStatusPaid, Source: "webhook"})
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeNotFound))
}
