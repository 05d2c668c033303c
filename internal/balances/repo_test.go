package balances

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
)

func setupBalancesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	// sqlite allows one writer at a time; a single pooled connection keeps
	// concurrent test writes serialized instead of erroring with SQLITE_BUSY.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	schema := `
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
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM organizer_balances").Error)

	return db
}

func TestEnsureCreatesZeroedRow(t *testing.T) {
	db := setupBalancesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	organizerID := uuid.New()

	balance, err := repo.Ensure(ctx, organizerID)
	require.NoError(t, err)
	assert.True(t, balance.AvailableBalance.IsZero())
	assert.True(t, balance.PendingBalance.IsZero())

	again, err := repo.Ensure(ctx, organizerID)
	require.NoError(t, err)
	assert.Equal(t, balance.ID, again.ID)
}

func TestAddPendingAccumulates(t *testing.T) {
	db := setupBalancesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	organizerID := uuid.New()

	require.NoError(t, repo.AddPending(ctx, organizerID, decimal.RequireFromString("85.00")))
	require.NoError(t, repo.AddPending(ctx, organizerID, decimal.RequireFromString("4.25")))

	balance, err := repo.GetByOrganizer(ctx, organizerID)
	require.NoError(t, err)
	assert.True(t, balance.PendingBalance.Equal(decimal.RequireFromString("89.25")), "pending %s", balance.PendingBalance)
	assert.True(t, balance.TotalEarned.Equal(decimal.RequireFromString("89.25")), "earned %s", balance.TotalEarned)
}

func TestReleaseClampsAtZeroPending(t *testing.T) {
	db := setupBalancesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	organizerID := uuid.New()

	require.NoError(t, repo.AddPending(ctx, organizerID, decimal.RequireFromString("50.00")))

	moved, err := repo.Release(ctx, organizerID, decimal.RequireFromString("30.00"))
	require.NoError(t, err)
	assert.True(t, moved.Equal(decimal.RequireFromString("30.00")))

	// Asking for more than remains moves only the remainder.
	moved, err = repo.Release(ctx, organizerID, decimal.RequireFromString("99.00"))
	require.NoError(t, err)
	assert.True(t, moved.Equal(decimal.RequireFromString("20.00")), "moved %s", moved)

	moved, err = repo.Release(ctx, organizerID, decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	assert.True(t, moved.IsZero())

	balance, err := repo.GetByOrganizer(ctx, organizerID)
	require.NoError(t, err)
	assert.True(t, balance.AvailableBalance.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, balance.PendingBalance.IsZero())
}

func TestReleaseClampSurvivesConcurrentCredit(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	// Two pooled connections: the injected credit below runs while the
	// release call still holds the first one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(2)

	require.NoError(t, db.Exec(`
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
);`).Error)
	require.NoError(t, db.Exec("DELETE FROM organizer_balances").Error)

	repo := NewRepository(db)
	ctx := context.Background()
	organizerID := uuid.New()

	require.NoError(t, repo.AddPending(ctx, organizerID, decimal.RequireFromString("30.00")))

	// Sneak a credit in between the clamp path's snapshot read and its
	// guarded write. The equality guard must reject the stale write and the
	// retry must see the grown bucket instead of zeroing it.
	injected := false
	credit := func(tx *gorm.DB) {
		if injected || tx.Statement == nil || tx.Statement.Table != "organizer_balances" {
			return
		}
		injected = true
		require.NoError(t, db.Exec(
			"UPDATE organizer_balances SET pending_balance = pending_balance + 85, total_earned = total_earned + 85 WHERE organizer_id = ?",
			organizerID,
		).Error)
	}
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("inject_concurrent_credit", credit))
	defer func() {
		require.NoError(t, db.Callback().Query().Remove("inject_concurrent_credit"))
	}()

	moved, err := repo.Release(ctx, organizerID, decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	require.True(t, injected, "credit was never injected")
	assert.True(t, moved.Equal(decimal.RequireFromString("50.00")), "moved %s", moved)

	balance, err := repo.GetByOrganizer(ctx, organizerID)
	require.NoError(t, err)
	assert.True(t, balance.AvailableBalance.Equal(decimal.RequireFromString("50.00")), "available %s", balance.AvailableBalance)
	assert.True(t, balance.PendingBalance.Equal(decimal.RequireFromString("65.00")), "pending %s", balance.PendingBalance)
}

func TestWithdrawRequiresCoveredBalance(t *testing.T) {
	db := setupBalancesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	organizerID := uuid.New()

	require.NoError(t, repo.AddPending(ctx, organizerID, decimal.RequireFromString("100.00")))
	_, err := repo.Release(ctx, organizerID, decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	ok, err := repo.Withdraw(ctx, organizerID, decimal.RequireFromString("150.00"), time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Withdraw(ctx, organizerID, decimal.RequireFromString("60.00"), time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	balance, err := repo.GetByOrganizer(ctx, organizerID)
	require.NoError(t, err)
	assert.True(t, balance.AvailableBalance.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, balance.TotalWithdrawn.Equal(decimal.RequireFromString("60.00")))
	assert.NotNil(t, balance.LastPayoutAt)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	db := setupBalancesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	organizerID := uuid.New()

	require.NoError(t, repo.AddPending(ctx, organizerID, decimal.RequireFromString("100.00")))
	_, err := repo.Release(ctx, organizerID, decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	succeeded := make(chan bool, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Withdraw(ctx, organizerID, decimal.RequireFromString("60.00"), time.Now())
			if err == nil && ok {
				succeeded <- true
			}
		}()
	}
	wg.Wait()
	close(succeeded)

	wins := 0
	for range succeeded {
		wins++
	}
	assert.Equal(t, 1, wins, "exactly one withdrawal may win")

	balance, err := repo.GetByOrganizer(ctx, organizerID)
	require.NoError(t, err)
	assert.True(t, balance.AvailableBalance.Equal(decimal.RequireFromString("40.00")), "available %s", balance.AvailableBalance)
}
