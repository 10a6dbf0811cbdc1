package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apledger/internal/core"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "apledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	load, err := repo.LoadLedger(ctx)
	require.NoError(t, err)
	assert.Empty(t, load.Records)

	usd, err := core.NewMoney(decimal.RequireFromString("250.75"), "USD", decimal.RequireFromString("1350"))
	require.NoError(t, err)
	records := []core.Obligation{
		{ID: "z", DueDate: core.NewDate(2024, 7, 1), Vendor: "Zeta", Money: core.BaseMoney(700), Status: core.StatusPaid},
		{ID: "a", DueDate: core.NewDate(2024, 6, 1), Vendor: "AWS", Money: usd, Status: core.StatusPending, Recurring: true},
	}
	require.NoError(t, repo.SaveLedger(ctx, records))

	load, err = repo.LoadLedger(ctx)
	require.NoError(t, err)
	assert.Zero(t, load.Dropped)
	require.Len(t, load.Records, 2)
	assert.Equal(t, []string{"z", "a"}, []string{load.Records[0].ID, load.Records[1].ID}, "save order is kept")
	assert.Equal(t, core.StatusPaid, load.Records[0].Status)
	assert.Equal(t, int64(338513), load.Records[1].Money.Base())
	assert.True(t, load.Records[1].Recurring)
	assert.True(t, load.Records[1].Money.Rate.Equal(decimal.NewFromInt(1350)))

	// save replaces, it does not append
	require.NoError(t, repo.SaveLedger(ctx, records[:1]))
	load, err = repo.LoadLedger(ctx)
	require.NoError(t, err)
	assert.Len(t, load.Records, 1)
}

func TestSQLiteSaveIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	first := []core.Obligation{{ID: "keep", DueDate: core.NewDate(2024, 6, 1), Vendor: "K", Money: core.BaseMoney(1), Status: core.StatusPending}}
	require.NoError(t, repo.SaveLedger(ctx, first))

	dup := core.Obligation{ID: "dup", DueDate: core.NewDate(2024, 6, 1), Vendor: "D", Money: core.BaseMoney(1), Status: core.StatusPending}
	err := repo.SaveLedger(ctx, []core.Obligation{dup, dup})
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)

	load, err := repo.LoadLedger(ctx)
	require.NoError(t, err)
	require.Len(t, load.Records, 1)
	assert.Equal(t, "keep", load.Records[0].ID)
}

func TestSQLiteNotes(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	notes := []core.Note{{ID: "2", Content: "second"}, {ID: "1", Content: "first"}}
	require.NoError(t, repo.SaveNotes(ctx, notes))

	load, err := repo.LoadNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, notes, load.Notes)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}
