package repository

import (
	"context"
	"testing"
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferRepository_Link(t *testing.T) {
	tdb := setupTestDB(t)
	repo := NewTransferRepository(tdb.DB)
	ctx := context.Background()

	tax := &model.AccountTransfer{AccountID: 1, Amount: -100}
	require.NoError(t, repo.Create(ctx, tax))

	t.Run("first link succeeds", func(t *testing.T) {
		err := repo.Link(ctx, 10, tax.ID)
		assert.NoError(t, err)

		taxed, err := repo.IsTaxed(ctx, 10)
		require.NoError(t, err)
		assert.True(t, taxed)
	})

	t.Run("second link reports already taxed", func(t *testing.T) {
		other := &model.AccountTransfer{AccountID: 1, Amount: -100}
		require.NoError(t, repo.Create(ctx, other))

		err := repo.Link(ctx, 10, other.ID)
		assert.ErrorIs(t, err, ErrAlreadyTaxed)
	})

	t.Run("untaxed subscription", func(t *testing.T) {
		taxed, err := repo.IsTaxed(ctx, 11)
		require.NoError(t, err)
		assert.False(t, taxed)
	})
}

func TestTransferRepository_History(t *testing.T) {
	tdb := setupTestDB(t)
	repo := NewTransferRepository(tdb.DB)
	ctx := context.Background()
	seedAirports(t, tdb)

	gsRepo := NewGlobalSubscriptionRepository(tdb.DB)
	subRepo := NewUserSubscriptionRepository(tdb.DB)

	gs, _, err := gsRepo.ResolveOrCreate(ctx, 1, 2)
	require.NoError(t, err)

	sub := &model.UserSubscription{
		AccountID:            1,
		GlobalSubscriptionID: gs.ID,
		DateFrom:             time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		DateTo:               time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		Plan:                 model.PlanDaily,
		Active:               true,
	}
	require.NoError(t, subRepo.Create(ctx, sub))

	employee := int64(7)
	deposit := &model.AccountTransfer{AccountID: 1, Amount: 500, EmployeeID: &employee}
	require.NoError(t, repo.Create(ctx, deposit))

	tax := &model.AccountTransfer{AccountID: 1, Amount: -100}
	require.NoError(t, repo.Create(ctx, tax))
	require.NoError(t, repo.Link(ctx, sub.ID, tax.ID))

	foreign := &model.AccountTransfer{AccountID: 2, Amount: 300}
	require.NoError(t, repo.Create(ctx, foreign))

	t.Run("lists only the account's transfers", func(t *testing.T) {
		entries, total, err := repo.History(ctx, model.TransferFilter{AccountID: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, entries, 2)
	})

	t.Run("tax entry carries subscription context", func(t *testing.T) {
		kind := model.TransferKindTax
		entries, _, err := repo.History(ctx, model.TransferFilter{AccountID: 1, Kind: &kind})
		require.NoError(t, err)
		require.Len(t, entries, 1)

		entry := entries[0]
		assert.Equal(t, int64(-100), entry.Amount)
		assert.Equal(t, "tax", entry.Reason)
		require.NotNil(t, entry.SubscriptionID)
		assert.Equal(t, sub.ID, *entry.SubscriptionID)
		require.NotNil(t, entry.FlyFrom)
		assert.Equal(t, int64(1), *entry.FlyFrom)
		require.NotNil(t, entry.FlyTo)
		assert.Equal(t, int64(2), *entry.FlyTo)
	})

	t.Run("deposit entry has no subscription context", func(t *testing.T) {
		kind := model.TransferKindDeposit
		entries, _, err := repo.History(ctx, model.TransferFilter{AccountID: 1, Kind: &kind})
		require.NoError(t, err)
		require.Len(t, entries, 1)

		entry := entries[0]
		assert.Equal(t, int64(500), entry.Amount)
		assert.Equal(t, "deposit", entry.Reason)
		assert.Nil(t, entry.SubscriptionID)
	})
}

func TestTransferRepository_SumAmounts(t *testing.T) {
	tdb := setupTestDB(t)
	repo := NewTransferRepository(tdb.DB)
	ctx := context.Background()

	t.Run("empty ledger sums to zero", func(t *testing.T) {
		sum, err := repo.SumAmounts(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), sum)
	})

	t.Run("signed sum", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, &model.AccountTransfer{AccountID: 1, Amount: 500}))
		require.NoError(t, repo.Create(ctx, &model.AccountTransfer{AccountID: 1, Amount: -100}))
		require.NoError(t, repo.Create(ctx, &model.AccountTransfer{AccountID: 1, Amount: -150}))

		sum, err := repo.SumAmounts(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(250), sum)
	})
}
