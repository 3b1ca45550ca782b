package repository

import (
	"context"
	"testing"
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAirports(t *testing.T, db *testDB) {
	t.Helper()
	airports := []*AirportEntity{
		{ID: 1, Name: "Prague", IATACode: "PRG"},
		{ID: 2, Name: "London Stansted", IATACode: "STN"},
		{ID: 3, Name: "Barcelona", IATACode: "BCN"},
	}
	err := db.rawDB.Create(&airports).Error
	require.NoError(t, err)
}

func TestGlobalSubscriptionRepository_ResolveOrCreate(t *testing.T) {
	tdb := setupTestDB(t)
	repo := NewGlobalSubscriptionRepository(tdb.DB)
	ctx := context.Background()
	seedAirports(t, tdb)

	t.Run("first observation creates", func(t *testing.T) {
		sub, created, err := repo.ResolveOrCreate(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotZero(t, sub.ID)
		assert.Equal(t, int64(1), sub.AirportFromID)
		assert.Equal(t, int64(2), sub.AirportToID)
	})

	t.Run("second observation resolves the same row", func(t *testing.T) {
		first, _, err := repo.ResolveOrCreate(ctx, 2, 3)
		require.NoError(t, err)

		second, created, err := repo.ResolveOrCreate(ctx, 2, 3)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("direction matters", func(t *testing.T) {
		outbound, _, err := repo.ResolveOrCreate(ctx, 1, 3)
		require.NoError(t, err)

		inbound, created, err := repo.ResolveOrCreate(ctx, 3, 1)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, outbound.ID, inbound.ID)
	})

}

// insertRoute collides on the unique route index without aborting the
// transaction around it: the savepoint confines the failed statement, so
// the loser of the insert race can re-read the winner's row.
func TestGlobalSubscriptionRepository_InsertRouteConflict(t *testing.T) {
	tdb := setupTestDB(t)
	repo := NewGlobalSubscriptionRepository(tdb.DB)
	ctx := context.Background()
	seedAirports(t, tdb)

	first := &GlobalSubscriptionEntity{AirportFromID: 1, AirportToID: 2}
	require.NoError(t, repo.insertRoute(ctx, first))

	err := tdb.DB.WithinTransaction(ctx, func(txCtx context.Context) error {
		dup := &GlobalSubscriptionEntity{AirportFromID: 1, AirportToID: 2}
		err := repo.insertRoute(txCtx, dup)
		require.Error(t, err)
		assert.True(t, isUniqueViolation(err))

		got, err := repo.GetByRoute(txCtx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestUserSubscriptionRepository_Create(t *testing.T) {
	tdb := setupTestDB(t)
	repo := NewUserSubscriptionRepository(tdb.DB)
	ctx := context.Background()
	seedAirports(t, tdb)

	gsRepo := NewGlobalSubscriptionRepository(tdb.DB)
	gs, _, err := gsRepo.ResolveOrCreate(ctx, 1, 2)
	require.NoError(t, err)

	dateFrom := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	dateTo := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	t.Run("create", func(t *testing.T) {
		sub := &model.UserSubscription{
			AccountID:            1,
			GlobalSubscriptionID: gs.ID,
			DateFrom:             dateFrom,
			DateTo:               dateTo,
			Plan:                 model.PlanDaily,
			Active:               true,
		}
		err := repo.Create(ctx, sub)
		require.NoError(t, err)
		assert.NotZero(t, sub.ID)
	})

	t.Run("identical key conflicts", func(t *testing.T) {
		sub := &model.UserSubscription{
			AccountID:            1,
			GlobalSubscriptionID: gs.ID,
			DateFrom:             dateFrom,
			DateTo:               dateTo,
			Plan:                 model.PlanWeekly,
			Active:               true,
		}
		err := repo.Create(ctx, sub)
		assert.ErrorIs(t, err, ErrSubscriptionConflict)
	})

	t.Run("different date range is a new row", func(t *testing.T) {
		sub := &model.UserSubscription{
			AccountID:            1,
			GlobalSubscriptionID: gs.ID,
			DateFrom:             dateFrom.AddDate(0, 1, 0),
			DateTo:               dateTo.AddDate(0, 1, 0),
			Plan:                 model.PlanDaily,
			Active:               true,
		}
		err := repo.Create(ctx, sub)
		assert.NoError(t, err)
	})

	t.Run("another account may hold the same key", func(t *testing.T) {
		sub := &model.UserSubscription{
			AccountID:            2,
			GlobalSubscriptionID: gs.ID,
			DateFrom:             dateFrom,
			DateTo:               dateTo,
			Plan:                 model.PlanMonthly,
			Active:               true,
		}
		err := repo.Create(ctx, sub)
		assert.NoError(t, err)
	})

	// The insert runs under a savepoint, so a conflict mid-transaction
	// leaves the transaction alive for the adopt path.
	t.Run("conflict inside a transaction does not abort it", func(t *testing.T) {
		err := tdb.DB.WithinTransaction(ctx, func(txCtx context.Context) error {
			dup := &model.UserSubscription{
				AccountID:            1,
				GlobalSubscriptionID: gs.ID,
				DateFrom:             dateFrom,
				DateTo:               dateTo,
				Plan:                 model.PlanDaily,
				Active:               true,
			}
			err := repo.Create(txCtx, dup)
			assert.ErrorIs(t, err, ErrSubscriptionConflict)

			// Subsequent statements in the same transaction still work.
			existing, err := repo.FindByKey(txCtx, 1, gs.ID, dateFrom, dateTo)
			require.NoError(t, err)
			assert.NotZero(t, existing.ID)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestUserSubscriptionRepository_Lifecycle(t *testing.T) {
	tdb := setupTestDB(t)
	repo := NewUserSubscriptionRepository(tdb.DB)
	ctx := context.Background()
	seedAirports(t, tdb)

	gsRepo := NewGlobalSubscriptionRepository(tdb.DB)
	gs, _, err := gsRepo.ResolveOrCreate(ctx, 1, 2)
	require.NoError(t, err)

	dateFrom := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	dateTo := time.Date(2026, 11, 10, 0, 0, 0, 0, time.UTC)

	sub := &model.UserSubscription{
		AccountID:            1,
		GlobalSubscriptionID: gs.ID,
		DateFrom:             dateFrom,
		DateTo:               dateTo,
		Plan:                 model.PlanDaily,
		Active:               true,
	}
	require.NoError(t, repo.Create(ctx, sub))

	t.Run("find by key", func(t *testing.T) {
		got, err := repo.FindByKey(ctx, 1, gs.ID, dateFrom, dateTo)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
		assert.True(t, got.Active)
	})

	t.Run("deactivate", func(t *testing.T) {
		changed, err := repo.Deactivate(ctx, sub.ID)
		require.NoError(t, err)
		assert.True(t, changed)

		got, err := repo.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
	})

	t.Run("deactivate again reports no change", func(t *testing.T) {
		changed, err := repo.Deactivate(ctx, sub.ID)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("deactivate missing row", func(t *testing.T) {
		_, err := repo.Deactivate(ctx, 999)
		assert.ErrorIs(t, err, ErrSubscriptionNotFound)
	})

	t.Run("reactivate with new plan", func(t *testing.T) {
		err := repo.Reactivate(ctx, sub.ID, model.PlanMonthly)
		require.NoError(t, err)

		got, err := repo.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.True(t, got.Active)
		assert.Equal(t, model.PlanMonthly, got.Plan)
	})

	t.Run("deactivate all", func(t *testing.T) {
		second := &model.UserSubscription{
			AccountID:            1,
			GlobalSubscriptionID: gs.ID,
			DateFrom:             dateFrom.AddDate(0, 1, 0),
			DateTo:               dateTo.AddDate(0, 1, 0),
			Plan:                 model.PlanWeekly,
			Active:               true,
		}
		require.NoError(t, repo.Create(ctx, second))

		n, err := repo.DeactivateAll(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = repo.DeactivateAll(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}

func TestUserSubscriptionRepository_ListActive(t *testing.T) {
	tdb := setupTestDB(t)
	repo := NewUserSubscriptionRepository(tdb.DB)
	ctx := context.Background()
	seedAirports(t, tdb)

	gsRepo := NewGlobalSubscriptionRepository(tdb.DB)
	prgStn, _, err := gsRepo.ResolveOrCreate(ctx, 1, 2)
	require.NoError(t, err)
	prgBcn, _, err := gsRepo.ResolveOrCreate(ctx, 1, 3)
	require.NoError(t, err)

	dateFrom := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	dateTo := time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)

	active := &model.UserSubscription{
		AccountID:            1,
		GlobalSubscriptionID: prgStn.ID,
		DateFrom:             dateFrom,
		DateTo:               dateTo,
		Plan:                 model.PlanDaily,
		Active:               true,
	}
	require.NoError(t, repo.Create(ctx, active))

	other := &model.UserSubscription{
		AccountID:            1,
		GlobalSubscriptionID: prgBcn.ID,
		DateFrom:             dateFrom,
		DateTo:               dateTo,
		Plan:                 model.PlanWeekly,
		Active:               true,
	}
	require.NoError(t, repo.Create(ctx, other))

	inactive := &model.UserSubscription{
		AccountID:            1,
		GlobalSubscriptionID: prgStn.ID,
		DateFrom:             dateFrom.AddDate(0, 1, 0),
		DateTo:               dateTo.AddDate(0, 1, 0),
		Plan:                 model.PlanDaily,
		Active:               true,
	}
	require.NoError(t, repo.Create(ctx, inactive))
	_, err = repo.Deactivate(ctx, inactive.ID)
	require.NoError(t, err)

	t.Run("lists only active rows", func(t *testing.T) {
		got, total, err := repo.ListActive(ctx, model.SubscriptionFilter{AccountID: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, got, 2)
		for _, s := range got {
			assert.Equal(t, "Prague", s.FlyFrom)
		}
	})

	t.Run("filter by destination name", func(t *testing.T) {
		to := "Barcelona"
		got, total, err := repo.ListActive(ctx, model.SubscriptionFilter{AccountID: 1, FlyTo: &to})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, got, 1)
		assert.Equal(t, "Barcelona", got[0].FlyTo)
	})

	t.Run("filter by IATA code", func(t *testing.T) {
		to := "STN"
		got, _, err := repo.ListActive(ctx, model.SubscriptionFilter{AccountID: 1, FlyTo: &to})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "London Stansted", got[0].FlyTo)
	})

	t.Run("other account sees nothing", func(t *testing.T) {
		got, total, err := repo.ListActive(ctx, model.SubscriptionFilter{AccountID: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.Empty(t, got)
	})
}
