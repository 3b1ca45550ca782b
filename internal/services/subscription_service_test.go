package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/farewatch/fare-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, env *serviceEnv, id int64, credits uint) {
	t.Helper()
	ctx := context.Background()
	account := &repository.AccountEntity{
		ID:      id,
		Email:   fmt.Sprintf("account-%d@example.com", id),
		APIKey:  fmt.Sprintf("api-key-%d", id),
		Credits: credits,
		Active:  true,
	}
	require.NoError(t, env.db.Write(ctx).Create(account).Error)
}

func seedTestAirports(t *testing.T, env *serviceEnv) {
	t.Helper()
	ctx := context.Background()
	airports := []*repository.AirportEntity{
		{ID: 1, Name: "Prague", IATACode: "PRG"},
		{ID: 2, Name: "London Stansted", IATACode: "STN"},
		{ID: 3, Name: "Barcelona", IATACode: "BCN"},
	}
	require.NoError(t, env.db.Write(ctx).Create(&airports).Error)
}

func subscribeReq(accountID int64) model.SubscribeRequest {
	dateFrom := time.Now().UTC().AddDate(0, 0, 30).Truncate(24 * time.Hour)
	return model.SubscribeRequest{
		AccountID: accountID,
		FlyFrom:   1,
		FlyTo:     2,
		DateFrom:  dateFrom,
		DateTo:    dateFrom.AddDate(0, 0, 14),
		Plan:      model.PlanDaily,
	}
}

func TestSubscriptionService_Subscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("first subscribe charges the initial tax", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 1000)

		sub, err := env.subscription.Subscribe(ctx, subscribeReq(1))
		require.NoError(t, err)
		assert.True(t, sub.Active)
		assert.Equal(t, model.PlanDaily, sub.Plan)

		credits, err := env.accounts.GetCredits(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint(900), credits)

		sum, err := env.transfers.SumAmounts(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(-100), sum)
	})

	t.Run("identical subscribe is idempotent", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 1000)

		first, err := env.subscription.Subscribe(ctx, subscribeReq(1))
		require.NoError(t, err)

		second, err := env.subscription.Subscribe(ctx, subscribeReq(1))
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		credits, err := env.accounts.GetCredits(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint(900), credits)
	})

	t.Run("insufficient credits leaves nothing behind", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 50)

		_, err := env.subscription.Subscribe(ctx, subscribeReq(1))
		assert.ErrorIs(t, err, ErrNotEnoughCredits)

		credits, err := env.accounts.GetCredits(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint(50), credits)

		subs, total, err := env.userSubs.ListActive(ctx, model.SubscriptionFilter{AccountID: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.Empty(t, subs)
	})

	t.Run("reactivation does not re-tax", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 1000)

		sub, err := env.subscription.Subscribe(ctx, subscribeReq(1))
		require.NoError(t, err)

		require.NoError(t, env.subscription.Unsubscribe(ctx, 1, sub.ID))

		req := subscribeReq(1)
		req.Plan = model.PlanMonthly
		again, err := env.subscription.Subscribe(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, again.ID)
		assert.True(t, again.Active)
		assert.Equal(t, model.PlanMonthly, again.Plan)

		credits, err := env.accounts.GetCredits(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint(900), credits)
	})

	t.Run("two accounts share the global subscription", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 1000)
		seedAccount(t, env, 2, 1000)

		first, err := env.subscription.Subscribe(ctx, subscribeReq(1))
		require.NoError(t, err)

		second, err := env.subscription.Subscribe(ctx, subscribeReq(2))
		require.NoError(t, err)

		assert.Equal(t, first.GlobalSubscriptionID, second.GlobalSubscriptionID)
		assert.NotEqual(t, first.ID, second.ID)

		for _, id := range []int64{1, 2} {
			credits, err := env.accounts.GetCredits(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, uint(900), credits)
		}
	})

	t.Run("plan picks the tax amount", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 2000)

		req := subscribeReq(1)
		req.Plan = model.PlanMonthly
		_, err := env.subscription.Subscribe(ctx, req)
		require.NoError(t, err)

		credits, err := env.accounts.GetCredits(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint(500), credits)
	})

	t.Run("validation", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 1000)

		req := subscribeReq(1)
		req.FlyTo = 99
		_, err := env.subscription.Subscribe(ctx, req)
		assert.ErrorIs(t, err, ErrUnknownAirport)

		req = subscribeReq(1)
		req.FlyTo = req.FlyFrom
		_, err = env.subscription.Subscribe(ctx, req)
		assert.ErrorIs(t, err, ErrBadParameter)

		req = subscribeReq(1)
		req.DateTo = req.DateFrom.AddDate(0, 0, -1)
		_, err = env.subscription.Subscribe(ctx, req)
		assert.ErrorIs(t, err, ErrBadDateRange)

		req = subscribeReq(1)
		req.DateTo = req.DateFrom
		_, err = env.subscription.Subscribe(ctx, req)
		assert.ErrorIs(t, err, ErrBadDateRange)

		req = subscribeReq(1)
		req.Plan = model.Plan("yearly")
		_, err = env.subscription.Subscribe(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidPlan)
	})

	t.Run("a date range already behind us is rejected before taxing", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 1000)

		req := subscribeReq(1)
		req.DateFrom = time.Now().UTC().AddDate(0, 0, -30).Truncate(24 * time.Hour)
		req.DateTo = req.DateFrom.AddDate(0, 0, 14)
		_, err := env.subscription.Subscribe(ctx, req)
		assert.ErrorIs(t, err, ErrEarlyDateFrom)

		credits, err := env.accounts.GetCredits(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint(1000), credits)

		subs, total, err := env.userSubs.ListActive(ctx, model.SubscriptionFilter{AccountID: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.Empty(t, subs)
	})
}

func TestSubscriptionService_Unsubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivates and reports repeat distinctly", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 1000)

		sub, err := env.subscription.Subscribe(ctx, subscribeReq(1))
		require.NoError(t, err)

		require.NoError(t, env.subscription.Unsubscribe(ctx, 1, sub.ID))

		err = env.subscription.Unsubscribe(ctx, 1, sub.ID)
		assert.ErrorIs(t, err, ErrAlreadyInactive)
	})

	t.Run("ownership is enforced", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 1000)
		seedAccount(t, env, 2, 1000)

		sub, err := env.subscription.Subscribe(ctx, subscribeReq(1))
		require.NoError(t, err)

		err = env.subscription.Unsubscribe(ctx, 2, sub.ID)
		assert.ErrorIs(t, err, ErrDenied)
	})

	t.Run("missing subscription", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)

		err := env.subscription.Unsubscribe(ctx, 1, 999)
		assert.ErrorIs(t, err, ErrSubscriptionNotFound)
	})

	t.Run("unsubscribe all counts changed rows", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 1000)

		_, err := env.subscription.Subscribe(ctx, subscribeReq(1))
		require.NoError(t, err)

		other := subscribeReq(1)
		other.FlyTo = 3
		_, err = env.subscription.Subscribe(ctx, other)
		require.NoError(t, err)

		n, err := env.subscription.UnsubscribeAll(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = env.subscription.UnsubscribeAll(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}

func TestSubscriptionService_Edit(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the subscription without a new tax", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 1000)

		sub, err := env.subscription.Subscribe(ctx, subscribeReq(1))
		require.NoError(t, err)

		edited, err := env.subscription.Edit(ctx, model.EditSubscriptionRequest{
			AccountID:      1,
			SubscriptionID: sub.ID,
			FlyFrom:        1,
			FlyTo:          3,
			DateFrom:       sub.DateFrom,
			DateTo:         sub.DateTo,
			Plan:           model.PlanWeekly,
		})
		require.NoError(t, err)
		assert.Equal(t, sub.ID, edited.ID)
		assert.NotEqual(t, sub.GlobalSubscriptionID, edited.GlobalSubscriptionID)
		assert.Equal(t, model.PlanWeekly, edited.Plan)

		credits, err := env.accounts.GetCredits(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint(900), credits)
	})

	t.Run("ownership is enforced", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 1000)
		seedAccount(t, env, 2, 1000)

		sub, err := env.subscription.Subscribe(ctx, subscribeReq(1))
		require.NoError(t, err)

		_, err = env.subscription.Edit(ctx, model.EditSubscriptionRequest{
			AccountID:      2,
			SubscriptionID: sub.ID,
			FlyFrom:        1,
			FlyTo:          3,
			DateFrom:       sub.DateFrom,
			DateTo:         sub.DateTo,
			Plan:           model.PlanDaily,
		})
		assert.ErrorIs(t, err, ErrDenied)
	})

	t.Run("colliding with an existing key is rejected", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)
		seedAccount(t, env, 1, 1000)

		first, err := env.subscription.Subscribe(ctx, subscribeReq(1))
		require.NoError(t, err)

		other := subscribeReq(1)
		other.FlyTo = 3
		second, err := env.subscription.Subscribe(ctx, other)
		require.NoError(t, err)

		_, err = env.subscription.Edit(ctx, model.EditSubscriptionRequest{
			AccountID:      1,
			SubscriptionID: second.ID,
			FlyFrom:        1,
			FlyTo:          2,
			DateFrom:       first.DateFrom,
			DateTo:         first.DateTo,
			Plan:           model.PlanDaily,
		})
		assert.ErrorIs(t, err, ErrSubscriptionExists)
	})
}

func TestSubscriptionService_List(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)
	seedTestAirports(t, env)
	seedAccount(t, env, 1, 1000)

	_, err := env.subscription.Subscribe(ctx, subscribeReq(1))
	require.NoError(t, err)

	other := subscribeReq(1)
	other.FlyTo = 3
	_, err = env.subscription.Subscribe(ctx, other)
	require.NoError(t, err)

	subs, total, err := env.subscription.List(ctx, model.SubscriptionFilter{AccountID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, subs, 2)
	assert.Equal(t, "Prague", subs[0].FlyFrom)
}

// The losing side of a concurrent subscribe sees its tax link rejected and
// must surface the winner's row, not an error.
func TestSubscriptionService_TaxRaceAdoptsWinner(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)
	seedTestAirports(t, env)
	seedAccount(t, env, 1, 1000)

	winner, err := env.subscription.Subscribe(ctx, subscribeReq(1))
	require.NoError(t, err)

	// Simulate the loser arriving after the winner committed: the link
	// insert reports the conflict and the service adopts the winner's row.
	loser := NewSubscriptionService(env.accounts, &linkConflictTransfers{TransferRepository: env.transfers}, env.globalSubs, env.userSubs, env.airports, nil)

	adopted, err := loser.Subscribe(ctx, subscribeReq(1))
	require.NoError(t, err)
	assert.Equal(t, winner.ID, adopted.ID)

	// Only one tax was ever charged.
	credits, err := env.accounts.GetCredits(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(900), credits)
}

// linkConflictTransfers forces the race window: the tax link check misses,
// then the link insert collides.
type linkConflictTransfers struct {
	TransferRepository
}

func (f *linkConflictTransfers) IsTaxed(ctx context.Context, userSubscriptionID int64) (bool, error) {
	return false, nil
}
