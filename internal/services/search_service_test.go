package services

import (
	"context"
	"testing"
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchReq(flyFrom, flyTo int64, dateFrom, dateTo time.Time) model.SearchRequest {
	return model.SearchRequest{
		AccountID: 1,
		FlyFrom:   flyFrom,
		FlyTo:     flyTo,
		DateFrom:  &dateFrom,
		DateTo:    &dateTo,
	}
}

func seedFetchWithRoutes(t *testing.T, env *serviceEnv, globalSubID int64, routes []*model.RoutePayload) *model.Fetch {
	t.Helper()
	ctx := context.Background()
	fetch := &model.Fetch{
		PayloadID:            "payload-search",
		GlobalSubscriptionID: globalSubID,
		FetchTime:            time.Now().UTC().Add(-6 * time.Hour),
	}
	require.NoError(t, env.fetches.Create(ctx, fetch))
	require.NoError(t, env.routes.CreateBatch(ctx, fetch.ID, routes))
	return fetch
}

func TestSearchService_Search(t *testing.T) {
	ctx := context.Background()
	dateFrom := time.Now().UTC().AddDate(0, 0, 10).Truncate(24 * time.Hour)
	dateTo := dateFrom.AddDate(0, 0, 30)
	dep := dateFrom.AddDate(0, 0, 4).Add(9 * time.Hour)

	t.Run("unseen route registers interest and reports new", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)

		result, err := env.search.Search(ctx, searchReq(1, 2, dateFrom, dateTo))
		require.NoError(t, err)
		assert.Equal(t, model.StatusRouteNew, result.Status)
		assert.Empty(t, result.Routes)

		// The route is now on file; the next search finds it known.
		result, err = env.search.Search(ctx, searchReq(1, 2, dateFrom, dateTo))
		require.NoError(t, err)
		assert.Equal(t, model.StatusNoData, result.Status)
	})

	t.Run("known route without a fetch reports no data", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)

		_, _, err := env.globalSubs.ResolveOrCreate(ctx, 1, 2)
		require.NoError(t, err)

		result, err := env.search.Search(ctx, searchReq(1, 2, dateFrom, dateTo))
		require.NoError(t, err)
		assert.Equal(t, model.StatusNoData, result.Status)
	})

	t.Run("assembles itineraries cheapest first", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)

		gs, _, err := env.globalSubs.ResolveOrCreate(ctx, 1, 2)
		require.NoError(t, err)

		seedFetchWithRoutes(t, env, gs.ID, []*model.RoutePayload{
			{
				BookingToken: "tok-direct",
				Price:        12050,
				Flights: []*model.FlightPayload{
					{AirportFromID: 1, AirportToID: 2, Airline: "FR", FlightNumber: "FR1021", Dtime: dep, Atime: dep.Add(2 * time.Hour)},
				},
			},
			{
				BookingToken: "tok-connecting",
				Price:        9900,
				Flights: []*model.FlightPayload{
					// Legs stored out of order on purpose.
					{AirportFromID: 3, AirportToID: 2, Airline: "VY", FlightNumber: "VY7820", Dtime: dep.Add(5 * time.Hour), Atime: dep.Add(7 * time.Hour)},
					{AirportFromID: 1, AirportToID: 3, Airline: "VY", FlightNumber: "VY8651", Dtime: dep, Atime: dep.Add(2 * time.Hour)},
				},
			},
		})

		result, err := env.search.Search(ctx, searchReq(1, 2, dateFrom, dateTo))
		require.NoError(t, err)
		assert.Equal(t, model.StatusOK, result.Status)
		require.Len(t, result.Routes, 2)

		assert.Equal(t, "tok-connecting", result.Routes[0].BookingToken)
		assert.Equal(t, "99", result.Routes[0].Price.String())
		require.Len(t, result.Routes[0].Flights, 2)
		assert.Equal(t, "Prague", result.Routes[0].Flights[0].AirportFrom)
		assert.True(t, result.Routes[0].Flights[0].Dtime.Before(result.Routes[0].Flights[1].Dtime))
	})

	t.Run("filters incomplete and out-of-window itineraries", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)

		gs, _, err := env.globalSubs.ResolveOrCreate(ctx, 1, 2)
		require.NoError(t, err)

		seedFetchWithRoutes(t, env, gs.ID, []*model.RoutePayload{
			{
				// Ends at the wrong airport.
				BookingToken: "tok-wrong-endpoint",
				Price:        5000,
				Flights: []*model.FlightPayload{
					{AirportFromID: 1, AirportToID: 3, Airline: "VY", FlightNumber: "VY8651", Dtime: dep, Atime: dep.Add(2 * time.Hour)},
				},
			},
			{
				// Departs before the window opens.
				BookingToken: "tok-too-early",
				Price:        6000,
				Flights: []*model.FlightPayload{
					{AirportFromID: 1, AirportToID: 2, Airline: "FR", FlightNumber: "FR1021", Dtime: dateFrom.AddDate(0, 0, -3), Atime: dateFrom.AddDate(0, 0, -3).Add(2 * time.Hour)},
				},
			},
			{
				// Takes longer than the duration cap.
				BookingToken: "tok-too-long",
				Price:        7000,
				Flights: []*model.FlightPayload{
					{AirportFromID: 1, AirportToID: 3, Airline: "VY", FlightNumber: "VY8651", Dtime: dep, Atime: dep.Add(2 * time.Hour)},
					{AirportFromID: 3, AirportToID: 2, Airline: "VY", FlightNumber: "VY7820", Dtime: dep.Add(26 * time.Hour), Atime: dep.Add(28 * time.Hour)},
				},
			},
		})

		result, err := env.search.Search(ctx, searchReq(1, 2, dateFrom, dateTo))
		require.NoError(t, err)
		assert.Equal(t, model.StatusNoData, result.Status)
		assert.Empty(t, result.Routes)
	})

	t.Run("price ceiling and pagination", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)

		gs, _, err := env.globalSubs.ResolveOrCreate(ctx, 1, 2)
		require.NoError(t, err)

		payloads := make([]*model.RoutePayload, 0, 8)
		for i := 0; i < 8; i++ {
			payloads = append(payloads, &model.RoutePayload{
				BookingToken: "tok",
				Price:        int64(10000 + i*1000),
				Flights: []*model.FlightPayload{
					{AirportFromID: 1, AirportToID: 2, Airline: "FR", FlightNumber: "FR1021", Dtime: dep.Add(time.Duration(i) * time.Hour), Atime: dep.Add(time.Duration(i+2) * time.Hour)},
				},
			})
		}
		seedFetchWithRoutes(t, env, gs.ID, payloads)

		req := searchReq(1, 2, dateFrom, dateTo)
		result, err := env.search.Search(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, model.StatusOK, result.Status)
		// Default page size.
		assert.Len(t, result.Routes, 5)

		limit := 3
		offset := 6
		req.Limit = &limit
		req.Offset = &offset
		result, err = env.search.Search(ctx, req)
		require.NoError(t, err)
		assert.Len(t, result.Routes, 2)

		offset = 100
		result, err = env.search.Search(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, model.StatusNoData, result.Status)
	})

	t.Run("parameter validation", func(t *testing.T) {
		env := newServiceEnv(t)
		seedTestAirports(t, env)

		_, err := env.search.Search(ctx, searchReq(1, 99, dateFrom, dateTo))
		assert.ErrorIs(t, err, ErrUnknownAirport)

		_, err = env.search.Search(ctx, searchReq(1, 1, dateFrom, dateTo))
		assert.ErrorIs(t, err, ErrBadParameter)

		_, err = env.search.Search(ctx, searchReq(1, 2, dateTo, dateFrom))
		assert.ErrorIs(t, err, ErrBadDateRange)

		_, err = env.search.Search(ctx, searchReq(1, 2, dateFrom, dateFrom))
		assert.ErrorIs(t, err, ErrBadDateRange)

		stale := time.Now().UTC().AddDate(0, 0, -10).Truncate(24 * time.Hour)
		_, err = env.search.Search(ctx, searchReq(1, 2, stale, dateTo))
		assert.ErrorIs(t, err, ErrEarlyDateFrom)

		req := searchReq(1, 2, dateFrom, dateTo)
		limit := 50
		req.Limit = &limit
		_, err = env.search.Search(ctx, req)
		assert.ErrorIs(t, err, ErrBadParameter)

		req = searchReq(1, 2, dateFrom, dateTo)
		duration := 72 * time.Hour
		req.MaxFlyDuration = &duration
		_, err = env.search.Search(ctx, req)
		assert.ErrorIs(t, err, ErrBadParameter)
	})
}
