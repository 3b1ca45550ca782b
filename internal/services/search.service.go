package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/farewatch/fare-gateway/internal/queue"
	"github.com/farewatch/fare-gateway/internal/repository"
	"github.com/farewatch/fare-gateway/pkg/logger"
	"github.com/farewatch/fare-gateway/pkg/prom"
	"github.com/shopspring/decimal"
)

const (
	defaultPriceCeiling = 999900  // smallest currency unit
	maxPriceCeiling     = 1000000 // smallest currency unit
	defaultSearchLimit  = 5
	maxSearchLimit      = 20
	defaultFlyDuration  = 24 * time.Hour
	maxFlyDuration      = 48 * time.Hour
)

type FetchRepository interface {
	LatestForSubscription(ctx context.Context, globalSubscriptionID int64) (*model.Fetch, error)
}

type RouteRepository interface {
	ListByFetch(ctx context.Context, fetchID int64, q model.RouteQuery) ([]*model.Route, error)
}

type SearchService struct {
	globalSubRepo GlobalSubscriptionRepository
	fetchRepo     FetchRepository
	routeRepo     RouteRepository
	airportRepo   AirportRepository
	interestQueue *queue.Queue
}

func NewSearchService(
	globalSubRepo GlobalSubscriptionRepository,
	fetchRepo FetchRepository,
	routeRepo RouteRepository,
	airportRepo AirportRepository,
	interestQueue *queue.Queue,
) *SearchService {
	return &SearchService{
		globalSubRepo: globalSubRepo,
		fetchRepo:     fetchRepo,
		routeRepo:     routeRepo,
		airportRepo:   airportRepo,
		interestQueue: interestQueue,
	}
}

type searchParams struct {
	flyFrom     int64
	flyTo       int64
	dateFrom    time.Time
	dateTo      time.Time
	priceTo     int64
	limit       int
	offset      int
	maxDuration time.Duration
}

// Search assembles itineraries from the latest fetch of the route. A route
// seen for the first time is registered for fetching and reported as new;
// a known route with no usable data reports no-data rather than an error.
func (s *SearchService) Search(ctx context.Context, req model.SearchRequest) (*model.SearchResult, error) {
	params, err := s.resolveParams(ctx, req)
	if err != nil {
		return nil, err
	}

	gs, created, err := s.globalSubRepo.ResolveOrCreate(ctx, params.flyFrom, params.flyTo)
	if err != nil {
		return nil, fmt.Errorf("resolve route: %w", err)
	}
	if created {
		s.announceRoute(ctx, gs)
		return s.finish(&model.SearchResult{Status: model.StatusRouteNew, Routes: []*model.Route{}}), nil
	}

	fetch, err := s.fetchRepo.LatestForSubscription(ctx, gs.ID)
	if err != nil {
		if errors.Is(err, repository.ErrFetchNotFound) {
			return s.finish(&model.SearchResult{Status: model.StatusNoData, Routes: []*model.Route{}}), nil
		}
		return nil, fmt.Errorf("load latest fetch: %w", err)
	}

	routes, err := s.routeRepo.ListByFetch(ctx, fetch.ID, model.RouteQuery{
		PriceTo:      params.priceTo,
		DepartFrom:   params.dateFrom,
		DepartBefore: params.dateTo.AddDate(0, 0, 1),
		Limit:        params.limit,
		Offset:       params.offset,
	})
	if err != nil {
		return nil, fmt.Errorf("load routes: %w", err)
	}

	assembled := assembleItineraries(routes, params)
	if len(assembled) == 0 {
		return s.finish(&model.SearchResult{Status: model.StatusNoData, Routes: []*model.Route{}}), nil
	}
	return s.finish(&model.SearchResult{Status: model.StatusOK, Routes: assembled}), nil
}

func (s *SearchService) finish(result *model.SearchResult) *model.SearchResult {
	prom.IncCounterVec(prom.SystemSearch, prom.MetricSearchServed, string(result.Status))
	return result
}

func (s *SearchService) resolveParams(ctx context.Context, req model.SearchRequest) (*searchParams, error) {
	if req.FlyFrom == req.FlyTo {
		return nil, ErrBadParameter
	}
	for _, id := range []int64{req.FlyFrom, req.FlyTo} {
		ok, err := s.airportRepo.Exists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("check airport: %w", err)
		}
		if !ok {
			return nil, ErrUnknownAirport
		}
	}

	p := &searchParams{flyFrom: req.FlyFrom, flyTo: req.FlyTo}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	if req.DateFrom != nil {
		p.dateFrom = *req.DateFrom
	} else {
		p.dateFrom = now
	}
	if req.DateTo != nil {
		p.dateTo = *req.DateTo
	} else {
		p.dateTo = p.dateFrom.AddDate(0, 1, 0)
	}
	// A day of slack keeps searches running near midnight valid; anything
	// older asks for flights that can no longer be taken.
	if p.dateFrom.Before(now.AddDate(0, 0, -1)) {
		return nil, ErrEarlyDateFrom
	}
	if !p.dateFrom.Before(p.dateTo) {
		return nil, ErrBadDateRange
	}

	p.priceTo = defaultPriceCeiling
	if req.PriceTo != nil {
		p.priceTo = req.PriceTo.Mul(decimal.NewFromInt(100)).IntPart()
	}
	if p.priceTo <= 0 || p.priceTo > maxPriceCeiling {
		return nil, ErrBadParameter
	}

	p.limit = defaultSearchLimit
	if req.Limit != nil {
		p.limit = *req.Limit
	}
	if p.limit <= 0 || p.limit > maxSearchLimit {
		return nil, ErrBadParameter
	}

	if req.Offset != nil {
		p.offset = *req.Offset
	}
	if p.offset < 0 {
		return nil, ErrBadParameter
	}

	p.maxDuration = defaultFlyDuration
	if req.MaxFlyDuration != nil {
		p.maxDuration = *req.MaxFlyDuration
	}
	if p.maxDuration <= 0 || p.maxDuration > maxFlyDuration {
		return nil, ErrBadParameter
	}

	return p, nil
}

// assembleItineraries applies the leg-level checks the store cannot
// express: legs are ordered by departure, then an itinerary qualifies
// when it actually starts and ends at the requested airports and its
// total travel time, first departure to last arrival, fits the duration
// cap. Date-window and price filtering and pagination happen in the
// store query, so a page can come back thinner than the limit.
func assembleItineraries(routes []*model.Route, p *searchParams) []*model.Route {
	matched := make([]*model.Route, 0, len(routes))
	for _, route := range routes {
		if len(route.Flights) == 0 {
			continue
		}
		sort.SliceStable(route.Flights, func(i, j int) bool {
			return route.Flights[i].Dtime.Before(route.Flights[j].Dtime)
		})

		first := route.Flights[0]
		last := route.Flights[len(route.Flights)-1]

		if first.AirportFromID != p.flyFrom || last.AirportToID != p.flyTo {
			continue
		}
		duration := last.Atime.Sub(first.Dtime)
		if duration < 0 || duration > p.maxDuration {
			continue
		}
		matched = append(matched, route)
	}
	return matched
}

func (s *SearchService) announceRoute(ctx context.Context, gs *model.GlobalSubscription) {
	if s.interestQueue == nil {
		return
	}
	event := &model.InterestEvent{
		GlobalSubscriptionID: gs.ID,
		AirportFromID:        gs.AirportFromID,
		AirportToID:          gs.AirportToID,
		ObservedAt:           time.Now().UTC(),
	}
	if _, err := s.interestQueue.PublishJSON(ctx, event, nil); err != nil {
		logger.Error("failed to publish route interest event",
			"global_subscription_id", gs.ID,
			"error", err.Error())
	}
}
