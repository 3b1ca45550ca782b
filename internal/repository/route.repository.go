package repository

import (
	"context"
	"time"

	"github.com/farewatch/fare-gateway/internal/model"
	"github.com/farewatch/fare-gateway/pkg/pg"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RouteRepository struct {
	*pg.DB
}

func NewRouteRepository(db *pg.DB) *RouteRepository {
	return &RouteRepository{
		db,
	}
}

// CreateBatch stores every route of a fetch together with its legs. Runs
// inside the ingest transaction, so a failure leaves no partial fetch
// behind.
func (r *RouteRepository) CreateBatch(ctx context.Context, fetchID int64, routes []*model.RoutePayload) error {
	for _, route := range routes {
		entity := &RouteEntity{
			FetchID:      fetchID,
			BookingToken: route.BookingToken,
			Price:        route.Price,
		}
		if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
			return err
		}

		if len(route.Flights) == 0 {
			continue
		}
		flights := make([]*FlightEntity, len(route.Flights))
		for i, f := range route.Flights {
			flights[i] = &FlightEntity{
				RouteID:       entity.ID,
				AirportFromID: f.AirportFromID,
				AirportToID:   f.AirportToID,
				Airline:       f.Airline,
				FlightNumber:  f.FlightNumber,
				Dtime:         f.Dtime,
				Atime:         f.Atime,
			}
		}
		if err := r.Write(ctx).WithContext(ctx).Create(&flights).Error; err != nil {
			return err
		}
	}
	return nil
}

type flightRow struct {
	ID            int64     `gorm:"column:id"`
	RouteID       int64     `gorm:"column:route_id"`
	AirportFromID int64     `gorm:"column:airport_from_id"`
	AirportToID   int64     `gorm:"column:airport_to_id"`
	AirportFrom   string    `gorm:"column:airport_from"`
	AirportTo     string    `gorm:"column:airport_to"`
	Airline       string    `gorm:"column:airline"`
	FlightNumber  string    `gorm:"column:flight_number"`
	Dtime         time.Time `gorm:"column:dtime"`
	Atime         time.Time `gorm:"column:atime"`
}

// ListByFetch returns one page of the fetch's routes priced at or below
// the ceiling and departing inside the query window, cheapest first, with
// legs attached and airport names resolved. The window applies to the
// itinerary's first departure; per-leg checks are left to the caller.
func (r *RouteRepository) ListByFetch(ctx context.Context, fetchID int64, q model.RouteQuery) ([]*model.Route, error) {
	departing := r.Read(ctx).WithContext(ctx).
		Table("flights").
		Select("route_id").
		Group("route_id").
		Having("MIN(dtime) >= ? AND MIN(dtime) < ?", q.DepartFrom, q.DepartBefore)

	query := r.Read(ctx).WithContext(ctx).
		Where("fetch_id = ? AND price <= ?", fetchID, q.PriceTo).
		Where("id IN (?)", departing).
		Order("price ASC, id ASC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}

	var routeEntities []*RouteEntity
	err := query.Find(&routeEntities).Error
	if err != nil {
		return nil, err
	}
	if len(routeEntities) == 0 {
		return []*model.Route{}, nil
	}

	routeIDs := make([]int64, len(routeEntities))
	routes := make([]*model.Route, len(routeEntities))
	byID := make(map[int64]*model.Route, len(routeEntities))
	for i, e := range routeEntities {
		routeIDs[i] = e.ID
		routes[i] = &model.Route{
			ID:           e.ID,
			BookingToken: e.BookingToken,
			Price:        decimal.New(e.Price, -2),
			Flights:      []*model.Flight{},
		}
		byID[e.ID] = routes[i]
	}

	flights, err := r.flightsByRouteIDs(ctx, routeIDs)
	if err != nil {
		return nil, err
	}
	for _, f := range flights {
		route, ok := byID[f.RouteID]
		if !ok {
			continue
		}
		route.Flights = append(route.Flights, f)
	}
	return routes, nil
}

func (r *RouteRepository) flightsByRouteIDs(ctx context.Context, routeIDs []int64) ([]*model.Flight, error) {
	var rows []*flightRow
	err := r.buildFlightsQuery(ctx).
		Where("f.route_id IN ?", routeIDs).
		Order("f.route_id ASC, f.dtime ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	flights := make([]*model.Flight, len(rows))
	for i, row := range rows {
		flights[i] = &model.Flight{
			ID:            row.ID,
			RouteID:       row.RouteID,
			AirportFromID: row.AirportFromID,
			AirportToID:   row.AirportToID,
			AirportFrom:   row.AirportFrom,
			AirportTo:     row.AirportTo,
			Airline:       row.Airline,
			FlightNumber:  row.FlightNumber,
			Dtime:         row.Dtime,
			Atime:         row.Atime,
		}
	}
	return flights, nil
}

func (r *RouteRepository) buildFlightsQuery(ctx context.Context) *gorm.DB {
	return r.Read(ctx).WithContext(ctx).
		Table("flights AS f").
		Select(`
            f.id              AS id,
            f.route_id        AS route_id,
            f.airport_from_id AS airport_from_id,
            f.airport_to_id   AS airport_to_id,
            a_from.name       AS airport_from,
            a_to.name         AS airport_to,
            f.airline         AS airline,
            f.flight_number   AS flight_number,
            f.dtime           AS dtime,
            f.atime           AS atime
        `).
		Joins("INNER JOIN airports AS a_from ON a_from.id = f.airport_from_id").
		Joins("INNER JOIN airports AS a_to ON a_to.id = f.airport_to_id")
}
