package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Flight is one leg of an itinerary as stored from a fetch.
type Flight struct {
	ID            int64     `json:"-"`
	RouteID       int64     `json:"-"`
	AirportFromID int64     `json:"fly_from"`
	AirportToID   int64     `json:"fly_to"`
	AirportFrom   string    `json:"airport_from"`
	AirportTo     string    `json:"airport_to"`
	Airline       string    `json:"airline"`
	FlightNumber  string    `json:"flight_number"`
	Dtime         time.Time `json:"dtime"`
	Atime         time.Time `json:"atime"`
}

// Route is an assembled itinerary. Price is human scale; the stored value
// is in the smallest currency unit.
type Route struct {
	ID           int64           `json:"id"`
	BookingToken string          `json:"booking_token"`
	Price        decimal.Decimal `json:"price"`
	Flights      []*Flight       `json:"route"`
}

// RouteQuery narrows the candidate routes of a fetch at the store: price
// ceiling in the smallest currency unit, a half-open [DepartFrom,
// DepartBefore) window on the itinerary's first departure, and a page.
type RouteQuery struct {
	PriceTo      int64
	DepartFrom   time.Time
	DepartBefore time.Time
	Limit        int
	Offset       int
}

// SearchRequest carries only what the caller supplied; the service fills
// defaults and enforces bounds. PriceTo is human scale.
type SearchRequest struct {
	AccountID      int64
	FlyFrom        int64
	FlyTo          int64
	DateFrom       *time.Time
	DateTo         *time.Time
	PriceTo        *decimal.Decimal
	Limit          *int
	Offset         *int
	MaxFlyDuration *time.Duration
}

type SearchResult struct {
	Status StatusCode `json:"status"`
	Routes []*Route   `json:"data"`
}
