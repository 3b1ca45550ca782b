package model

import "time"

// Fetch marks one completed collection run for a global subscription.
// PayloadID is assigned by the fetcher and is unique, so a redelivered
// payload cannot be ingested twice.
type Fetch struct {
	ID                   int64     `json:"id"`
	PayloadID            string    `json:"payload_id"`
	GlobalSubscriptionID int64     `json:"global_subscription_id"`
	FetchTime            time.Time `json:"fetch_time"`
}

// FetchPayload is the wire format the fetcher publishes on the results
// queue. Prices are in the smallest currency unit.
type FetchPayload struct {
	PayloadID            string          `json:"payload_id"`
	GlobalSubscriptionID int64           `json:"global_subscription_id"`
	FetchTime            time.Time       `json:"fetch_time"`
	Routes               []*RoutePayload `json:"routes"`
}

type RoutePayload struct {
	BookingToken string           `json:"booking_token"`
	Price        int64            `json:"price"`
	Flights      []*FlightPayload `json:"flights"`
}

type FlightPayload struct {
	AirportFromID int64     `json:"fly_from"`
	AirportToID   int64     `json:"fly_to"`
	Airline       string    `json:"airline"`
	FlightNumber  string    `json:"flight_number"`
	Dtime         time.Time `json:"dtime"`
	Atime         time.Time `json:"atime"`
}

// InterestEvent is published on the interest queue when a route is observed
// for the first time, telling the fetcher to start collecting it.
type InterestEvent struct {
	GlobalSubscriptionID int64     `json:"global_subscription_id"`
	AirportFromID        int64     `json:"fly_from"`
	AirportToID          int64     `json:"fly_to"`
	ObservedAt           time.Time `json:"observed_at"`
}
