package model

import "time"

// Plan is a closed set. The initial tax is charged once per user
// subscription, at creation time, in the smallest currency unit.
type Plan string

const (
	PlanDaily   Plan = "daily"
	PlanWeekly  Plan = "weekly"
	PlanMonthly Plan = "monthly"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanDaily, PlanWeekly, PlanMonthly:
		return true
	}
	return false
}

func (p Plan) InitialTax() int64 {
	switch p {
	case PlanDaily:
		return 100
	case PlanWeekly:
		return 500
	case PlanMonthly:
		return 1500
	}
	return 0
}

// GlobalSubscription is the shared record of interest in a route. It is
// created by the first subscriber and never deleted; fetched data hangs off
// it, so every later subscriber to the same route sees the data already
// collected.
type GlobalSubscription struct {
	ID            int64     `json:"id"`
	AirportFromID int64     `json:"fly_from"`
	AirportToID   int64     `json:"fly_to"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserSubscription ties an account to a global subscription for a date
// range. Deactivated rows are kept; re-subscribing to the same key
// reactivates the existing row instead of creating a new one.
type UserSubscription struct {
	ID                   int64     `json:"id"`
	AccountID            int64     `json:"account_id"`
	GlobalSubscriptionID int64     `json:"global_subscription_id"`
	DateFrom             time.Time `json:"date_from"`
	DateTo               time.Time `json:"date_to"`
	Plan                 Plan      `json:"plan"`
	Active               bool      `json:"active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type SubscribeRequest struct {
	AccountID int64
	FlyFrom   int64
	FlyTo     int64
	DateFrom  time.Time
	DateTo    time.Time
	Plan      Plan
}

type EditSubscriptionRequest struct {
	AccountID      int64
	SubscriptionID int64
	FlyFrom        int64
	FlyTo          int64
	DateFrom       time.Time
	DateTo         time.Time
	Plan           Plan
}

// SubscriptionFilter narrows an account's active subscription list. FlyFrom
// and FlyTo match either the airport name or its IATA code.
type SubscriptionFilter struct {
	AccountID int64
	FlyFrom   *string
	FlyTo     *string
	Limit     int
	Offset    int
}

// SubscriptionSummary is the list representation, with airport names
// resolved.
type SubscriptionSummary struct {
	ID        int64     `json:"id"`
	FlyFrom   string    `json:"fly_from"`
	FlyTo     string    `json:"fly_to"`
	DateFrom  time.Time `json:"date_from"`
	DateTo    time.Time `json:"date_to"`
	Plan      Plan      `json:"plan"`
	UpdatedAt time.Time `json:"updated_at"`
}
