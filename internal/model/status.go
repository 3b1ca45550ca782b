package model

// StatusCode is the machine-readable outcome indicator returned next to
// result data. The numbering follows the protocol the clients already
// speak: 1xxx success variants, 2xxx expected failures.
type StatusCode string

const (
	// StatusOK - the operation succeeded.
	StatusOK StatusCode = "1000"
	// StatusRouteNew - the route was observed for the first time; a global
	// subscription now exists but no data has been fetched yet.
	StatusRouteNew StatusCode = "1001"
	// StatusNoData - the route is known but there is no matching data for
	// the query (no fetch yet, or every itinerary was filtered out).
	StatusNoData StatusCode = "1002"

	// StatusBadRequest - malformed input or a conflicting subscription.
	StatusBadRequest StatusCode = "2000"
	// StatusNotEnoughCredits - the account balance cannot cover the tax.
	StatusNotEnoughCredits StatusCode = "2001"
	// StatusBadParameter - a parameter is out of range.
	StatusBadParameter StatusCode = "2100"
	// StatusUnknownAirport - an airport id does not exist.
	StatusUnknownAirport StatusCode = "2101"
	// StatusBadDateRange - date_from/date_to do not form a valid range.
	StatusBadDateRange StatusCode = "2102"
	// StatusSubscriptionNotFound - the subscription id does not exist.
	StatusSubscriptionNotFound StatusCode = "2103"
	// StatusAlreadyInactive - the subscription exists but was already
	// deactivated. Not the same as a missing row.
	StatusAlreadyInactive StatusCode = "2104"
	// StatusInvalidPlan - the plan name is not one of the known plans.
	StatusInvalidPlan StatusCode = "2105"
	// StatusDenied - authentication or ownership failure.
	StatusDenied StatusCode = "2200"
)
