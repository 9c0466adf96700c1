package domain

import "context"

// Fetcher retrieves rate plans from the pricing catalogue service.
type Fetcher interface {
	// Fetch returns the plan or a NOT_FOUND error. On a 5xx from the by-id
	// endpoint it attempts one list-and-filter fallback before reporting
	// UPSTREAM_UNAVAILABLE.
	Fetch(ctx context.Context, ratePlanID int64) (*RatePlan, error)
}
