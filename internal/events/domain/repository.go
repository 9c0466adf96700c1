package domain

import (
	"context"
	"time"
)

// Reader is the read-only contract over the ingestion event store.
//
// Every window is half-open: from inclusive, to exclusive.
type Reader interface {
	// CountEvents counts SUCCESS events for the tenant inside [from, to),
	// applying equality on each supplied filter field.
	CountEvents(ctx context.Context, orgID int64, from, to time.Time, filter Filter) (int64, error)

	// ListOrganizationIDs returns every distinct organization with recorded
	// events, ordered ascending. Feeds the billing period monitor.
	ListOrganizationIDs(ctx context.Context) ([]int64, error)

	// ListRatePlanIDs returns distinct rate plans with SUCCESS events in the
	// window.
	ListRatePlanIDs(ctx context.Context, orgID int64, from, to time.Time) ([]int64, error)

	// ListSubscriptionIDsByRatePlan returns distinct subscriptions that
	// produced SUCCESS events for the rate plan in the window.
	ListSubscriptionIDsByRatePlan(ctx context.Context, orgID, ratePlanID int64, from, to time.Time) ([]int64, error)

	// LastEventAt returns the timestamp of the most recent SUCCESS event for
	// the subscription, or nil when none exist.
	LastEventAt(ctx context.Context, orgID, subscriptionID int64) (*time.Time, error)
}
