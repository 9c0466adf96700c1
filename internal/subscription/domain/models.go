// Package domain models subscriptions as served by the subscription service.
package domain

import (
	"context"
	"time"
)

// Status values the core cares about.
const StatusActive = "ACTIVE"

// Subscription is the read-only view of a customer's plan attachment.
// Billing period bounds are nil while the upstream has not anchored them.
type Subscription struct {
	SubscriptionID   int64  `json:"subscriptionId"`
	OrganizationID   int64  `json:"organizationId"`
	CustomerID       int64  `json:"customerId"`
	ProductID        *int64 `json:"productId"`
	RatePlanID       *int64 `json:"ratePlanId"`
	Status           string `json:"status"`
	BillingFrequency string `json:"billingFrequency"`

	CurrentBillingPeriodStart *time.Time `json:"currentBillingPeriodStart"`
	CurrentBillingPeriodEnd   *time.Time `json:"currentBillingPeriodEnd"`
}

// Fetcher reads subscriptions from the subscription service.
type Fetcher interface {
	// Get returns the subscription or a NOT_FOUND error.
	Get(ctx context.Context, subscriptionID int64) (*Subscription, error)

	// ListActive returns every ACTIVE subscription for the tenant. Upstream
	// failure yields an empty slice, never an error: the monitor treats a
	// degraded listing as nothing to do this tick.
	ListActive(ctx context.Context) []Subscription
}
