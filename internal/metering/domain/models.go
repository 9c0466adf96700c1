// Package domain defines the metering contract: resolve identifiers and a
// window, count usage, price it.
package domain

import (
	"context"
	"time"

	"github.com/meterline/meterline/internal/pricing"
	"github.com/shopspring/decimal"
)

// Request narrows what gets counted. Every field is optional, but either
// SubscriptionID or RatePlanID must resolve by the time the plan is fetched.
// A nil half of the window falls back to now / now minus one hour.
type Request struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`

	SubscriptionID   *int64 `json:"subscriptionId"`
	ProductID        *int64 `json:"productId"`
	RatePlanID       *int64 `json:"ratePlanId"`
	BillableMetricID *int64 `json:"billableMetricId"`
}

// Response is the priced estimate. EventCount is the raw count, Breakdown
// explains the total step by step.
type Response struct {
	ModelType  string             `json:"modelType"`
	EventCount int64              `json:"eventCount"`
	Breakdown  []pricing.LineItem `json:"breakdown"`
	Total      decimal.Decimal    `json:"total"`

	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Service estimates the priced usage for a window.
type Service interface {
	Estimate(ctx context.Context, req Request) (*Response, error)
}
