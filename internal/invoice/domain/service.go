package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	meteringdomain "github.com/meterline/meterline/internal/metering/domain"
)

// CreateRequest carries everything needed to turn a priced estimate into a
// persisted invoice. The organization comes from the tenant context.
type CreateRequest struct {
	Meter          *meteringdomain.Response
	CustomerID     int64
	SubscriptionID *int64
	RatePlanID     *int64
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Notes          string
}

// Service creates invoices from meter responses and manages their lifecycle.
type Service interface {
	// Create persists a DRAFT invoice with one line item per breakdown
	// entry, publishes an in-process creation event, and hands off a
	// best-effort downstream notification. A duplicate period yields
	// ALREADY_EXISTS.
	Create(ctx context.Context, req CreateRequest) (*Invoice, error)

	GetByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)

	ListByOrganization(ctx context.Context) ([]Invoice, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]Invoice, error)
	ListBySubscription(ctx context.Context, subscriptionID int64) ([]Invoice, error)
	ListByStatus(ctx context.Context, status Status) ([]Invoice, error)
	ListByPeriod(ctx context.Context, from, to time.Time) ([]Invoice, error)

	ExistsForPeriod(ctx context.Context, subscriptionID int64, start, end time.Time) (bool, error)

	// UpdateStatus applies the lifecycle guard before persisting.
	UpdateStatus(ctx context.Context, id snowflake.ID, status Status) (*Invoice, error)
}
