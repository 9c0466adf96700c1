package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Repository persists and queries invoices. Every list is ordered by
// created_at descending with line items attached.
type Repository interface {
	// Save writes the invoice and its line items in one transaction. A
	// uniqueness violation surfaces as ALREADY_EXISTS.
	Save(ctx context.Context, invoice *Invoice) error

	FindByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)

	ListByOrganization(ctx context.Context, orgID int64) ([]Invoice, error)
	ListByCustomer(ctx context.Context, orgID, customerID int64) ([]Invoice, error)
	ListBySubscription(ctx context.Context, orgID, subscriptionID int64) ([]Invoice, error)
	ListByStatus(ctx context.Context, orgID int64, status Status) ([]Invoice, error)
	ListByPeriod(ctx context.Context, orgID int64, from, to time.Time) ([]Invoice, error)

	// ExistsForPeriod is the authoritative uniqueness probe for the
	// (org, subscription, period) triple.
	ExistsForPeriod(ctx context.Context, orgID, subscriptionID int64, start, end time.Time) (bool, error)

	// UpdateStatus sets the status and refreshes updated_at.
	UpdateStatus(ctx context.Context, id snowflake.ID, status Status) (*Invoice, error)
}
