// Package domain defines the downstream accounting-sync notification
// contract. Notifications are best-effort; nothing here may fail the caller.
package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Notification is the invoice-created payload pushed to the accounting-sync
// collaborator. Credential lets the receiver call back into tenant-scoped
// APIs.
type Notification struct {
	InvoiceID      snowflake.ID    `json:"invoiceId"`
	OrganizationID int64           `json:"organizationId"`
	CustomerID     int64           `json:"customerId"`
	InvoiceNumber  string          `json:"invoiceNumber"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Credential     string          `json:"credential"`
}

// Notifier pushes invoice-created notifications downstream.
type Notifier interface {
	// InvoiceCreated fires the notification asynchronously and returns
	// immediately. Failures are logged, never propagated.
	InvoiceCreated(ctx context.Context, n Notification)
}

// ResyncResult summarizes a bulk re-notification run.
type ResyncResult struct {
	Total     int `json:"total"`
	Triggered int `json:"triggered"`
}

// ResyncService re-fires notifications for already persisted invoices,
// recovering from downstream downtime.
type ResyncService interface {
	// Resync re-notifies a single invoice. The invoice must belong to the
	// tenant in context.
	Resync(ctx context.Context, invoiceID snowflake.ID) (*Notification, error)

	// ResyncAll re-notifies every invoice of the tenant and reports how
	// many notifications were triggered.
	ResyncAll(ctx context.Context) (*ResyncResult, error)
}
