// Package domain contains the invoice aggregate and its contracts. Invoices
// are the only thing this core owns; everything else is read from elsewhere.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Status represents invoice lifecycle states.
type Status string

const (
	StatusDraft   Status = "DRAFT"
	StatusIssued  Status = "ISSUED"
	StatusPaid    Status = "PAID"
	StatusVoid    Status = "VOID"
	StatusOverdue Status = "OVERDUE"
)

// CanTransitionTo enforces the lifecycle: DRAFT → ISSUED → {PAID, VOID,
// OVERDUE}; an OVERDUE invoice may still be paid or voided; PAID and VOID
// are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusIssued
	case StatusIssued:
		return next == StatusPaid || next == StatusVoid || next == StatusOverdue
	case StatusOverdue:
		return next == StatusPaid || next == StatusVoid
	default:
		return false
	}
}

// Invoice is the persisted billing document. At most one invoice exists per
// (organization, subscription, period) triple; the unique index is the
// authoritative guard.
type Invoice struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	OrganizationID int64        `gorm:"not null;index;uniqueIndex:ux_invoice_subscription_period"`
	CustomerID     int64        `gorm:"not null;index"`
	SubscriptionID *int64       `gorm:"index;uniqueIndex:ux_invoice_subscription_period"`
	RatePlanID     *int64       `gorm:"index"`

	InvoiceNumber string          `gorm:"type:varchar(21);not null;uniqueIndex"`
	ModelType     string          `gorm:"type:varchar(50)"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(19,2);not null"`

	BillingPeriodStart time.Time `gorm:"not null;uniqueIndex:ux_invoice_subscription_period"`
	BillingPeriodEnd   time.Time `gorm:"not null;uniqueIndex:ux_invoice_subscription_period"`

	Status   Status            `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Notes    string            `gorm:"type:varchar(1000)"`
	Metadata datatypes.JSONMap `gorm:"type:jsonb"`

	LineItems []LineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// LineItem is one explained charge or credit on an invoice. Line items are
// exclusively owned: they carry no back-pointer and die with the invoice.
type LineItem struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	InvoiceID  snowflake.ID `gorm:"not null;index"`
	LineNumber int          `gorm:"not null"`

	Description string          `gorm:"type:varchar(255);not null"`
	Calculation string          `gorm:"type:varchar(500)"`
	Amount      decimal.Decimal `gorm:"type:decimal(19,2);not null"`

	Quantity  *int64
	UnitPrice *decimal.Decimal `gorm:"type:decimal(19,2)"`

	CreatedAt time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "invoice_line_items" }
