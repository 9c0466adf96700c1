// Package domain describes the external ingestion event store. The core only
// ever reads from it.
package domain

import "time"

// EventStatus mirrors the ingestion pipeline's terminal statuses.
type EventStatus string

const (
	EventStatusSuccess EventStatus = "SUCCESS"
	EventStatusFailed  EventStatus = "FAILED"
)

// IngestionEvent is one recorded billable event. Each SUCCESS row counts as
// exactly one billable unit; there is no per-event quantity.
type IngestionEvent struct {
	ID               int64       `gorm:"primaryKey;column:id"`
	OrganizationID   int64       `gorm:"column:organization_id;not null;index"`
	SubscriptionID   *int64      `gorm:"column:subscription_id;index"`
	ProductID        *int64      `gorm:"column:product_id"`
	RatePlanID       *int64      `gorm:"column:rate_plan_id"`
	BillableMetricID *int64      `gorm:"column:billable_metric_id"`
	CustomerID       *int64      `gorm:"column:customer_id"`
	Timestamp        time.Time   `gorm:"column:timestamp;not null;index"`
	Status           EventStatus `gorm:"column:status;type:text;not null"`
}

// TableName sets the database table name.
func (IngestionEvent) TableName() string { return "ingestion_event" }

// Filter narrows an event count to the supplied identifiers. Nil fields are
// not applied.
type Filter struct {
	SubscriptionID   *int64
	ProductID        *int64
	RatePlanID       *int64
	BillableMetricID *int64
}
