// Package event carries the in-process invoice-created notification between
// the invoice service and local subscribers.
package event

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceCreated is published after an invoice is durably persisted.
type InvoiceCreated struct {
	InvoiceID      snowflake.ID
	OrganizationID int64
	CustomerID     int64
	SubscriptionID *int64
	RatePlanID     *int64
	InvoiceNumber  string
	TotalAmount    decimal.Decimal
	PeriodStart    time.Time
	PeriodEnd      time.Time
	CreatedAt      time.Time
}

// Handler observes invoice creations. Handlers must not block.
type Handler func(InvoiceCreated)

// Bus is a minimal synchronous publish/subscribe fan-out. Publication happens
// after the invoice is committed, so subscriber failure never affects the
// stored invoice.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(ev InvoiceCreated) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
