package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/meterline/meterline/internal/apperr"
	"github.com/meterline/meterline/internal/clock"
	"github.com/meterline/meterline/internal/invoice/domain"
	"github.com/meterline/meterline/internal/invoice/event"
	notifierdomain "github.com/meterline/meterline/internal/notifier/domain"
	"github.com/meterline/meterline/pkg/log"
	"github.com/meterline/meterline/pkg/tenantctx"
	"go.uber.org/zap"
)

type service struct {
	repo     domain.Repository
	bus      *event.Bus
	notifier notifierdomain.Notifier
	node     *snowflake.Node
	clock    clock.Clock
}

// New wires the invoice service over its collaborators.
func New(
	repo domain.Repository,
	bus *event.Bus,
	notifier notifierdomain.Notifier,
	node *snowflake.Node,
	clk clock.Clock,
) domain.Service {
	return &service{
		repo:     repo,
		bus:      bus,
		notifier: notifier,
		node:     node,
		clock:    clk,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Invoice, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}
	if req.Meter == nil {
		return nil, apperr.New(apperr.KindInvalidArgument, "meter response is required")
	}

	// Cheap pre-check; the unique index remains the authoritative guard
	// under concurrency.
	if req.SubscriptionID != nil {
		exists, err := s.repo.ExistsForPeriod(ctx, tenant.OrganizationID, *req.SubscriptionID, req.PeriodStart, req.PeriodEnd)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperr.New(apperr.KindAlreadyExists,
				"invoice already exists for subscription %d in period %s to %s",
				*req.SubscriptionID, req.PeriodStart.Format(time.RFC3339), req.PeriodEnd.Format(time.RFC3339))
		}
	}

	now := s.clock.Now()
	invoice := &domain.Invoice{
		ID:                 s.node.Generate(),
		OrganizationID:     tenant.OrganizationID,
		CustomerID:         req.CustomerID,
		SubscriptionID:     req.SubscriptionID,
		RatePlanID:         req.RatePlanID,
		InvoiceNumber:      invoiceNumber(tenant.OrganizationID, req.CustomerID, now),
		ModelType:          req.Meter.ModelType,
		TotalAmount:        req.Meter.Total,
		BillingPeriodStart: req.PeriodStart,
		BillingPeriodEnd:   req.PeriodEnd,
		Status:             domain.StatusDraft,
		Notes:              req.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for i, li := range req.Meter.Breakdown {
		invoice.LineItems = append(invoice.LineItems, domain.LineItem{
			ID:          s.node.Generate(),
			InvoiceID:   invoice.ID,
			LineNumber:  i + 1,
			Description: li.Label,
			Calculation: li.Calculation,
			Amount:      li.Amount,
			CreatedAt:   now,
		})
	}

	if err := s.repo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	log.L(ctx).Info("invoice created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Int64("customer_id", invoice.CustomerID),
		zap.Int("line_items", len(invoice.LineItems)),
		zap.String("total", invoice.TotalAmount.String()))

	// The invoice is committed: downstream fan-out is best-effort from here.
	s.bus.Publish(event.InvoiceCreated{
		InvoiceID:      invoice.ID,
		OrganizationID: invoice.OrganizationID,
		CustomerID:     invoice.CustomerID,
		SubscriptionID: invoice.SubscriptionID,
		RatePlanID:     invoice.RatePlanID,
		InvoiceNumber:  invoice.InvoiceNumber,
		TotalAmount:    invoice.TotalAmount,
		PeriodStart:    invoice.BillingPeriodStart,
		PeriodEnd:      invoice.BillingPeriodEnd,
		CreatedAt:      invoice.CreatedAt,
	})

	s.notifier.InvoiceCreated(ctx, notifierdomain.Notification{
		InvoiceID:      invoice.ID,
		OrganizationID: invoice.OrganizationID,
		CustomerID:     invoice.CustomerID,
		InvoiceNumber:  invoice.InvoiceNumber,
		TotalAmount:    invoice.TotalAmount,
		Credential:     tenant.Credential,
	})

	return invoice, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Invoice, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.OrganizationID != tenant.OrganizationID {
		return nil, apperr.New(apperr.KindNotFound, "invoice %d not found", id)
	}
	return invoice, nil
}

func (s *service) GetByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}
	invoice, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if invoice.OrganizationID != tenant.OrganizationID {
		return nil, apperr.New(apperr.KindNotFound, "invoice %s not found", number)
	}
	return invoice, nil
}

func (s *service) ListByOrganization(ctx context.Context) ([]domain.Invoice, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByOrganization(ctx, tenant.OrganizationID)
}

func (s *service) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Invoice, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByCustomer(ctx, tenant.OrganizationID, customerID)
}

func (s *service) ListBySubscription(ctx context.Context, subscriptionID int64) ([]domain.Invoice, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListBySubscription(ctx, tenant.OrganizationID, subscriptionID)
}

func (s *service) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Invoice, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByStatus(ctx, tenant.OrganizationID, status)
}

func (s *service) ListByPeriod(ctx context.Context, from, to time.Time) ([]domain.Invoice, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByPeriod(ctx, tenant.OrganizationID, from, to)
}

func (s *service) ExistsForPeriod(ctx context.Context, subscriptionID int64, start, end time.Time) (bool, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return false, err
	}
	return s.repo.ExistsForPeriod(ctx, tenant.OrganizationID, subscriptionID, start, end)
}

func (s *service) UpdateStatus(ctx context.Context, id snowflake.ID, status domain.Status) (*domain.Invoice, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.CanTransitionTo(status) {
		return nil, apperr.New(apperr.KindInvalidState,
			"invoice %s cannot move from %s to %s", invoice.InvoiceNumber, invoice.Status, status)
	}
	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	log.L(ctx).Info("invoice status updated",
		zap.String("invoice_number", updated.InvoiceNumber),
		zap.String("status", string(updated.Status)))
	return updated, nil
}
