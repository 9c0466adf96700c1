// Package service re-fires invoice notifications after downstream downtime.
package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/meterline/meterline/internal/apperr"
	"github.com/meterline/meterline/internal/credential"
	invoicedomain "github.com/meterline/meterline/internal/invoice/domain"
	"github.com/meterline/meterline/internal/notifier/domain"
	"github.com/meterline/meterline/pkg/log"
	"github.com/meterline/meterline/pkg/tenantctx"
	"go.uber.org/zap"
)

type resync struct {
	invoices invoicedomain.Repository
	notifier domain.Notifier
	issuer   credential.Issuer
}

// NewResync wires the resync service.
func NewResync(
	invoices invoicedomain.Repository,
	notifier domain.Notifier,
	issuer credential.Issuer,
) domain.ResyncService {
	return &resync{invoices: invoices, notifier: notifier, issuer: issuer}
}

func (s *resync) Resync(ctx context.Context, invoiceID snowflake.ID) (*domain.Notification, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.OrganizationID != tenant.OrganizationID {
		return nil, apperr.New(apperr.KindNotFound, "invoice %d not found", invoiceID)
	}

	cred, err := s.issuer.Issue(tenant.OrganizationID)
	if err != nil {
		return nil, err
	}

	n := domain.Notification{
		InvoiceID:      invoice.ID,
		OrganizationID: invoice.OrganizationID,
		CustomerID:     invoice.CustomerID,
		InvoiceNumber:  invoice.InvoiceNumber,
		TotalAmount:    invoice.TotalAmount,
		Credential:     cred,
	}
	s.notifier.InvoiceCreated(ctx, n)

	log.L(ctx).Info("invoice resync triggered",
		zap.String("invoice_number", invoice.InvoiceNumber))
	return &n, nil
}

func (s *resync) ResyncAll(ctx context.Context) (*domain.ResyncResult, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}

	invoices, err := s.invoices.ListByOrganization(ctx, tenant.OrganizationID)
	if err != nil {
		return nil, err
	}
	result := &domain.ResyncResult{Total: len(invoices)}
	if len(invoices) == 0 {
		return result, nil
	}

	cred, err := s.issuer.Issue(tenant.OrganizationID)
	if err != nil {
		return nil, err
	}

	for i := range invoices {
		inv := &invoices[i]
		s.notifier.InvoiceCreated(ctx, domain.Notification{
			InvoiceID:      inv.ID,
			OrganizationID: inv.OrganizationID,
			CustomerID:     inv.CustomerID,
			InvoiceNumber:  inv.InvoiceNumber,
			TotalAmount:    inv.TotalAmount,
			Credential:     cred,
		})
		result.Triggered++
	}

	log.L(ctx).Info("bulk invoice resync triggered",
		zap.Int("total", result.Total),
		zap.Int("triggered", result.Triggered))
	return result, nil
}
