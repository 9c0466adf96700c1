// Package monitor closes elapsed billing periods. It walks every
// organization with recorded events, lists its active subscriptions, and
// generates an invoice for each subscription whose current period has
// ended and has no invoice yet.
package monitor

import (
	"context"
	"time"

	"github.com/meterline/meterline/internal/apperr"
	"github.com/meterline/meterline/internal/clock"
	"github.com/meterline/meterline/internal/credential"
	eventsdomain "github.com/meterline/meterline/internal/events/domain"
	invoicedomain "github.com/meterline/meterline/internal/invoice/domain"
	meteringdomain "github.com/meterline/meterline/internal/metering/domain"
	obsmetrics "github.com/meterline/meterline/internal/observability/metrics"
	subscriptiondomain "github.com/meterline/meterline/internal/subscription/domain"
	"github.com/meterline/meterline/pkg/log"
	"github.com/meterline/meterline/pkg/tenantctx"
	"go.uber.org/zap"
)

// Summary is the outcome of one monitor tick.
type Summary struct {
	Organizations     int
	Subscriptions     int
	InvoicesGenerated int
	Duplicates        int
	Errors            int
}

type Monitor struct {
	events        eventsdomain.Reader
	issuer        credential.Issuer
	subscriptions subscriptiondomain.Fetcher
	metering      meteringdomain.Service
	invoices      invoicedomain.Service
	clock         clock.Clock
	metrics       *obsmetrics.MonitorMetrics
	interval      time.Duration
}

// New assembles the monitor. The metrics handle may be nil in tests.
func New(
	events eventsdomain.Reader,
	issuer credential.Issuer,
	subscriptions subscriptiondomain.Fetcher,
	metering meteringdomain.Service,
	invoices invoicedomain.Service,
	clk clock.Clock,
	metrics *obsmetrics.MonitorMetrics,
	interval time.Duration,
) *Monitor {
	return &Monitor{
		events:        events,
		issuer:        issuer,
		subscriptions: subscriptions,
		metering:      metering,
		invoices:      invoices,
		clock:         clk,
		metrics:       metrics,
		interval:      interval,
	}
}

// RunForever ticks at the configured interval until ctx is canceled. The
// first tick fires immediately.
func (m *Monitor) RunForever(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		summary := m.RunOnce(ctx)
		log.L(ctx).Info("monitor tick finished",
			zap.Int("organizations", summary.Organizations),
			zap.Int("subscriptions", summary.Subscriptions),
			zap.Int("invoices_generated", summary.InvoicesGenerated),
			zap.Int("duplicates", summary.Duplicates),
			zap.Int("errors", summary.Errors))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single tick. A failure to list organizations or to
// mint a service credential aborts the tick; everything past that point is
// isolated so one bad subscription or tenant cannot block the rest.
func (m *Monitor) RunOnce(ctx context.Context) Summary {
	start := time.Now()
	defer func() {
		m.metrics.ObserveTick(time.Since(start))
	}()

	var summary Summary

	orgIDs, err := m.events.ListOrganizationIDs(ctx)
	if err != nil {
		log.L(ctx).Error("monitor cannot list organizations", zap.Error(err))
		m.metrics.IncError(obsmetrics.MonitorErrorBoundaryListing)
		summary.Errors++
		return summary
	}
	summary.Organizations = len(orgIDs)

	for _, orgID := range orgIDs {
		if ctx.Err() != nil {
			return summary
		}

		cred, err := m.issuer.Issue(orgID)
		if err != nil {
			// A broken issuer fails for every organization the same way.
			log.L(ctx).Error("monitor cannot mint service credential",
				zap.Int64("organization_id", orgID),
				zap.Error(err))
			m.metrics.IncError(obsmetrics.MonitorErrorBoundaryCredential)
			summary.Errors++
			return summary
		}

		tctx := tenantctx.With(ctx, tenantctx.Tenant{
			OrganizationID: orgID,
			Credential:     cred,
		})
		m.runTenant(tctx, orgID, &summary)
	}
	return summary
}

func (m *Monitor) runTenant(ctx context.Context, orgID int64, summary *Summary) {
	subs := m.subscriptions.ListActive(ctx)
	summary.Subscriptions += len(subs)

	for i := range subs {
		if ctx.Err() != nil {
			return
		}
		if err := m.closeSubscription(ctx, &subs[i], summary); err != nil {
			log.L(ctx).Warn("monitor skipped subscription",
				zap.Int64("organization_id", orgID),
				zap.Int64("subscription_id", subs[i].SubscriptionID),
				zap.Error(err))
			m.metrics.IncError(obsmetrics.MonitorErrorBoundarySubscription)
			summary.Errors++
		}
	}
}

func (m *Monitor) closeSubscription(ctx context.Context, sub *subscriptiondomain.Subscription, summary *Summary) error {
	due, err := m.shouldClose(ctx, sub)
	if err != nil {
		return err
	}
	if !due {
		return nil
	}

	start := *sub.CurrentBillingPeriodStart
	end := *sub.CurrentBillingPeriodEnd

	meter, err := m.metering.Estimate(ctx, meteringdomain.Request{
		From:           &start,
		To:             &end,
		SubscriptionID: &sub.SubscriptionID,
	})
	if err != nil {
		return err
	}

	invoice, err := m.invoices.Create(ctx, invoicedomain.CreateRequest{
		Meter:          meter,
		CustomerID:     sub.CustomerID,
		SubscriptionID: &sub.SubscriptionID,
		RatePlanID:     sub.RatePlanID,
		PeriodStart:    start,
		PeriodEnd:      end,
	})
	if err != nil {
		// Another tick or instance already closed the period.
		if apperr.IsKind(err, apperr.KindAlreadyExists) {
			log.L(ctx).Debug("billing period already invoiced",
				zap.Int64("subscription_id", sub.SubscriptionID),
				zap.Time("period_end", end))
			m.metrics.IncDuplicateSkip()
			summary.Duplicates++
			return nil
		}
		return err
	}

	log.L(ctx).Info("billing period closed",
		zap.Int64("subscription_id", sub.SubscriptionID),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("total", invoice.TotalAmount.StringFixed(2)))
	m.metrics.IncInvoicesGenerated()
	summary.InvoicesGenerated++
	return nil
}

// shouldClose reports whether the subscription's current period has fully
// elapsed and no invoice covers it yet. Subscriptions without anchored
// period bounds are never due.
func (m *Monitor) shouldClose(ctx context.Context, sub *subscriptiondomain.Subscription) (bool, error) {
	if sub.CurrentBillingPeriodStart == nil || sub.CurrentBillingPeriodEnd == nil {
		return false, nil
	}
	if m.clock.Now().Before(*sub.CurrentBillingPeriodEnd) {
		return false, nil
	}

	exists, err := m.invoices.ExistsForPeriod(ctx, sub.SubscriptionID,
		*sub.CurrentBillingPeriodStart, *sub.CurrentBillingPeriodEnd)
	if err != nil {
		return false, err
	}
	return !exists, nil
}
