package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/meterline/meterline/internal/apperr"
	"github.com/meterline/meterline/internal/clock"
	"github.com/meterline/meterline/internal/config"
	"github.com/meterline/meterline/internal/credential"
	eventsdomain "github.com/meterline/meterline/internal/events/domain"
	invoicedomain "github.com/meterline/meterline/internal/invoice/domain"
	"github.com/meterline/meterline/internal/invoice/event"
	invoicerepository "github.com/meterline/meterline/internal/invoice/repository"
	invoiceservice "github.com/meterline/meterline/internal/invoice/service"
	meteringservice "github.com/meterline/meterline/internal/metering/service"
	notifierdomain "github.com/meterline/meterline/internal/notifier/domain"
	rateplandomain "github.com/meterline/meterline/internal/rateplan/domain"
	subscriptiondomain "github.com/meterline/meterline/internal/subscription/domain"
	"github.com/meterline/meterline/pkg/tenantctx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	periodStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
)

type eventsStub struct {
	orgIDs  []int64
	listErr error
	count   int64
}

func (e *eventsStub) CountEvents(ctx context.Context, orgID int64, from, to time.Time, filter eventsdomain.Filter) (int64, error) {
	return e.count, nil
}

func (e *eventsStub) ListOrganizationIDs(ctx context.Context) ([]int64, error) {
	return e.orgIDs, e.listErr
}

func (e *eventsStub) ListRatePlanIDs(ctx context.Context, orgID int64, from, to time.Time) ([]int64, error) {
	return nil, nil
}

func (e *eventsStub) ListSubscriptionIDsByRatePlan(ctx context.Context, orgID, ratePlanID int64, from, to time.Time) ([]int64, error) {
	return nil, nil
}

func (e *eventsStub) LastEventAt(ctx context.Context, orgID, subscriptionID int64) (*time.Time, error) {
	return nil, nil
}

type planStub struct {
	plans map[int64]*rateplandomain.RatePlan
}

func (p *planStub) Fetch(ctx context.Context, ratePlanID int64) (*rateplandomain.RatePlan, error) {
	plan, ok := p.plans[ratePlanID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "rate plan %d not found", ratePlanID)
	}
	return plan, nil
}

type subStub struct {
	subs []subscriptiondomain.Subscription
}

func (s *subStub) Get(ctx context.Context, subscriptionID int64) (*subscriptiondomain.Subscription, error) {
	for i := range s.subs {
		if s.subs[i].SubscriptionID == subscriptionID {
			return &s.subs[i], nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "subscription %d not found", subscriptionID)
}

func (s *subStub) ListActive(ctx context.Context) []subscriptiondomain.Subscription {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil
	}
	var out []subscriptiondomain.Subscription
	for _, sub := range s.subs {
		if sub.OrganizationID == tenant.OrganizationID {
			out = append(out, sub)
		}
	}
	return out
}

type notifierStub struct{}

func (notifierStub) InvoiceCreated(context.Context, notifierdomain.Notification) {}

func usagePlan(id int64, rate string) *rateplandomain.RatePlan {
	perUnit := decimal.RequireFromString(rate)
	metricID := int64(7)
	return &rateplandomain.RatePlan{
		RatePlanID:         id,
		BillableMetricID:   &metricID,
		UsageBasedPricings: []rateplandomain.UsageBasedPricing{{PricePerUnit: &perUnit}},
	}
}

func activeSub(subID, orgID, planID int64) subscriptiondomain.Subscription {
	start, end := periodStart, periodEnd
	plan := planID
	return subscriptiondomain.Subscription{
		SubscriptionID:            subID,
		OrganizationID:            orgID,
		CustomerID:                9,
		RatePlanID:                &plan,
		Status:                    subscriptiondomain.StatusActive,
		CurrentBillingPeriodStart: &start,
		CurrentBillingPeriodEnd:   &end,
	}
}

type fixture struct {
	monitor  *Monitor
	invoices invoicedomain.Service
	events   *eventsStub
	subs     *subStub
	clock    *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&invoicedomain.Invoice{}, &invoicedomain.LineItem{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(periodEnd.Add(5 * time.Minute))
	events := &eventsStub{orgIDs: []int64{42}, count: 250}
	plans := &planStub{plans: map[int64]*rateplandomain.RatePlan{
		11: usagePlan(11, "0.20"),
	}}
	subs := &subStub{subs: []subscriptiondomain.Subscription{activeSub(1001, 42, 11)}}

	invoices := invoiceservice.New(invoicerepository.New(gdb), event.NewBus(), notifierStub{}, node, clk)
	metering := meteringservice.New(events, plans, subs, clk)
	issuer := credential.NewIssuer(config.Config{
		CredentialSecret: "change-me-please-change-me-32-bytes-min",
		CredentialIssuer: "meterline",
		CredentialTTL:    2 * time.Hour,
	}, clk)

	return &fixture{
		monitor:  New(events, issuer, subs, metering, invoices, clk, nil, 10*time.Minute),
		invoices: invoices,
		events:   events,
		subs:     subs,
		clock:    clk,
	}
}

func tenantCtx(orgID int64) context.Context {
	return tenantctx.With(context.Background(), tenantctx.Tenant{OrganizationID: orgID, Credential: "tok"})
}

func TestTickClosesElapsedPeriodOnce(t *testing.T) {
	f := newFixture(t)

	summary := f.monitor.RunOnce(context.Background())
	assert.Equal(t, 1, summary.Organizations)
	assert.Equal(t, 1, summary.Subscriptions)
	assert.Equal(t, 1, summary.InvoicesGenerated)
	assert.Zero(t, summary.Errors)

	created, err := f.invoices.ListByOrganization(tenantCtx(42))
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.True(t, created[0].TotalAmount.Equal(decimal.RequireFromString("50.00")),
		"got total %s", created[0].TotalAmount)
	assert.True(t, created[0].BillingPeriodStart.Equal(periodStart))
	assert.True(t, created[0].BillingPeriodEnd.Equal(periodEnd))

	// Same inputs again: the period is already invoiced, nothing new appears.
	summary = f.monitor.RunOnce(context.Background())
	assert.Zero(t, summary.InvoicesGenerated)
	assert.Zero(t, summary.Errors)

	after, err := f.invoices.ListByOrganization(tenantCtx(42))
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.True(t, after[0].TotalAmount.Equal(created[0].TotalAmount))
}

func TestTickSkipsOpenPeriods(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(periodEnd.Add(-time.Hour))

	summary := f.monitor.RunOnce(context.Background())
	assert.Zero(t, summary.InvoicesGenerated)
	assert.Zero(t, summary.Errors)
}

func TestTickSkipsUnanchoredSubscription(t *testing.T) {
	f := newFixture(t)
	f.subs.subs[0].CurrentBillingPeriodStart = nil
	f.subs.subs[0].CurrentBillingPeriodEnd = nil

	summary := f.monitor.RunOnce(context.Background())
	assert.Equal(t, 1, summary.Subscriptions)
	assert.Zero(t, summary.InvoicesGenerated)
	assert.Zero(t, summary.Errors)
}

func TestListingFailureAbortsTick(t *testing.T) {
	f := newFixture(t)
	f.events.listErr = apperr.New(apperr.KindStorageError, "event store down")

	summary := f.monitor.RunOnce(context.Background())
	assert.Zero(t, summary.Organizations)
	assert.Equal(t, 1, summary.Errors)
}

func TestBadSubscriptionDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t)
	// The first subscription points at a plan the catalogue no longer serves.
	missing := int64(999)
	broken := activeSub(1000, 42, 11)
	broken.RatePlanID = &missing
	f.subs.subs = append([]subscriptiondomain.Subscription{broken}, f.subs.subs...)

	summary := f.monitor.RunOnce(context.Background())
	assert.Equal(t, 2, summary.Subscriptions)
	assert.Equal(t, 1, summary.InvoicesGenerated)
	assert.Equal(t, 1, summary.Errors)

	created, err := f.invoices.ListByOrganization(tenantCtx(42))
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.NotNil(t, created[0].SubscriptionID)
	assert.EqualValues(t, 1001, *created[0].SubscriptionID)
}

func TestCanceledContextStopsWalk(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := f.monitor.RunOnce(ctx)
	assert.Zero(t, summary.InvoicesGenerated)
}

type racyInvoiceService struct {
	invoicedomain.Service
}

func (racyInvoiceService) ExistsForPeriod(context.Context, int64, time.Time, time.Time) (bool, error) {
	return false, nil
}

func (racyInvoiceService) Create(context.Context, invoicedomain.CreateRequest) (*invoicedomain.Invoice, error) {
	return nil, apperr.New(apperr.KindAlreadyExists, "invoice already exists")
}

func TestConcurrentCloseCountsAsDuplicate(t *testing.T) {
	f := newFixture(t)
	// Another instance wins the race between the existence check and the
	// insert; the tick records a duplicate, not an error.
	f.monitor.invoices = racyInvoiceService{Service: f.invoices}

	summary := f.monitor.RunOnce(context.Background())
	assert.Equal(t, 1, summary.Duplicates)
	assert.Zero(t, summary.InvoicesGenerated)
	assert.Zero(t, summary.Errors)
}
