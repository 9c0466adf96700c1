package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/meterline/meterline/internal/apperr"
	"github.com/meterline/meterline/internal/invoice/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	periodStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
)

func setupRepo(t *testing.T) (domain.Repository, *snowflake.Node) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	// One connection: every goroutine sees the same in-memory database.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&domain.Invoice{}, &domain.LineItem{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(gdb), node
}

func buildInvoice(node *snowflake.Node, orgID int64, subscriptionID *int64, start, end time.Time) *domain.Invoice {
	id := node.Generate()
	now := time.Now().UTC()
	inv := &domain.Invoice{
		ID:                 id,
		OrganizationID:     orgID,
		CustomerID:         9,
		SubscriptionID:     subscriptionID,
		InvoiceNumber:      fmt.Sprintf("INV-%s", id),
		ModelType:          "MONTHLY",
		TotalAmount:        decimal.RequireFromString("125.00"),
		BillingPeriodStart: start,
		BillingPeriodEnd:   end,
		Status:             domain.StatusDraft,
		CreatedAt:          now,
		UpdatedAt:          now,
		LineItems: []domain.LineItem{
			{ID: node.Generate(), InvoiceID: id, LineNumber: 1, Description: "Flat Fee", Calculation: "Base", Amount: decimal.RequireFromString("100.00"), CreatedAt: now},
			{ID: node.Generate(), InvoiceID: id, LineNumber: 2, Description: "Overage Charges", Calculation: "250 * 0.1", Amount: decimal.RequireFromString("25.00"), CreatedAt: now},
		},
	}
	return inv
}

func ip(v int64) *int64 { return &v }

func TestSaveAndFindWithLineItems(t *testing.T) {
	repo, node := setupRepo(t)
	ctx := context.Background()

	inv := buildInvoice(node, 42, ip(100), periodStart, periodEnd)
	require.NoError(t, repo.Save(ctx, inv))

	got, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("125.00")))
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, 1, got.LineItems[0].LineNumber)
	assert.Equal(t, "Flat Fee", got.LineItems[0].Description)
	assert.Equal(t, 2, got.LineItems[1].LineNumber)

	byNumber, err := repo.FindByNumber(ctx, inv.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, byNumber.ID)
}

func TestFindMissing(t *testing.T) {
	repo, node := setupRepo(t)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, node.Generate())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = repo.FindByNumber(ctx, "INV-nope")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestPeriodUniqueness(t *testing.T) {
	repo, node := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, buildInvoice(node, 42, ip(100), periodStart, periodEnd)))

	err := repo.Save(ctx, buildInvoice(node, 42, ip(100), periodStart, periodEnd))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindAlreadyExists))

	// Other subscription, other period, other tenant: all fine.
	require.NoError(t, repo.Save(ctx, buildInvoice(node, 42, ip(101), periodStart, periodEnd)))
	require.NoError(t, repo.Save(ctx, buildInvoice(node, 42, ip(100), periodEnd, periodEnd.AddDate(0, 1, 0))))
	require.NoError(t, repo.Save(ctx, buildInvoice(node, 43, ip(100), periodStart, periodEnd)))
}

func TestConcurrentSavesKeepOneInvoice(t *testing.T) {
	repo, node := setupRepo(t)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Save(ctx, buildInvoice(node, 42, ip(100), periodStart, periodEnd))
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.True(t, apperr.IsKind(err, apperr.KindAlreadyExists), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)

	invoices, err := repo.ListBySubscription(ctx, 42, 100)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
}

func TestExistsForPeriod(t *testing.T) {
	repo, node := setupRepo(t)
	ctx := context.Background()

	exists, err := repo.ExistsForPeriod(ctx, 42, 100, periodStart, periodEnd)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Save(ctx, buildInvoice(node, 42, ip(100), periodStart, periodEnd)))

	exists, err = repo.ExistsForPeriod(ctx, 42, 100, periodStart, periodEnd)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsForPeriod(ctx, 42, 100, periodEnd, periodEnd.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListsAreTenantScopedAndOrdered(t *testing.T) {
	repo, node := setupRepo(t)
	ctx := context.Background()

	first := buildInvoice(node, 42, ip(100), periodStart, periodEnd)
	first.CreatedAt = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	second := buildInvoice(node, 42, ip(100), periodEnd, periodEnd.AddDate(0, 1, 0))
	second.CreatedAt = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	other := buildInvoice(node, 77, ip(200), periodStart, periodEnd)

	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))
	require.NoError(t, repo.Save(ctx, other))

	invoices, err := repo.ListByOrganization(ctx, 42)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	// Newest first.
	assert.Equal(t, second.ID, invoices[0].ID)
	assert.Equal(t, first.ID, invoices[1].ID)
	require.Len(t, invoices[0].LineItems, 2)

	byCustomer, err := repo.ListByCustomer(ctx, 42, 9)
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)

	byStatus, err := repo.ListByStatus(ctx, 42, domain.StatusDraft)
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	byPeriod, err := repo.ListByPeriod(ctx, 42, periodStart, periodEnd)
	require.NoError(t, err)
	assert.Len(t, byPeriod, 1)
}

func TestUpdateStatus(t *testing.T) {
	repo, node := setupRepo(t)
	ctx := context.Background()

	inv := buildInvoice(node, 42, ip(100), periodStart, periodEnd)
	require.NoError(t, repo.Save(ctx, inv))

	updated, err := repo.UpdateStatus(ctx, inv.ID, domain.StatusIssued)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIssued, updated.Status)
	assert.True(t, updated.UpdatedAt.After(inv.UpdatedAt) || updated.UpdatedAt.Equal(inv.UpdatedAt))
}
