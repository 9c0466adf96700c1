package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/meterline/meterline/internal/apperr"
	"github.com/meterline/meterline/internal/invoice/domain"
	"github.com/meterline/meterline/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// New returns a Repository backed by the invoice store.
func New(gdb *gorm.DB) domain.Repository {
	return &repository{db: gdb}
}

func (r *repository) Save(ctx context.Context, invoice *domain.Invoice) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(invoice).Error
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return apperr.Wrap(err, apperr.KindAlreadyExists, "invoice already exists for subscription and period")
		}
		return apperr.Wrap(err, apperr.KindStorageError, "save invoice")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.withLineItems(ctx).First(&invoice, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "invoice %d not found", id)
		}
		return nil, apperr.Wrap(err, apperr.KindStorageError, "find invoice by id")
	}
	return &invoice, nil
}

func (r *repository) FindByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.withLineItems(ctx).First(&invoice, "invoice_number = ?", number).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "invoice %s not found", number)
		}
		return nil, apperr.Wrap(err, apperr.KindStorageError, "find invoice by number")
	}
	return &invoice, nil
}

func (r *repository) ListByOrganization(ctx context.Context, orgID int64) ([]domain.Invoice, error) {
	return r.list(ctx, "organization_id = ?", orgID)
}

func (r *repository) ListByCustomer(ctx context.Context, orgID, customerID int64) ([]domain.Invoice, error) {
	return r.list(ctx, "organization_id = ? AND customer_id = ?", orgID, customerID)
}

func (r *repository) ListBySubscription(ctx context.Context, orgID, subscriptionID int64) ([]domain.Invoice, error) {
	return r.list(ctx, "organization_id = ? AND subscription_id = ?", orgID, subscriptionID)
}

func (r *repository) ListByStatus(ctx context.Context, orgID int64, status domain.Status) ([]domain.Invoice, error) {
	return r.list(ctx, "organization_id = ? AND status = ?", orgID, status)
}

func (r *repository) ListByPeriod(ctx context.Context, orgID int64, from, to time.Time) ([]domain.Invoice, error) {
	return r.list(ctx, "organization_id = ? AND billing_period_start >= ? AND billing_period_end <= ?", orgID, from, to)
}

func (r *repository) ExistsForPeriod(ctx context.Context, orgID, subscriptionID int64, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("organization_id = ? AND subscription_id = ? AND billing_period_start = ? AND billing_period_end = ?",
			orgID, subscriptionID, start, end).
		Count(&count).Error
	if err != nil {
		return false, apperr.Wrap(err, apperr.KindStorageError, "probe invoice period")
	}
	return count > 0, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id snowflake.ID, status domain.Status) (*domain.Invoice, error) {
	err := r.db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindStorageError, "update invoice status")
	}
	return r.FindByID(ctx, id)
}

func (r *repository) list(ctx context.Context, query string, args ...any) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := r.withLineItems(ctx).
		Where(query, args...).
		Order("created_at DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindStorageError, "list invoices")
	}
	return invoices, nil
}

func (r *repository) withLineItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("LineItems", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("line_number ASC")
	})
}
