package repository

import (
	"context"
	"time"

	"github.com/meterline/meterline/internal/apperr"
	eventsdomain "github.com/meterline/meterline/internal/events/domain"
	"gorm.io/gorm"
)

type reader struct {
	db *gorm.DB
}

// New returns a Reader backed by the events database handle.
func New(db *gorm.DB) eventsdomain.Reader {
	return &reader{db: db}
}

func (r *reader) CountEvents(ctx context.Context, orgID int64, from, to time.Time, filter eventsdomain.Filter) (int64, error) {
	stmt := r.db.WithContext(ctx).
		Model(&eventsdomain.IngestionEvent{}).
		Where("status = ?", eventsdomain.EventStatusSuccess).
		Where("organization_id = ?", orgID).
		Where("timestamp >= ? AND timestamp < ?", from, to)

	if filter.SubscriptionID != nil {
		stmt = stmt.Where("subscription_id = ?", *filter.SubscriptionID)
	}
	if filter.ProductID != nil {
		stmt = stmt.Where("product_id = ?", *filter.ProductID)
	}
	if filter.RatePlanID != nil {
		stmt = stmt.Where("rate_plan_id = ?", *filter.RatePlanID)
	}
	if filter.BillableMetricID != nil {
		stmt = stmt.Where("billable_metric_id = ?", *filter.BillableMetricID)
	}

	var count int64
	if err := stmt.Count(&count).Error; err != nil {
		return 0, apperr.Wrap(err, apperr.KindStorageError, "count events")
	}
	return count, nil
}

func (r *reader) ListOrganizationIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&eventsdomain.IngestionEvent{}).
		Distinct("organization_id").
		Where("organization_id IS NOT NULL").
		Order("organization_id").
		Pluck("organization_id", &ids).Error
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindStorageError, "list organizations")
	}
	return ids, nil
}

func (r *reader) ListRatePlanIDs(ctx context.Context, orgID int64, from, to time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&eventsdomain.IngestionEvent{}).
		Distinct("rate_plan_id").
		Where("status = ?", eventsdomain.EventStatusSuccess).
		Where("organization_id = ?", orgID).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Where("rate_plan_id IS NOT NULL").
		Pluck("rate_plan_id", &ids).Error
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindStorageError, "list rate plans")
	}
	return ids, nil
}

func (r *reader) ListSubscriptionIDsByRatePlan(ctx context.Context, orgID, ratePlanID int64, from, to time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&eventsdomain.IngestionEvent{}).
		Distinct("subscription_id").
		Where("status = ?", eventsdomain.EventStatusSuccess).
		Where("organization_id = ?", orgID).
		Where("rate_plan_id = ?", ratePlanID).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Where("subscription_id IS NOT NULL").
		Pluck("subscription_id", &ids).Error
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindStorageError, "list subscriptions")
	}
	return ids, nil
}

func (r *reader) LastEventAt(ctx context.Context, orgID, subscriptionID int64) (*time.Time, error) {
	var result struct {
		Last *time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&eventsdomain.IngestionEvent{}).
		Select("MAX(timestamp) AS last").
		Where("status = ?", eventsdomain.EventStatusSuccess).
		Where("organization_id = ?", orgID).
		Where("subscription_id = ?", subscriptionID).
		Scan(&result).Error
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindStorageError, "last event")
	}
	return result.Last, nil
}
