package service

import (
	"context"
	"time"

	"github.com/meterline/meterline/internal/apperr"
	"github.com/meterline/meterline/internal/clock"
	eventsdomain "github.com/meterline/meterline/internal/events/domain"
	"github.com/meterline/meterline/internal/metering/domain"
	"github.com/meterline/meterline/internal/pricing"
	rateplandomain "github.com/meterline/meterline/internal/rateplan/domain"
	subscriptiondomain "github.com/meterline/meterline/internal/subscription/domain"
	"github.com/meterline/meterline/pkg/log"
	"github.com/meterline/meterline/pkg/tenantctx"
	"go.uber.org/zap"
)

type service struct {
	events        eventsdomain.Reader
	ratePlans     rateplandomain.Fetcher
	subscriptions subscriptiondomain.Fetcher
	clock         clock.Clock
}

// New wires the metering service over its collaborators.
func New(
	events eventsdomain.Reader,
	ratePlans rateplandomain.Fetcher,
	subscriptions subscriptiondomain.Fetcher,
	clk clock.Clock,
) domain.Service {
	return &service{
		events:        events,
		ratePlans:     ratePlans,
		subscriptions: subscriptions,
		clock:         clk,
	}
}

// Estimate resolves identifiers and the window, counts SUCCESS events in
// [from, to), and prices the count against the rate plan.
func (s *service) Estimate(ctx context.Context, req domain.Request) (*domain.Response, error) {
	tenant, err := tenantctx.Require(ctx)
	if err != nil {
		return nil, err
	}

	from, to := req.From, req.To
	subscriptionID := req.SubscriptionID
	productID := req.ProductID
	ratePlanID := req.RatePlanID
	metricID := req.BillableMetricID

	if subscriptionID != nil {
		sub, err := s.subscriptions.Get(ctx, *subscriptionID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return nil, apperr.Wrap(err, apperr.KindInvalidState, "subscription %d is gone", *subscriptionID)
			}
			return nil, err
		}
		productID = sub.ProductID
		if sub.RatePlanID == nil {
			return nil, apperr.New(apperr.KindInvalidState, "subscription %d has no rate plan", *subscriptionID)
		}
		ratePlanID = sub.RatePlanID

		// Neither bound supplied: the subscription's current billing period
		// is the window.
		if from == nil && to == nil {
			from = sub.CurrentBillingPeriodStart
			to = sub.CurrentBillingPeriodEnd
		}
	}

	if ratePlanID == nil {
		return nil, apperr.New(apperr.KindInvalidArgument, "either subscriptionId or ratePlanId is required")
	}

	plan, err := s.ratePlans.Fetch(ctx, *ratePlanID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Wrap(err, apperr.KindInvalidState, "rate plan %d not found", *ratePlanID)
		}
		return nil, err
	}
	if metricID == nil {
		metricID = plan.BillableMetricID
	}

	now := s.clock.Now()
	if from == nil {
		f := now.Add(-time.Hour)
		from = &f
	}
	if to == nil {
		t := now
		to = &t
	}
	if !from.Before(*to) {
		return nil, apperr.New(apperr.KindInvalidArgument, "malformed window: from %s is not before to %s", from, to)
	}

	count, err := s.events.CountEvents(ctx, tenant.OrganizationID, *from, *to, eventsdomain.Filter{
		SubscriptionID:   subscriptionID,
		ProductID:        productID,
		RatePlanID:       ratePlanID,
		BillableMetricID: metricID,
	})
	if err != nil {
		return nil, err
	}

	priced := pricing.Price(plan, count, now)
	log.L(ctx).Info("usage estimated",
		zap.Int64("rate_plan_id", *ratePlanID),
		zap.Int64("event_count", count),
		zap.String("total", priced.Total.String()),
		zap.Time("from", *from),
		zap.Time("to", *to))

	return &domain.Response{
		ModelType:  priced.ModelType,
		EventCount: priced.EventCount,
		Breakdown:  priced.Breakdown,
		Total:      priced.Total,
		From:       *from,
		To:         *to,
	}, nil
}
