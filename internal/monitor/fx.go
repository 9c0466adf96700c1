package monitor

import (
	"context"

	"github.com/meterline/meterline/internal/clock"
	"github.com/meterline/meterline/internal/config"
	"github.com/meterline/meterline/internal/credential"
	eventsdomain "github.com/meterline/meterline/internal/events/domain"
	invoicedomain "github.com/meterline/meterline/internal/invoice/domain"
	meteringdomain "github.com/meterline/meterline/internal/metering/domain"
	obsmetrics "github.com/meterline/meterline/internal/observability/metrics"
	subscriptiondomain "github.com/meterline/meterline/internal/subscription/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("monitor",
	fx.Provide(ProvideMonitor),
	fx.Invoke(StartMonitor),
)

func ProvideMonitor(
	cfg config.Config,
	events eventsdomain.Reader,
	issuer credential.Issuer,
	subscriptions subscriptiondomain.Fetcher,
	metering meteringdomain.Service,
	invoices invoicedomain.Service,
	clk clock.Clock,
	metrics *obsmetrics.MonitorMetrics,
) *Monitor {
	return New(events, issuer, subscriptions, metering, invoices, clk, metrics, cfg.MonitorInterval)
}

// StartMonitor runs the monitor loop for the lifetime of the application.
func StartMonitor(lc fx.Lifecycle, cfg config.Config, m *Monitor) {
	if !cfg.MonitorEnabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go m.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
