// Package observability wires metrics into the application graph.
package observability

import (
	"github.com/meterline/meterline/internal/config"
	"github.com/meterline/meterline/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		provideMetricsConfig,
		provideMonitorMetrics,
	),
)

func provideMetricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	}
}

func provideMonitorMetrics(cfg metrics.Config) *metrics.MonitorMetrics {
	return metrics.MonitorWithConfig(cfg)
}
