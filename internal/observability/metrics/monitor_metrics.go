// Package metrics exposes Prometheus instruments for the billing monitor.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MonitorErrorBoundaryListing      = "listing"
	MonitorErrorBoundaryCredential   = "credential"
	MonitorErrorBoundaryOrganization = "organization"
	MonitorErrorBoundarySubscription = "subscription"
)

// Config carries the constant labels stamped on every monitor metric.
type Config struct {
	ServiceName string
	Environment string
}

// MonitorMetrics captures billing monitor health signals.
type MonitorMetrics struct {
	tickRuns          prometheus.Counter
	tickDuration      prometheus.Observer
	invoicesGenerated prometheus.Counter
	duplicateSkips    prometheus.Counter
	tickErrors        *prometheus.CounterVec
}

var (
	monitorMetricsOnce sync.Once
	monitorMetrics     *MonitorMetrics
)

// Monitor returns the singleton monitor metrics registry.
func Monitor() *MonitorMetrics {
	return MonitorWithConfig(Config{})
}

// MonitorWithConfig returns the singleton monitor metrics registry using
// config labels.
func MonitorWithConfig(cfg Config) *MonitorMetrics {
	monitorMetricsOnce.Do(func() {
		monitorMetrics = newMonitorMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return monitorMetrics
}

// ResetMonitorMetricsForTest resets the monitor metrics singleton for tests.
func ResetMonitorMetricsForTest() {
	monitorMetricsOnce = sync.Once{}
	monitorMetrics = nil
}

func newMonitorMetrics(registerer prometheus.Registerer, cfg Config) *MonitorMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "meterline"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	tickRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "meterline_monitor_tick_runs_total",
		Help:        "Billing monitor tick executions.",
		ConstLabels: constLabels,
	})
	tickDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "meterline_monitor_tick_duration_seconds",
		Help:        "Billing monitor tick latency to protect period-close freshness.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	invoicesGenerated := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "meterline_monitor_invoices_generated_total",
		Help:        "Invoices created by the billing monitor.",
		ConstLabels: constLabels,
	})
	duplicateSkips := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "meterline_monitor_duplicate_skips_total",
		Help:        "Period closes skipped because the invoice already existed.",
		ConstLabels: constLabels,
	})
	tickErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "meterline_monitor_errors_total",
		Help:        "Billing monitor errors by isolation boundary.",
		ConstLabels: constLabels,
	}, []string{"boundary"})

	registerer.MustRegister(
		tickRuns,
		tickDuration,
		invoicesGenerated,
		duplicateSkips,
		tickErrors,
	)

	return &MonitorMetrics{
		tickRuns:          tickRuns,
		tickDuration:      tickDuration,
		invoicesGenerated: invoicesGenerated,
		duplicateSkips:    duplicateSkips,
		tickErrors:        tickErrors,
	}
}

// ObserveTick records one completed tick and its latency.
func (m *MonitorMetrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickRuns.Inc()
	m.tickDuration.Observe(d.Seconds())
}

// IncInvoicesGenerated counts invoices the monitor created.
func (m *MonitorMetrics) IncInvoicesGenerated() {
	if m == nil {
		return
	}
	m.invoicesGenerated.Inc()
}

// IncDuplicateSkip counts closes skipped on an existing invoice.
func (m *MonitorMetrics) IncDuplicateSkip() {
	if m == nil {
		return
	}
	m.duplicateSkips.Inc()
}

// IncError counts an error at the given isolation boundary.
func (m *MonitorMetrics) IncError(boundary string) {
	if m == nil {
		return
	}
	m.tickErrors.WithLabelValues(boundary).Inc()
}
