package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/meterline/meterline/internal/clock"
	"github.com/meterline/meterline/internal/config"
	"github.com/meterline/meterline/internal/credential"
	"github.com/meterline/meterline/internal/events"
	"github.com/meterline/meterline/internal/invoice"
	"github.com/meterline/meterline/internal/metering"
	"github.com/meterline/meterline/internal/monitor"
	"github.com/meterline/meterline/internal/notifier"
	"github.com/meterline/meterline/internal/observability"
	"github.com/meterline/meterline/internal/rateplan"
	"github.com/meterline/meterline/internal/subscription"
	"github.com/meterline/meterline/pkg/db"
	"github.com/meterline/meterline/pkg/log"
	"go.uber.org/fx"
)

// The monitor-only binary: no request-facing surface, just the billing
// period loop. It assumes the invoice schema already exists.
func main() {
	app := fx.New(
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		events.Module,
		rateplan.Module,
		subscription.Module,
		metering.Module,
		invoice.Module,
		notifier.Module,
		credential.Module,

		fx.Provide(monitor.ProvideMonitor),
		fx.Invoke(StartMonitor),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// StartMonitor runs the loop unconditionally; a monitor-only deployment
// ignores the enable flag.
func StartMonitor(lc fx.Lifecycle, m *monitor.Monitor) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go m.RunForever(context.Background())
			return nil
		},
	})
}
