package main

import (
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

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Functional domains
		events.Module,
		rateplan.Module,
		subscription.Module,
		metering.Module,
		invoice.Module,
		notifier.Module,
		credential.Module,
		monitor.Module,
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
