package metering

import (
	"github.com/meterline/meterline/internal/metering/service"
	"go.uber.org/fx"
)

var Module = fx.Module("metering",
	fx.Provide(service.New),
)
