package rateplan

import (
	"github.com/meterline/meterline/internal/rateplan/client"
	"github.com/meterline/meterline/internal/rateplan/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("rateplan",
	fx.Provide(
		fx.Annotate(client.New, fx.As(new(domain.Fetcher))),
	),
)
