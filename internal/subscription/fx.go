package subscription

import (
	"github.com/meterline/meterline/internal/subscription/client"
	"github.com/meterline/meterline/internal/subscription/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription",
	fx.Provide(
		fx.Annotate(client.New, fx.As(new(domain.Fetcher))),
	),
)
