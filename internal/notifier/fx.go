package notifier

import (
	"github.com/meterline/meterline/internal/notifier/client"
	"github.com/meterline/meterline/internal/notifier/domain"
	"github.com/meterline/meterline/internal/notifier/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notifier",
	fx.Provide(
		fx.Annotate(client.New, fx.As(new(domain.Notifier))),
		service.NewResync,
	),
)
