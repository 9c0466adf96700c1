package invoice

import (
	"github.com/meterline/meterline/internal/invoice/event"
	"github.com/meterline/meterline/internal/invoice/repository"
	"github.com/meterline/meterline/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice",
	fx.Provide(
		event.NewBus,
		repository.New,
		service.New,
	),
)
