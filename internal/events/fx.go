package events

import (
	"github.com/meterline/meterline/internal/config"
	eventsdomain "github.com/meterline/meterline/internal/events/domain"
	"github.com/meterline/meterline/internal/events/repository"
	"github.com/meterline/meterline/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// DB wraps the read-only events database handle so fx can tell it apart from
// the invoice store.
type DB struct {
	*gorm.DB
}

var Module = fx.Module("events",
	fx.Provide(NewEventsDB),
	fx.Provide(NewReader),
)

// NewEventsDB opens the secondary (ingestion) database from application config.
func NewEventsDB(cfg config.Config) (DB, error) {
	gdb, err := db.Open(db.Config{
		Type:     cfg.DBType,
		Host:     cfg.EventsDBHost,
		Port:     cfg.EventsDBPort,
		Name:     cfg.EventsDBName,
		User:     cfg.EventsDBUser,
		Password: cfg.EventsDBPassword,
		SSLMode:  cfg.EventsDBSSLMode,
	})
	if err != nil {
		return DB{}, err
	}
	return DB{gdb}, nil
}

func NewReader(edb DB) eventsdomain.Reader {
	return repository.New(edb.DB)
}
