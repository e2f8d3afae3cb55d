package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"alerttrack/internal/bootstrap/config"
	"alerttrack/internal/bootstrap/database"
	"alerttrack/internal/bootstrap/logging"
	cacheinfra "alerttrack/internal/infrastructure/cache"
	"alerttrack/internal/infrastructure/inventory"
	sqliterepo "alerttrack/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "alerttrack/internal/infrastructure/persistence/sqlite/uow"
	"alerttrack/internal/infrastructure/ws"
	"alerttrack/internal/metrics"
	"alerttrack/internal/ports"
	"alerttrack/internal/usecase/journal"
	"alerttrack/internal/usecase/query"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewEventRepository,
			fx.As(new(ports.EventRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewMessageRepository,
			fx.As(new(ports.MessageRepository)),
			fx.As(new(ports.StatsRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideEnricher),
	fx.Provide(ws.NewHub),
	fx.Provide(func(h *ws.Hub) ports.UpdatePublisher { return h }),
	fx.Provide(metrics.New),
	fx.Provide(func(m *metrics.Metrics) metrics.Recorder { return m }),
	fx.Provide(provideJournalService),
	fx.Provide(provideQueryService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideEnricher(cfg config.Config, cache ports.Cache) ports.Enricher {
	return inventory.NewClient(cfg.Inventory, cache)
}

func provideJournalService(
	events ports.EventRepository,
	messages ports.MessageRepository,
	uow ports.UnitOfWork,
	enricher ports.Enricher,
	publisher ports.UpdatePublisher,
	recorder metrics.Recorder,
) *journal.Service {
	return journal.NewService(events, messages, uow, enricher, publisher, recorder)
}

func provideQueryService(events ports.EventRepository, messages ports.MessageRepository, stats ports.StatsRepository) *query.Service {
	return query.NewService(events, messages, stats)
}
