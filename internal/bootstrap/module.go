package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"issuetracker/internal/bootstrap/config"
	"issuetracker/internal/bootstrap/database"
	"issuetracker/internal/bootstrap/logging"
	"issuetracker/internal/infrastructure/apiclient"
	cacheinfra "issuetracker/internal/infrastructure/cache"
	sqliterepo "issuetracker/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "issuetracker/internal/infrastructure/persistence/sqlite/uow"
	"issuetracker/internal/ports"
	"issuetracker/internal/usecase/datacache"
	"issuetracker/internal/usecase/issueclient"
	"issuetracker/internal/usecase/issues"
)

var configModule = fx.Options(
	fx.Provide(provideConfig),
)

// Module wires the server side: database, issue store and issue service.
var Module = fx.Options(
	configModule,
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewIssueRepository,
			fx.As(new(ports.IssueRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(issues.NewService),
)

// ClientModule wires the API client side: HTTP client, data cache and
// write mutations. It needs no database.
var ClientModule = fx.Options(
	configModule,
	fx.Provide(
		fx.Annotate(
			provideAPIClient,
			fx.As(fx.Self()),
			fx.As(new(issueclient.IssueWriter)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewMemoryCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideDataCache),
	fx.Provide(issueclient.NewMutations),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, *config.Loader, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.LoadWithLoader(ctx, p.ConfigFile)
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
			if err := sqlDB.Close(); err != nil {
				return err
			}
			logging.Info(logCtx, "database connection closed")
			return nil
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, loader *config.Loader, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		Loader: loader,
		DB:     db,
	}
}

func provideAPIClient(cfg config.Config) (*apiclient.Client, error) {
	return apiclient.New(cfg.Client.BaseURL, nil)
}

func provideDataCache(lc fx.Lifecycle, ctx context.Context, store ports.Cache, api *apiclient.Client) (*datacache.Cache, error) {
	c, err := datacache.New(ctx, store, api.Fetch)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			c.Close()
			return nil
		},
	})
	return c, nil
}
