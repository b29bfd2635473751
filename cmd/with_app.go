package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"issuetracker/internal/bootstrap"
	"issuetracker/internal/bootstrap/config"
	"issuetracker/internal/bootstrap/logging"
	"issuetracker/internal/errs"
	"issuetracker/internal/usecase/datacache"
	"issuetracker/internal/usecase/issueclient"
	"issuetracker/internal/usecase/issues"
)

const fxTimeout = 10 * time.Second

func withApp(run func(cmd *cobra.Command, app *bootstrap.App, svc *issues.Service) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var app *bootstrap.App
		var svc *issues.Service
		return runFx(cmd, []fx.Option{bootstrap.Module, fx.Populate(&app, &svc)}, func(ctx context.Context) error {
			cmd.SetContext(applyLogConfig(ctx, cmd, app.Config.Log))
			return run(cmd, app, svc)
		})
	}
}

// clientDeps is what API client commands get: the shared data cache and the
// mutations that revalidate it.
type clientDeps struct {
	Config config.Config
	Cache  *datacache.Cache
	Muts   *issueclient.Mutations
}

func withClient(run func(cmd *cobra.Command, args []string, deps clientDeps) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var deps clientDeps
		return runFx(cmd, []fx.Option{bootstrap.ClientModule, fx.Populate(&deps.Config, &deps.Cache, &deps.Muts)}, func(ctx context.Context) error {
			cmd.SetContext(applyLogConfig(ctx, cmd, deps.Config.Log))
			return run(cmd, args, deps)
		})
	}
}

func runFx(cmd *cobra.Command, options []fx.Option, run func(ctx context.Context) error) error {
	ctx := logging.WithAttrs(
		cmd.Context(),
		slog.String("command", cmd.CommandPath()),
		slog.String("config_file", cfgFile),
	)

	fxApp := fx.New(
		append(options,
			fx.NopLogger,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
		)...,
	)

	startCtx, cancelStart := context.WithTimeout(ctx, fxTimeout)
	defer cancelStart()
	if err := fxApp.Start(startCtx); err != nil {
		logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "start fx application")
	}

	defer func() {
		stopCtx, cancelStop := context.WithTimeout(context.Background(), fxTimeout)
		defer cancelStop()
		if err := fxApp.Stop(stopCtx); err != nil {
			logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
		}
	}()

	if err := run(ctx); err != nil {
		return errs.Wrap(err, "run command")
	}
	return nil
}

// applyLogConfig swaps in the configured log format and level.
func applyLogConfig(ctx context.Context, cmd *cobra.Command, cfg config.LogConfig) context.Context {
	if err := logging.SetLevel(cfg.Level); err != nil {
		logging.Warn(ctx, "keep current log level", slog.Any("err", errs.Loggable(err)))
	}
	logger, err := logging.NewLogger(cmd.ErrOrStderr(), cfg.Format)
	if err != nil {
		logging.Warn(ctx, "keep current log format", slog.Any("err", errs.Loggable(err)))
		return ctx
	}
	return logging.WithLogger(ctx, logger)
}
