package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"issuetracker/internal/bootstrap"
	"issuetracker/internal/bootstrap/config"
	"issuetracker/internal/bootstrap/logging"
	"issuetracker/internal/errs"
	"issuetracker/internal/interfaces/httpapi"
	"issuetracker/internal/usecase/issues"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the issue JSON API",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *issues.Service) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = app.Config.HTTP.Addr
		}

		migrate, _ := cmd.Flags().GetBool("migrate")
		if migrate {
			if err := app.InitSchema(ctx); err != nil {
				return errs.Wrap(err, "initialize schema")
			}
		}

		app.Loader.Watch(ctx, func(cfg config.Config) {
			if err := logging.SetLevel(cfg.Log.Level); err != nil {
				logging.Warn(ctx, "ignore log level change", slog.Any("err", errs.Loggable(err)))
				return
			}
			logging.Info(ctx, "log level updated", slog.String("level", logging.Level().String()))
		})

		server := &http.Server{
			Addr:              addr,
			Handler:           httpapi.NewHandler(ctx, svc),
			ReadHeaderTimeout: app.Config.HTTP.ReadHeaderTimeout,
		}

		serveErr := make(chan error, 1)
		go func() {
			serveErr <- server.ListenAndServe()
		}()
		logging.Info(ctx, "issue api server started", slog.String("addr", addr))

		select {
		case err := <-serveErr:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error(ctx, "issue api server failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "serve issue api")
			}
			return nil
		case <-ctx.Done():
		}

		logging.Info(ctx, "shutting down issue api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown issue api")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides http.addr)")
	serveCmd.Flags().Bool("migrate", true, "Create the schema before serving")
}
