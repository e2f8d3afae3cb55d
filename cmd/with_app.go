package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"alerttrack/internal/bootstrap"
	"alerttrack/internal/bootstrap/logging"
	"alerttrack/internal/errs"
	"alerttrack/internal/infrastructure/ws"
	"alerttrack/internal/metrics"
	"alerttrack/internal/usecase/journal"
	"alerttrack/internal/usecase/query"
)

type appHandles struct {
	App      *bootstrap.App
	Journal  *journal.Service
	Query    *query.Service
	Hub      *ws.Hub
	Recorder metrics.Recorder
}

func withApp(run func(cmd *cobra.Command, handles appHandles) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var handles appHandles
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&handles.App, &handles.Journal, &handles.Query, &handles.Hub, &handles.Recorder),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		if err := run(cmd, handles); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}
