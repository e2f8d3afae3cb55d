package cmd

import (
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"alerttrack/internal/bootstrap/logging"
	"alerttrack/internal/errs"
	"alerttrack/internal/transport/httpapi"
	natstransport "alerttrack/internal/transport/nats"
)

var serveDisableConsumer bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the alert journal service",
	Long:  "Starts the HTTP API, the websocket hub and the NATS alert consumer. Stops on SIGINT/SIGTERM.",
	RunE: withApp(func(cmd *cobra.Command, handles appHandles) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.WithAttrs(ctx, slog.String("command", cmd.CommandPath()))

		if err := handles.App.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		var wg sync.WaitGroup

		wg.Add(1)
		go func() {
			defer wg.Done()
			handles.Hub.Run(ctx)
		}()

		if !serveDisableConsumer {
			nc, err := natstransport.Connect(ctx, handles.App.Config.NATS)
			if err != nil {
				stop()
				wg.Wait()
				return errs.Wrap(err, "connect nats")
			}
			defer nc.Close()

			consumer := natstransport.NewConsumer(nc, handles.Journal, handles.App.Config.NATS, handles.Recorder)
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := consumer.Run(ctx); err != nil {
					logging.Error(ctx, "nats consumer stopped", slog.Any("err", errs.Loggable(err)))
					stop()
				}
			}()
		}

		server := httpapi.NewServer(handles.App.Config.HTTP, handles.Query, handles.Hub)
		err := server.Run(ctx)

		stop()
		wg.Wait()

		if err != nil {
			return errs.Wrap(err, "run http server")
		}
		logging.Info(cmd.Context(), "serve finished")
		return nil
	}),
}

func init() {
	serveCmd.Flags().BoolVar(&serveDisableConsumer, "no-consumer", false, "Disable the NATS alert consumer")
	rootCmd.AddCommand(serveCmd)
}
