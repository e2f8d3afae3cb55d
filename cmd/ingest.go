package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"alerttrack/internal/bootstrap/logging"
	"alerttrack/internal/domain/alert"
	"alerttrack/internal/errs"
)

var (
	ingestIP   string
	ingestText string
)

// ingestCmd feeds one alert through the full pipeline without NATS,
// useful for smoke-testing a deployment.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a single alert from the command line",
	RunE: withApp(func(cmd *cobra.Command, handles appHandles) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if err := handles.App.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		event, err := handles.Journal.Ingest(ctx, alert.RawMessage{IP: ingestIP, Text: ingestText})
		if err != nil {
			logging.Error(ctx, "ingest alert failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "ingest alert")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "event %d %q status=%t messages=%d\n",
			event.EventID, event.Name, event.Status, event.MessageCount); err != nil {
			return errs.Wrap(err, "write ingest output")
		}
		return nil
	}),
}

func init() {
	ingestCmd.Flags().StringVar(&ingestIP, "ip", "", "Source device IP")
	ingestCmd.Flags().StringVar(&ingestText, "text", "", "Alert text")
	_ = ingestCmd.MarkFlagRequired("ip")
	_ = ingestCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(ingestCmd)
}
