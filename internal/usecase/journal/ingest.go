package journal

import (
	"context"
	"errors"
	"log/slog"

	"alerttrack/internal/bootstrap/logging"
	"alerttrack/internal/domain/alert"
	"alerttrack/internal/errs"
)

// Ingest runs the full pipeline for one raw alert:
// enrich -> persist message -> correlate -> publish. Enrichment degradation
// is absorbed here; storage and validation failures propagate to the
// caller, who may retry the whole attempt (the upsert keyed on (ip, name)
// makes a retry safe).
func (s *Service) Ingest(ctx context.Context, raw alert.RawMessage) (alert.Event, error) {
	if ctx == nil {
		return alert.Event{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return alert.Event{}, errs.Wrap(err, "check context")
	}

	if err := alert.ValidateRaw(raw); err != nil {
		return alert.Event{}, err
	}

	host := alert.HostData{IP: raw.IP, Services: []string{}}
	if s.enricher != nil {
		host = s.enricher.Enrich(ctx, raw.IP)
		if host.IP == "" {
			// The enrichment contract is best-effort but must keep the IP.
			host.IP = raw.IP
		}
	}

	message, err := s.messages.CreateMessage(ctx, raw.Text, s.now().UTC())
	if err != nil {
		s.recorder.IncPipelineError()
		return alert.Event{}, errs.Wrap(err, "persist message")
	}

	event, err := s.Correlate(ctx, host, message)
	if err != nil {
		s.recorder.IncPipelineError()
		logging.Error(ctx, "correlation failed",
			slog.Uint64("message_id", message.MessageID),
			slog.Any("err", errs.Loggable(err)),
		)
		return alert.Event{}, err
	}

	s.recorder.IncProcessed()
	return event, nil
}
