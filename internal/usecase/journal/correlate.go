package journal

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"alerttrack/internal/bootstrap/logging"
	"alerttrack/internal/domain/alert"
	"alerttrack/internal/errs"
)

// Correlate groups one stored message into its event: it derives the
// grouping name from the normalized text, atomically creates-or-updates
// the event keyed by (host.IP, name), sets the message back-reference in
// the same transaction, and hands the resulting snapshot to the publisher.
// Publish failures never roll back persisted state.
func (s *Service) Correlate(ctx context.Context, host alert.HostData, message alert.Message) (alert.Event, error) {
	if ctx == nil {
		return alert.Event{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return alert.Event{}, errs.Wrap(err, "check context")
	}
	if s.events == nil || s.messages == nil || s.uow == nil {
		return alert.Event{}, errors.New("journal repositories are required")
	}

	if err := alert.ValidateHost(host); err != nil {
		return alert.Event{}, err
	}
	if strings.TrimSpace(message.Text) == "" {
		return alert.Event{}, &alert.ValidationError{Field: "text", Reason: "is required"}
	}
	if message.MessageID == 0 {
		return alert.Event{}, &alert.ValidationError{Field: "message_id", Reason: "is required"}
	}

	status, normalized := alert.NormalizeText(message.Text)
	name := alert.DeriveName(normalized)
	now := s.now().UTC()

	started := now
	var event alert.Event
	var created bool
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		event, created, err = s.events.Upsert(txCtx, host, name, status, now)
		if err != nil {
			return err
		}
		return s.messages.SetEventRef(txCtx, message.MessageID, event.EventID, now)
	}); err != nil {
		return alert.Event{}, errs.Wrap(err, "correlate message")
	}
	s.recorder.ObserveCorrelate(s.now().Sub(started))

	if created {
		s.recorder.IncEventCreated()
	} else {
		s.recorder.IncEventUpdated()
	}

	if s.publisher != nil {
		s.publisher.Publish(event)
	}

	logging.Info(ctx, "message correlated",
		slog.Uint64("event_id", event.EventID),
		slog.Uint64("message_id", message.MessageID),
		slog.Bool("created", created),
		slog.Bool("status", event.Status),
	)
	return event, nil
}
