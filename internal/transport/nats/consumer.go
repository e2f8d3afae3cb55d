package nats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"alerttrack/internal/bootstrap/config"
	"alerttrack/internal/bootstrap/logging"
	"alerttrack/internal/domain/alert"
	"alerttrack/internal/errs"
	"alerttrack/internal/metrics"
	"alerttrack/internal/usecase/journal"
)

// Connect dials the NATS server with reconnect enabled.
func Connect(ctx context.Context, cfg config.NATSConfig) (*nats.Conn, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("alerttrack"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %q", cfg.URL)
	}

	logging.Info(ctx, "nats connected", slog.String("url", cfg.URL))
	return nc, nil
}

// Consumer pulls raw alert payloads off a queue subscription and feeds them
// to a pool of pipeline workers. No ordering is guaranteed between
// messages handled by different workers, even for the same host; the
// correlation engine's upsert discipline is what keeps that safe.
type Consumer struct {
	nc       *nats.Conn
	journal  *journal.Service
	recorder metrics.Recorder
	subject  string
	queue    string
	workers  int
}

func NewConsumer(nc *nats.Conn, svc *journal.Service, cfg config.NATSConfig, recorder metrics.Recorder) *Consumer {
	if recorder == nil {
		recorder = metrics.NoOp{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Consumer{
		nc:       nc,
		journal:  svc,
		recorder: recorder,
		subject:  cfg.Subject,
		queue:    cfg.Queue,
		workers:  workers,
	}
}

// Run subscribes and blocks until ctx is done, then drains the
// subscription and waits for in-flight workers.
func (c *Consumer) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "nats.consumer"),
		slog.String("subject", c.subject),
		slog.String("queue", c.queue),
	)

	payloads := make(chan []byte, c.workers*4)
	sub, err := c.nc.QueueSubscribe(c.subject, c.queue, func(msg *nats.Msg) {
		c.recorder.IncReceived()
		select {
		case payloads <- msg.Data:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return errs.Wrapf(err, "subscribe %q", c.subject)
	}
	logging.Info(logCtx, "consumer subscribed", slog.Int("workers", c.workers))

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case payload := <-payloads:
					c.handle(logCtx, payload)
				}
			}
		}()
	}

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		logging.Warn(logCtx, "drain subscription failed", slog.String("err", err.Error()))
	}
	wg.Wait()

	logging.Info(logCtx, "consumer stopped")
	return nil
}

// handle processes one payload end to end. Failures are logged and
// absorbed: ingestion is fire-and-forget per message.
func (c *Consumer) handle(ctx context.Context, payload []byte) {
	ingestCtx := logging.WithAttrs(context.WithoutCancel(ctx), slog.String("ingest_id", uuid.NewString()))

	raw, err := decodePayload(payload)
	if err != nil {
		c.recorder.IncDropped()
		logging.Warn(ingestCtx, "dropping malformed payload", slog.String("err", err.Error()))
		return
	}

	if _, err := c.journal.Ingest(ingestCtx, raw); err != nil {
		logging.Error(ingestCtx, "ingest failed",
			slog.String("host", raw.IP),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}

// rawPayload is the transport wire shape: {"host": "...", "message": "..."}.
type rawPayload struct {
	Host    string `json:"host"`
	Message string `json:"message"`
}

func decodePayload(data []byte) (alert.RawMessage, error) {
	var payload rawPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return alert.RawMessage{}, errs.Wrap(err, "decode payload")
	}

	raw := alert.RawMessage{
		IP:   strings.TrimSpace(payload.Host),
		Text: payload.Message,
	}
	if err := alert.ValidateRaw(raw); err != nil {
		return alert.RawMessage{}, err
	}
	return raw, nil
}
