package journal

import (
	"time"

	"alerttrack/internal/metrics"
	"alerttrack/internal/ports"
)

// Service is the ingestion side of the system: it owns the
// enrich -> persist -> correlate -> publish pipeline and the correlation
// engine's upsert discipline. All mutual exclusion is delegated to the
// storage layer; the service itself holds no locks.
type Service struct {
	events    ports.EventRepository
	messages  ports.MessageRepository
	uow       ports.UnitOfWork
	enricher  ports.Enricher
	publisher ports.UpdatePublisher
	recorder  metrics.Recorder
	now       func() time.Time
}

// NewService wires the ingestion pipeline. enricher, publisher and recorder
// are optional: a nil enricher degrades to bare-IP host data, a nil
// publisher skips fanout, a nil recorder counts nothing.
func NewService(
	events ports.EventRepository,
	messages ports.MessageRepository,
	uow ports.UnitOfWork,
	enricher ports.Enricher,
	publisher ports.UpdatePublisher,
	recorder metrics.Recorder,
) *Service {
	if recorder == nil {
		recorder = metrics.NoOp{}
	}
	return &Service{
		events:    events,
		messages:  messages,
		uow:       uow,
		enricher:  enricher,
		publisher: publisher,
		recorder:  recorder,
		now:       time.Now,
	}
}
