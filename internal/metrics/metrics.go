package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the ingestion pipeline.
type Metrics struct {
	MessagesReceived  prometheus.Counter
	MessagesDropped   prometheus.Counter
	MessagesProcessed prometheus.Counter
	PipelineErrors    prometheus.Counter
	EventsCreated     prometheus.Counter
	EventsUpdated     prometheus.Counter
	CorrelateDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		MessagesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alerttrack_messages_received_total",
			Help: "Total number of raw alert payloads received from the transport",
		}),
		MessagesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alerttrack_messages_dropped_total",
			Help: "Total number of malformed payloads dropped before ingestion",
		}),
		MessagesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alerttrack_messages_processed_total",
			Help: "Total number of messages correlated into an event",
		}),
		PipelineErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alerttrack_pipeline_errors_total",
			Help: "Total number of ingestion attempts that failed",
		}),
		EventsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alerttrack_events_created_total",
			Help: "Total number of events created by correlation",
		}),
		EventsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alerttrack_events_updated_total",
			Help: "Total number of existing events updated by correlation",
		}),
		CorrelateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "alerttrack_correlate_duration_seconds",
			Help:    "Latency of the correlate-and-persist step",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Recorder lets the pipeline count without depending on prometheus types.
// The usecase layer takes this interface; a nil recorder is replaced by
// NoOp.
type Recorder interface {
	IncReceived()
	IncDropped()
	IncProcessed()
	IncPipelineError()
	IncEventCreated()
	IncEventUpdated()
	ObserveCorrelate(d time.Duration)
}

var _ Recorder = (*Metrics)(nil)

func (m *Metrics) IncReceived()      { m.MessagesReceived.Inc() }
func (m *Metrics) IncDropped()       { m.MessagesDropped.Inc() }
func (m *Metrics) IncProcessed()     { m.MessagesProcessed.Inc() }
func (m *Metrics) IncPipelineError() { m.PipelineErrors.Inc() }
func (m *Metrics) IncEventCreated()  { m.EventsCreated.Inc() }
func (m *Metrics) IncEventUpdated()  { m.EventsUpdated.Inc() }
func (m *Metrics) ObserveCorrelate(d time.Duration) {
	m.CorrelateDuration.Observe(d.Seconds())
}

// NoOp discards every observation.
type NoOp struct{}

var _ Recorder = NoOp{}

func (NoOp) IncReceived()                   {}
func (NoOp) IncDropped()                    {}
func (NoOp) IncProcessed()                  {}
func (NoOp) IncPipelineError()              {}
func (NoOp) IncEventCreated()               {}
func (NoOp) IncEventUpdated()               {}
func (NoOp) ObserveCorrelate(time.Duration) {}
