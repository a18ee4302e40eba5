package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the session engine. All
// methods are safe to call on a nil receiver so callers can run without
// metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	ChunksIngested        prometheus.Counter
	TranscriptionFailures *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram
	Summaries             *prometheus.CounterVec
	SummaryDuration       prometheus.Histogram
	ConnectedClients      prometheus.Gauge
	DroppedEvents         prometheus.Counter
	HTTPRequests          *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ChunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "ghost_scribe_chunks_ingested_total",
			Help: "Audio chunks transcribed and appended to a transcript",
		}),
		TranscriptionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ghost_scribe_transcription_failures_total",
			Help: "Failed chunk transcriptions by kind",
		}, []string{"kind"}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ghost_scribe_transcription_duration_seconds",
			Help:    "Duration of transcription provider calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		Summaries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ghost_scribe_summaries_total",
			Help: "Summary runs by outcome",
		}, []string{"outcome"}),
		SummaryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ghost_scribe_summary_duration_seconds",
			Help:    "Duration of summarization provider calls",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ghost_scribe_ws_clients",
			Help: "Currently connected websocket clients",
		}),
		DroppedEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "ghost_scribe_dropped_events_total",
			Help: "Events dropped because a subscriber buffer was full",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ghost_scribe_http_requests_total",
			Help: "HTTP API requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordChunkIngested() {
	if m == nil {
		return
	}
	m.ChunksIngested.Inc()
}

func (m *Metrics) ObserveTranscription(d time.Duration) {
	if m == nil {
		return
	}
	m.TranscriptionDuration.Observe(d.Seconds())
}

// RecordTranscriptionFailure counts a failure; kind is "timeout" or "error".
func (m *Metrics) RecordTranscriptionFailure(kind string) {
	if m == nil {
		return
	}
	m.TranscriptionFailures.WithLabelValues(kind).Inc()
}

// RecordSummary counts a finished summary run; outcome is "ready", "empty" or "failed".
func (m *Metrics) RecordSummary(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Summaries.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.SummaryDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.ConnectedClients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.ConnectedClients.Dec()
}

func (m *Metrics) RecordDroppedEvent() {
	if m == nil {
		return
	}
	m.DroppedEvents.Inc()
}

func (m *Metrics) RecordHTTPRequest(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}
