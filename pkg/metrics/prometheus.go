package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	consultationsCreated prometheus.Counter
	consultationsClosed  *prometheus.CounterVec
	callsStarted         *prometheus.CounterVec
	callsEnded           *prometheus.CounterVec
	callDuration         prometheus.Histogram
	ringingTimeouts      prometheus.Counter
	eventsPublished      *prometheus.CounterVec
	scheduledJobs        *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "In-flight HTTP requests.",
		}),
		consultationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consultations_created_total",
			Help: "Consultations created.",
		}),
		consultationsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consultations_closed_total",
			Help: "Consultations closed, by whether they were ever accepted.",
		}, []string{"accepted"}),
		callsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calls_started_total",
			Help: "Call sessions created, by kind and conference flag.",
		}, []string{"kind", "conference"}),
		callsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calls_ended_total",
			Help: "Call sessions ended, by end reason.",
		}, []string{"reason"}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "call_duration_seconds",
			Help:    "Duration of answered calls.",
			Buckets: []float64{30, 60, 300, 600, 1800, 3600, 7200},
		}),
		ringingTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "call_ringing_timeouts_total",
			Help: "Calls ended because nobody answered in time.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_events_published_total",
			Help: "Realtime events published, by event name and outcome.",
		}, []string{"event", "outcome"}),
		scheduledJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_jobs_total",
			Help: "Delayed jobs processed, by job name and outcome.",
		}, []string{"job", "outcome"}),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.consultationsCreated,
		m.consultationsClosed,
		m.callsStarted,
		m.callsEnded,
		m.callDuration,
		m.ringingTimeouts,
		m.eventsPublished,
		m.scheduledJobs,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) IncrementHTTPRequestsInFlight() { m.httpRequestsInFlight.Inc() }
func (m *Metrics) DecrementHTTPRequestsInFlight() { m.httpRequestsInFlight.Dec() }

func (m *Metrics) RecordConsultationCreated() {
	m.consultationsCreated.Inc()
}

func (m *Metrics) RecordConsultationClosed(wasAccepted bool) {
	m.consultationsClosed.WithLabelValues(strconv.FormatBool(wasAccepted)).Inc()
}

func (m *Metrics) RecordCallStarted(kind string, conference bool) {
	m.callsStarted.WithLabelValues(kind, strconv.FormatBool(conference)).Inc()
}

func (m *Metrics) RecordCallEnded(reason string, duration time.Duration) {
	m.callsEnded.WithLabelValues(reason).Inc()
	if duration > 0 {
		m.callDuration.Observe(duration.Seconds())
	}
}

func (m *Metrics) RecordRingingTimeout() {
	m.ringingTimeouts.Inc()
}

func (m *Metrics) RecordEventPublished(event string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.eventsPublished.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) RecordScheduledJob(job, outcome string) {
	m.scheduledJobs.WithLabelValues(job, outcome).Inc()
}
