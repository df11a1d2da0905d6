// Package metrics exposes pipeline counters and timings in Prometheus format.
// A batch run has no scrape endpoint, so the registry is written to a
// node-exporter textfile at the end of the run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "telhawk_correlate"

// Metrics holds the collectors for one process. All methods are safe on a nil
// receiver so callers can leave metrics unconfigured.
type Metrics struct {
	registry *prometheus.Registry

	EventsIngested *prometheus.CounterVec
	EventsEnriched prometheus.Counter
	FindingsTotal  *prometheus.CounterVec
	RuleDuration   *prometheus.HistogramVec
	SinkWrites     *prometheus.CounterVec
	RunDuration    prometheus.Gauge
	LastRunSuccess prometheus.Gauge
}

// New creates Metrics backed by a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_ingested_total",
				Help:      "Total number of telemetry records ingested",
			},
			[]string{"source"},
		),
		EventsEnriched: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_enriched_total",
				Help:      "Total number of events passed through enrichment",
			},
		),
		FindingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "findings_total",
				Help:      "Total number of findings produced",
			},
			[]string{"rule", "severity"},
		),
		RuleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rule_duration_seconds",
				Help:      "Duration of a single rule evaluation in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"rule"},
		),
		SinkWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_writes_total",
				Help:      "Total number of alert sink deliveries",
			},
			[]string{"sink", "status"},
		),
		RunDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_duration_seconds",
				Help:      "Wall time of the most recent pipeline run",
			},
		),
		LastRunSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_success",
				Help:      "1 if the most recent pipeline run succeeded, 0 otherwise",
			},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordIngested adds n records for source.
func (m *Metrics) RecordIngested(source string, n int) {
	if m == nil {
		return
	}
	m.EventsIngested.WithLabelValues(source).Add(float64(n))
}

// RecordEnriched adds n enriched events.
func (m *Metrics) RecordEnriched(n int) {
	if m == nil {
		return
	}
	m.EventsEnriched.Add(float64(n))
}

// ObserveRule records how long a rule took.
func (m *Metrics) ObserveRule(rule string, d time.Duration) {
	if m == nil {
		return
	}
	m.RuleDuration.WithLabelValues(rule).Observe(d.Seconds())
}

// RecordFinding counts one finding.
func (m *Metrics) RecordFinding(rule, severity string) {
	if m == nil {
		return
	}
	m.FindingsTotal.WithLabelValues(rule, severity).Inc()
}

// RecordSinkWrite counts a sink delivery and its outcome.
func (m *Metrics) RecordSinkWrite(sink string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.SinkWrites.WithLabelValues(sink, status).Inc()
}

// ObserveRun records the outcome of a whole pipeline run.
func (m *Metrics) ObserveRun(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.RunDuration.Set(d.Seconds())
	if err != nil {
		m.LastRunSuccess.Set(0)
		return
	}
	m.LastRunSuccess.Set(1)
}

// WriteTextfile writes the registry in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
