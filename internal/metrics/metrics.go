// Package metrics exposes conversion counters for Prometheus.
//
// Every method is safe to call on a nil *Metrics, so components can take an
// optional collector without checking for it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "estoque"

// Conversion sources.
const (
	SourceBatch = "batch"
	SourceCLI   = "cli"
	SourceHTTP  = "http"
)

// Conversion outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	conversions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	records     prometheus.Counter
	sheets      prometheus.Counter
	skipped     prometheus.Counter
	collisions  prometheus.Counter
}

// New registers the conversion collectors, plus the Go runtime and process
// collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Inventory exports converted, by source and outcome.",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Time spent converting one inventory export.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"source"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Inventory records parsed.",
		}),
		sheets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_total",
			Help:      "Workbook sheets generated.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_lines_total",
			Help:      "Lines inside a section that matched no pattern.",
		}),
		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheet_name_collisions_total",
			Help:      "Groups whose sheet title collided with another group's.",
		}),
	}

	m.registry.MustRegister(
		m.conversions,
		m.duration,
		m.records,
		m.sheets,
		m.skipped,
		m.collisions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveConversion records one finished conversion.
func (m *Metrics) ObserveConversion(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(source, outcome).Inc()
	m.duration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveOutput records what a successful conversion produced.
func (m *Metrics) ObserveOutput(records, sheets, skippedLines, collisions int) {
	if m == nil {
		return
	}
	m.records.Add(float64(records))
	m.sheets.Add(float64(sheets))
	m.skipped.Add(float64(skippedLines))
	m.collisions.Add(float64(collisions))
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
