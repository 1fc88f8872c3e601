// Package instrumentation holds the Prometheus metrics of the worker and API.
package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the service.
type Metrics struct {
	JobsTotal          *prometheus.CounterVec
	CalculatorFailures *prometheus.CounterVec
	ComputeLatencyMs   prometheus.Histogram
	FetchLatencyMs     prometheus.Histogram
	SwapsPerWindow     prometheus.Histogram
	AlertsTotal        *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		JobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "obrix_jobs_total",
			Help: "Metrics jobs handled, by outcome",
		}, []string{"outcome"}),

		CalculatorFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "obrix_calculator_failures_total",
			Help: "Non-empty windows where a calculator reported failure, by metric",
		}, []string{"metric"}),

		ComputeLatencyMs: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "obrix_compute_latency_ms",
			Help:    "Time to compute all metrics of one window in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100},
		}),

		FetchLatencyMs: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "obrix_fetch_latency_ms",
			Help:    "Time to fetch one swap window from the indexer in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),

		SwapsPerWindow: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "obrix_swaps_per_window",
			Help:    "Number of swaps in each fetched window",
			Buckets: []float64{0, 2, 10, 50, 100, 250, 500, 1000},
		}),

		AlertsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "obrix_alerts_total",
			Help: "Alerts raised, by event",
		}, []string{"event"}),

		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "obrix_errors_total",
			Help: "Errors by component and stage",
		}, []string{"component", "stage"}),
	}
}

// RecordJob counts a handled job by outcome (ok, empty, skipped, failed).
func (m *Metrics) RecordJob(outcome string) {
	m.JobsTotal.WithLabelValues(outcome).Inc()
}

// RecordCalculatorFailure counts a failed calculator on a non-empty window.
func (m *Metrics) RecordCalculatorFailure(metric string) {
	m.CalculatorFailures.WithLabelValues(metric).Inc()
}

// RecordCompute records the time to compute one window.
func (m *Metrics) RecordCompute(latencyMs float64) {
	m.ComputeLatencyMs.Observe(latencyMs)
}

// RecordFetch records the indexer round trip and the window size.
func (m *Metrics) RecordFetch(latencyMs float64, swaps int) {
	m.FetchLatencyMs.Observe(latencyMs)
	m.SwapsPerWindow.Observe(float64(swaps))
}

// RecordAlert counts a raised alert.
func (m *Metrics) RecordAlert(event string) {
	m.AlertsTotal.WithLabelValues(event).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, stage string) {
	m.ErrorsTotal.WithLabelValues(component, stage).Inc()
}
