// Package promexport mirrors MetricsRecorder's aggregates as Prometheus
// collectors and serves them over an HTTP handler. It is additive
// instrumentation over the in-memory aggregator in internal/metrics — the
// recorder remains the source of truth, this package only exports it.
package promexport

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Source is the subset of metrics.Recorder this package needs to export.
// Kept as a narrow interface so internal/metrics has no dependency on
// Prometheus.
type Source interface {
	AvgTurnaround() float64
	AvgWaiting() float64
	AvgCPU() float64
	Throughput() float64
	TotalCompleted() int
	TotalSubmitted() int
}

// Exporter samples a Source into Prometheus gauges each time Collect runs.
type Exporter struct {
	source Source

	avgTurnaround  prometheus.Gauge
	avgWaiting     prometheus.Gauge
	avgCPU         prometheus.Gauge
	throughput     prometheus.Gauge
	totalCompleted prometheus.Gauge
	totalSubmitted prometheus.Gauge
}

// New builds an Exporter and registers its collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid the global default registry.
func New(source Source, reg prometheus.Registerer) *Exporter {
	e := &Exporter{
		source: source,
		avgTurnaround: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "csubatch_avg_turnaround_seconds",
			Help: "Average turnaround time over completed jobs.",
		}),
		avgWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "csubatch_avg_waiting_seconds",
			Help: "Average waiting time over completed jobs.",
		}),
		avgCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "csubatch_avg_cpu_seconds",
			Help: "Average actual CPU time over completed jobs.",
		}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "csubatch_throughput_jobs_per_second",
			Help: "Completed jobs per second since the last metrics reset.",
		}),
		totalCompleted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "csubatch_jobs_completed_total",
			Help: "Total jobs completed since the last metrics reset.",
		}),
		totalSubmitted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "csubatch_jobs_submitted_total",
			Help: "Total jobs submitted since the last metrics reset.",
		}),
	}

	reg.MustRegister(
		e.avgTurnaround,
		e.avgWaiting,
		e.avgCPU,
		e.throughput,
		e.totalCompleted,
		e.totalSubmitted,
	)

	return e
}

// Collect refreshes every gauge from the Source. Call it on a timer, or
// just before serving a scrape.
func (e *Exporter) Collect() {
	e.avgTurnaround.Set(e.source.AvgTurnaround())
	e.avgWaiting.Set(e.source.AvgWaiting())
	e.avgCPU.Set(e.source.AvgCPU())
	e.throughput.Set(e.source.Throughput())
	e.totalCompleted.Set(float64(e.source.TotalCompleted()))
	e.totalSubmitted.Set(float64(e.source.TotalSubmitted()))
}

// Handler returns an http.Handler that refreshes the gauges and serves
// them in the Prometheus exposition format.
func (e *Exporter) Handler(reg *prometheus.Registry) http.Handler {
	inner := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.Collect()
		inner.ServeHTTP(w, r)
	})
}
