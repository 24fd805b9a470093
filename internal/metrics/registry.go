// Package metrics exposes engine and server observations to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"outbreaksim/domain/sim"
	"outbreaksim/domain/stats"
	"outbreaksim/ports"
)

// Registry holds all metrics for the application
type Registry struct {
	// Simulation
	SimulationsTotal   *prometheus.CounterVec
	SimulationDuration *prometheus.HistogramVec
	RepetitionsTotal   *prometheus.CounterVec

	// Detection
	EstimatesTotal       *prometheus.CounterVec
	DetectionProbability *prometheus.GaugeVec
	SkippedTotal         *prometheus.CounterVec

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

var _ ports.MetricsRecorder = (*Registry)(nil)

// NewRegistry creates a registry with every metric registered, plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.initSimulationMetrics()
	r.initDetectionMetrics()
	r.initHTTPMetrics()
	return r
}

func (r *Registry) initSimulationMetrics() {
	r.SimulationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbreaksim_simulations_total",
			Help: "Parameter sets simulated",
		},
		[]string{"network"},
	)
	r.SimulationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbreaksim_simulation_duration_seconds",
			Help:    "Wall time to simulate all repetitions of one parameter set",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"network"},
	)
	r.RepetitionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbreaksim_repetitions_total",
			Help: "Sample paths generated",
		},
		[]string{"network"},
	)
}

func (r *Registry) initDetectionMetrics() {
	r.EstimatesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbreaksim_detection_estimates_total",
			Help: "Detection estimates produced",
		},
		[]string{"network", "order"},
	)
	r.DetectionProbability = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "outbreaksim_detection_probability",
			Help: "Latest detection probability estimate per network and tests per day",
		},
		[]string{"network", "tests_per_day", "order"},
	)
	r.SkippedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbreaksim_skipped_total",
			Help: "Parameter sets skipped, by stage and reason",
		},
		[]string{"stage", "reason"},
	)
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbreaksim_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbreaksim_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
}

// ObserveSimulation implements ports.MetricsRecorder.
func (r *Registry) ObserveSimulation(params sim.Parameters, repetitions int, elapsed time.Duration) {
	r.SimulationsTotal.WithLabelValues(params.NetworkName).Inc()
	r.RepetitionsTotal.WithLabelValues(params.NetworkName).Add(float64(repetitions))
	r.SimulationDuration.WithLabelValues(params.NetworkName).Observe(elapsed.Seconds())
}

// ObserveDetection implements ports.MetricsRecorder.
func (r *Registry) ObserveDetection(key stats.Key, out stats.Output, randomOrder bool) {
	order := "circular"
	if randomOrder {
		order = "random"
	}
	network := key.Params.NetworkName
	r.EstimatesTotal.WithLabelValues(network, order).Inc()
	r.DetectionProbability.WithLabelValues(network, strconv.Itoa(key.TestsPerDay), order).Set(out.Mean)
}

// IncSkipped implements ports.MetricsRecorder.
func (r *Registry) IncSkipped(stage, reason string) {
	r.SkippedTotal.WithLabelValues(stage, reason).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
