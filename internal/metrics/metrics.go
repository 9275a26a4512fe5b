package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	loadRunsTotal       *prometheus.CounterVec
	loadDuration        prometheus.Histogram
	staleLoadsTotal     prometheus.Counter
	locations           prometheus.Gauge
}

// New creates a fresh Metrics registry with HTTP and load metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "location_viewer",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by the location viewer",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "location_viewer",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by the location viewer",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	loadRunsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "location_viewer",
		Name:      "load_runs_total",
		Help:      "Completed location loads by outcome",
	}, []string{"outcome"})

	loadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "location_viewer",
		Name:      "load_duration_seconds",
		Help:      "Duration of location loads from start to finish",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	})

	staleLoadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "location_viewer",
		Name:      "stale_loads_total",
		Help:      "Load results discarded because a newer load superseded them",
	})

	locations := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "location_viewer",
		Name:      "locations",
		Help:      "Number of locations in the current view",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		loadRunsTotal,
		loadDuration,
		staleLoadsTotal,
		locations,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		loadRunsTotal:       loadRunsTotal,
		loadDuration:        loadDuration,
		staleLoadsTotal:     staleLoadsTotal,
		locations:           locations,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveLoad records a finished load and its outcome (ready, empty, transport, parse, schema).
func (m *Metrics) ObserveLoad(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.loadRunsTotal.WithLabelValues(outcome).Inc()
	m.loadDuration.Observe(duration.Seconds())
}

// IncStaleLoad counts a load result that arrived after its mount was replaced.
func (m *Metrics) IncStaleLoad() {
	if m == nil {
		return
	}
	m.staleLoadsTotal.Inc()
}

func (m *Metrics) SetLocations(n int) {
	if m == nil {
		return
	}
	m.locations.Set(float64(n))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
