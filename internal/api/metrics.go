package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moviepoll/internal/store"
)

// Metrics holds the Prometheus collectors of one server.
type Metrics struct {
	registry         *prometheus.Registry
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	VotesTotal       *prometheus.CounterVec
	MoviesAdded      *prometheus.CounterVec
	RefreshDuration  prometheus.Histogram
}

// NewMetrics registers collectors on a private registry. A nil store skips the
// connection pool gauges.
func NewMetrics(st *store.Store) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moviepoll_api_request_duration_seconds",
				Help:    "HTTP request duration in seconds, by route, method, and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "moviepoll_requests_in_flight",
				Help: "Number of HTTP requests currently being served.",
			},
		),
		VotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviepoll_votes_total",
				Help: "Votes accepted or rejected through the API.",
			},
			[]string{"outcome"},
		),
		MoviesAdded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviepoll_movies_added_total",
				Help: "Movies added through the API, by match type.",
			},
			[]string{"match_type"},
		),
		RefreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "moviepoll_appeal_refresh_duration_seconds",
				Help:    "Duration of appeal snapshot refreshes triggered through the API.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	m.registry.MustRegister(
		m.RequestDuration,
		m.RequestsInFlight,
		m.VotesTotal,
		m.MoviesAdded,
		m.RefreshDuration,
	)

	if st != nil {
		m.registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "moviepoll_db_connections_open",
					Help: "Number of open database connections.",
				},
				func() float64 { return float64(st.Stats().OpenConnections) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "moviepoll_db_connections_in_use",
					Help: "Number of database connections in use.",
				},
				func() float64 { return float64(st.Stats().InUse) },
			),
		)
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry so other components can add collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// middleware records request duration and in-flight count. The route label
// uses the matched mux pattern to keep cardinality bounded.
func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}
