// Package telemetry provides application-level observability for the travel journal API.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<TLG_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format (Content-Type: text/plain; version=0.0.4) and is intended to be scraped by
// a Prometheus server every 15–60 seconds.  It is NOT served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Country lookup counters (cache hits/misses, upstream calls and errors)
//   - Login outcome counters (success, bad credentials, lockouts)
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/countries/name/:name)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as country names.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Country lookup metrics — recorded by the cache layer and upstream client path.
//
// A low hit ratio (country_cache_hits_total / (hits + misses)) after warm-up
// usually means the cache TTL is too short or Redis is down and the service fell
// back to pass-through mode.  An alert on rate(country_upstream_errors_total[15m]) > 0
// catches REST Countries outages early.
var (
	CountryCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "country_cache_hits_total",
			Help: "Total number of country lookups served from the Redis cache.",
		},
	)

	CountryCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "country_cache_misses_total",
			Help: "Total number of country lookups that fell through to the upstream API.",
		},
	)

	CountryUpstreamErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "country_upstream_errors_total",
			Help: "Total number of failed upstream country API requests.",
		},
	)
)

// Login outcome metrics — labelled by outcome: success, bad_credentials, locked,
// or inactive.  A spike in bad_credentials against a single deployment is a
// credential-stuffing signal worth alerting on.
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Total number of login attempts, by outcome.",
	},
	[]string{"outcome"},
)

// RecordCountryCacheHit increments the country cache hit counter
func RecordCountryCacheHit() {
	CountryCacheHitsTotal.Inc()
}

// RecordCountryCacheMiss increments the country cache miss counter
func RecordCountryCacheMiss() {
	CountryCacheMissesTotal.Inc()
}

// RecordCountryUpstreamError increments the upstream error counter
func RecordCountryUpstreamError() {
	CountryUpstreamErrorsTotal.Inc()
}

// RecordLoginAttempt increments the login counter for one outcome
func RecordLoginAttempt(outcome string) {
	LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
