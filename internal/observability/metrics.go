package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cityevents_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cityevents_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// EventsModerated counts moderation decisions by action.
	EventsModerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cityevents_events_moderated_total",
		Help: "Total number of moderation decisions applied to events",
	}, []string{"action"})

	// RatingsSubmitted counts rating upserts by whether the row was created or replaced.
	RatingsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cityevents_ratings_submitted_total",
		Help: "Total number of ratings submitted",
	}, []string{"result"})

	// AuthAttempts counts register and login outcomes.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cityevents_auth_attempts_total",
		Help: "Total number of authentication attempts by outcome",
	}, []string{"outcome"})

	// CacheLookups counts cache-aside lookups by key family and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cityevents_cache_lookups_total",
		Help: "Cache lookups by key family and hit/miss",
	}, []string{"family", "result"})
)

// DatabaseMetrics records query latency for one table.
type DatabaseMetrics struct {
	table string
}

// NewDatabaseMetrics returns a DatabaseMetrics for the table.
func NewDatabaseMetrics(table string) *DatabaseMetrics {
	return &DatabaseMetrics{table: table}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, m.table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, start)
	}
}
