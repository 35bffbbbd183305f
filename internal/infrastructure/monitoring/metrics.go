package monitoring

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status_code"},
	)
)

var (
	CheckoutSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_submissions_total",
			Help: "Total number of checkout submissions by payment type and outcome",
		},
		[]string{"payment_type", "status"},
	)

	CheckoutSubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_submission_duration_seconds",
			Help:    "Time from entering processing to a settled outcome",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"payment_type"},
	)

	CheckoutSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "checkout_sessions_active",
			Help: "Number of open checkout sessions",
		},
	)

	CheckoutSessionsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_sessions_evicted_total",
			Help: "Total number of idle checkout sessions evicted",
		},
	)
)

var (
	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Duration of payment backend requests in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "outcome"},
	)

	GatewayAuthRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_auth_refresh_total",
			Help: "Total number of access token refreshes",
		},
		[]string{"outcome"},
	)
)

var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"query_type", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	DBConnectionsWaitCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_wait_count",
			Help: "Cumulative number of waits for a free database connection",
		},
	)

	DBQueryErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Total number of failed database queries",
		},
		[]string{"query_type", "table"},
	)
)

var (
	RedisCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_command_duration_seconds",
			Help:    "Duration of Redis commands in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"command"},
	)

	RedisCommandErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_command_errors_total",
			Help: "Total number of failed Redis commands, excluding misses",
		},
		[]string{"command"},
	)

	RedisLockAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_lock_attempts_total",
			Help: "Total number of distributed lock attempts",
		},
		[]string{"lock_type"},
	)

	RedisLockSuccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_lock_success_total",
			Help: "Total number of successful lock acquisitions",
		},
		[]string{"lock_type"},
	)

	RedisLockFailureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_lock_failure_total",
			Help: "Total number of failed lock acquisitions",
		},
		[]string{"lock_type", "reason"},
	)

	RedisLockLostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_lock_lost_total",
			Help: "Total number of locks that expired before their owner released them",
		},
		[]string{"lock_type"},
	)
)

func TimeDBQuery(queryType, table string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start).Seconds()
		DBQueryDuration.WithLabelValues(queryType, table).Observe(duration)
	}
}

// TimeGatewayRequest starts a timer; call the returned func with the outcome label.
func TimeGatewayRequest(operation string) func(outcome string) {
	start := time.Now()
	return func(outcome string) {
		GatewayRequestDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
	}
}

func RecordAuthRefresh(outcome string) {
	GatewayAuthRefreshTotal.WithLabelValues(outcome).Inc()
}

func RecordSubmission(paymentType, status string, elapsed time.Duration) {
	CheckoutSubmissionsTotal.WithLabelValues(paymentType, status).Inc()
	CheckoutSubmissionDuration.WithLabelValues(paymentType).Observe(elapsed.Seconds())
}

func RecordLockAttempt(lockKey string) {
	RedisLockAttemptsTotal.WithLabelValues(getLockType(lockKey)).Inc()
}

func RecordLockSuccess(lockKey string) {
	RedisLockSuccessTotal.WithLabelValues(getLockType(lockKey)).Inc()
}

func RecordLockFailure(lockKey, reason string) {
	RedisLockFailureTotal.WithLabelValues(getLockType(lockKey), reason).Inc()
}

// getLockType keeps label cardinality bounded by reducing a key to its first segment.
func getLockType(lockKey string) string {
	prefix, _, found := strings.Cut(lockKey, ":")
	if !found || prefix == "" {
		return "unknown"
	}
	switch prefix {
	case "lock", "cart", "checkout":
		return prefix
	default:
		return "other"
	}
}
