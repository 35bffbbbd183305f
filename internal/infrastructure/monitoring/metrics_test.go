package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/yuzvak/checkout-service/internal/domain/checkout"
)

func TestGetLockType(t *testing.T) {
	assert.Equal(t, "lock", getLockType("lock:checkout:abc"))
	assert.Equal(t, "cart", getLockType("cart:user-1"))
	assert.Equal(t, "other", getLockType("sale:1"))
	assert.Equal(t, "unknown", getLockType("nocolon"))
}

func TestExtractHandlerName(t *testing.T) {
	assert.Equal(t, "checkout_sessions", extractHandlerName("/checkout/sessions/123/submit"))
	assert.Equal(t, "checkout", extractHandlerName("/checkout/price"))
	assert.Equal(t, "health", extractHandlerName("/health"))
	assert.Equal(t, "unknown", extractHandlerName("/whatever"))
}

func TestHTTPMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler { return NewHTTPMetricsMiddleware(next) })
	r.Get("/checkout/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/checkout/sessions/{id}", http.MethodGet, "418"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/checkout/sessions/abc-123", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/checkout/sessions/{id}", http.MethodGet, "418"))
	assert.Equal(t, before+1, after)
}

func TestCheckoutObserver_CountsByOutcome(t *testing.T) {
	counter := CheckoutSubmissionsTotal.WithLabelValues("direct", "declined")
	before := testutil.ToFloat64(counter)

	NewCheckoutObserver().SubmissionFinished(checkout.PaymentTypeDirect, checkout.AttemptDeclined, 150*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestSessionMetrics(t *testing.T) {
	m := NewSessionMetrics()
	m.SetActive(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(CheckoutSessionsActive))

	before := testutil.ToFloat64(CheckoutSessionsEvictedTotal)
	m.RecordEviction()
	assert.Equal(t, before+1, testutil.ToFloat64(CheckoutSessionsEvictedTotal))
}

func TestObserveRedis_MissIsNotAnError(t *testing.T) {
	failures := RedisCommandErrorsTotal.WithLabelValues("hget")
	before := testutil.ToFloat64(failures)

	observeRedis("hget", time.Now(), redis.Nil)
	assert.Equal(t, before, testutil.ToFloat64(failures))

	observeRedis("hget", time.Now(), errors.New("connection reset"))
	assert.Equal(t, before+1, testutil.ToFloat64(failures))
}

func TestSubmissionLockMetrics_RecordRelease(t *testing.T) {
	lost := RedisLockLostTotal.WithLabelValues("lock")
	before := testutil.ToFloat64(lost)

	m := NewSubmissionLockMetrics("lock:checkout:sess-1")
	m.RecordRelease(true)
	m.RecordRelease(false)

	assert.Equal(t, before+1, testutil.ToFloat64(lost))
}
