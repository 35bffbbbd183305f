package monitoring

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPMetricsMiddleware labels requests with the matched chi route pattern so
// session ids never become label values.
type HTTPMetricsMiddleware struct {
	next http.Handler
}

func NewHTTPMetricsMiddleware(next http.Handler) *HTTPMetricsMiddleware {
	return &HTTPMetricsMiddleware{
		next: next,
	}
}

func (m *HTTPMetricsMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	wrapped := &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}

	m.next.ServeHTTP(wrapped, r)

	handlerName := routeName(r)
	statusCode := strconv.Itoa(wrapped.statusCode)

	HTTPRequestDuration.WithLabelValues(handlerName, r.Method, statusCode).Observe(time.Since(start).Seconds())
	HTTPRequestsTotal.WithLabelValues(handlerName, r.Method, statusCode).Inc()
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func routeName(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return extractHandlerName(r.URL.Path)
}

func extractHandlerName(path string) string {
	path = strings.TrimPrefix(path, "/")

	switch {
	case strings.HasPrefix(path, "checkout/sessions"):
		return "checkout_sessions"
	case strings.HasPrefix(path, "checkout"):
		return "checkout"
	case strings.HasPrefix(path, "metrics"):
		return "metrics"
	case strings.HasPrefix(path, "health"):
		return "health"
	default:
		return "unknown"
	}
}
