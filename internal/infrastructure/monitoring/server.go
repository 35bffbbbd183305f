package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func WrapHandler(handler http.Handler) http.Handler {
	return NewHTTPMetricsMiddleware(handler)
}
