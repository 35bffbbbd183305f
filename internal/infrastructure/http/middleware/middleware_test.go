package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

func TestRecoveryMiddleware(t *testing.T) {
	var logs bytes.Buffer
	h := NewRecoveryMiddleware(logger.New(&logs, logger.LevelInfo))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/checkout/sessions/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body["error"])
	assert.Contains(t, logs.String(), "Panic recovered")
}

func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	var logs bytes.Buffer
	h := NewLoggingMiddleware(logger.New(&logs, logger.LevelInfo))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/checkout/sessions/x/submit", nil))

	var entry logger.LogEntry
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, float64(http.StatusConflict), entry.Fields["status"])
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := NewCORSMiddleware([]string{"http://shop.local"})(next)

	req := httptest.NewRequest(http.MethodOptions, "/checkout/sessions", nil)
	req.Header.Set("Origin", "http://shop.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://shop.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/checkout/sessions", nil)
	req.Header.Set("Origin", "http://evil.local")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
