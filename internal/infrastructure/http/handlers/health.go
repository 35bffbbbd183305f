package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/yuzvak/checkout-service/internal/infrastructure/http/response"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

const healthCheckTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type SessionCounter interface {
	ActiveSessions() int
}

type HealthHandler struct {
	db        Pinger
	redis     Pinger
	sessions  SessionCounter
	log       *logger.Logger
	startTime time.Time
}

func NewHealthHandler(db, redis Pinger, sessions SessionCounter, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redis,
		sessions:  sessions,
		log:       log,
		startTime: time.Now().UTC(),
	}
}

type MemoryMetrics struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

type ServicesStatus struct {
	App      string `json:"app"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

type HealthData struct {
	ServicesStatus ServicesStatus `json:"services_status"`
	ActiveSessions int            `json:"active_sessions"`
	Uptime         string         `json:"uptime"`
	Memory         MemoryMetrics  `json:"memory"`
	Goroutines     int            `json:"goroutines"`
}

func (h *HealthHandler) status(ctx context.Context, name string, p Pinger) string {
	if p == nil {
		return "DOWN"
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		h.log.Warn("Health check failed", "dependency", name, "error", err)
		return "DOWN"
	}
	return "UP"
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	data := HealthData{
		ServicesStatus: ServicesStatus{
			App:      "UP",
			Database: h.status(r.Context(), "database", h.db),
			Redis:    h.status(r.Context(), "redis", h.redis),
		},
		Uptime: time.Since(h.startTime).String(),
		Memory: MemoryMetrics{
			Alloc:      mem.Alloc,
			TotalAlloc: mem.TotalAlloc,
			Sys:        mem.Sys,
			NumGC:      mem.NumGC,
		},
		Goroutines: runtime.NumGoroutine(),
	}
	if h.sessions != nil {
		data.ActiveSessions = h.sessions.ActiveSessions()
	}

	status := http.StatusOK
	if data.ServicesStatus.Database != "UP" || data.ServicesStatus.Redis != "UP" {
		status = http.StatusServiceUnavailable
	}
	response.WriteJSON(w, status, response.Success(data))
}
