package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

// Evictor drops sessions idle for longer than ttl and returns their ids.
type Evictor interface {
	EvictIdle(ttl time.Duration) []string
}

type SessionJanitor struct {
	sessions Evictor
	logger   *logger.Logger
	ttl      time.Duration
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewSessionJanitor(sessions Evictor, logger *logger.Logger, ttl, interval time.Duration) *SessionJanitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionJanitor{
		sessions: sessions,
		logger:   logger,
		ttl:      ttl,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (j *SessionJanitor) Start(ctx context.Context) {
	j.logger.Info("Starting session janitor", "ttl", j.ttl.String(), "interval", j.interval.String())

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("Session janitor stopped")
			return
		case <-j.stopChan:
			j.logger.Info("Session janitor stopped")
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

func (j *SessionJanitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
}

// Sweep runs one eviction pass.
func (j *SessionJanitor) Sweep() int {
	evicted := j.sessions.EvictIdle(j.ttl)
	if len(evicted) > 0 {
		j.logger.Debug("Swept idle checkout sessions", "evicted", len(evicted))
	}
	return len(evicted)
}
