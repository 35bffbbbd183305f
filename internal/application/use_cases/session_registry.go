package use_cases

import (
	"sync"
	"time"

	"github.com/yuzvak/checkout-service/internal/application/ports"
)

// SessionGauge receives registry size changes and evictions.
type SessionGauge interface {
	SetActive(n int)
	RecordEviction()
}

// SessionRegistry is the in-memory SessionStore. Sessions live only as long as
// the process, so card data never leaves memory.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*ports.Session
	gauge    SessionGauge
}

func NewSessionRegistry(gauge SessionGauge) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*ports.Session),
		gauge:    gauge,
	}
}

func (r *SessionRegistry) Put(session *ports.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	r.reportLocked()
}

func (r *SessionRegistry) Get(id string) (*ports.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *SessionRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	r.reportLocked()
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *SessionRegistry) Evict(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, s := range r.sessions {
		if s.Machine.IsInFlight() || !s.Machine.LastActivity().Before(cutoff) {
			continue
		}
		if err := s.Machine.Close(); err != nil {
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, id)
		if r.gauge != nil {
			r.gauge.RecordEviction()
		}
	}
	r.reportLocked()
	return evicted
}

func (r *SessionRegistry) reportLocked() {
	if r.gauge != nil {
		r.gauge.SetActive(len(r.sessions))
	}
}
