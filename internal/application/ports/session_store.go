package ports

import (
	"sync"
	"time"

	"github.com/yuzvak/checkout-service/internal/domain/checkout"
)

// Session is an open checkout together with what it needs between requests.
type Session struct {
	ID       string
	UserID   string
	Machine  *checkout.Machine
	Gateway  GatewayClient
	OpenedAt time.Time

	mu          sync.Mutex
	redirectURL string
}

func (s *Session) SetRedirectURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirectURL = url
}

func (s *Session) RedirectURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redirectURL
}

type SessionStore interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
	Len() int
	// Evict removes sessions idle since before cutoff that have no submission in flight.
	Evict(cutoff time.Time) []string
}
