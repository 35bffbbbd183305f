package checkout

import (
	"context"
	"sync"
	"time"
)

// MockGateway implements Gateway for testing
type MockGateway struct {
	mu sync.Mutex

	Token       *PaymentToken
	TokenErr    error
	Direct      *Response
	DirectErr   error
	Intent      *Response
	IntentErr   error
	TokenCalls  int
	DirectReqs  []Request
	IntentReqs  []Request
	CardsSeen   []PaymentCardInput
	Order       []string
	BlockDirect chan struct{} // when set, CreateDirectPaymentCheckout waits on it
	Entered     chan struct{} // signalled once a blocked call has started
}

func (g *MockGateway) CreatePaymentMethodToken(_ context.Context, input PaymentCardInput) (*PaymentToken, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.TokenCalls++
	g.CardsSeen = append(g.CardsSeen, input)
	g.Order = append(g.Order, "token")
	return g.Token, g.TokenErr
}

func (g *MockGateway) CreateDirectPaymentCheckout(ctx context.Context, req Request) (*Response, error) {
	g.mu.Lock()
	g.DirectReqs = append(g.DirectReqs, req)
	g.Order = append(g.Order, "direct")
	block, entered := g.BlockDirect, g.Entered
	g.mu.Unlock()

	if block != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Direct, g.DirectErr
}

func (g *MockGateway) CreateIntentCheckout(_ context.Context, req Request) (*Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.IntentReqs = append(g.IntentReqs, req)
	g.Order = append(g.Order, "intent")
	return g.Intent, g.IntentErr
}

// MockCart implements Cart for testing
type MockCart struct {
	Current    CartSnapshot
	ClearErr   error
	ClearCalls int
}

func (c *MockCart) Snapshot(_ context.Context) (CartSnapshot, error) {
	return c.Current, nil
}

func (c *MockCart) Clear(_ context.Context) error {
	c.ClearCalls++
	return c.ClearErr
}

type MockRecorder struct {
	mu       sync.Mutex
	Attempts []Attempt
	Err      error
}

func (r *MockRecorder) RecordAttempt(_ context.Context, attempt Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Attempts = append(r.Attempts, attempt)
	return r.Err
}

type MockObserver struct {
	Statuses []AttemptStatus
}

func (o *MockObserver) SubmissionFinished(_ PaymentType, status AttemptStatus, _ time.Duration) {
	o.Statuses = append(o.Statuses, status)
}

type fixedReferences struct {
	refs []string
	next int
}

func (f *fixedReferences) NewReference() string {
	ref := f.refs[f.next%len(f.refs)]
	f.next++
	return ref
}
