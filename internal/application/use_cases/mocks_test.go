package use_cases

import (
	"context"
	"sync"
	"time"

	"github.com/yuzvak/checkout-service/internal/domain/checkout"
	domainErrors "github.com/yuzvak/checkout-service/internal/domain/errors"
)

type MockGateway struct {
	mu sync.Mutex

	Direct      *checkout.Response
	Intent      *checkout.Response
	Report      *checkout.TransactionReport
	WompiReport *checkout.WompiReport

	BlockDirect chan struct{}
	Entered     chan struct{}

	StatusIDs []string
}

func (m *MockGateway) CreatePaymentMethodToken(ctx context.Context, input checkout.PaymentCardInput) (*checkout.PaymentToken, error) {
	return &checkout.PaymentToken{Token: "tok_test_1", LastFourDigits: input.Number[len(input.Number)-4:]}, nil
}

func (m *MockGateway) CreateDirectPaymentCheckout(ctx context.Context, req checkout.Request) (*checkout.Response, error) {
	if m.Entered != nil {
		m.Entered <- struct{}{}
	}
	if m.BlockDirect != nil {
		<-m.BlockDirect
	}
	resp := *m.Direct
	resp.Reference = req.Reference
	return &resp, nil
}

func (m *MockGateway) CreateIntentCheckout(ctx context.Context, req checkout.Request) (*checkout.Response, error) {
	resp := *m.Intent
	resp.Reference = req.Reference
	return &resp, nil
}

func (m *MockGateway) GetTransactionStatus(ctx context.Context, transactionID string) (*checkout.TransactionReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusIDs = append(m.StatusIDs, transactionID)
	return m.Report, nil
}

func (m *MockGateway) GetWompiTransactionStatus(ctx context.Context, wompiTransactionID string) (*checkout.WompiReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusIDs = append(m.StatusIDs, wompiTransactionID)
	return m.WompiReport, nil
}

type MockCartStore struct {
	mu         sync.Mutex
	Lines      map[string][]checkout.CartLine
	ClearCalls []string
}

func (m *MockCartStore) Snapshot(ctx context.Context, userID, currency string) (checkout.CartSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return checkout.NewCartSnapshot(m.Lines[userID], currency)
}

func (m *MockCartStore) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Lines, userID)
	m.ClearCalls = append(m.ClearCalls, userID)
	return nil
}

func (m *MockCartStore) ForUser(userID, currency string) checkout.Cart {
	return &mockUserCart{store: m, userID: userID, currency: currency}
}

type mockUserCart struct {
	store    *MockCartStore
	userID   string
	currency string
}

func (c *mockUserCart) Snapshot(ctx context.Context) (checkout.CartSnapshot, error) {
	return c.store.Snapshot(ctx, c.userID, c.currency)
}

func (c *mockUserCart) Clear(ctx context.Context) error {
	return c.store.Clear(ctx, c.userID)
}

type MockAttempts struct {
	mu       sync.Mutex
	Attempts []checkout.Attempt
}

func (m *MockAttempts) RecordAttempt(ctx context.Context, attempt checkout.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts = append(m.Attempts, attempt)
	return nil
}

func (m *MockAttempts) GetByReference(ctx context.Context, reference string) (*checkout.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.Attempts {
		if a.Reference == reference {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MockAttempts) ListBySession(ctx context.Context, sessionID string) ([]checkout.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []checkout.Attempt
	for _, a := range m.Attempts {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

type MockLock struct {
	mu       sync.Mutex
	Held     map[string]string
	Acquired []string
	Released []string
	TTLs     []time.Duration
}

func (m *MockLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Held == nil {
		m.Held = make(map[string]string)
	}
	if _, ok := m.Held[key]; ok {
		return "", domainErrors.ErrSubmissionLocked
	}
	token := "token-" + key
	m.Held[key] = token
	m.Acquired = append(m.Acquired, key)
	m.TTLs = append(m.TTLs, ttl)
	return token, nil
}

func (m *MockLock) Release(ctx context.Context, key, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Held[key] != token {
		return false, nil
	}
	delete(m.Held, key)
	m.Released = append(m.Released, key)
	return true, nil
}

type MockGauge struct {
	mu        sync.Mutex
	Active    int
	Evictions int
}

func (m *MockGauge) SetActive(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Active = n
}

func (m *MockGauge) RecordEviction() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Evictions++
}
