package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuzvak/checkout-service/internal/application/ports"
	"github.com/yuzvak/checkout-service/internal/application/use_cases"
	"github.com/yuzvak/checkout-service/internal/config"
	"github.com/yuzvak/checkout-service/internal/domain/checkout"
	"github.com/yuzvak/checkout-service/internal/domain/money"
	"github.com/yuzvak/checkout-service/internal/infrastructure/http/handlers"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

type stubGateway struct {
	direct *checkout.Response
}

func (g *stubGateway) CreatePaymentMethodToken(ctx context.Context, input checkout.PaymentCardInput) (*checkout.PaymentToken, error) {
	return &checkout.PaymentToken{Token: "tok_1"}, nil
}

func (g *stubGateway) CreateDirectPaymentCheckout(ctx context.Context, req checkout.Request) (*checkout.Response, error) {
	resp := *g.direct
	return &resp, nil
}

func (g *stubGateway) CreateIntentCheckout(ctx context.Context, req checkout.Request) (*checkout.Response, error) {
	return &checkout.Response{TransactionID: "tx-i", Status: checkout.StatusPending, PaymentType: checkout.PaymentTypeIntent, CheckoutURL: "https://checkout.wompi.co/l/xyz"}, nil
}

func (g *stubGateway) GetTransactionStatus(ctx context.Context, transactionID string) (*checkout.TransactionReport, error) {
	return &checkout.TransactionReport{TransactionID: transactionID, Status: checkout.StatusApproved}, nil
}

func (g *stubGateway) GetWompiTransactionStatus(ctx context.Context, wompiTransactionID string) (*checkout.WompiReport, error) {
	return &checkout.WompiReport{Data: checkout.WompiTransaction{ID: wompiTransactionID, Status: "APPROVED"}}, nil
}

type stubCarts struct {
	lines map[string][]checkout.CartLine
}

func (c *stubCarts) Snapshot(ctx context.Context, userID, currency string) (checkout.CartSnapshot, error) {
	return checkout.NewCartSnapshot(c.lines[userID], currency)
}

func (c *stubCarts) Clear(ctx context.Context, userID string) error {
	delete(c.lines, userID)
	return nil
}

func (c *stubCarts) ForUser(userID, currency string) checkout.Cart {
	return &stubUserCart{carts: c, userID: userID, currency: currency}
}

type stubUserCart struct {
	carts    *stubCarts
	userID   string
	currency string
}

func (c *stubUserCart) Snapshot(ctx context.Context) (checkout.CartSnapshot, error) {
	return c.carts.Snapshot(ctx, c.userID, c.currency)
}

func (c *stubUserCart) Clear(ctx context.Context) error {
	return c.carts.Clear(ctx, c.userID)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Field   string          `json:"field"`
}

type testServer struct {
	handler http.Handler
	gateway *stubGateway
	tokens  []string
}

func newTestServer(t *testing.T, redisErr error) *testServer {
	t.Helper()
	ts := &testServer{
		gateway: &stubGateway{direct: &checkout.Response{TransactionID: "tx-1", Status: checkout.StatusApproved, PaymentType: checkout.PaymentTypeDirect}},
	}
	log := logger.Nop()

	sessions := use_cases.NewCheckoutSessionUseCase(use_cases.CheckoutSessionDeps{
		Sessions: use_cases.NewSessionRegistry(nil),
		Carts: &stubCarts{lines: map[string][]checkout.CartLine{
			"user-1": {{ProductID: "alb-1", Name: "Kind of Blue", UnitPrice: 1000, Quantity: 2}},
		}},
		Gateways: func(access, refresh string) ports.GatewayClient {
			ts.tokens = append(ts.tokens, access, refresh)
			return ts.gateway
		},
		Log: log,
	}, "COP", "", 0)

	formatter := money.NewFormatter("en-US")
	cfg := config.Default().Server
	srv := NewServer(
		cfg,
		handlers.NewHealthHandler(stubPinger{}, stubPinger{err: redisErr}, sessions, log),
		handlers.NewCheckoutHandler(sessions, formatter, log),
		handlers.NewPricingHandler(formatter),
		log,
	)
	ts.handler = srv.Handler()
	return ts
}

func (ts *testServer) do(t *testing.T, method, target string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decodeSession(t *testing.T, env envelope) handlers.SessionResponse {
	t.Helper()
	var s handlers.SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &s))
	return s
}

var authHeaders = map[string]string{
	"Authorization":   "Bearer access-1",
	"X-Refresh-Token": "refresh-1",
	"X-User-ID":       "user-1",
}

var ownerHeaders = map[string]string{"X-User-ID": "user-1"}

func TestCheckoutFlow_DirectPayment(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodPost, "/checkout/sessions", map[string]string{"email": "ana@example.com", "first_name": "Ana", "last_name": "Gómez"}, authHeaders)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decodeSession(t, env)
	assert.Equal(t, 1, session.Step)
	assert.Contains(t, session.Formatted.Total, "35.00")
	assert.Equal(t, []string{"access-1", "refresh-1"}, ts.tokens)

	base := "/checkout/sessions/" + session.ID
	rec, _ = ts.do(t, http.MethodPatch, base+"/form", map[string]string{"field": "customerPhone", "value": "3001234567"}, ownerHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = ts.do(t, http.MethodPut, base+"/payment-type", map[string]string{"payment_type": "direct"}, ownerHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	for field, value := range map[string]string{
		"number":         "4242424242424242",
		"cvc":            "123",
		"expiry":         "12/2035",
		"cardHolderName": "ANA GOMEZ",
	} {
		rec, _ = ts.do(t, http.MethodPatch, base+"/card", map[string]string{"field": field, "value": value}, ownerHeaders)
		require.Equal(t, http.StatusOK, rec.Code, field)
	}

	rec, env = ts.do(t, http.MethodGet, base, nil, ownerHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "4242424242424242")
	session = decodeSession(t, env)
	assert.Equal(t, "4242", session.Form.Card.LastFour)

	for _, step := range []int{2, 3} {
		rec, env = ts.do(t, http.MethodPost, base+"/step", map[string]int{"step": step}, ownerHeaders)
		require.Equal(t, http.StatusOK, rec.Code)
		var moved handlers.StepResponse
		require.NoError(t, json.Unmarshal(env.Data, &moved))
		require.True(t, moved.Moved, moved.State.Error)
	}

	rec, env = ts.do(t, http.MethodPost, base+"/submit", nil, ownerHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session = decodeSession(t, env)
	assert.Equal(t, 5, session.Step)
	assert.Equal(t, checkout.StatusApproved, session.TransactionStatus)
	require.NotNil(t, session.Response)
	assert.Equal(t, "tx-1", session.Response.TransactionID)

	rec, env = ts.do(t, http.MethodPost, base+"/submit", nil, ownerHeaders)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", env.Status)

	rec, _ = ts.do(t, http.MethodDelete, base, nil, ownerHeaders)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, env = ts.do(t, http.MethodGet, base, nil, ownerHeaders)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Status)
}

func TestCheckoutFlow_IntentRedirect(t *testing.T) {
	ts := newTestServer(t, nil)

	_, env := ts.do(t, http.MethodPost, "/checkout/sessions", map[string]string{"email": "ana@example.com", "first_name": "Ana"}, authHeaders)
	base := "/checkout/sessions/" + decodeSession(t, env).ID

	ts.do(t, http.MethodPatch, base+"/form", map[string]string{"field": "customerPhone", "value": "3001234567"}, ownerHeaders)
	ts.do(t, http.MethodPost, base+"/step", map[string]int{"step": 2}, ownerHeaders)
	ts.do(t, http.MethodPost, base+"/step", map[string]int{"step": 3}, ownerHeaders)

	rec, env := ts.do(t, http.MethodPost, base+"/submit", nil, ownerHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	session := decodeSession(t, env)
	assert.Equal(t, "https://checkout.wompi.co/l/xyz", session.RedirectURL)
	assert.Equal(t, 4, session.Step)
	assert.False(t, session.IsLoading)

	rec, env = ts.do(t, http.MethodGet, "/checkout/transactions/tx-i/status?session_id="+session.ID, nil, ownerHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	var report checkout.TransactionReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "tx-i", report.TransactionID)

	rec, _ = ts.do(t, http.MethodGet, "/checkout/wompi/w-1/status", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpenSession_Errors(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, _ := ts.do(t, http.MethodPost, "/checkout/sessions", nil, map[string]string{"Authorization": "Bearer a"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := ts.do(t, http.MethodPost, "/checkout/sessions", nil, map[string]string{"X-User-ID": "user-1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", env.Status)

	rec, _ = ts.do(t, http.MethodPost, "/checkout/sessions", nil, map[string]string{"X-User-ID": "nobody", "Authorization": "Bearer a"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFieldUpdate_Errors(t *testing.T) {
	ts := newTestServer(t, nil)
	_, env := ts.do(t, http.MethodPost, "/checkout/sessions", nil, authHeaders)
	base := "/checkout/sessions/" + decodeSession(t, env).ID

	rec, _ := ts.do(t, http.MethodPatch, base+"/form", map[string]string{"field": "shippingAddress", "value": "x"}, ownerHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = ts.do(t, http.MethodPatch, base+"/card", map[string]string{"field": "expiry", "value": "march"}, ownerHeaders)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "expiry", env.Field)

	rec, _ = ts.do(t, http.MethodPut, base+"/payment-type", map[string]string{"payment_type": "cash"}, ownerHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, base+"/submit", nil, ownerHeaders)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealth(t *testing.T) {
	rec, env := newTestServer(t, nil).do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var data handlers.HealthData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "UP", data.ServicesStatus.Redis)

	rec, env = newTestServer(t, errors.New("down")).do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "DOWN", data.ServicesStatus.Redis)
}

func TestSessionRoutes_RequireOwner(t *testing.T) {
	ts := newTestServer(t, nil)
	_, env := ts.do(t, http.MethodPost, "/checkout/sessions", nil, authHeaders)
	id := decodeSession(t, env).ID
	base := "/checkout/sessions/" + id

	rec, env := ts.do(t, http.MethodGet, base, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Status)

	intruder := map[string]string{"X-User-ID": "user-2"}
	rec, _ = ts.do(t, http.MethodGet, base, nil, intruder)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = ts.do(t, http.MethodPost, base+"/submit", nil, intruder)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = ts.do(t, http.MethodDelete, base, nil, intruder)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = ts.do(t, http.MethodGet, "/checkout/transactions/tx-1/status?session_id="+id, nil, intruder)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = ts.do(t, http.MethodGet, "/checkout/wompi/w-1/status?session_id="+id, nil, intruder)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = ts.do(t, http.MethodGet, base, nil, ownerHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeSession(t, env).Step)
}
