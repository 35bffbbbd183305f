// Package gateway talks to the storefront's payment backend, which fronts Wompi.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/yuzvak/checkout-service/internal/domain/checkout"
	domainErrors "github.com/yuzvak/checkout-service/internal/domain/errors"
	"github.com/yuzvak/checkout-service/internal/infrastructure/monitoring"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

const (
	tokenPath        = "/checkout/wompi/create-token"
	checkoutPath     = "/checkout"
	statusPath       = "/checkout/status/"
	wompiStatusPath  = "/checkout/wompi/status/"
	maxErrorBodySize = 64 << 10
)

// HTTPDoer sends a request. The auth session implements it to attach bearer tokens.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL string
	doer    HTTPDoer
	log     *logger.Logger
}

func NewClient(baseURL string, doer HTTPDoer, log *logger.Logger) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
		log:     log,
	}
}

type tokenRequest struct {
	Number         string `json:"number"`
	CVC            string `json:"cvc"`
	ExpMonth       string `json:"expMonth"`
	ExpYear        string `json:"expYear"`
	CardHolderName string `json:"cardHolderName"`
}

// CreatePaymentMethodToken exchanges raw card data for a one-time token.
// The card is only ever written to the request body.
func (c *Client) CreatePaymentMethodToken(ctx context.Context, input checkout.PaymentCardInput) (*checkout.PaymentToken, error) {
	body := tokenRequest{
		Number:         input.Number,
		CVC:            input.CVC,
		ExpMonth:       input.ExpiryMonth,
		ExpYear:        input.ExpiryYear,
		CardHolderName: input.HolderName,
	}

	var token checkout.PaymentToken
	if err := c.do(ctx, "create_token", http.MethodPost, tokenPath, body, &token); err != nil {
		return nil, err
	}
	if token.Token == "" {
		return nil, &domainErrors.GatewayError{StatusCode: http.StatusOK, Message: "payment token missing from response"}
	}

	c.log.Info("Payment method tokenized", "card_type", string(token.CardType), "last_four", token.LastFourDigits)
	return &token, nil
}

func (c *Client) CreateDirectPaymentCheckout(ctx context.Context, req checkout.Request) (*checkout.Response, error) {
	if req.PaymentMethodToken == "" {
		return nil, domainErrors.ErrMissingPaymentToken
	}

	var resp checkout.Response
	if err := c.do(ctx, "direct_checkout", http.MethodPost, checkoutPath, req, &resp); err != nil {
		return nil, err
	}
	if resp.PaymentType != checkout.PaymentTypeDirect {
		return nil, &domainErrors.ProtocolViolationError{Expected: string(checkout.PaymentTypeDirect), Got: string(resp.PaymentType)}
	}
	return &resp, nil
}

// CreateIntentCheckout always sends the request without a payment token.
func (c *Client) CreateIntentCheckout(ctx context.Context, req checkout.Request) (*checkout.Response, error) {
	req.PaymentMethodToken = ""

	var resp checkout.Response
	if err := c.do(ctx, "intent_checkout", http.MethodPost, checkoutPath, req, &resp); err != nil {
		return nil, err
	}
	if resp.PaymentType != checkout.PaymentTypeIntent {
		return nil, &domainErrors.ProtocolViolationError{Expected: string(checkout.PaymentTypeIntent), Got: string(resp.PaymentType)}
	}
	if resp.CheckoutURL == "" {
		return nil, &domainErrors.ProtocolViolationError{Expected: "intent with checkoutUrl", Got: "intent without checkoutUrl"}
	}
	return &resp, nil
}

func (c *Client) GetTransactionStatus(ctx context.Context, transactionID string) (*checkout.TransactionReport, error) {
	if transactionID == "" {
		return nil, domainErrors.NewValidationError("transactionId", "transaction id is required")
	}

	var report checkout.TransactionReport
	if err := c.do(ctx, "transaction_status", http.MethodGet, statusPath+url.PathEscape(transactionID), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) GetWompiTransactionStatus(ctx context.Context, wompiTransactionID string) (*checkout.WompiReport, error) {
	if wompiTransactionID == "" {
		return nil, domainErrors.NewValidationError("wompiTransactionId", "wompi transaction id is required")
	}

	var report checkout.WompiReport
	if err := c.do(ctx, "wompi_status", http.MethodGet, wompiStatusPath+url.PathEscape(wompiTransactionID), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, in, out interface{}) (err error) {
	done := monitoring.TimeGatewayRequest(operation)
	defer func() {
		done(outcome(err))
	}()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", operation, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		if errors.Is(err, domainErrors.ErrAuthExpired) {
			return err
		}
		c.log.Error("Gateway request failed", "operation", operation, "error", err)
		return &domainErrors.NetworkError{Op: operation, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gerr := errorFromResponse(resp)
		c.log.Warn("Gateway returned an error", "operation", operation, "status", resp.StatusCode, "message", gerr.Message)
		return gerr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domainErrors.GatewayError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed %s response: %v", operation, err)}
	}
	return nil
}

func errorFromResponse(resp *http.Response) *domainErrors.GatewayError {
	var payload struct {
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		return &domainErrors.GatewayError{StatusCode: resp.StatusCode, Message: payload.Message}
	}
	return &domainErrors.GatewayError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP error! status: %d", resp.StatusCode),
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}

	var (
		gerr *domainErrors.GatewayError
		nerr *domainErrors.NetworkError
		perr *domainErrors.ProtocolViolationError
	)
	switch {
	case errors.Is(err, domainErrors.ErrAuthExpired):
		return "auth_expired"
	case errors.As(err, &nerr):
		return "network_error"
	case errors.As(err, &perr):
		return "protocol_violation"
	case errors.As(err, &gerr):
		return "gateway_error"
	default:
		return "error"
	}
}
