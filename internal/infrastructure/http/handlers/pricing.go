package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/yuzvak/checkout-service/internal/domain/card"
	"github.com/yuzvak/checkout-service/internal/domain/checkout"
	"github.com/yuzvak/checkout-service/internal/domain/money"
	"github.com/yuzvak/checkout-service/internal/infrastructure/http/response"
)

// PricingHandler serves formatting and card checks for clients without Intl or a Luhn routine.
type PricingHandler struct {
	formatter *money.Formatter
}

func NewPricingHandler(formatter *money.Formatter) *PricingHandler {
	return &PricingHandler{formatter: formatter}
}

type PriceResponse struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Symbol    string `json:"symbol"`
	Formatted string `json:"formatted"`
	Locale    string `json:"locale"`
}

// HandlePrice formats ?amount= (minor units) or parses ?formatted= back into minor units.
func (h *PricingHandler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	currency := strings.ToUpper(strings.TrimSpace(q.Get("currency")))
	if currency == "" {
		currency = checkout.DefaultCurrency
	}

	var amount int64
	switch {
	case q.Get("amount") != "":
		v, err := strconv.ParseInt(q.Get("amount"), 10, 64)
		if err != nil {
			response.WriteValidationError(w, "Validation failed", map[string]string{"amount": "amount must be an integer in minor units"})
			return
		}
		amount = v
	case q.Get("formatted") != "":
		v, err := h.formatter.Parse(q.Get("formatted"), currency)
		if err != nil {
			response.WriteValidationError(w, "Validation failed", map[string]string{"formatted": err.Error()})
			return
		}
		amount = v
	default:
		response.WriteValidationError(w, "Validation failed", map[string]string{"amount": "amount or formatted is required"})
		return
	}

	response.WriteSuccess(w, PriceResponse{
		Amount:    amount,
		Currency:  currency,
		Symbol:    h.formatter.Symbol(currency),
		Formatted: h.formatter.Format(amount, currency),
		Locale:    h.formatter.Locale(),
	})
}

type CardInspectRequest struct {
	Number      string `json:"number"`
	CVC         string `json:"cvc,omitempty"`
	ExpiryMonth string `json:"expiry_month,omitempty"`
	ExpiryYear  string `json:"expiry_year,omitempty"`
}

type CardInspectResponse struct {
	card.ValidationResult
	CVCValid    *bool `json:"cvc_valid,omitempty"`
	ExpiryValid *bool `json:"expiry_valid,omitempty"`
}

// HandleInspectCard runs the local card checks. Nothing is stored or logged.
func (h *PricingHandler) HandleInspectCard(w http.ResponseWriter, r *http.Request) {
	var req CardInspectRequest
	if err := decodeBody(r, &req, false); err != nil {
		response.WriteValidationError(w, "Invalid request body", map[string]string{"body": err.Error()})
		return
	}

	result := CardInspectResponse{ValidationResult: card.ValidateNumber(req.Number)}
	if req.CVC != "" {
		ok := card.ValidateCVC(req.CVC, result.Brand)
		result.CVCValid = &ok
	}
	if req.ExpiryMonth != "" || req.ExpiryYear != "" {
		ok := card.ValidateExpiry(req.ExpiryMonth, req.ExpiryYear)
		result.ExpiryValid = &ok
	}
	response.WriteSuccess(w, result)
}
