package handlers

import (
	"time"

	"github.com/yuzvak/checkout-service/internal/application/use_cases"
	"github.com/yuzvak/checkout-service/internal/domain/card"
	"github.com/yuzvak/checkout-service/internal/domain/checkout"
	"github.com/yuzvak/checkout-service/internal/domain/money"
)

// CardView never carries the card number or CVC.
type CardView struct {
	Brand       card.Brand `json:"brand"`
	LastFour    string     `json:"last_four,omitempty"`
	ExpiryMonth string     `json:"expiry_month,omitempty"`
	ExpiryYear  string     `json:"expiry_year,omitempty"`
	HolderName  string     `json:"holder_name,omitempty"`
	Complete    bool       `json:"complete"`
}

type FormView struct {
	CustomerEmail string   `json:"customer_email"`
	CustomerName  string   `json:"customer_name"`
	CustomerPhone string   `json:"customer_phone"`
	Card          CardView `json:"card"`
}

type FormattedSummary struct {
	Subtotal    string `json:"subtotal"`
	BaseFee     string `json:"base_fee"`
	DeliveryFee string `json:"delivery_fee"`
	Total       string `json:"total"`
}

type SessionResponse struct {
	ID                string                     `json:"id"`
	Step              int                        `json:"step"`
	StepName          string                     `json:"step_name"`
	PaymentType       checkout.PaymentType       `json:"payment_type"`
	Form              FormView                   `json:"form"`
	Summary           checkout.Summary           `json:"summary"`
	Formatted         FormattedSummary           `json:"formatted"`
	Cart              checkout.CartSnapshot      `json:"cart"`
	Response          *checkout.Response         `json:"response,omitempty"`
	TransactionStatus checkout.TransactionStatus `json:"transaction_status"`
	Error             string                     `json:"error,omitempty"`
	IsLoading         bool                       `json:"is_loading"`
	RedirectURL       string                     `json:"redirect_url,omitempty"`
	OpenedAt          time.Time                  `json:"opened_at"`
}

type StepResponse struct {
	Moved bool            `json:"moved"`
	State SessionResponse `json:"state"`
}

func newCardView(in checkout.PaymentCardInput) CardView {
	view := CardView{
		Brand:       card.BrandUnknown,
		ExpiryMonth: in.ExpiryMonth,
		ExpiryYear:  in.ExpiryYear,
		HolderName:  in.HolderName,
		Complete:    in.Complete(),
	}
	if in.Number != "" {
		result := card.ValidateNumber(in.Number)
		view.Brand = result.Brand
		view.LastFour = result.LastFourDigits
	}
	return view
}

func newSessionResponse(v *use_cases.SessionView, f *money.Formatter) SessionResponse {
	s := v.State
	currency := s.Summary.Currency
	return SessionResponse{
		ID:          v.ID,
		Step:        int(s.CurrentStep),
		StepName:    s.CurrentStep.String(),
		PaymentType: s.PaymentType,
		Form: FormView{
			CustomerEmail: s.Form.CustomerEmail,
			CustomerName:  s.Form.CustomerName,
			CustomerPhone: s.Form.CustomerPhone,
			Card:          newCardView(s.Form.Card),
		},
		Summary: s.Summary,
		Formatted: FormattedSummary{
			Subtotal:    f.Format(s.Summary.Subtotal, currency),
			BaseFee:     f.Format(s.Summary.BaseFee, currency),
			DeliveryFee: f.Format(s.Summary.DeliveryFee, currency),
			Total:       f.Format(s.Summary.Total, currency),
		},
		Cart:              v.Cart,
		Response:          s.Response,
		TransactionStatus: s.TransactionStatus,
		Error:             s.Error,
		IsLoading:         s.IsLoading,
		RedirectURL:       v.RedirectURL,
		OpenedAt:          v.OpenedAt,
	}
}
