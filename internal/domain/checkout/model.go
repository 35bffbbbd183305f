package checkout

import (
	"fmt"
	"strings"

	"github.com/yuzvak/checkout-service/internal/domain/card"
	domainErrors "github.com/yuzvak/checkout-service/internal/domain/errors"
)

type PaymentType string

const (
	PaymentTypeIntent PaymentType = "intent"
	PaymentTypeDirect PaymentType = "direct"
)

func ParsePaymentType(s string) (PaymentType, bool) {
	switch PaymentType(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentTypeIntent:
		return PaymentTypeIntent, true
	case PaymentTypeDirect:
		return PaymentTypeDirect, true
	default:
		return "", false
	}
}

type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusDeclined TransactionStatus = "declined"
	StatusFailed   TransactionStatus = "failed"
)

func (s TransactionStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusDeclined || s == StatusFailed
}

type Step int

const (
	StepProductReview Step = iota + 1
	StepCustomerAndPayment
	StepSummaryConfirmation
	StepProcessing
	StepCompleted
)

func (s Step) String() string {
	switch s {
	case StepProductReview:
		return "product_review"
	case StepCustomerAndPayment:
		return "customer_and_payment"
	case StepSummaryConfirmation:
		return "summary_confirmation"
	case StepProcessing:
		return "processing"
	case StepCompleted:
		return "completed"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

func (s Step) Valid() bool {
	return s >= StepProductReview && s <= StepCompleted
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Artist    string `json:"artist,omitempty"`
	Genre     string `json:"genre,omitempty"`
	Format    string `json:"format,omitempty"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

func (l CartLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// CartSnapshot is the read-only view of the cart taken when a checkout opens.
type CartSnapshot struct {
	Lines    []CartLine `json:"lines"`
	Subtotal int64      `json:"subtotal"`
	Currency string     `json:"currency"`
}

func NewCartSnapshot(lines []CartLine, currency string) (CartSnapshot, error) {
	var subtotal int64
	for _, line := range lines {
		if line.UnitPrice < 0 {
			return CartSnapshot{}, fmt.Errorf("cart line %s: unit price must not be negative", line.ProductID)
		}
		if line.Quantity < 1 {
			return CartSnapshot{}, fmt.Errorf("cart line %s: quantity must be at least 1", line.ProductID)
		}
		subtotal += line.LineTotal()
	}

	copied := make([]CartLine, len(lines))
	copy(copied, lines)
	return CartSnapshot{Lines: copied, Subtotal: subtotal, Currency: currency}, nil
}

func (c CartSnapshot) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c CartSnapshot) TotalQuantity() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

func (c CartSnapshot) ProductIDs() []string {
	ids := make([]string, 0, len(c.Lines))
	for _, line := range c.Lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}

type PaymentCardInput struct {
	Number      string
	CVC         string
	ExpiryMonth string
	ExpiryYear  string
	HolderName  string
}

func (c PaymentCardInput) Complete() bool {
	return c.Number != "" && c.CVC != "" && c.ExpiryMonth != "" && c.ExpiryYear != "" && c.HolderName != ""
}

// FormData mirrors the checkout form one field per input. Card data stays in memory only.
type FormData struct {
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	Card          PaymentCardInput
}

const (
	FieldCustomerEmail = "customerEmail"
	FieldCustomerName  = "customerName"
	FieldCustomerPhone = "customerPhone"

	CardFieldNumber     = "number"
	CardFieldCVC        = "cvc"
	CardFieldExpMonth   = "expMonth"
	CardFieldExpYear    = "expYear"
	CardFieldHolderName = "cardHolderName"
	// CardFieldExpiry accepts MM/YY or MM/YYYY and fills both expiry fields.
	CardFieldExpiry = "expiry"
)

func (f *FormData) set(field, value string) error {
	switch field {
	case FieldCustomerEmail:
		f.CustomerEmail = value
	case FieldCustomerName:
		f.CustomerName = value
	case FieldCustomerPhone:
		f.CustomerPhone = value
	default:
		return fmt.Errorf("%w: %q", domainErrors.ErrUnknownField, field)
	}
	return nil
}

func (c *PaymentCardInput) set(field, value string) error {
	switch field {
	case CardFieldNumber:
		c.Number = value
	case CardFieldCVC:
		c.CVC = value
	case CardFieldExpMonth:
		c.ExpiryMonth = value
	case CardFieldExpYear:
		c.ExpiryYear = value
	case CardFieldHolderName:
		c.HolderName = value
	case CardFieldExpiry:
		month, year, ok := card.ParseExpiry(value)
		if !ok {
			return domainErrors.NewValidationError(field, "Fecha de expiración inválida")
		}
		c.ExpiryMonth, c.ExpiryYear = month, year
	default:
		return fmt.Errorf("%w: %q", domainErrors.ErrUnknownField, field)
	}
	return nil
}

type Summary struct {
	Subtotal    int64  `json:"subtotal"`
	BaseFee     int64  `json:"base_fee"`
	DeliveryFee int64  `json:"delivery_fee"`
	Total       int64  `json:"total"`
	Currency    string `json:"currency"`
}

// Request is the outbound checkout payload. PaymentMethodToken is omitted from the
// JSON body when empty, which is how intent checkouts are sent.
type Request struct {
	Amount             int64                  `json:"amount"`
	Currency           string                 `json:"currency"`
	CustomerEmail      string                 `json:"customerEmail"`
	CustomerName       string                 `json:"customerName,omitempty"`
	CustomerPhone      string                 `json:"customerPhone,omitempty"`
	ProductID          string                 `json:"productId"`
	ProductName        string                 `json:"productName"`
	ProductCategory    string                 `json:"productCategory"`
	ProductArtist      string                 `json:"productArtist,omitempty"`
	ProductGenre       string                 `json:"productGenre,omitempty"`
	ProductFormat      string                 `json:"productFormat,omitempty"`
	Description        string                 `json:"description,omitempty"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
	Reference          string                 `json:"reference,omitempty"`
	PaymentMethodToken string                 `json:"paymentMethodToken,omitempty"`
}

type Response struct {
	ID                 string            `json:"id,omitempty"`
	TransactionID      string            `json:"transactionId"`
	WompiTransactionID string            `json:"wompiTransactionId,omitempty"`
	Amount             int64             `json:"amount,omitempty"`
	Currency           string            `json:"currency,omitempty"`
	Status             TransactionStatus `json:"status"`
	PaymentType        PaymentType       `json:"paymentType"`
	CheckoutURL        string            `json:"checkoutUrl,omitempty"`
	Reference          string            `json:"reference,omitempty"`
	CreatedAt          string            `json:"createdAt,omitempty"`
	UpdatedAt          string            `json:"updatedAt,omitempty"`
}

type PaymentToken struct {
	Token          string     `json:"token"`
	CardType       card.Brand `json:"cardType"`
	LastFourDigits string     `json:"lastFourDigits"`
	ExpiryMonth    string     `json:"expiryMonth"`
	ExpiryYear     string     `json:"expiryYear"`
	CardHolderName string     `json:"cardHolderName"`
}

// TransactionReport is the backend's view of a local transaction, used after an intent redirect returns.
type TransactionReport struct {
	ID                 string            `json:"id"`
	TransactionID      string            `json:"transactionId"`
	WompiTransactionID string            `json:"wompiTransactionId,omitempty"`
	Status             TransactionStatus `json:"status"`
	Amount             int64             `json:"amount"`
	Currency           string            `json:"currency"`
	CustomerEmail      string            `json:"customerEmail"`
	ProductID          string            `json:"productId"`
	ProductName        string            `json:"productName"`
	CreatedAt          string            `json:"createdAt"`
	UpdatedAt          string            `json:"updatedAt"`
}

type WompiPaymentMethod struct {
	Type         string `json:"type"`
	Installments int    `json:"installments,omitempty"`
}

type WompiTransaction struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	Reference     string              `json:"reference"`
	AmountInCents int64               `json:"amount_in_cents"`
	Currency      string              `json:"currency"`
	CustomerEmail string              `json:"customer_email"`
	StatusMessage string              `json:"status_message,omitempty"`
	CreatedAt     string              `json:"created_at"`
	UpdatedAt     string              `json:"updated_at"`
	PaymentMethod *WompiPaymentMethod `json:"payment_method,omitempty"`
}

type WompiReport struct {
	Data   WompiTransaction `json:"data"`
	Status string           `json:"status"`
}

type Profile struct {
	Email     string
	FirstName string
	LastName  string
}

func (p *Profile) FullName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// State is a copy of the machine's state. Mutating it has no effect on the machine.
type State struct {
	CurrentStep       Step
	PaymentType       PaymentType
	Form              FormData
	Summary           Summary
	Response          *Response
	TransactionStatus TransactionStatus
	Error             string
	IsLoading         bool
}
