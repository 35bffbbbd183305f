package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yuzvak/checkout-service/internal/domain/card"
	domainErrors "github.com/yuzvak/checkout-service/internal/domain/errors"
	"github.com/yuzvak/checkout-service/internal/pkg/clock"
	"github.com/yuzvak/checkout-service/internal/pkg/generator"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

const (
	msgRequiredFields = "Por favor completa todos los campos obligatorios"
	msgCardIncomplete = "Por favor completa todos los datos de la tarjeta"
	msgInvalidNumber  = "Número de tarjeta inválido"
	msgInvalidCVC     = "CVC inválido"
	msgInvalidExpiry  = "Fecha de expiración inválida"
	msgEmptyCart      = "Tu carrito está vacío"
	msgCheckoutFailed = "Error al procesar el checkout"
)

type Config struct {
	SessionID string
	UserID    string

	Gateway    Gateway
	Cart       Cart
	Snapshot   CartSnapshot
	Profile    *Profile
	Calculator *SummaryCalculator
	Validator  *card.Validator
	References ReferenceGenerator
	Redirect   Redirector
	Recorder   AttemptRecorder
	Observer   Observer
	Clock      clock.Clock
	Log        *logger.Logger

	ProductCategory string
	Currency        string
}

// Machine drives one checkout from product review to completion.
// The mutex is never held across gateway, cart or ledger calls.
type Machine struct {
	mu sync.Mutex

	sessionID string
	userID    string

	gateway    Gateway
	cart       Cart
	profile    *Profile
	calculator *SummaryCalculator
	validator  *card.Validator
	references ReferenceGenerator
	redirect   Redirector
	recorder   AttemptRecorder
	observer   Observer
	clock      clock.Clock
	log        *logger.Logger

	category string
	currency string

	snapshot     CartSnapshot
	state        State
	lastActivity time.Time
}

func NewMachine(cfg Config) (*Machine, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("checkout machine requires a gateway")
	}

	m := &Machine{
		sessionID:  cfg.SessionID,
		userID:     cfg.UserID,
		gateway:    cfg.Gateway,
		cart:       cfg.Cart,
		profile:    cfg.Profile,
		calculator: cfg.Calculator,
		validator:  cfg.Validator,
		references: cfg.References,
		redirect:   cfg.Redirect,
		recorder:   cfg.Recorder,
		observer:   cfg.Observer,
		clock:      cfg.Clock,
		log:        cfg.Log,
		category:   cfg.ProductCategory,
		currency:   cfg.Currency,
		snapshot:   cfg.Snapshot,
	}

	if m.clock == nil {
		m.clock = clock.NewRealClock()
	}
	if m.calculator == nil {
		m.calculator = NewSummaryCalculator(DefaultFees)
	}
	if m.validator == nil {
		m.validator = card.NewValidator(m.clock)
	}
	if m.references == nil {
		m.references = generator.NewCodeGenerator(m.clock)
	}
	if m.log == nil {
		m.log = logger.Nop()
	}
	if m.category == "" {
		m.category = DefaultProductCategory
	}
	if m.currency == "" {
		m.currency = cfg.Snapshot.Currency
	}
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	if m.sessionID != "" {
		m.log = m.log.WithSession(m.sessionID)
	}

	m.state = m.initialState()
	m.lastActivity = m.clock.Now()
	return m, nil
}

func (m *Machine) initialState() State {
	return State{
		CurrentStep:       StepProductReview,
		PaymentType:       PaymentTypeIntent,
		Form:              m.initialForm(),
		Summary:           m.calculator.Calculate(m.snapshot.Subtotal, m.currency),
		TransactionStatus: StatusPending,
	}
}

func (m *Machine) initialForm() FormData {
	if m.profile == nil {
		return FormData{}
	}
	return FormData{
		CustomerEmail: m.profile.Email,
		CustomerName:  m.profile.FullName(),
	}
}

func (m *Machine) SessionID() string {
	return m.sessionID
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state
	if m.state.Response != nil {
		resp := *m.state.Response
		s.Response = &resp
	}
	s.IsLoading = m.inFlightLocked()
	return s
}

func (m *Machine) Cart() CartSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// IsInFlight reports whether a submission is waiting on the gateway.
// An intent handoff also sits on the processing step but has its response already.
func (m *Machine) IsInFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlightLocked()
}

func (m *Machine) inFlightLocked() bool {
	return m.state.CurrentStep == StepProcessing && m.state.Response == nil
}

func (m *Machine) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivity
}

func (m *Machine) touchLocked() {
	m.lastActivity = m.clock.Now()
}

func (m *Machine) UpdateFormData(field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlightLocked() {
		return domainErrors.ErrCheckoutInProgress
	}
	if err := m.state.Form.set(field, value); err != nil {
		return err
	}
	m.touchLocked()
	return nil
}

func (m *Machine) UpdateCardData(field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlightLocked() {
		return domainErrors.ErrCheckoutInProgress
	}
	if err := m.state.Form.Card.set(field, value); err != nil {
		return err
	}
	m.touchLocked()
	return nil
}

func (m *Machine) SetPaymentType(pt PaymentType) error {
	if pt != PaymentTypeIntent && pt != PaymentTypeDirect {
		return fmt.Errorf("%w: %q", domainErrors.ErrInvalidPaymentType, pt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlightLocked() {
		return domainErrors.ErrCheckoutInProgress
	}
	m.state.PaymentType = pt
	m.touchLocked()
	return nil
}

// SetCart replaces the cart snapshot and recomputes the summary.
func (m *Machine) SetCart(snapshot CartSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlightLocked() {
		return domainErrors.ErrCheckoutInProgress
	}
	m.snapshot = snapshot
	m.state.Summary = m.calculator.Calculate(snapshot.Subtotal, m.currency)
	m.touchLocked()
	return nil
}

// GoToStep moves backward to any earlier step, or forward by exactly one step up to
// the summary. Leaving step 2 forward requires a valid form. It reports whether the
// step changed.
func (m *Machine) GoToStep(target Step) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlightLocked() {
		return false
	}

	current := m.state.CurrentStep
	switch {
	case target >= StepProductReview && target < current:
	case target == current+1 && target <= StepSummaryConfirmation:
		if current == StepCustomerAndPayment {
			if verr := m.validateLocked(); verr != nil {
				m.state.Error = verr.Message
				return false
			}
		}
	default:
		return false
	}

	m.state.CurrentStep = target
	m.state.Error = ""
	m.touchLocked()
	return true
}

func (m *Machine) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Error = ""
}

// ResetCheckout returns to step 1 with the form restored from the profile.
func (m *Machine) ResetCheckout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlightLocked() {
		return domainErrors.ErrCheckoutInProgress
	}
	m.state = m.initialState()
	m.touchLocked()
	return nil
}

// Close discards entered data. It refuses while a submission is in flight.
func (m *Machine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlightLocked() {
		return domainErrors.ErrCheckoutInProgress
	}
	m.state.Form = FormData{}
	return nil
}

// Validate runs the step 2 form checks without changing step.
func (m *Machine) Validate() *domainErrors.ValidationError {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validateLocked()
}

func (m *Machine) validateLocked() *domainErrors.ValidationError {
	form := m.state.Form
	if form.CustomerEmail == "" || form.CustomerName == "" || form.CustomerPhone == "" {
		return domainErrors.NewValidationError("customer", msgRequiredFields)
	}
	if m.state.PaymentType != PaymentTypeDirect {
		return nil
	}

	c := form.Card
	if !c.Complete() {
		return domainErrors.NewValidationError("card", msgCardIncomplete)
	}
	result := card.ValidateNumber(c.Number)
	if !result.IsValid {
		return domainErrors.NewValidationError(CardFieldNumber, msgInvalidNumber)
	}
	if !card.ValidateCVC(c.CVC, result.Brand) {
		return domainErrors.NewValidationError(CardFieldCVC, msgInvalidCVC)
	}
	if !m.validator.ValidateExpiry(c.ExpiryMonth, c.ExpiryYear) {
		return domainErrors.NewValidationError("expiry", msgInvalidExpiry)
	}
	return nil
}

// ProcessCheckout submits the checkout from the summary step. Validation and payment
// outcomes land in the state's Error field; the returned error only reports that the
// submission could not start.
func (m *Machine) ProcessCheckout(ctx context.Context) error {
	m.mu.Lock()
	if m.inFlightLocked() {
		m.mu.Unlock()
		return domainErrors.ErrCheckoutInProgress
	}
	if m.state.CurrentStep != StepSummaryConfirmation {
		m.mu.Unlock()
		return domainErrors.ErrInvalidStep
	}
	if m.snapshot.IsEmpty() {
		m.state.Error = msgEmptyCart
		m.mu.Unlock()
		return nil
	}
	if verr := m.validateLocked(); verr != nil {
		m.state.Error = verr.Message
		m.mu.Unlock()
		return nil
	}

	m.state.CurrentStep = StepProcessing
	m.state.Error = ""
	m.state.Response = nil
	m.state.TransactionStatus = StatusPending
	m.touchLocked()

	paymentType := m.state.PaymentType
	cardInput := m.state.Form.Card
	cart := m.snapshot
	req := buildRequest(m.state.Form, m.state.Summary, cart, m.category, m.references.NewReference(), m.clock.Now())
	m.mu.Unlock()

	started := m.clock.Now()
	m.log.Info("Checkout submitted",
		"reference", req.Reference,
		"payment_type", string(paymentType),
		"amount", req.Amount,
		"currency", req.Currency,
	)

	resp, err := m.submit(ctx, paymentType, cardInput, req)
	status := m.settle(ctx, paymentType, resp, err)

	m.recordAttempt(ctx, req, cart, paymentType, resp, status)
	if m.observer != nil {
		m.observer.SubmissionFinished(paymentType, status, m.clock.Since(started))
	}
	return nil
}

func (m *Machine) submit(ctx context.Context, paymentType PaymentType, cardInput PaymentCardInput, req Request) (*Response, error) {
	if paymentType == PaymentTypeDirect {
		token, err := m.gateway.CreatePaymentMethodToken(ctx, cardInput)
		if err != nil {
			return nil, err
		}
		req.PaymentMethodToken = token.Token

		resp, err := m.gateway.CreateDirectPaymentCheckout(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.PaymentType != PaymentTypeDirect {
			return nil, &domainErrors.ProtocolViolationError{Expected: string(PaymentTypeDirect), Got: string(resp.PaymentType)}
		}
		return resp, nil
	}

	resp, err := m.gateway.CreateIntentCheckout(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.PaymentType != PaymentTypeIntent {
		return nil, &domainErrors.ProtocolViolationError{Expected: string(PaymentTypeIntent), Got: string(resp.PaymentType)}
	}
	if resp.CheckoutURL == "" {
		return nil, &domainErrors.ProtocolViolationError{Expected: "intent with checkoutUrl", Got: "intent without checkoutUrl"}
	}
	return resp, nil
}

// settle applies the gateway outcome to the state and runs the cart and redirect side effects.
func (m *Machine) settle(ctx context.Context, paymentType PaymentType, resp *Response, err error) AttemptStatus {
	if err != nil {
		m.rollback(err)
		return AttemptError
	}

	if paymentType == PaymentTypeIntent {
		m.mu.Lock()
		m.state.Response = resp
		m.state.TransactionStatus = resp.Status
		m.touchLocked()
		m.mu.Unlock()

		if m.redirect != nil {
			if rerr := m.redirect(ctx, resp.CheckoutURL); rerr != nil {
				m.log.Error("Failed to hand off checkout redirect", "reference", resp.Reference, "error", rerr)
				m.rollback(rerr)
				return AttemptError
			}
		}
		m.log.Info("Intent checkout created", "transaction_id", resp.TransactionID, "reference", resp.Reference)
		return AttemptRedirected
	}

	if resp.Status == StatusApproved {
		m.mu.Lock()
		m.state.Response = resp
		m.state.TransactionStatus = StatusApproved
		m.state.CurrentStep = StepCompleted
		m.snapshot = CartSnapshot{Currency: m.snapshot.Currency}
		m.touchLocked()
		m.mu.Unlock()

		if m.cart != nil {
			if cerr := m.cart.Clear(ctx); cerr != nil {
				m.log.Warn("Payment approved but cart could not be cleared", "transaction_id", resp.TransactionID, "error", cerr)
			}
		}
		m.log.Info("Direct payment approved", "transaction_id", resp.TransactionID)
		return AttemptApproved
	}

	m.mu.Lock()
	m.state.Response = resp
	m.state.TransactionStatus = resp.Status
	m.state.Error = declinedMessage(resp.Status)
	m.state.CurrentStep = StepSummaryConfirmation
	m.touchLocked()
	m.mu.Unlock()

	m.log.Warn("Direct payment not approved", "transaction_id", resp.TransactionID, "status", string(resp.Status))
	if resp.Status == StatusDeclined {
		return AttemptDeclined
	}
	return AttemptFailed
}

func (m *Machine) rollback(err error) {
	msg := err.Error()
	if msg == "" {
		msg = msgCheckoutFailed
	}

	m.mu.Lock()
	m.state.Error = msg
	m.state.CurrentStep = StepSummaryConfirmation
	m.state.Response = nil
	m.touchLocked()
	m.mu.Unlock()

	m.log.Error("Checkout submission failed", "error", err)
}

func declinedMessage(status TransactionStatus) string {
	outcome := "fallido"
	if status == StatusDeclined {
		outcome = "rechazado"
	}
	return fmt.Sprintf("Pago %s: %s", status, outcome)
}

func (m *Machine) recordAttempt(ctx context.Context, req Request, cart CartSnapshot, paymentType PaymentType, resp *Response, status AttemptStatus) {
	if m.recorder == nil {
		return
	}

	attempt := Attempt{
		SessionID:   m.sessionID,
		UserID:      m.userID,
		Reference:   req.Reference,
		PaymentType: paymentType,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      status,
		ProductIDs:  cart.ProductIDs(),
		CreatedAt:   m.clock.Now(),
	}
	if resp != nil {
		attempt.TransactionID = resp.TransactionID
		attempt.WompiTransactionID = resp.WompiTransactionID
	}
	if status == AttemptError || status == AttemptDeclined || status == AttemptFailed {
		attempt.Error = m.Snapshot().Error
	}

	if err := m.recorder.RecordAttempt(ctx, attempt); err != nil {
		m.log.Error("Failed to record checkout attempt", "reference", req.Reference, "error", err)
	}
}
