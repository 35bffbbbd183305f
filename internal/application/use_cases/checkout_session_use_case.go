package use_cases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yuzvak/checkout-service/internal/application/ports"
	"github.com/yuzvak/checkout-service/internal/domain/checkout"
	domainErrors "github.com/yuzvak/checkout-service/internal/domain/errors"
	"github.com/yuzvak/checkout-service/internal/pkg/clock"
	"github.com/yuzvak/checkout-service/internal/pkg/generator"
	"github.com/yuzvak/checkout-service/internal/pkg/logger"
)

const (
	defaultSubmissionTimeout = 45 * time.Second
	lockSlack                = 5 * time.Second
)

type OpenCommand struct {
	UserID       string
	Profile      *checkout.Profile
	AccessToken  string
	RefreshToken string
}

// SessionView is what callers see of a session between requests.
type SessionView struct {
	ID          string
	UserID      string
	State       checkout.State
	Cart        checkout.CartSnapshot
	RedirectURL string
	OpenedAt    time.Time
}

type CheckoutSessionDeps struct {
	Sessions   ports.SessionStore
	Carts      ports.CartStore
	Attempts   ports.AttemptRepository
	Lock       ports.SubmissionLock
	Gateways   ports.GatewayFactory
	Observer   checkout.Observer
	Calculator *checkout.SummaryCalculator
	IDs        *generator.CodeGenerator
	Clock      clock.Clock
	Log        *logger.Logger
}

type CheckoutSessionUseCase struct {
	sessions   ports.SessionStore
	carts      ports.CartStore
	attempts   ports.AttemptRepository
	lock       ports.SubmissionLock
	gateways   ports.GatewayFactory
	observer   checkout.Observer
	calculator *checkout.SummaryCalculator
	ids        *generator.CodeGenerator
	clock      clock.Clock
	log        *logger.Logger

	currency          string
	category          string
	submissionTimeout time.Duration
}

func NewCheckoutSessionUseCase(deps CheckoutSessionDeps, currency, category string, submissionTimeout time.Duration) *CheckoutSessionUseCase {
	uc := &CheckoutSessionUseCase{
		sessions:          deps.Sessions,
		carts:             deps.Carts,
		attempts:          deps.Attempts,
		lock:              deps.Lock,
		gateways:          deps.Gateways,
		observer:          deps.Observer,
		calculator:        deps.Calculator,
		ids:               deps.IDs,
		clock:             deps.Clock,
		log:               deps.Log,
		currency:          currency,
		category:          category,
		submissionTimeout: submissionTimeout,
	}
	if uc.clock == nil {
		uc.clock = clock.NewRealClock()
	}
	if uc.ids == nil {
		uc.ids = generator.NewCodeGenerator(uc.clock)
	}
	if uc.log == nil {
		uc.log = logger.Nop()
	}
	if uc.currency == "" {
		uc.currency = checkout.DefaultCurrency
	}
	if uc.submissionTimeout <= 0 {
		uc.submissionTimeout = defaultSubmissionTimeout
	}
	return uc
}

// Open starts a checkout over the user's current cart.
func (uc *CheckoutSessionUseCase) Open(ctx context.Context, cmd OpenCommand) (*SessionView, error) {
	cmd.UserID = strings.TrimSpace(cmd.UserID)
	if cmd.UserID == "" {
		return nil, domainErrors.NewValidationError("user_id", "user_id is required")
	}
	if cmd.AccessToken == "" {
		return nil, domainErrors.ErrAuthExpired
	}

	snapshot, err := uc.carts.Snapshot(ctx, cmd.UserID, uc.currency)
	if err != nil {
		uc.log.Error("Failed to read cart", "user_id", cmd.UserID, "error", err)
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if snapshot.IsEmpty() {
		return nil, domainErrors.ErrEmptyCart
	}

	gw := uc.gateways(cmd.AccessToken, cmd.RefreshToken)
	session := &ports.Session{
		ID:       uc.ids.NewSessionID(),
		UserID:   cmd.UserID,
		Gateway:  gw,
		OpenedAt: uc.clock.Now(),
	}

	cfg := checkout.Config{
		SessionID:  session.ID,
		UserID:     cmd.UserID,
		Gateway:    gw,
		Cart:       uc.carts.ForUser(cmd.UserID, uc.currency),
		Snapshot:   snapshot,
		Profile:    cmd.Profile,
		Calculator: uc.calculator,
		References: uc.ids,
		Redirect: func(_ context.Context, checkoutURL string) error {
			session.SetRedirectURL(checkoutURL)
			return nil
		},
		Clock:           uc.clock,
		Log:             uc.log,
		ProductCategory: uc.category,
		Currency:        uc.currency,
	}
	if uc.attempts != nil {
		cfg.Recorder = uc.attempts
	}
	if uc.observer != nil {
		cfg.Observer = uc.observer
	}

	machine, err := checkout.NewMachine(cfg)
	if err != nil {
		return nil, err
	}
	session.Machine = machine
	uc.sessions.Put(session)

	uc.log.Info("Checkout session opened",
		"session_id", session.ID,
		"user_id", cmd.UserID,
		"items", snapshot.TotalQuantity(),
		"subtotal", snapshot.Subtotal,
	)
	return uc.view(session), nil
}

func (uc *CheckoutSessionUseCase) session(id string) (*ports.Session, error) {
	s, ok := uc.sessions.Get(id)
	if !ok {
		return nil, domainErrors.ErrSessionNotFound
	}
	return s, nil
}

// Authorize reports ErrSessionNotFound when userID did not open the session,
// so a foreign session looks the same as a missing one.
func (uc *CheckoutSessionUseCase) Authorize(id, userID string) error {
	s, err := uc.session(id)
	if err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" || userID != s.UserID {
		uc.log.Warn("Session access denied", "session_id", id, "user_id", userID)
		return domainErrors.ErrSessionNotFound
	}
	return nil
}

func (uc *CheckoutSessionUseCase) view(s *ports.Session) *SessionView {
	return &SessionView{
		ID:          s.ID,
		UserID:      s.UserID,
		State:       s.Machine.Snapshot(),
		Cart:        s.Machine.Cart(),
		RedirectURL: s.RedirectURL(),
		OpenedAt:    s.OpenedAt,
	}
}

func (uc *CheckoutSessionUseCase) Get(id string) (*SessionView, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	return uc.view(s), nil
}

func (uc *CheckoutSessionUseCase) UpdateForm(id, field, value string) (*SessionView, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	if err := s.Machine.UpdateFormData(field, value); err != nil {
		return nil, err
	}
	return uc.view(s), nil
}

func (uc *CheckoutSessionUseCase) UpdateCard(id, field, value string) (*SessionView, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	if err := s.Machine.UpdateCardData(field, value); err != nil {
		return nil, err
	}
	return uc.view(s), nil
}

func (uc *CheckoutSessionUseCase) SetPaymentType(id, paymentType string) (*SessionView, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	pt, ok := checkout.ParsePaymentType(paymentType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domainErrors.ErrInvalidPaymentType, paymentType)
	}
	if err := s.Machine.SetPaymentType(pt); err != nil {
		return nil, err
	}
	return uc.view(s), nil
}

// GoToStep reports whether the move was accepted along with the resulting state.
func (uc *CheckoutSessionUseCase) GoToStep(id string, step checkout.Step) (bool, *SessionView, error) {
	s, err := uc.session(id)
	if err != nil {
		return false, nil, err
	}
	moved := s.Machine.GoToStep(step)
	return moved, uc.view(s), nil
}

// Submit runs one checkout attempt under the distributed submission lock. The
// attempt outlives the caller's context so a dropped connection cannot strand
// the session in processing.
func (uc *CheckoutSessionUseCase) Submit(ctx context.Context, id string) (*SessionView, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	if s.Machine.IsInFlight() {
		return nil, domainErrors.ErrCheckoutInProgress
	}

	key := "checkout:" + id
	if uc.lock != nil {
		token, err := uc.lock.Acquire(ctx, key, uc.submissionTimeout+lockSlack)
		if err != nil {
			return nil, err
		}
		defer func() {
			released, err := uc.lock.Release(context.WithoutCancel(ctx), key, token)
			if err != nil {
				uc.log.Error("Failed to release submission lock", "session_id", id, "error", err)
			} else if !released {
				uc.log.Warn("Submission lock expired before release", "session_id", id)
			}
		}()
	}

	s.SetRedirectURL("")
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.submissionTimeout)
	defer cancel()

	if err := s.Machine.ProcessCheckout(runCtx); err != nil {
		return nil, err
	}
	return uc.view(s), nil
}

func (uc *CheckoutSessionUseCase) Reset(id string) (*SessionView, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	if err := s.Machine.ResetCheckout(); err != nil {
		return nil, err
	}
	s.SetRedirectURL("")
	return uc.view(s), nil
}

func (uc *CheckoutSessionUseCase) ClearError(id string) (*SessionView, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	s.Machine.ClearError()
	return uc.view(s), nil
}

// Close discards the session. It refuses while a submission is in flight.
func (uc *CheckoutSessionUseCase) Close(id string) error {
	s, err := uc.session(id)
	if err != nil {
		return err
	}
	if err := s.Machine.Close(); err != nil {
		return err
	}
	uc.sessions.Delete(id)
	uc.log.Info("Checkout session closed", "session_id", id)
	return nil
}

func (uc *CheckoutSessionUseCase) TransactionStatus(ctx context.Context, id, transactionID string) (*checkout.TransactionReport, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	return s.Gateway.GetTransactionStatus(ctx, transactionID)
}

func (uc *CheckoutSessionUseCase) WompiTransactionStatus(ctx context.Context, id, wompiTransactionID string) (*checkout.WompiReport, error) {
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	return s.Gateway.GetWompiTransactionStatus(ctx, wompiTransactionID)
}

// Attempts lists the ledger entries written for a session.
func (uc *CheckoutSessionUseCase) Attempts(ctx context.Context, id string) ([]checkout.Attempt, error) {
	if uc.attempts == nil {
		return nil, errors.New("attempt ledger is not configured")
	}
	return uc.attempts.ListBySession(ctx, id)
}

// EvictIdle closes sessions untouched for longer than ttl.
func (uc *CheckoutSessionUseCase) EvictIdle(ttl time.Duration) []string {
	evicted := uc.sessions.Evict(uc.clock.Now().Add(-ttl))
	if len(evicted) > 0 {
		uc.log.Info("Evicted idle checkout sessions", "count", len(evicted))
	}
	return evicted
}

func (uc *CheckoutSessionUseCase) ActiveSessions() int {
	return uc.sessions.Len()
}
