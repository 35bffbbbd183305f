package checkout

import (
	"context"
	"time"
)

// Gateway is the payment backend as seen by the state machine.
type Gateway interface {
	CreatePaymentMethodToken(ctx context.Context, input PaymentCardInput) (*PaymentToken, error)
	CreateDirectPaymentCheckout(ctx context.Context, req Request) (*Response, error)
	CreateIntentCheckout(ctx context.Context, req Request) (*Response, error)
}

type Cart interface {
	Snapshot(ctx context.Context) (CartSnapshot, error)
	Clear(ctx context.Context) error
}

// Redirector receives the hosted checkout URL of an intent payment.
type Redirector func(ctx context.Context, checkoutURL string) error

type ReferenceGenerator interface {
	NewReference() string
}

type AttemptStatus string

const (
	AttemptApproved   AttemptStatus = "approved"
	AttemptDeclined   AttemptStatus = "declined"
	AttemptFailed     AttemptStatus = "failed"
	AttemptRedirected AttemptStatus = "redirected"
	AttemptError      AttemptStatus = "error"
)

// Attempt is one submission as written to the ledger. It carries no card data.
type Attempt struct {
	SessionID          string
	UserID             string
	Reference          string
	PaymentType        PaymentType
	Amount             int64
	Currency           string
	Status             AttemptStatus
	TransactionID      string
	WompiTransactionID string
	Error              string
	ProductIDs         []string
	CreatedAt          time.Time
}

type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// Observer is notified when a submission finishes. Metrics hang off this.
type Observer interface {
	SubmissionFinished(paymentType PaymentType, status AttemptStatus, elapsed time.Duration)
}
