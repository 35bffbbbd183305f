package monitoring

import (
	"time"

	"github.com/yuzvak/checkout-service/internal/domain/checkout"
)

// CheckoutObserver reports settled submissions to Prometheus.
type CheckoutObserver struct{}

func NewCheckoutObserver() *CheckoutObserver {
	return &CheckoutObserver{}
}

func (CheckoutObserver) SubmissionFinished(paymentType checkout.PaymentType, status checkout.AttemptStatus, elapsed time.Duration) {
	RecordSubmission(string(paymentType), string(status), elapsed)
}

type SessionMetrics struct{}

func NewSessionMetrics() *SessionMetrics {
	return &SessionMetrics{}
}

func (m *SessionMetrics) SetActive(n int) {
	CheckoutSessionsActive.Set(float64(n))
}

func (m *SessionMetrics) RecordEviction() {
	CheckoutSessionsEvictedTotal.Inc()
}
