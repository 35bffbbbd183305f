package ports

import (
	"context"

	"github.com/yuzvak/checkout-service/internal/domain/checkout"
)

type AttemptRepository interface {
	checkout.AttemptRecorder
	GetByReference(ctx context.Context, reference string) (*checkout.Attempt, error)
	ListBySession(ctx context.Context, sessionID string) ([]checkout.Attempt, error)
}
