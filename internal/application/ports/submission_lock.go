package ports

import (
	"context"
	"time"
)

// SubmissionLock guards a submission across replicas. Acquire returns an
// owner token that Release must present.
type SubmissionLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key, token string) (bool, error)
}
