package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	domainErrors "github.com/yuzvak/checkout-service/internal/domain/errors"
	"github.com/yuzvak/checkout-service/internal/infrastructure/monitoring"
)

const releaseLuaScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`

// SubmissionLock serialises submissions for a checkout session across replicas.
type SubmissionLock struct {
	client        *redis.Client
	releaseScript *redis.Script
}

func NewSubmissionLock(conn *Connection) *SubmissionLock {
	return &SubmissionLock{
		client:        conn.GetClient(),
		releaseScript: redis.NewScript(releaseLuaScript),
	}
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

// Acquire returns an owner token, or ErrSubmissionLocked if someone else holds the lock.
func (l *SubmissionLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	k := lockKey(key)
	metrics := monitoring.NewSubmissionLockMetrics(k)
	metrics.RecordAttempt()

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		metrics.RecordFailure("redis_error")
		return "", fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		metrics.RecordFailure("already_locked")
		return "", domainErrors.ErrSubmissionLocked
	}

	metrics.RecordSuccess()
	return token, nil
}

// Release deletes the lock only if token still owns it.
func (l *SubmissionLock) Release(ctx context.Context, key, token string) (bool, error) {
	k := lockKey(key)
	res, err := l.releaseScript.Run(ctx, l.client, []string{k}, token).Int64()
	if err != nil {
		return false, fmt.Errorf("release lock %s: %w", key, err)
	}
	released := res == 1
	monitoring.NewSubmissionLockMetrics(k).RecordRelease(released)
	return released, nil
}
