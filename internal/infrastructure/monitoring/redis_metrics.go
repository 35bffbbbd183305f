package monitoring

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisHook times every command the cart store and submission lock send.
type RedisHook struct{}

func (RedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		observeRedis(cmd.Name(), start, err)
		return err
	}
}

func (RedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		observeRedis("pipeline", start, err)
		return err
	}
}

func (RedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		observeRedis("dial", start, err)
		return conn, err
	}
}

// redis.Nil is a miss, not a failure.
func observeRedis(command string, start time.Time, err error) {
	RedisCommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, redis.Nil) {
		RedisCommandErrorsTotal.WithLabelValues(command).Inc()
	}
}

func InstrumentRedisClient(client *redis.Client) *redis.Client {
	client.AddHook(RedisHook{})
	return client
}

// SubmissionLockMetrics records one lock's acquire and release outcomes.
type SubmissionLockMetrics struct {
	lockKey string
}

func NewSubmissionLockMetrics(lockKey string) *SubmissionLockMetrics {
	return &SubmissionLockMetrics{lockKey: lockKey}
}

func (m *SubmissionLockMetrics) RecordAttempt() {
	RecordLockAttempt(m.lockKey)
}

func (m *SubmissionLockMetrics) RecordSuccess() {
	RecordLockSuccess(m.lockKey)
}

func (m *SubmissionLockMetrics) RecordFailure(reason string) {
	RecordLockFailure(m.lockKey, reason)
}

// RecordRelease counts releases that found the lock already expired or taken over.
func (m *SubmissionLockMetrics) RecordRelease(released bool) {
	if !released {
		RedisLockLostTotal.WithLabelValues(getLockType(m.lockKey)).Inc()
	}
}
