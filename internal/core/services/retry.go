package services

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

// callPolicy bounds a single external call: one deadline per attempt and
// exponential backoff between attempts.
type callPolicy struct {
	retry   domain.RetrySettings
	timeout time.Duration
}

// newBackOff builds the backoff schedule for one call.
func (p callPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.retry.InitialInterval > 0 {
		b.InitialInterval = p.retry.InitialInterval
	}
	if p.retry.MaxInterval > 0 {
		b.MaxInterval = p.retry.MaxInterval
	}
	b.MaxElapsedTime = 0

	attempts := p.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// withTimeout derives a context carrying the per-attempt deadline.
func (p callPolicy) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// callWithRetry runs fn until it succeeds, returns a non-retryable error,
// or the attempts are exhausted. The last error is returned unwrapped.
func callWithRetry[T any](ctx context.Context, p callPolicy, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	op := func() (T, error) {
		callCtx, cancel := p.withTimeout(ctx)
		defer cancel()

		result, err := fn(callCtx)
		if err != nil && !domain.IsRetryable(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	notify := func(err error, wait time.Duration) {
		logger.Debug("%s failed, retrying in %s: %v", name, wait.Round(time.Millisecond), err)
	}

	return backoff.RetryNotifyWithData(op, p.newBackOff(ctx), notify)
}
