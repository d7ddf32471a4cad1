package dispatcher

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Sleeper blocks for d, returning early with ctx.Err() if ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy retries rate-limited attempts with a fixed delay up to maxRetries times.
// Every other failure ends delivery after one attempt.
type RetryPolicy struct {
	maxRetries int
	delay      time.Duration
	sleep      Sleeper
	log        *zap.Logger
}

type RetryOption func(*RetryPolicy)

func WithSleeper(s Sleeper) RetryOption {
	return func(r *RetryPolicy) { r.sleep = s }
}

func NewRetryPolicy(maxRetries int, delay time.Duration, log *zap.Logger, opts ...RetryOption) *RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if delay < 0 {
		delay = 0
	}
	if log == nil {
		log = zap.NewNop()
	}

	r := &RetryPolicy{maxRetries: maxRetries, delay: delay, sleep: SleepContext, log: log}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SendWithRetry returns the provider id, or false when delivery failed for good.
// Attempts for one payload are strictly sequential; the total wait is bounded by
// maxRetries * delay.
func (r *RetryPolicy) SendWithRetry(ctx context.Context, c Client, p Payload) (string, bool) {
	retries := 0
	for {
		id, err := c.Send(ctx, p)
		if err == nil {
			return id, true
		}

		var pe *ProviderError
		if !errors.As(err, &pe) {
			pe = &ProviderError{Provider: c.Name(), Kind: KindUnexpected, Err: err}
		}

		fields := []zap.Field{
			zap.String("provider", c.Name()),
			zap.String("kind", string(pe.Kind)),
			zap.Int("status", pe.StatusCode),
			zap.Int("retries", retries),
		}
		if !pe.Retryable() {
			r.log.Info("not retrying", append(fields, zap.Error(err))...)
			return "", false
		}

		retries++
		if retries > r.maxRetries {
			r.log.Info("max retries reached", fields...)
			return "", false
		}

		r.log.Info("retrying after rate limit", append(fields, zap.Duration("delay", r.delay))...)
		if err := r.sleep(ctx, r.delay); err != nil {
			r.log.Info("retry wait aborted", append(fields, zap.Error(err))...)
			return "", false
		}
	}
}
