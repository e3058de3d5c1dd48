// Package retry wraps unreliable external calls with bounded exponential
// backoff. Only failures the classifier marks transient are retried;
// everything else propagates immediately.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/docask/docask/internal/pkg/errors"
)

// Classifier reports whether an error is worth retrying.
type Classifier func(err error) bool

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration
	IsTransient Classifier

	// sleep is swappable in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func (c Config) normalized() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = time.Minute
	}
	if c.IsTransient == nil {
		c.IsTransient = func(error) bool { return false }
	}
	if c.sleep == nil {
		c.sleep = sleepCtx
	}
	return c
}

// Invoke runs op up to MaxAttempts times. The operation must be
// idempotent: a retried call may repeat its side effects. Delay before
// attempt n is base*2^(n-1) +/- jitter, capped at MaxDelay. When every
// attempt fails transiently, the result is ErrUnavailable wrapping the
// last cause; fatal errors and context cancellation surface as-is.
func Invoke[T any](ctx context.Context, cfg Config, name string, op func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.normalized()
	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := cfg.sleep(ctx, cfg.delay(attempt-1)); err != nil {
				return zero, err
			}
		}
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !cfg.IsTransient(err) {
			return zero, err
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("transient failure, will retry",
			zap.String("op", name),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Error(err),
		)
	}
	return zero, fmt.Errorf("%w: %s failed after %d attempts: %v", appErr.ErrUnavailable, name, cfg.MaxAttempts, lastErr)
}

func (c Config) delay(attempt int) time.Duration {
	d := c.BaseDelay << uint(attempt)
	if d > c.MaxDelay || d <= 0 {
		d = c.MaxDelay
	}
	if c.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(2*c.Jitter))) - c.Jitter
		if d < 0 {
			d = 0
		}
		if d > c.MaxDelay {
			d = c.MaxDelay
		}
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
