package pricing

import (
	"context"
	"errors"
	"time"

	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/logx"
)

type counter interface {
	Inc()
}

// RetryConfig describes the retry behaviour of RetryingQuoter.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryingQuoter retries transient quoting failures with capped exponential backoff.
type RetryingQuoter struct {
	next    Quoter
	logger  logx.Logger
	retries counter
	cfg     RetryConfig
}

// NewRetryingQuoter returns nil when next is nil.
func NewRetryingQuoter(next Quoter, logger logx.Logger, retries counter, cfg RetryConfig) *RetryingQuoter {
	if next == nil {
		return nil
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &RetryingQuoter{next: next, logger: logger, retries: retries, cfg: cfg}
}

// Quote implements Quoter.
func (q *RetryingQuoter) Quote(ctx context.Context, pickup, drop geo.Point) (Quote, error) {
	var lastErr error
	for attempt := 1; attempt <= q.cfg.MaxAttempts; attempt++ {
		res, err := q.next.Quote(ctx, pickup, drop)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == q.cfg.MaxAttempts || !errors.Is(err, ErrUnavailable) {
			break
		}

		delay := backoff(q.cfg.BaseDelay, q.cfg.MaxDelay, attempt)
		if q.retries != nil {
			q.retries.Inc()
		}
		q.logger.Warn("pricing retry",
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		if !sleepWithContext(ctx, delay) {
			break
		}
	}
	return Quote{}, lastErr
}

func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d > max {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
