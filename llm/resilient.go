package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/docflow/types"
)

// ResilientConfig configures the resilience decorator.
type ResilientConfig struct {
	// Timeout bounds each individual Generate call.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryBackoff is the base delay between attempts, doubled each retry.
	RetryBackoff time.Duration
	// RequestsPerSecond throttles calls across all workers; zero disables
	// throttling.
	RequestsPerSecond float64
}

// DefaultResilientConfig mirrors the reference capability settings:
// 120s timeout, 2 retries.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Timeout:      120 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Second,
	}
}

// Resilient decorates a Capability with per-call timeout, bounded
// retries with backoff, and optional rate limiting. It enhances the
// wrapped capability without modifying it.
type Resilient struct {
	inner   Capability
	cfg     ResilientConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewResilient wraps a capability.
func NewResilient(inner Capability, cfg ResilientConfig, logger *zap.Logger) *Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Resilient{
		inner:   inner,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger.With(zap.String("component", "llm_resilient")),
	}
}

// Generate implements Capability. A deadline overrun is classified as
// CAPABILITY_TIMEOUT; exhausted retries surface the last error. The
// caller's context cancels waiting at any point.
func (r *Resilient) Generate(ctx context.Context, role, content string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.cfg.RetryBackoff << (attempt - 1)
			r.logger.Debug("retrying capability call",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", classify(ctx.Err())
			}
		}

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return "", classify(err)
			}
		}

		out, err := r.attempt(ctx, role, content)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !types.IsRetryable(err) && !isTimeout(err) {
			break
		}
		// The parent context is gone; further attempts cannot succeed.
		if ctx.Err() != nil {
			break
		}
	}

	return "", classify(lastErr)
}

func (r *Resilient) attempt(ctx context.Context, role, content string) (string, error) {
	callCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	out, err := r.inner.Generate(callCtx, role, content)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", types.NewError(types.ErrCapabilityTimeout, "capability call timed out").
				WithCause(err).WithRetryable(true)
		}
		return "", err
	}
	return out, nil
}

func isTimeout(err error) bool {
	return types.GetErrorCode(err) == types.ErrCapabilityTimeout ||
		errors.Is(err, context.DeadlineExceeded)
}

// classify guarantees a typed error at the capability boundary.
func classify(err error) error {
	if err == nil {
		return types.NewError(types.ErrCapabilityUnavailable, "capability failed with no error detail")
	}
	if _, ok := err.(*types.Error); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewError(types.ErrCapabilityTimeout, "capability call timed out").WithCause(err)
	}
	return types.NewError(types.ErrCapabilityUnavailable, "capability call failed").WithCause(err)
}
