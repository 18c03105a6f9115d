// Package vision decorates a domain.VisionClient with budget enforcement,
// call deadlines, retries of transient failures and logging.
package vision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/metrics"
)

// DefaultTimeout bounds a single provider call including its retries.
const DefaultTimeout = 120 * time.Second

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedClient wraps a VisionClient. Transport metrics (requests,
// duration, tokens) are recorded by the provider transports; this layer owns
// budget, deadline, retry and error classification.
type InstrumentedClient struct {
	inner    domain.VisionClient
	provider string
	budget   BudgetChecker
	retry    RetryPolicy
	timeout  time.Duration
	logger   *zap.Logger
}

// Options configures an InstrumentedClient.
type Options struct {
	Provider string
	Budget   BudgetChecker // nil disables budget enforcement
	Retry    RetryPolicy
	Timeout  time.Duration // zero means DefaultTimeout
	Logger   *zap.Logger
}

// NewInstrumentedClient wraps inner with budget, deadline, retry and logging.
func NewInstrumentedClient(inner domain.VisionClient, opts Options) *InstrumentedClient {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &InstrumentedClient{
		inner:    inner,
		provider: opts.Provider,
		budget:   opts.Budget,
		retry:    opts.Retry,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

// Analyze checks the budget and calls the provider under the deadline,
// retrying only domain.ErrUpstreamUnavailable.
func (c *InstrumentedClient) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	var res domain.AnalysisResult
	err := c.call(ctx, req.Task, func(ctx context.Context) (int, error) {
		var err error
		res, err = c.inner.Analyze(ctx, req)
		return res.TotalTokens, err
	})
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	return res, nil
}

// Render behaves like Analyze for image edits.
func (c *InstrumentedClient) Render(ctx context.Context, req domain.RenderRequest) (domain.RenderResult, error) {
	var res domain.RenderResult
	err := c.call(ctx, domain.TaskRender, func(ctx context.Context) (int, error) {
		var err error
		res, err = c.inner.Render(ctx, req)
		return res.TotalTokens, err
	})
	if err != nil {
		return domain.RenderResult{}, err
	}
	return res, nil
}

func (c *InstrumentedClient) call(
	ctx context.Context, task domain.Task, op func(context.Context) (int, error),
) error {
	taskLabel := string(task)
	if c.budget != nil {
		if err := c.budget.Check(ctx); err != nil {
			c.logger.Error("Vision budget exceeded",
				zap.String("provider", c.provider),
				zap.String("task", taskLabel),
				zap.Error(err),
			)
			return fmt.Errorf("budget check: %w", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	attempts := 0
	var tokens int
	err := backoff.RetryNotify(func() error {
		attempts++
		n, err := op(callCtx)
		if err == nil {
			tokens = n
			return nil
		}
		err = classify(callCtx, err)
		if !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(c.retry.newBackOff(), callCtx), func(err error, wait time.Duration) {
		metrics.VisionRetriesTotal.WithLabelValues(c.provider, taskLabel).Inc()
		c.logger.Warn("Retrying vision request",
			zap.String("provider", c.provider),
			zap.String("task", taskLabel),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	})
	duration := time.Since(start)

	if err != nil {
		// backoff returns the context error when the deadline fires between attempts
		err = classify(callCtx, err)
		metrics.VisionErrorsTotal.WithLabelValues(c.provider, taskLabel, errorType(err)).Inc()
		c.logger.Error("Vision request failed",
			zap.String("provider", c.provider),
			zap.String("task", taskLabel),
			zap.Int("attempts", attempts),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w", taskLabel, err)
	}

	if c.budget != nil && tokens > 0 {
		c.budget.Record(int64(tokens))
		remaining := metrics.VisionBudgetTokensRemaining
		remaining.WithLabelValues(c.provider, "daily").Set(float64(c.budget.RemainingDaily()))
		remaining.WithLabelValues(c.provider, "monthly").Set(float64(c.budget.RemainingMonthly()))
	}

	c.logger.Debug("Vision request completed",
		zap.String("provider", c.provider),
		zap.String("task", taskLabel),
		zap.Int("attempts", attempts),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", tokens),
	)
	return nil
}

// classify maps an expired call deadline to domain.ErrUpstreamTimeout.
func classify(callCtx context.Context, err error) error {
	if errors.Is(err, domain.ErrUpstreamTimeout) {
		return err
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	}
	return err
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrUpstreamFormat):
		return "format"
	case errors.Is(err, domain.ErrUpstreamRejected):
		return "rejected"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
