package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/slok/goresilience"
	"github.com/slok/goresilience/circuitbreaker"
	gerrors "github.com/slok/goresilience/errors"

	"github.com/agentstation/difyflow"
)

// ErrCircuitOpen is returned while a breaker rejects calls.
var ErrCircuitOpen = gerrors.ErrCircuitOpen

// CircuitBreaker stops calling a failing gateway until it has had time to
// recover. It opens once at least MinRequests calls were seen in the
// sliding window and ErrorPercent of them failed.
type CircuitBreaker struct {
	name   string
	cfg    circuitbreaker.Config
	runner goresilience.Runner

	calls    atomic.Int64
	failures atomic.Int64
	rejected atomic.Int64
}

// CircuitOption configures a circuit breaker.
type CircuitOption func(*circuitbreaker.Config)

// WithMinRequests sets how many calls the window needs before the breaker
// may open.
func WithMinRequests(n int) CircuitOption {
	return func(c *circuitbreaker.Config) {
		if n > 0 {
			c.MinimumRequestToOpen = n
		}
	}
}

// WithErrorPercent sets the failure share, 1 to 100, that opens the breaker.
func WithErrorPercent(p int) CircuitOption {
	return func(c *circuitbreaker.Config) {
		if p > 0 && p <= 100 {
			c.ErrorPercentThresholdToOpen = p
		}
	}
}

// WithResetTimeout sets how long the circuit stays open before trial calls.
func WithResetTimeout(d time.Duration) CircuitOption {
	return func(c *circuitbreaker.Config) {
		if d > 0 {
			c.WaitDurationInOpenState = d
		}
	}
}

// WithHalfOpenSuccesses sets the trial calls that must succeed to close the
// circuit again.
func WithHalfOpenSuccesses(n int) CircuitOption {
	return func(c *circuitbreaker.Config) {
		if n > 0 {
			c.SuccessfulRequiredOnHalfOpen = n
		}
	}
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(name string, opts ...CircuitOption) *CircuitBreaker {
	cfg := circuitbreaker.Config{
		ErrorPercentThresholdToOpen:        50,
		MinimumRequestToOpen:               5,
		SuccessfulRequiredOnHalfOpen:       1,
		WaitDurationInOpenState:            30 * time.Second,
		MetricsSlidingWindowBucketQuantity: 10,
		MetricsBucketDuration:              time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		runner: circuitbreaker.New(cfg),
	}
}

// Execute runs fn unless the circuit is open. Context cancellation is not
// counted as a gateway failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	cb.calls.Add(1)

	var (
		out     string
		callErr error
	)
	err := cb.runner.Run(ctx, func(ctx context.Context) error {
		out, callErr = fn(ctx)
		if callErr != nil && ctx.Err() == nil {
			return callErr
		}
		return nil
	})

	switch {
	case errors.Is(err, gerrors.ErrCircuitOpen):
		cb.rejected.Add(1)
		return "", fmt.Errorf("%w: %s", ErrCircuitOpen, cb.name)
	case err != nil:
		cb.failures.Add(1)
		return "", err
	default:
		return out, callErr
	}
}

// Metrics returns circuit breaker statistics.
func (cb *CircuitBreaker) Metrics() CircuitMetrics {
	return CircuitMetrics{
		Name:          cb.name,
		TotalCalls:    cb.calls.Load(),
		TotalFailures: cb.failures.Load(),
		TotalRejected: cb.rejected.Load(),
		MinRequests:   cb.cfg.MinimumRequestToOpen,
		ErrorPercent:  cb.cfg.ErrorPercentThresholdToOpen,
		ResetTimeout:  cb.cfg.WaitDurationInOpenState,
	}
}

// CircuitMetrics contains circuit breaker statistics and settings.
type CircuitMetrics struct {
	Name          string
	TotalCalls    int64
	TotalFailures int64
	TotalRejected int64
	MinRequests   int
	ErrorPercent  int
	ResetTimeout  time.Duration
}

type breakLanguageModel struct {
	next difyflow.LanguageModel
	cb   *CircuitBreaker
}

// BreakLanguageModel guards lm with cb.
func BreakLanguageModel(lm difyflow.LanguageModel, cb *CircuitBreaker) difyflow.LanguageModel {
	return &breakLanguageModel{next: lm, cb: cb}
}

func (b *breakLanguageModel) Complete(ctx context.Context, messages []difyflow.Message) (string, error) {
	return b.cb.Execute(ctx, func(ctx context.Context) (string, error) {
		return b.next.Complete(ctx, messages)
	})
}

type breakRetriever struct {
	next difyflow.Retriever
	cb   *CircuitBreaker
}

// BreakRetriever guards ret with cb.
func BreakRetriever(ret difyflow.Retriever, cb *CircuitBreaker) difyflow.Retriever {
	return &breakRetriever{next: ret, cb: cb}
}

func (b *breakRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	return b.cb.Execute(ctx, func(ctx context.Context) (string, error) {
		return b.next.Retrieve(ctx, query)
	})
}
