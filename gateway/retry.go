package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/agentstation/difyflow"
)

// RetryConfig bounds the exponential backoff of the retry wrappers.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first.
	MaxRetries uint64
	Base       time.Duration
	// Max caps a single wait. Zero means uncapped.
	Max time.Duration
	// Retryable decides whether an error is retried. Nil retries every error
	// except context cancellation.
	Retryable func(error) bool
}

// DefaultRetryConfig retries three times starting at 100ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		Base:       100 * time.Millisecond,
		Max:        2 * time.Second,
	}
}

func (c RetryConfig) backoff() retry.Backoff {
	base := c.Base
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	b := retry.NewExponential(base)
	if c.Max > 0 {
		b = retry.WithCappedDuration(c.Max, b)
	}
	return retry.WithMaxRetries(c.MaxRetries, b)
}

func (c RetryConfig) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if c.Retryable != nil {
		return c.Retryable(err)
	}
	return true
}

func (c RetryConfig) do(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	var out string
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		s, err := fn(ctx)
		if err != nil {
			if c.retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = s
		return nil
	})
	return out, err
}

type retryLanguageModel struct {
	next difyflow.LanguageModel
	cfg  RetryConfig
}

// RetryLanguageModel retries failed completions of lm with exponential
// backoff.
func RetryLanguageModel(lm difyflow.LanguageModel, cfg RetryConfig) difyflow.LanguageModel {
	return &retryLanguageModel{next: lm, cfg: cfg}
}

func (r *retryLanguageModel) Complete(ctx context.Context, messages []difyflow.Message) (string, error) {
	return r.cfg.do(ctx, func(ctx context.Context) (string, error) {
		return r.next.Complete(ctx, messages)
	})
}

type retryRetriever struct {
	next difyflow.Retriever
	cfg  RetryConfig
}

// RetryRetriever retries failed retrievals of ret with exponential backoff.
func RetryRetriever(ret difyflow.Retriever, cfg RetryConfig) difyflow.Retriever {
	return &retryRetriever{next: ret, cfg: cfg}
}

func (r *retryRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	return r.cfg.do(ctx, func(ctx context.Context) (string, error) {
		return r.next.Retrieve(ctx, query)
	})
}
