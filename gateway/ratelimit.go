package gateway

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/agentstation/difyflow"
)

// NewLimiter allows perSecond calls per second with the given burst.
// A non-positive perSecond means no limit.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

type limitLanguageModel struct {
	next    difyflow.LanguageModel
	limiter *rate.Limiter
}

// RateLimitLanguageModel waits for limiter before each completion. Waiting
// stops when ctx is done.
func RateLimitLanguageModel(lm difyflow.LanguageModel, limiter *rate.Limiter) difyflow.LanguageModel {
	return &limitLanguageModel{next: lm, limiter: limiter}
}

func (l *limitLanguageModel) Complete(ctx context.Context, messages []difyflow.Message) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.Complete(ctx, messages)
}
