package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentstation/difyflow"
	"github.com/agentstation/difyflow/builtin"
	"github.com/agentstation/difyflow/gateway"
	"github.com/agentstation/difyflow/internal/config"
	"github.com/agentstation/difyflow/internal/telemetry"
	"github.com/agentstation/difyflow/middleware"
	"github.com/agentstation/difyflow/script"
	"github.com/agentstation/difyflow/yaml"
)

// session bundles what run and batch need.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	loader  *yaml.Loader
	engine  *difyflow.Engine
	timing  *middleware.Timing
	metrics *prometheus.Registry
}

func newLoader(cfg *config.Config, logger *slog.Logger) *yaml.Loader {
	store := difyflow.NewGraphStore(
		difyflow.WithMaxEntries(cfg.Cache.MaxEntries),
		difyflow.WithTTL(cfg.Cache.TTL),
		difyflow.WithEvictionCallback(func(key string, _ *difyflow.Graph) {
			logger.Debug("graph evicted", "path", key)
		}),
	)
	loader := yaml.NewLoader(yaml.WithStore(store))
	builtin.RegisterAll(loader)
	return loader
}

func newSession(cfg *config.Config, stderr io.Writer) (*session, error) {
	logger := telemetry.NewLogger(stderr, cfg.Log.Level, cfg.Log.Format)
	lm, err := newLanguageModel(cfg.LLM)
	if err != nil {
		return nil, err
	}

	rt := &session{
		cfg:     cfg,
		logger:  logger,
		loader:  newLoader(cfg, logger),
		timing:  middleware.NewTiming(),
		metrics: prometheus.NewRegistry(),
	}

	engineLogger := difyflow.NewSlogLogger(logger)
	opts := []difyflow.Option{
		difyflow.WithMaxSteps(cfg.Engine.MaxSteps),
		difyflow.WithTimeout(cfg.Engine.Timeout),
		difyflow.WithLogger(engineLogger),
		difyflow.WithScriptRunner(script.New(script.WithLogger(engineLogger))),
		difyflow.WithObserver(middleware.Chain(
			middleware.Logging(engineLogger),
			middleware.NewMetrics(rt.metrics),
			rt.timing,
		)),
	}
	if cfg.Engine.LenientUnsupported {
		opts = append(opts, difyflow.WithLenientUnsupported())
	}

	rt.engine = difyflow.NewEngine(lm, gateway.StaticRetriever{}, opts...)
	return rt, nil
}

// newLanguageModel wraps the configured provider in rate limiting, retries
// and a circuit breaker, innermost first.
func newLanguageModel(c config.LLMConfig) (difyflow.LanguageModel, error) {
	var lm difyflow.LanguageModel
	switch c.Provider {
	case config.ProviderEcho:
		return echoModel{}, nil
	case config.ProviderOpenAI:
		if c.APIKey == "" {
			return nil, fmt.Errorf("no API key: set DIFYFLOW_LLM_API_KEY or OPENAI_API_KEY, or use --echo")
		}
		lm = gateway.NewOpenAI(gateway.OpenAIConfig{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Temperature: float32(c.Temperature),
			MaxTokens:   c.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown language model provider %q", c.Provider)
	}

	if c.RateLimit > 0 {
		lm = gateway.RateLimitLanguageModel(lm, gateway.NewLimiter(c.RateLimit, c.Burst))
	}
	if c.RetryAttempts > 0 {
		lm = gateway.RetryLanguageModel(lm, gateway.RetryConfig{
			MaxRetries: uint64(c.RetryAttempts),
			Base:       c.RetryBase,
			Retryable:  gateway.IsTransient,
		})
	}
	if c.CircuitRequests > 0 {
		lm = gateway.BreakLanguageModel(lm, gateway.NewCircuitBreaker("llm",
			gateway.WithMinRequests(c.CircuitRequests),
			gateway.WithResetTimeout(c.CircuitReset),
		))
	}
	return lm, nil
}
