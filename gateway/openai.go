// Package gateway provides production implementations of the engine's
// LanguageModel and Retriever contracts, plus retry and circuit-breaker
// wrappers around them.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/agentstation/difyflow"
)

// OpenAI defaults.
const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
)

// OpenAIConfig configures the OpenAI language model.
type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint, for OpenAI-compatible servers.
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	HTTPClient  *http.Client
}

// OpenAI is a LanguageModel backed by the chat completions API.
type OpenAI struct {
	client *openai.Client
	cfg    OpenAIConfig
}

var _ difyflow.LanguageModel = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI language model. Zero fields take the package
// defaults.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

// Model returns the configured model name.
func (o *OpenAI) Model() string {
	return o.cfg.Model
}

// Complete sends messages as one chat completion and returns the first
// choice's content.
func (o *OpenAI) Complete(ctx context.Context, messages []difyflow.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.cfg.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    chatRole(m.Role),
			Content: m.Text,
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func chatRole(role difyflow.Role) string {
	switch role {
	case difyflow.RoleSystem:
		return openai.ChatMessageRoleSystem
	case difyflow.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

// IsTransient reports whether err is an OpenAI failure worth retrying:
// rate limiting, server errors and transport failures.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return transientStatus(reqErr.HTTPStatusCode)
	}
	return true
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
