package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentstation/difyflow"
	"github.com/agentstation/difyflow/gateway"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, status int, body string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s, want /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIComplete(t *testing.T) {
	var seen chatRequest
	srv := newChatServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "gpt-3.5-turbo",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "billing"}, "finish_reason": "stop"}]
	}`, &seen)

	lm := gateway.NewOpenAI(gateway.OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1/"})
	got, err := lm.Complete(context.Background(), []difyflow.Message{
		{Role: difyflow.RoleSystem, Text: "be brief"},
		{Role: difyflow.RoleUser, Text: "refund?"},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "billing" {
		t.Errorf("Complete() = %q, want %q", got, "billing")
	}

	if seen.Model != gateway.DefaultModel {
		t.Errorf("model = %q, want %q", seen.Model, gateway.DefaultModel)
	}
	if seen.MaxTokens != gateway.DefaultMaxTokens {
		t.Errorf("max_tokens = %d, want %d", seen.MaxTokens, gateway.DefaultMaxTokens)
	}
	if seen.Temperature != gateway.DefaultTemperature {
		t.Errorf("temperature = %v, want %v", seen.Temperature, gateway.DefaultTemperature)
	}
	if len(seen.Messages) != 2 || seen.Messages[0].Role != "system" || seen.Messages[1].Content != "refund?" {
		t.Errorf("messages = %+v", seen.Messages)
	}
}

func TestOpenAIErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{
			name:      "rate limited",
			status:    http.StatusTooManyRequests,
			body:      `{"error": {"message": "slow down", "type": "rate_limit"}}`,
			transient: true,
		},
		{
			name:      "server error",
			status:    http.StatusInternalServerError,
			body:      `{"error": {"message": "oops", "type": "server_error"}}`,
			transient: true,
		},
		{
			name:      "bad request",
			status:    http.StatusBadRequest,
			body:      `{"error": {"message": "bad model", "type": "invalid_request_error"}}`,
			transient: false,
		},
		{
			name:      "no choices",
			status:    http.StatusOK,
			body:      `{"id": "x", "choices": []}`,
			transient: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newChatServer(t, tt.status, tt.body, nil)
			lm := gateway.NewOpenAI(gateway.OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"})

			_, err := lm.Complete(context.Background(), []difyflow.Message{{Role: difyflow.RoleUser, Text: "q"}})
			if err == nil {
				t.Fatal("Complete() error = nil")
			}
			if got := gateway.IsTransient(err); got != tt.transient {
				t.Errorf("IsTransient(%v) = %v, want %v", err, got, tt.transient)
			}
		})
	}
}

func TestIsTransientContext(t *testing.T) {
	if gateway.IsTransient(context.Canceled) {
		t.Error("IsTransient(context.Canceled) = true")
	}
	if gateway.IsTransient(nil) {
		t.Error("IsTransient(nil) = true")
	}
}

func TestStaticRetriever(t *testing.T) {
	got, err := gateway.StaticRetriever{}.Retrieve(context.Background(), "q")
	if err != nil || got != gateway.DefaultPassage {
		t.Errorf("Retrieve() = %q, %v", got, err)
	}

	got, _ = gateway.StaticRetriever{Passage: "fixed"}.Retrieve(context.Background(), "q")
	if got != "fixed" {
		t.Errorf("Retrieve() = %q, want fixed", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (gateway.StaticRetriever{}).Retrieve(ctx, "q"); err == nil {
		t.Error("Retrieve(cancelled) error = nil")
	}
}
