package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	if cfg.LLM.Model != want.LLM.Model || cfg.LLM.MaxTokens != 2000 || cfg.LLM.Temperature != 0.7 {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Engine.MaxSteps != 100 || cfg.Cache.MaxEntries != 128 {
		t.Errorf("Engine = %+v, Cache = %+v", cfg.Engine, cfg.Cache)
	}
	if cfg.LLM.CircuitReset != 30*time.Second {
		t.Errorf("CircuitReset = %v, want 30s", cfg.LLM.CircuitReset)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("DIFYFLOW_LLM_MODEL", "gpt-4o-mini")
	t.Setenv("DIFYFLOW_LLM_MAX_TOKENS", "512")
	t.Setenv("DIFYFLOW_ENGINE_TIMEOUT", "45s")
	t.Setenv("DIFYFLOW_ENGINE_LENIENT_UNSUPPORTED", "true")
	t.Setenv("DIFYFLOW_LOG_LEVEL", "debug")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.MaxTokens != 512 {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Engine.Timeout != 45*time.Second || !cfg.Engine.LenientUnsupported {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("APIKey = %q, want OPENAI_API_KEY fallback", cfg.LLM.APIKey)
	}
}

func TestLoadOverridesWin(t *testing.T) {
	t.Setenv("DIFYFLOW_LLM_PROVIDER", "openai")
	t.Setenv("DIFYFLOW_LLM_API_KEY", "sk-prefixed")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg, err := Load(map[string]any{
		"llm.provider":     "echo",
		"engine.max_steps": 7,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Provider != ProviderEcho || cfg.Engine.MaxSteps != 7 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LLM.APIKey != "sk-prefixed" {
		t.Errorf("APIKey = %q, want sk-prefixed", cfg.LLM.APIKey)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		want      string
	}{
		{"provider", map[string]any{"llm.provider": "bard"}, "Provider"},
		{"max steps", map[string]any{"engine.max_steps": 0}, "MaxSteps"},
		{"log format", map[string]any{"log.format": "xml"}, "Format"},
		{"base url", map[string]any{"llm.base_url": "not a url"}, "BaseURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.overrides)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestTransformEnvKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"DIFYFLOW_LLM_API_KEY", "llm.api_key"},
		{"DIFYFLOW_CACHE_TTL", "cache.ttl"},
		{"DIFYFLOW_VERBOSE", ""},
		{"DIFYFLOW__X", ""},
	}
	for _, tt := range tests {
		if got, _ := transformEnvKey(tt.in, "v"); got != tt.want {
			t.Errorf("transformEnvKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
