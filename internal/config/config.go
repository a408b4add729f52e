// Package config loads the CLI configuration from defaults, DIFYFLOW_*
// environment variables and explicit overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "DIFYFLOW_"

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderEcho   = "echo"
)

// Config is the complete CLI configuration.
type Config struct {
	LLM    LLMConfig    `koanf:"llm"`
	Engine EngineConfig `koanf:"engine"`
	Cache  CacheConfig  `koanf:"cache"`
	Log    LogConfig    `koanf:"log"`
}

// LLMConfig configures the language model gateway.
type LLMConfig struct {
	Provider        string        `koanf:"provider"         validate:"oneof=openai echo"`
	APIKey          string        `koanf:"api_key"`
	BaseURL         string        `koanf:"base_url"         validate:"omitempty,url"`
	Model           string        `koanf:"model"            validate:"required"`
	Temperature     float64       `koanf:"temperature"      validate:"gte=0,lte=2"`
	MaxTokens       int           `koanf:"max_tokens"       validate:"gt=0"`
	RetryAttempts   int           `koanf:"retry_attempts"   validate:"gte=0"`
	RetryBase       time.Duration `koanf:"retry_base"       validate:"gte=0"`
	CircuitRequests int           `koanf:"circuit_requests" validate:"gte=0"`
	CircuitReset    time.Duration `koanf:"circuit_reset"    validate:"gte=0"`
	RateLimit       float64       `koanf:"rate_limit"       validate:"gte=0"`
	Burst           int           `koanf:"burst"            validate:"gte=0"`
}

// EngineConfig configures workflow execution.
type EngineConfig struct {
	MaxSteps           int           `koanf:"max_steps"           validate:"gt=0"`
	Timeout            time.Duration `koanf:"timeout"             validate:"gte=0"`
	LenientUnsupported bool          `koanf:"lenient_unsupported"`
}

// CacheConfig configures the parsed-graph cache.
type CacheConfig struct {
	MaxEntries int           `koanf:"max_entries" validate:"gt=0"`
	TTL        time.Duration `koanf:"ttl"         validate:"gte=0"`
}

// LogConfig configures process logging.
type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:        ProviderOpenAI,
			Model:           "gpt-3.5-turbo",
			Temperature:     0.7,
			MaxTokens:       2000,
			RetryAttempts:   2,
			RetryBase:       200 * time.Millisecond,
			CircuitRequests: 5,
			CircuitReset:    30 * time.Second,
		},
		Engine: EngineConfig{
			MaxSteps: 100,
		},
		Cache: CacheConfig{
			MaxEntries: 128,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. Later sources win: defaults, then the
// environment, then overrides keyed by koanf path (e.g. "llm.model").
func Load(overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnvKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// transformEnvKey maps DIFYFLOW_LLM_API_KEY to llm.api_key.
func transformEnvKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, ok := strings.Cut(key, "_")
	if !ok || section == "" || field == "" {
		return "", nil
	}
	return section + "." + field, value
}
