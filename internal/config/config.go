// Package config loads tutorflow settings from an optional JSONC file and
// TUTORFLOW_* environment variables.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/tutorflow/internal/extract"
	"github.com/abhisek/tutorflow/internal/llm"
	"github.com/abhisek/tutorflow/internal/router"
	"github.com/go-playground/validator/v10"
	"github.com/muhammadmuzzammil1998/jsonc"
)

// Config is the full application configuration.
type Config struct {
	Addr        string `json:"addr" validate:"required,hostname_port"`
	DB          string `json:"db"`
	ProfilesDir string `json:"profiles_dir"`
	Workers     int    `json:"workers" validate:"gte=1,lte=64"`

	Log     LogConfig     `json:"log"`
	Tracing TracingConfig `json:"tracing"`
	LLM     LLMConfig     `json:"llm"`
	Router  RouterConfig  `json:"router"`
	Extract ExtractConfig `json:"extract"`
}

type LogConfig struct {
	Level  string `json:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" validate:"oneof=text json"`
}

// TracingConfig enables the stdout span exporter.
type TracingConfig struct {
	Enabled bool `json:"enabled"`
}

// LLMConfig mirrors llm.Config for the config file. Empty fields keep the
// llm defaults.
type LLMConfig struct {
	Provider string `json:"provider" validate:"omitempty,oneof=anthropic openai gemini openrouter ollama"`

	Anthropic  ProviderConfig `json:"anthropic"`
	OpenAI     ProviderConfig `json:"openai"`
	Gemini     ProviderConfig `json:"gemini"`
	OpenRouter ProviderConfig `json:"openrouter"`
	Ollama     ProviderConfig `json:"ollama"`

	MaxAttempts int `json:"max_attempts" validate:"gte=0,lte=10"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url" validate:"omitempty,url"`
}

type RouterConfig struct {
	MinConfidence float64  `json:"min_confidence" validate:"gte=0,lte=1"`
	Timeout       Duration `json:"timeout" validate:"gt=0"`
	Temperature   float64  `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens     int      `json:"max_tokens" validate:"gte=1"`
}

type ExtractConfig struct {
	Timeout      Duration `json:"timeout" validate:"gt=0"`
	MaxAttempts  int      `json:"max_attempts" validate:"gte=1,lte=5"`
	Temperature  float64  `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int      `json:"max_tokens" validate:"gte=1"`
	MaxHistory   int      `json:"max_history" validate:"gte=0"`
	DefaultCount int      `json:"default_count" validate:"gte=1,lte=20"`
	LowCount     int      `json:"low_count" validate:"gte=1,lte=20"`
}

// Duration is a time.Duration that reads "15s" style strings or
// nanosecond numbers.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("duration must be a string or integer: %s", b)
		}
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	rc := router.DefaultConfig()
	lc := router.DefaultLLMConfig()
	ec := extract.DefaultConfig()
	return Config{
		Addr:    "127.0.0.1:8000",
		Workers: 4,
		Log:     LogConfig{Level: "info", Format: "text"},
		Router: RouterConfig{
			MinConfidence: rc.MinConfidence,
			Timeout:       Duration(rc.Timeout),
			Temperature:   lc.Temperature,
			MaxTokens:     lc.MaxTokens,
		},
		Extract: ExtractConfig{
			Timeout:      Duration(ec.Timeout),
			MaxAttempts:  ec.MaxAttempts,
			Temperature:  ec.Temperature,
			MaxTokens:    ec.MaxTokens,
			MaxHistory:   ec.MaxHistory,
			DefaultCount: ec.Policy.DefaultCount,
			LowCount:     ec.Policy.LowCount,
		},
	}
}

// Load builds a Config from defaults, the JSONC file at path (skipped when
// empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TUTORFLOW_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("TUTORFLOW_DB"); v != "" {
		c.DB = v
	}
	if v := os.Getenv("TUTORFLOW_PROFILES"); v != "" {
		c.ProfilesDir = v
	}
	if v := os.Getenv("TUTORFLOW_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("TUTORFLOW_LOG_FORMAT"); v != "" {
		c.Log.Format = strings.ToLower(v)
	}
	if v := os.Getenv("TUTORFLOW_TRACING"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TUTORFLOW_TRACING: %w", err)
		}
		c.Tracing.Enabled = on
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks field constraints. A provider named in the file or
// environment must also have its credentials.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return &ValidationError{Fields: fields, Err: err}
		}
		return err
	}
	if c.Extract.LowCount > c.Extract.DefaultCount {
		return &ValidationError{
			Fields: []string{"Config.Extract.LowCount (lte_default_count)"},
			Err:    fmt.Errorf("low_count %d exceeds default_count %d", c.Extract.LowCount, c.Extract.DefaultCount),
		}
	}
	if c.LLM.Provider != "" || os.Getenv("TUTORFLOW_LLM_PROVIDER") != "" {
		settings := c.LLMSettings()
		if settings.Provider == llm.ProviderMock {
			return &ValidationError{
				Fields: []string{"Config.LLM.Provider (oneof)"},
				Err:    fmt.Errorf("the %s provider cannot be configured; it has no scripted responses", llm.ProviderMock),
			}
		}
		if err := settings.Validate(); err != nil {
			return fmt.Errorf("invalid llm config: %w", err)
		}
	}
	return nil
}

// LLMSettings resolves the provider configuration: file values over
// llm defaults, then TUTORFLOW_* variables, then the vendors' standard
// key variables when no provider is configured yet.
func (c *Config) LLMSettings() llm.Config {
	cfg := llm.DefaultConfig()
	if c.LLM.Provider != "" {
		cfg.Provider = c.LLM.Provider
	}
	overlay(&cfg.Anthropic.APIKey, &cfg.Anthropic.Model, &cfg.Anthropic.BaseURL, c.LLM.Anthropic)
	overlay(&cfg.OpenAI.APIKey, &cfg.OpenAI.Model, &cfg.OpenAI.BaseURL, c.LLM.OpenAI)
	overlay(&cfg.Gemini.APIKey, &cfg.Gemini.Model, &cfg.Gemini.BaseURL, c.LLM.Gemini)
	overlay(&cfg.OpenRouter.APIKey, &cfg.OpenRouter.Model, &cfg.OpenRouter.BaseURL, c.LLM.OpenRouter)
	var ollamaKey string
	overlay(&ollamaKey, &cfg.Ollama.Model, &cfg.Ollama.ServerURL, c.LLM.Ollama)
	if c.LLM.MaxAttempts > 0 {
		cfg.Retry.MaxAttempts = c.LLM.MaxAttempts
	}

	llm.ApplyEnv(&cfg)

	if !cfg.HasCredentials() && c.LLM.Provider == "" && os.Getenv("TUTORFLOW_LLM_PROVIDER") == "" {
		if discovered, ok := llm.DiscoverConfig(); ok {
			discovered.Retry = cfg.Retry
			return discovered
		}
	}
	return cfg
}

func overlay(key, model, baseURL *string, p ProviderConfig) {
	if p.APIKey != "" {
		*key = p.APIKey
	}
	if p.Model != "" {
		*model = p.Model
	}
	if p.BaseURL != "" {
		*baseURL = p.BaseURL
	}
}

// Offline reports whether no provider can be built, in which case the
// keyword router and phrase extractor are used.
func (c *Config) Offline() bool {
	settings := c.LLMSettings()
	return settings.Provider == llm.ProviderMock || !settings.HasCredentials()
}

// RouterSettings returns the router and classifier settings.
func (c *Config) RouterSettings() (router.Config, router.LLMConfig) {
	rc := router.DefaultConfig()
	rc.MinConfidence = c.Router.MinConfidence
	rc.Timeout = time.Duration(c.Router.Timeout)

	lc := router.DefaultLLMConfig()
	lc.Temperature = c.Router.Temperature
	lc.MaxTokens = c.Router.MaxTokens
	return rc, lc
}

// ExtractSettings returns the extractor settings.
func (c *Config) ExtractSettings() extract.Config {
	ec := extract.DefaultConfig()
	ec.Timeout = time.Duration(c.Extract.Timeout)
	ec.MaxAttempts = c.Extract.MaxAttempts
	ec.Temperature = c.Extract.Temperature
	ec.MaxTokens = c.Extract.MaxTokens
	ec.MaxHistory = c.Extract.MaxHistory
	ec.Policy.DefaultCount = c.Extract.DefaultCount
	ec.Policy.LowCount = c.Extract.LowCount
	return ec
}
