package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/tutorflow/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load consults for the duration of t.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TUTORFLOW_ADDR", "TUTORFLOW_DB", "TUTORFLOW_PROFILES", "TUTORFLOW_LOG_LEVEL",
		"TUTORFLOW_LOG_FORMAT", "TUTORFLOW_TRACING", "TUTORFLOW_LLM_PROVIDER",
		"TUTORFLOW_ANTHROPIC_API_KEY", "TUTORFLOW_OPENAI_API_KEY", "TUTORFLOW_GEMINI_API_KEY",
		"TUTORFLOW_OPENROUTER_API_KEY", "TUTORFLOW_OLLAMA_MODEL", "TUTORFLOW_GEMINI_MODEL",
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tutorflow.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8000", cfg.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Offline())

	rc, lc := cfg.RouterSettings()
	assert.Equal(t, 0.5, rc.MinConfidence)
	assert.Equal(t, 15*time.Second, rc.Timeout)
	assert.Zero(t, lc.Temperature)

	ec := cfg.ExtractSettings()
	assert.Equal(t, 2, ec.MaxAttempts)
	assert.Equal(t, 10, ec.Policy.DefaultCount)
	assert.Equal(t, 5, ec.Policy.LowCount)
	assert.NotNil(t, ec.Policy.Subjects)
}

func TestLoad_JSONCFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `{
		// comments are allowed
		"addr": ":9090",
		"log": {"level": "debug", "format": "json"},
		"llm": {
			"provider": "ollama",
			"ollama": {"model": "qwen2.5"}
		},
		"router": {"min_confidence": 0.7, "timeout": "3s", "temperature": 0, "max_tokens": 128},
		"extract": {"timeout": "10s", "max_attempts": 3, "temperature": 0, "max_tokens": 256,
			"max_history": 4, "default_count": 8, "low_count": 4}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Offline())

	lc := cfg.LLMSettings()
	assert.Equal(t, llm.ProviderOllama, lc.Provider)
	assert.Equal(t, "qwen2.5", lc.Ollama.Model)

	rc, _ := cfg.RouterSettings()
	assert.Equal(t, 0.7, rc.MinConfidence)
	assert.Equal(t, 3*time.Second, rc.Timeout)

	ec := cfg.ExtractSettings()
	assert.Equal(t, 3, ec.MaxAttempts)
	assert.Equal(t, 4, ec.MaxHistory)
	assert.Equal(t, 8, ec.Policy.DefaultCount)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `{"addr": ":9090", "db": "/tmp/file.db"}`)
	t.Setenv("TUTORFLOW_ADDR", ":7070")
	t.Setenv("TUTORFLOW_LOG_LEVEL", "WARN")
	t.Setenv("TUTORFLOW_TRACING", "true")
	t.Setenv("TUTORFLOW_GEMINI_API_KEY", "g-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, "/tmp/file.db", cfg.DB)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Tracing.Enabled)

	lc := cfg.LLMSettings()
	assert.Equal(t, llm.ProviderGemini, lc.Provider)
	assert.Equal(t, "g-key", lc.Gemini.APIKey)
}

func TestLLMSettings_Discovery(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	lc := cfg.LLMSettings()
	assert.Equal(t, llm.ProviderOpenAI, lc.Provider)
	assert.Equal(t, "sk-test", lc.OpenAI.APIKey)
	assert.False(t, cfg.Offline())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		env    map[string]string
		fields []string
	}{
		{name: "unknown field", body: `{"adress": ":80"}`},
		{name: "bad json", body: `{"addr": `},
		{name: "bad duration", body: `{"router": {"timeout": "soon"}}`},
		{
			name:   "bad level",
			body:   `{"log": {"level": "verbose"}}`,
			fields: []string{"Config.Log.Level (oneof)"},
		},
		{
			name:   "confidence range",
			body:   `{"router": {"min_confidence": 1.5}}`,
			fields: []string{"Config.Router.MinConfidence (lte)"},
		},
		{
			name:   "bad addr",
			body:   `{"addr": "nowhere"}`,
			fields: []string{"Config.Addr (hostname_port)"},
		},
		{
			name:   "low over default",
			body:   `{"extract": {"timeout": "1s", "max_attempts": 1, "max_tokens": 1, "default_count": 3, "low_count": 5}}`,
			fields: []string{"Config.Extract.LowCount (lte_default_count)"},
		},
		{name: "provider without key", body: `{"llm": {"provider": "anthropic"}}`},
		{
			name:   "mock provider",
			body:   `{"llm": {"provider": "mock"}}`,
			fields: []string{"Config.LLM.Provider (oneof)"},
		},
		{
			name:   "mock provider from env",
			body:   `{}`,
			env:    map[string]string{"TUTORFLOW_LLM_PROVIDER": "mock"},
			fields: []string{"Config.LLM.Provider (oneof)"},
		},
		{name: "bad tracing env", body: `{}`, env: map[string]string{"TUTORFLOW_TRACING": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)

			if tt.fields != nil {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.fields, verr.Fields)
			}
		})
	}
}

func TestOffline_MockProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("TUTORFLOW_LLM_PROVIDER", llm.ProviderMock)

	cfg := Default()
	assert.True(t, cfg.Offline(), "a mock provider has no responses and must not replace the keyword router")
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
