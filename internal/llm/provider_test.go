package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestMockProvider_FIFO(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)

	resp1, err := mock.Generate(context.Background(), Request{Messages: UserMessages("first")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp1.Content) != `{"a":1}` || resp1.Usage.InputTokens != 10 {
		t.Fatalf("unexpected first response %+v", resp1)
	}

	resp2, err := mock.Generate(context.Background(), Request{Messages: UserMessages("second")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp2.Content) != `{"b":2}` {
		t.Fatalf("expected {\"b\":2}, got %s", resp2.Content)
	}

	_, err = mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable from empty queue, got: %T", err)
	}
	if mock.CallCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestMockProvider_Func(t *testing.T) {
	mock := NewMockProviderFunc(func(req Request) MockResponse {
		msg := req.Messages[len(req.Messages)-1].Content
		return MockResponse{Content: json.RawMessage(fmt.Sprintf(`{"echo":%q}`, msg))}
	})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := fmt.Sprintf("m%d", i)
			resp, err := mock.Generate(context.Background(), Request{Messages: UserMessages(msg)})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if !strings.Contains(string(resp.Content), msg) {
				t.Errorf("response %s does not echo %s", resp.Content, msg)
			}
		}()
	}
	wg.Wait()

	if len(mock.Requests()) != 8 {
		t.Fatalf("expected 8 recorded requests, got %d", len(mock.Requests()))
	}
}

func TestMockProvider_ValidatesSchema(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"tool":"Weather"}`)})

	_, err := mock.Generate(context.Background(), Request{Schema: routeSchema()})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got: %T", err)
	}
}

func TestMockProvider_DoneContext(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mock.Generate(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// The canned response is still queued.
	if _, err := mock.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMockProvider_ReturnsConfiguredError(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{}})

	_, err := mock.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T", err)
	}
	if mock.ModelID() != "mock" {
		t.Fatalf("expected 'mock', got %q", mock.ModelID())
	}
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != "unknown" {
		t.Fatalf("expected 'unknown', got %q", p)
	}

	ctx = WithPurpose(ctx, PurposeRouting)
	if p := PurposeFrom(ctx); p != "routing" {
		t.Fatalf("expected 'routing', got %q", p)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{context.DeadlineExceeded, "timeout"},
		{fmt.Errorf("call: %w", context.Canceled), "canceled"},
		{&ErrRateLimit{}, "rate_limit"},
		{&ErrInvalidResponse{Err: errors.New("x")}, "invalid_response"},
		{&ErrMaxTokensExceeded{}, "max_tokens"},
		{&ErrProviderUnavailable{}, "unavailable"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	with := func(mut func(*Config)) Config {
		cfg := DefaultConfig()
		mut(&cfg)
		return cfg
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"gemini default without key", DefaultConfig(), true},
		{"gemini with key", with(func(c *Config) { c.Gemini.APIKey = "g" }), false},
		{"anthropic without key", with(func(c *Config) { c.Provider = ProviderAnthropic }), true},
		{"anthropic with key", with(func(c *Config) { c.Provider = ProviderAnthropic; c.Anthropic.APIKey = "sk" }), false},
		{"openai with key", with(func(c *Config) { c.Provider = ProviderOpenAI; c.OpenAI.APIKey = "sk" }), false},
		{"openrouter without key", with(func(c *Config) { c.Provider = ProviderOpenRouter }), true},
		{"ollama needs only a model", with(func(c *Config) { c.Provider = ProviderOllama }), false},
		{"ollama without model", with(func(c *Config) { c.Provider = ProviderOllama; c.Ollama.Model = "" }), true},
		{"mock needs no key", with(func(c *Config) { c.Provider = ProviderMock }), false},
		{"zero retry attempts", with(func(c *Config) { c.Provider = ProviderMock; c.Retry.MaxAttempts = 0 }), true},
		{"unknown provider", with(func(c *Config) { c.Provider = "unknown" }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.cfg.HasCredentials() == tt.wantErr {
				t.Fatalf("HasCredentials() disagrees with Validate()")
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TUTORFLOW_LLM_PROVIDER", "openai")
	t.Setenv("TUTORFLOW_OPENAI_API_KEY", "sk-env")
	t.Setenv("TUTORFLOW_OPENAI_MODEL", "gpt-4.1-mini")
	t.Setenv("TUTORFLOW_OLLAMA_URL", "http://ollama:11434")

	cfg := ConfigFromEnv()
	if cfg.Provider != ProviderOpenAI || cfg.OpenAI.APIKey != "sk-env" || cfg.OpenAI.Model != "gpt-4.1-mini" {
		t.Fatalf("env overrides not applied: %+v", cfg.OpenAI)
	}
	if cfg.Ollama.ServerURL != "http://ollama:11434" {
		t.Fatalf("unexpected ollama url %q", cfg.Ollama.ServerURL)
	}
	if cfg.Gemini.Model != "gemini-pro" {
		t.Fatalf("defaults lost: %q", cfg.Gemini.Model)
	}
}

func TestDiscoverConfig(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}

	if _, ok := DiscoverConfig(); ok {
		t.Fatal("expected no provider without keys")
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GEMINI_API_KEY", "g-key")
	cfg, ok := DiscoverConfig()
	if !ok || cfg.Provider != ProviderGemini || cfg.Gemini.APIKey != "g-key" {
		t.Fatalf("expected gemini to win, got %q", cfg.Provider)
	}

	t.Setenv("GEMINI_API_KEY", "")
	cfg, ok = DiscoverConfig()
	if !ok || cfg.Provider != ProviderAnthropic {
		t.Fatalf("expected anthropic, got %q", cfg.Provider)
	}
}
