package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenRouterProvider(t *testing.T) {
	t.Run("model passes through", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test", Model: "gpt-4o-mini"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelID() != "gpt-4o-mini" {
			t.Errorf("model = %q, want %q", p.ModelID(), "gpt-4o-mini")
		}
	})

	t.Run("empty API key", func(t *testing.T) {
		if _, err := NewOpenRouterProvider(OpenRouterConfig{Model: "google/gemini-2.5-pro"}); err == nil {
			t.Fatal("expected error for empty API key")
		}
	})

	t.Run("empty model", func(t *testing.T) {
		if _, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test"}); err == nil {
			t.Fatal("expected error for empty model")
		}
	})
}

func TestOpenRouterProvider_UsesBaseURL(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotModel, _ = body["model"].(string)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion(`plain text`, "stop"))
	}))
	t.Cleanup(server.Close)

	p, err := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:  "sk-or-test",
		Model:   "google/gemini-2.5-pro",
		BaseURL: server.URL + "/api/v1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := p.Generate(context.Background(), Request{Messages: UserMessages("hello")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotModel != "google/gemini-2.5-pro" {
		t.Fatalf("expected vendor-prefixed model on the wire, got %q", gotModel)
	}
	if string(resp.Content) != "plain text" {
		t.Fatalf("unexpected content %s", resp.Content)
	}
}
