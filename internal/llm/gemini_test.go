package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.5-flash"},
		{"gemini-pro", "gemini-2.5-pro"},
		{"gemini-3-pro-preview", "gemini-3-pro-preview"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, geminiModels); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildGeminiSchema(t *testing.T) {
	schema := buildGeminiSchema(routeSchema().Definition)

	if schema.Type != genai.TypeObject {
		t.Fatalf("expected OBJECT type, got %s", schema.Type)
	}
	if len(schema.Properties) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(schema.Properties))
	}

	tool := schema.Properties["tool"]
	if tool.Type != genai.TypeString || len(tool.Enum) != 4 || tool.Format != "enum" {
		t.Fatalf("unexpected tool schema %+v", tool)
	}

	conf := schema.Properties["confidence"]
	if conf.Type != genai.TypeNumber {
		t.Fatalf("expected NUMBER for confidence, got %s", conf.Type)
	}
	if conf.Minimum == nil || *conf.Minimum != 0 || conf.Maximum == nil || *conf.Maximum != 1 {
		t.Fatalf("expected bounds [0,1], got %v..%v", conf.Minimum, conf.Maximum)
	}
	if len(schema.Required) != 3 {
		t.Fatalf("expected 3 required fields, got %d", len(schema.Required))
	}
}

func TestBuildGeminiSchema_Arrays(t *testing.T) {
	schema := buildGeminiSchema(map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "integer"},
	})
	if schema.Type != genai.TypeArray || schema.Items.Type != genai.TypeInteger {
		t.Fatalf("unexpected array schema %+v", schema)
	}
}

func TestGeminiProvider_Generate(t *testing.T) {
	var path string
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": `{"tool":"ConceptExplainer","confidence":0.8,"reasoning":"asks why"}`}},
				},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 12, "candidatesTokenCount": 8, "totalTokenCount": 20},
			"modelVersion":  "gemini-2.5-pro",
		})
	}))
	t.Cleanup(server.Close)

	p, err := NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "k", Model: "gemini-pro", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	resp, err := p.Generate(context.Background(), Request{
		System:   "Route the learner's request.",
		Messages: UserMessages("Why is the sky blue?"),
		Schema:   routeSchema(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(path, "gemini-2.5-pro:generateContent") {
		t.Fatalf("unexpected path %q", path)
	}
	if resp.Usage.TotalTokens != 20 || resp.Model != "gemini-2.5-pro" {
		t.Fatalf("unexpected response %+v", resp)
	}

	gen, _ := body["generationConfig"].(map[string]any)
	if gen["responseMimeType"] != "application/json" {
		t.Fatalf("expected JSON mime type, got %v", gen["responseMimeType"])
	}
	if gen["temperature"] != float64(0) {
		t.Fatalf("expected temperature 0, got %v", gen["temperature"])
	}
}

func TestMapGeminiError(t *testing.T) {
	var rl *ErrRateLimit
	if !errors.As(mapGeminiError(genai.APIError{Code: http.StatusTooManyRequests}), &rl) {
		t.Fatal("expected ErrRateLimit for 429")
	}
	var unavail *ErrProviderUnavailable
	if !errors.As(mapGeminiError(genai.APIError{Code: http.StatusServiceUnavailable}), &unavail) {
		t.Fatal("expected ErrProviderUnavailable for 503")
	}
	if !errors.As(mapGeminiError(errors.New("dial tcp: refused")), &unavail) {
		t.Fatal("expected ErrProviderUnavailable for network errors")
	}
}
