package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/abhisek/tutorflow/internal/llm"
	"github.com/abhisek/tutorflow/internal/tools"
)

// LLMConfig holds configuration for the LLM classifier.
type LLMConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultLLMConfig returns sensible defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		MaxTokens:   256,
		Temperature: 0,
	}
}

// LLMClassifier asks an LLM to pick a tool from the catalog.
type LLMClassifier struct {
	provider llm.Provider
	cfg      LLMConfig
	system   string
}

// NewLLMClassifier creates an LLM-backed classifier.
func NewLLMClassifier(provider llm.Provider, cfg LLMConfig) *LLMClassifier {
	return &LLMClassifier{provider: provider, cfg: cfg, system: systemPrompt}
}

func (c *LLMClassifier) Name() string { return SourceLLM }

// routeOutput is the raw LLM response.
type routeOutput struct {
	Tool       string  `json:"tool"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (c *LLMClassifier) Classify(ctx context.Context, message string) (*Classification, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeRouting)

	resp, err := c.provider.Generate(ctx, llm.Request{
		System:      c.system,
		Messages:    llm.UserMessages(message),
		Schema:      RouteSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM routing failed: %w", err)
	}

	var raw routeOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse routing response: %w", err)
	}

	return &Classification{
		Label:      raw.Tool,
		Confidence: raw.Confidence,
		Reasoning:  raw.Reasoning,
	}, nil
}

var systemTemplate = template.Must(template.New("router").Parse(`You route a learner's message to exactly one study tool.

Available tools:
{{range .Tools}}- {{.Label}} ({{.Name}}): {{.Description}}
{{end}}- {{.NoTool}}: Use when the message is not a request for any of the tools above (small talk, off-topic questions, requests you cannot serve).

Instructions:
- Answer with the tool label only, never a new one.
- If two tools could apply, prefer the one the learner names explicitly.
- Give a confidence (0.0–1.0) and one sentence of reasoning.`))

var systemPrompt = mustRenderSystem()

func mustRenderSystem() string {
	type toolLine struct {
		Label, Name, Description string
	}
	data := struct {
		Tools  []toolLine
		NoTool string
	}{NoTool: tools.NoTool.String()}
	for _, e := range tools.Catalog {
		data.Tools = append(data.Tools, toolLine{e.ID.String(), e.Name, e.Description})
	}

	var buf bytes.Buffer
	if err := systemTemplate.Execute(&buf, data); err != nil {
		panic(fmt.Sprintf("router: render system prompt: %v", err))
	}
	return buf.String()
}
