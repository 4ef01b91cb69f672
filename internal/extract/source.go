package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/tutorflow/internal/learner"
	"github.com/abhisek/tutorflow/internal/llm"
	"github.com/abhisek/tutorflow/internal/schema"
)

// CandidateSource reports the values a message states explicitly, as raw
// JSON shaped by the entry's candidate schema. Its output is validated by
// the Extractor, never trusted.
type CandidateSource interface {
	Name() string
	Candidate(ctx context.Context, entry *schema.Entry, in Input) (json.RawMessage, error)
}

// LLMSource asks an LLM for the candidate.
type LLMSource struct {
	provider    llm.Provider
	maxTokens   int
	temperature float64
	maxHistory  int
}

// NewLLMSource creates an LLM-backed candidate source.
func NewLLMSource(provider llm.Provider, cfg Config) *LLMSource {
	return &LLMSource{
		provider:    provider,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		maxHistory:  cfg.MaxHistory,
	}
}

func (s *LLMSource) Name() string { return "llm" }

func (s *LLMSource) Candidate(ctx context.Context, entry *schema.Entry, in Input) (json.RawMessage, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeExtraction)

	user, err := buildUserMessage(entry, in, s.maxHistory)
	if err != nil {
		return nil, fmt.Errorf("build extraction prompt: %w", err)
	}

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    llm.UserMessages(user),
		Schema:      entry.Candidate,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM extraction failed: %w", err)
	}
	return resp.Content, nil
}

const systemPrompt = `You extract tool parameters from a learner's message.

Rules:
- Report only what the learner states explicitly in the message or the conversation.
- Never guess difficulty, depth, count, style or preferences from tone or ability. Use "unspecified", 0 or an empty string for anything not stated.
- topic and concept_to_explain are the subject matter in the learner's own words, without filler such as "can you make".
- current_topic is the broader topic the conversation is about, if the conversation makes it clear.
- subject is an academic subject only if the learner names one.`

var userTemplate = template.Must(template.New("extract").Parse(`Tool: {{.Tool}} ({{.Description}})
{{if .History}}
Conversation so far:
{{range .History}}{{.Role}}: {{.Content}}
{{end}}{{end}}
Learner message:
{{.Message}}`))

func buildUserMessage(entry *schema.Entry, in Input, maxHistory int) (string, error) {
	history := in.History
	if maxHistory > 0 && len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	var b strings.Builder
	err := userTemplate.Execute(&b, struct {
		Tool        string
		Description string
		Message     string
		History     []learner.ChatTurn
	}{entry.Tool.String(), entry.Description, in.Message, history})
	return b.String(), err
}
