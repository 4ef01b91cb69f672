// Package llm is the inference boundary: a small Provider interface with
// SDK-backed implementations, decorators for retry and event logging, and
// schema validation of structured responses.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates a response for a prompt. When the request carries a
// Schema, the returned Content is JSON that has already been validated
// against it.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// Messages is the conversation, oldest first. Router and extractor
	// calls send the learner's message last.
	Messages []Message

	// Schema, when set, switches the provider to its native structured
	// output mode. When nil the response Content is raw text.
	Schema *Schema

	MaxTokens int

	// Temperature is always sent to the provider, so the zero value asks
	// for deterministic output.
	Temperature float64
}

// Message is a single conversation entry.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies the schema to the provider. Kebab-case, e.g.
	// "flashcard-generator-candidate".
	Name string

	// Description is sent to the LLM to guide generation.
	Description string

	// Definition is the JSON Schema document.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	Content json.RawMessage
	Usage   Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// UserMessages builds a single-turn conversation.
func UserMessages(content string) []Message {
	return []Message{{Role: RoleUser, Content: content}}
}
