package router

import (
	"github.com/abhisek/tutorflow/internal/llm"
	"github.com/abhisek/tutorflow/internal/tools"
)

// RouteSchema constrains the LLM to the closed tool label set.
var RouteSchema = &llm.Schema{
	Name:        "route-decision",
	Description: "Which pedagogical tool the learner's message calls for",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tool": map[string]any{
				"type":        "string",
				"enum":        labelEnum(),
				"description": "The tool to invoke, or NoTool when the message is not a study request",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Confidence (0.0–1.0) that the chosen tool matches the request",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "One sentence explaining the choice",
			},
		},
		"required":             []any{"tool", "confidence", "reasoning"},
		"additionalProperties": false,
	},
}

func labelEnum() []any {
	labels := tools.Labels()
	out := make([]any, len(labels))
	for i, l := range labels {
		out[i] = l
	}
	return out
}
