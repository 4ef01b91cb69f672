package llm

func routeSchema() *Schema {
	return &Schema{
		Name:        "test-route",
		Description: "Routing decision",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tool":       map[string]any{"type": "string", "enum": []any{"NoteMaker", "FlashcardGenerator", "ConceptExplainer", "NoTool"}},
				"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				"reasoning":  map[string]any{"type": "string"},
			},
			"required":             []any{"tool", "confidence", "reasoning"},
			"additionalProperties": false,
		},
	}
}
