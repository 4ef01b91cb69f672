package ui

import (
	"errors"
	"testing"

	"github.com/abhisek/tutorflow/internal/learner"
	"github.com/abhisek/tutorflow/internal/orchestrator"
	"github.com/abhisek/tutorflow/internal/router"
	"github.com/abhisek/tutorflow/internal/tools"
	"github.com/stretchr/testify/assert"
)

func TestResponse(t *testing.T) {
	resp := &orchestrator.Response{
		RequestID: "req-1",
		Tool:      tools.FlashcardGenerator,
		Params: tools.FlashcardParams{
			UserInfo:   *learner.MockProfile("u1"),
			Topic:      "photosynthesis",
			Count:      5,
			Difficulty: tools.DifficultyEasy,
			Subject:    "Biology",
		},
		Result: &tools.Result{
			Status:          tools.StatusSuccess,
			Message:         "Successfully created 5 flashcards for 'photosynthesis'.",
			FlashcardDeckID: "deck_67890",
		},
		State: orchestrator.StateDone,
		Trail: []orchestrator.State{orchestrator.StateStart, orchestrator.StateDone},
	}

	out := Response(resp)
	assert.Contains(t, out, "FlashcardGenerator")
	assert.Contains(t, out, "req-1")
	assert.Contains(t, out, "deck_67890")
	assert.Contains(t, out, "photosynthesis")
	assert.NotContains(t, out, "Alex")
}

func TestResponse_NoTool(t *testing.T) {
	out := Response(&orchestrator.Response{RequestID: "req-2", Tool: tools.NoTool})
	assert.Contains(t, out, "No tool applies to this message.")
}

func TestResponse_Failure(t *testing.T) {
	out := Response(&orchestrator.Response{
		Tool:   tools.ConceptExplainer,
		Result: tools.Failure("Could not process request: missing or invalid concept_to_explain."),
	})
	assert.Contains(t, out, "concept_to_explain")
}

func TestDecision(t *testing.T) {
	out := Decision(router.Decision{
		Tool:   tools.NoTool,
		Source: router.SourceLLM,
		Err:    errors.New("provider down"),
	})
	assert.Contains(t, out, "NoTool")
	assert.Contains(t, out, "provider down")
}
