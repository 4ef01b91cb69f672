package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Invoker is the boundary to the tool implementations.
type Invoker interface {
	Invoke(ctx context.Context, p Params) (*Result, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, p Params) (*Result, error)

func (f InvokerFunc) Invoke(ctx context.Context, p Params) (*Result, error) {
	return f(ctx, p)
}

// MockInvoker stands in for the real tools. It has no side effects other
// than recording the calls it receives.
type MockInvoker struct {
	logger *slog.Logger

	mu    sync.Mutex
	calls []Params
}

// NewMockInvoker creates a MockInvoker. A nil logger uses slog.Default().
func NewMockInvoker(logger *slog.Logger) *MockInvoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockInvoker{logger: logger}
}

func (m *MockInvoker) Invoke(ctx context.Context, p Params) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, p)
	m.mu.Unlock()

	switch v := p.(type) {
	case NoteMakerParams:
		m.logger.Info("tool called", slog.String("tool", "note_maker"),
			slog.String("topic", v.Topic), slog.String("style", string(v.NoteTakingStyle)))
		return &Result{
			Status:  StatusSuccess,
			NotesID: "note_12345",
			Message: fmt.Sprintf("Successfully created notes on '%s'.", v.Topic),
		}, nil

	case FlashcardParams:
		m.logger.Info("tool called", slog.String("tool", "flashcard_generator"),
			slog.String("topic", v.Topic), slog.Int("count", v.Count), slog.String("difficulty", string(v.Difficulty)))
		return &Result{
			Status:          StatusSuccess,
			FlashcardDeckID: "deck_67890",
			Message:         fmt.Sprintf("Successfully created %d flashcards for '%s'.", v.Count, v.Topic),
		}, nil

	case ConceptExplainerParams:
		m.logger.Info("tool called", slog.String("tool", "concept_explainer"),
			slog.String("concept", v.ConceptToExplain), slog.String("depth", string(v.DesiredDepth)))
		return &Result{
			Status:        StatusSuccess,
			ExplanationID: "exp_abcde",
			Message:       fmt.Sprintf("Explanation for '%s' is ready.", v.ConceptToExplain),
		}, nil

	default:
		panic(fmt.Sprintf("tools: unhandled params type %T", p))
	}
}

// Calls returns a copy of the parameters received so far.
func (m *MockInvoker) Calls() []Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Params(nil), m.calls...)
}
