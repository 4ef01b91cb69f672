// Package router decides which pedagogical tool, if any, a learner
// message calls for. Routing never fails the request: every problem
// collapses to tools.NoTool.
package router

import (
	"context"
	"fmt"

	"github.com/abhisek/tutorflow/internal/tools"
)

// Decision sources.
const (
	SourceLLM     = "llm"
	SourceKeyword = "keyword"
	SourceNone    = "none"
)

// Classification is a classifier's raw answer. Label is untrusted until
// the router parses it.
type Classification struct {
	Label      string
	Confidence float64
	Reasoning  string
}

// Classifier maps a message to a tool label.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, message string) (*Classification, error)
}

// Decision is the router's verdict for one message.
type Decision struct {
	Tool       tools.ID
	Confidence float64
	Reasoning  string
	Source     string // classifier name, or "none" when no classifier ran
	Err        error  // *RoutingFailure when the verdict was forced to NoTool
}

// RoutingFailure reasons.
const (
	ReasonUnavailable   = "unavailable"
	ReasonTimeout       = "timeout"
	ReasonInvalidLabel  = "invalid_label"
	ReasonLowConfidence = "low_confidence"
)

// RoutingFailure records why a classification was discarded.
type RoutingFailure struct {
	Reason string
	Label  string
	Err    error
}

func (e *RoutingFailure) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("routing %s: %v", e.Reason, e.Err)
	case e.Label != "":
		return fmt.Sprintf("routing %s: %q", e.Reason, e.Label)
	}
	return "routing " + e.Reason
}

func (e *RoutingFailure) Unwrap() error { return e.Err }
