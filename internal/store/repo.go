package store

import (
	"context"
	"encoding/json"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
// Results are newest first.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To

	Purpose string // LLM events only
	UserID  string // orchestration events only
	Tool    string // orchestration events only
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates LLM calls by purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int
}

// ModelUsage aggregates LLM calls by model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// Orchestration outcomes.
const (
	OutcomeNoTool           = "no_tool"
	OutcomeSuccess          = "success"
	OutcomeToolFailed       = "tool_failed"
	OutcomeExtractionFailed = "extraction_failed"
)

// OrchestrationEventData captures one completed orchestration run.
// Parameters and Result hold JSON and may be nil.
type OrchestrationEventData struct {
	RequestID  string
	UserID     string
	Message    string
	Tool       string
	Outcome    string
	Parameters json.RawMessage
	Result     json.RawMessage
	LatencyMs  int64
}

// OrchestrationEvent is a stored orchestration run.
type OrchestrationEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	OrchestrationEventData
}

// EventRepo provides append and query access to events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents lists LLM events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns one event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	// LLMUsageByPurpose aggregates token usage per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)

	// LLMUsageByModel aggregates token usage per model.
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)

	// AppendOrchestration records a completed orchestration run.
	AppendOrchestration(ctx context.Context, data OrchestrationEventData) error

	// QueryOrchestrations lists orchestration runs, newest first.
	QueryOrchestrations(ctx context.Context, opts QueryOpts) ([]OrchestrationEvent, error)

	// GetOrchestration returns the run with the given request id, or nil.
	GetOrchestration(ctx context.Context, requestID string) (*OrchestrationEvent, error)
}
