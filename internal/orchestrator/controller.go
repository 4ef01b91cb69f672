// Package orchestrator drives one learner request through routing,
// parameter extraction and tool invocation.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/tutorflow/internal/extract"
	"github.com/abhisek/tutorflow/internal/learner"
	"github.com/abhisek/tutorflow/internal/store"
	"github.com/abhisek/tutorflow/internal/tools"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutorflow_orchestrations_total",
		Help: "Completed orchestration runs by tool and outcome.",
	}, []string{"tool", "outcome"})

	runLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tutorflow_orchestration_latency_seconds",
		Help:    "End-to-end orchestration latency.",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
)

var tracer = otel.Tracer("tutorflow/orchestrator")

// Router picks a tool for a message.
type Router interface {
	Route(ctx context.Context, message string) tools.ID
}

// Extractor builds validated parameters for a routed tool.
type Extractor interface {
	Extract(ctx context.Context, in extract.Input) (tools.Params, error)
}

// Recorder persists completed runs.
type Recorder interface {
	AppendOrchestration(ctx context.Context, data store.OrchestrationEventData) error
}

// Request is one learner message. When Profile is nil it is resolved from
// UserID.
type Request struct {
	Message string             `json:"message"`
	UserID  string             `json:"user_id"`
	Profile *learner.Profile   `json:"profile,omitempty"`
	History []learner.ChatTurn `json:"chat_history,omitempty"`
}

// Response is the outcome of a run. Result is nil when no tool applied.
type Response struct {
	RequestID string        `json:"request_id"`
	Tool      tools.ID      `json:"tool"`
	Params    tools.Params  `json:"parameters,omitempty"`
	Result    *tools.Result `json:"response"`
	State     State         `json:"state"`
	Trail     []State       `json:"trail"`
}

// Options configures optional collaborators.
type Options struct {
	// Profiles resolves profiles for requests without one. Defaults to
	// learner.MockResolver.
	Profiles learner.Resolver
	// Events records completed runs. May be nil.
	Events Recorder
	Logger *slog.Logger
}

// Controller runs the routing → extraction → invocation pipeline.
type Controller struct {
	router    Router
	extractor Extractor
	invoker   tools.Invoker
	profiles  learner.Resolver
	events    Recorder
	logger    *slog.Logger
}

// New creates a Controller.
func New(router Router, extractor Extractor, invoker tools.Invoker, opts Options) *Controller {
	if opts.Profiles == nil {
		opts.Profiles = learner.MockResolver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		router:    router,
		extractor: extractor,
		invoker:   invoker,
		profiles:  opts.Profiles,
		events:    opts.Events,
		logger:    opts.Logger,
	}
}

// Run processes one request. Routing and extraction failures and tool
// failures are reported in the Response; the error is non-nil only when
// ctx ends or the profile cannot be resolved.
func (c *Controller) Run(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Controller.Run")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profile := req.Profile
	if profile == nil {
		p, err := c.profiles.Resolve(ctx, req.UserID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "profile")
			return nil, fmt.Errorf("resolve profile %q: %w", req.UserID, err)
		}
		profile = p
	}

	st := NewRequestState(uuid.NewString(), req.Message, profile, req.History)
	span.SetAttributes(attribute.String("request_id", st.ID()))
	logger := c.logger.With(slog.String("request_id", st.ID()))

	st, outcome, err := c.run(ctx, st)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return nil, err
	}

	latency := time.Since(start)
	runsTotal.WithLabelValues(st.Tool().String(), outcome).Inc()
	runLatency.Observe(latency.Seconds())
	span.SetAttributes(
		attribute.String("tool", st.Tool().String()),
		attribute.String("outcome", outcome),
	)
	logger.Info("orchestration complete",
		slog.String("tool", st.Tool().String()),
		slog.String("outcome", outcome),
		slog.String("state", st.State().String()),
		slog.Duration("latency", latency),
	)

	c.record(ctx, logger, req.UserID, st, outcome, latency)

	return &Response{
		RequestID: st.ID(),
		Tool:      st.Tool(),
		Params:    st.Params(),
		Result:    st.Result(),
		State:     st.State(),
		Trail:     st.Trail(),
	}, nil
}

// run walks the state machine. It returns the final state and outcome, or
// ctx.Err() when the context ends first.
func (c *Controller) run(ctx context.Context, st RequestState) (RequestState, string, error) {
	st = st.WithRoute(c.router.Route(ctx, st.Message()))
	if err := ctx.Err(); err != nil {
		return st, "", err
	}
	if st.Tool() == tools.NoTool {
		return st.Terminate(nil), store.OutcomeNoTool, nil
	}

	st = st.WithExtracting()
	params, err := c.extractor.Extract(ctx, extract.Input{
		Tool:    st.Tool(),
		Message: st.Message(),
		Profile: st.Profile(),
		History: st.History(),
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return st, "", ctxErr
	}
	if err == nil {
		st, err = st.WithParams(params)
	}
	if err != nil {
		return st.Terminate(tools.Failure(failureMessage(err))), store.OutcomeExtractionFailed, nil
	}

	result, err := c.invoker.Invoke(ctx, st.Params())
	if ctxErr := ctx.Err(); ctxErr != nil {
		return st, "", ctxErr
	}
	switch {
	case err != nil:
		result = tools.Failure(fmt.Sprintf("%s failed: %v", st.Tool(), err))
	case result == nil:
		result = tools.Failure(fmt.Sprintf("%s returned no result", st.Tool()))
	}

	outcome := store.OutcomeSuccess
	if result.Failed() {
		outcome = store.OutcomeToolFailed
	}
	return st.WithResult(result), outcome, nil
}

func failureMessage(err error) string {
	var f *extract.ExtractionFailure
	if errors.As(err, &f) && len(f.Fields) > 0 {
		return "Could not process request: missing or invalid " + strings.Join(f.Fields, ", ") + "."
	}
	return "Could not process request: the parameters for this tool could not be determined."
}

func (c *Controller) record(ctx context.Context, logger *slog.Logger, userID string, st RequestState, outcome string, latency time.Duration) {
	if c.events == nil {
		return
	}

	data := store.OrchestrationEventData{
		RequestID: st.ID(),
		UserID:    userID,
		Message:   st.Message(),
		Tool:      st.Tool().String(),
		Outcome:   outcome,
		LatencyMs: latency.Milliseconds(),
	}
	if p := st.Params(); p != nil {
		data.Parameters, _ = json.Marshal(p)
	}
	if r := st.Result(); r != nil {
		data.Result, _ = json.Marshal(r)
	}

	if err := c.events.AppendOrchestration(context.WithoutCancel(ctx), data); err != nil {
		logger.Warn("failed to record orchestration event", slog.Any("error", err))
	}
}
