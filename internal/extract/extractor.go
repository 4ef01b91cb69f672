package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/tutorflow/internal/learner"
	"github.com/abhisek/tutorflow/internal/llm"
	"github.com/abhisek/tutorflow/internal/schema"
	"github.com/abhisek/tutorflow/internal/tools"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Extraction outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
)

var (
	extractTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutorflow_extract_total",
		Help: "Parameter extractions by tool and outcome.",
	}, []string{"tool", "outcome"})

	extractLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tutorflow_extract_latency_seconds",
		Help:    "Time spent extracting tool parameters.",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"tool"})
)

var tracer = otel.Tracer("tutorflow/extract")

// Extractor builds validated tool parameters.
type Extractor struct {
	source CandidateSource
	cfg    Config
	logger *slog.Logger
}

// New creates an Extractor. A nil logger uses slog.Default().
func New(source CandidateSource, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Policy.Subjects == nil {
		cfg.Policy = DefaultPolicy()
	}
	return &Extractor{source: source, cfg: cfg, logger: logger}
}

// Extract returns parameters for in.Tool that have passed full schema
// validation. Unusable input yields *ExtractionFailure; a cancelled or
// expired ctx yields ctx.Err().
func (x *Extractor) Extract(ctx context.Context, in Input) (tools.Params, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Extractor.Extract")
	defer span.End()
	span.SetAttributes(attribute.String("tool", in.Tool.String()))

	p, err := x.extract(ctx, in)

	outcome := OutcomeSuccess
	switch {
	case err == nil:
	case ctx.Err() != nil:
		outcome = OutcomeCanceled
	default:
		outcome = OutcomeFailed
	}
	extractTotal.WithLabelValues(in.Tool.String(), outcome).Inc()
	extractLatency.WithLabelValues(in.Tool.String()).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		x.logger.Warn("extraction failed",
			slog.String("tool", in.Tool.String()),
			slog.String("source", x.source.Name()),
			slog.Any("error", err),
		)
		return nil, err
	}
	return p, nil
}

func (x *Extractor) extract(ctx context.Context, in Input) (tools.Params, error) {
	entry, ok := schema.Lookup(in.Tool)
	if !ok {
		return nil, &ExtractionFailure{Tool: in.Tool, Err: fmt.Errorf("no parameter schema for %s", in.Tool)}
	}
	if in.Profile == nil {
		return nil, &ExtractionFailure{Tool: in.Tool, Fields: []string{"user_info"}, Err: errors.New("learner profile is required")}
	}

	raw, err := x.candidate(ctx, entry, in)
	if err != nil {
		return nil, err
	}

	p, err := x.assemble(entry.Tool, raw, in)
	if err != nil {
		return nil, err
	}

	if err := entry.Validate(p); err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			return nil, &ExtractionFailure{Tool: in.Tool, Fields: ve.Fields, Err: err}
		}
		return nil, &ExtractionFailure{Tool: in.Tool, Err: err}
	}
	return p, nil
}

// candidate asks the source for a schema-valid candidate, retrying
// invalid or timed-out attempts.
func (x *Extractor) candidate(ctx context.Context, entry *schema.Entry, in Input) (json.RawMessage, error) {
	var lastErr error
	for attempt := 1; attempt <= x.cfg.MaxAttempts; attempt++ {
		raw, err := x.attempt(ctx, entry, in)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		x.logger.Debug("retrying extraction",
			slog.String("tool", in.Tool.String()),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
	}

	f := &ExtractionFailure{Tool: in.Tool, Err: lastErr}
	var ve *schema.ValidationError
	if errors.As(lastErr, &ve) {
		f.Fields = ve.Fields
	}
	return nil, f
}

func (x *Extractor) attempt(ctx context.Context, entry *schema.Entry, in Input) (json.RawMessage, error) {
	if x.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.cfg.Timeout)
		defer cancel()
	}

	raw, err := x.source.Candidate(ctx, entry, in)
	if err != nil {
		return nil, err
	}
	if err := entry.ValidateCandidate(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func retryable(err error) bool {
	var ve *schema.ValidationError
	var inv *llm.ErrInvalidResponse
	return errors.As(err, &ve) || errors.As(err, &inv) || errors.Is(err, context.DeadlineExceeded)
}

// assemble decodes the candidate and applies the policy.
func (x *Extractor) assemble(id tools.ID, raw json.RawMessage, in Input) (tools.Params, error) {
	pol := x.cfg.Policy
	cues := CuesFor(in.Message, in.Profile)
	profile := *in.Profile
	history := append([]learner.ChatTurn{}, in.History...)

	decode := func(v any) error {
		if err := json.Unmarshal(raw, v); err != nil {
			return &ExtractionFailure{Tool: id, Err: fmt.Errorf("decode candidate: %w", err)}
		}
		return nil
	}
	missing := func(field string) error {
		return &ExtractionFailure{Tool: id, Fields: []string{field}, Err: fmt.Errorf("%s not stated in message", field)}
	}

	switch id {
	case tools.NoteMaker:
		var c schema.NoteMakerCandidate
		if err := decode(&c); err != nil {
			return nil, err
		}
		topic := strings.TrimSpace(c.Topic)
		if topic == "" {
			return nil, missing("topic")
		}
		return tools.NoteMakerParams{
			UserInfo:         profile,
			ChatHistory:      history,
			Topic:            topic,
			Subject:          pol.Subject(c.Subject, topic, in.Message),
			NoteTakingStyle:  pol.NoteStyle(c.NoteTakingStyle, cues),
			IncludeExamples:  pol.IncludeExamples(c.IncludeExamples),
			IncludeAnalogies: pol.IncludeAnalogies(c.IncludeAnalogies, cues),
		}, nil

	case tools.FlashcardGenerator:
		var c schema.FlashcardCandidate
		if err := decode(&c); err != nil {
			return nil, err
		}
		topic := strings.TrimSpace(c.Topic)
		if topic == "" {
			return nil, missing("topic")
		}
		return tools.FlashcardParams{
			UserInfo:        profile,
			Topic:           topic,
			Count:           pol.Count(c.Count, cues),
			Difficulty:      pol.Difficulty(c.Difficulty, cues),
			Subject:         pol.Subject(c.Subject, topic, in.Message),
			IncludeExamples: pol.IncludeExamples(c.IncludeExamples),
		}, nil

	case tools.ConceptExplainer:
		var c schema.ConceptExplainerCandidate
		if err := decode(&c); err != nil {
			return nil, err
		}
		concept := strings.TrimSpace(c.ConceptToExplain)
		if concept == "" {
			return nil, missing("concept_to_explain")
		}
		return tools.ConceptExplainerParams{
			UserInfo:         profile,
			ChatHistory:      history,
			ConceptToExplain: concept,
			CurrentTopic:     pol.CurrentTopic(c.CurrentTopic, concept, history),
			DesiredDepth:     pol.Depth(c.DesiredDepth, cues),
		}, nil

	default:
		return nil, &ExtractionFailure{Tool: id, Err: fmt.Errorf("no parameter shape for %s", id)}
	}
}
