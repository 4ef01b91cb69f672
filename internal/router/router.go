package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/tutorflow/internal/tools"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	routerDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutorflow_router_decisions_total",
		Help: "Routing decisions by selected tool and source.",
	}, []string{"tool", "source"})

	routerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutorflow_router_failures_total",
		Help: "Classifications discarded and routed to NoTool, by reason.",
	}, []string{"reason"})

	routerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tutorflow_router_latency_seconds",
		Help:    "Time spent deciding a route.",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 15},
	})
)

var tracer = otel.Tracer("tutorflow/router")

// Config tunes the router.
type Config struct {
	// MinConfidence is the threshold below which a tool choice becomes NoTool.
	MinConfidence float64
	// Timeout bounds one classification.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.5,
		Timeout:       15 * time.Second,
	}
}

// Router turns messages into tool decisions.
type Router struct {
	classifier Classifier
	cfg        Config
	logger     *slog.Logger
}

// New creates a Router. A nil logger uses slog.Default().
func New(classifier Classifier, cfg Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{classifier: classifier, cfg: cfg, logger: logger}
}

// Route returns the tool for message. It never fails: empty input,
// classifier errors, timeouts, unknown labels and low confidence all
// yield tools.NoTool.
func (r *Router) Route(ctx context.Context, message string) tools.ID {
	return r.Decide(ctx, message).Tool
}

// Decide is Route with diagnostics.
func (r *Router) Decide(ctx context.Context, message string) Decision {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Router.Route")
	defer span.End()

	d := r.decide(ctx, message)

	routerLatency.Observe(time.Since(start).Seconds())
	routerDecisionsTotal.WithLabelValues(d.Tool.String(), d.Source).Inc()
	span.SetAttributes(
		attribute.String("tool", d.Tool.String()),
		attribute.String("source", d.Source),
		attribute.Float64("confidence", d.Confidence),
	)

	var rf *RoutingFailure
	if errors.As(d.Err, &rf) {
		routerFailuresTotal.WithLabelValues(rf.Reason).Inc()
		span.RecordError(d.Err)
		span.SetStatus(codes.Error, rf.Reason)
		r.logger.Warn("RoutingUnavailable",
			slog.String("reason", rf.Reason),
			slog.String("source", d.Source),
			slog.Any("error", d.Err),
		)
	} else {
		r.logger.Debug("routed",
			slog.String("tool", d.Tool.String()),
			slog.String("source", d.Source),
			slog.Float64("confidence", d.Confidence),
		)
	}
	return d
}

func (r *Router) decide(ctx context.Context, message string) Decision {
	if strings.TrimSpace(message) == "" {
		return Decision{Tool: tools.NoTool, Confidence: 1, Reasoning: "empty message", Source: SourceNone}
	}

	source := r.classifier.Name()
	fail := func(rf *RoutingFailure) Decision {
		return Decision{Tool: tools.NoTool, Source: source, Err: rf}
	}

	cctx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	c, err := r.classifier.Classify(cctx, message)
	if err != nil {
		reason := ReasonUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		return fail(&RoutingFailure{Reason: reason, Err: err})
	}

	id := tools.Parse(c.Label)
	if id == tools.NoTool && !isNoToolLabel(c.Label) {
		return fail(&RoutingFailure{Reason: ReasonInvalidLabel, Label: c.Label})
	}
	if id != tools.NoTool && c.Confidence < r.cfg.MinConfidence {
		d := fail(&RoutingFailure{Reason: ReasonLowConfidence, Label: c.Label})
		d.Confidence = c.Confidence
		d.Reasoning = c.Reasoning
		return d
	}

	return Decision{Tool: id, Confidence: c.Confidence, Reasoning: c.Reasoning, Source: source}
}

// isNoToolLabel reports whether label deliberately names NoTool, as
// opposed to an out-of-domain label that merely parses to it.
func isNoToolLabel(label string) bool {
	key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(label)))
	return key == "notool" || key == "none"
}
