// Package server exposes the orchestrator over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/abhisek/tutorflow/internal/orchestrator"
	"github.com/abhisek/tutorflow/internal/tools"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// StatusClientClosedRequest is returned when the client goes away before
// the orchestration finishes.
const StatusClientClosedRequest = 499

const requestIDHeader = "X-Request-ID"

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tutorflow_http_requests_total",
	Help: "HTTP requests by route and status code.",
}, []string{"route", "code"})

// Orchestrator runs one request.
type Orchestrator interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error)
}

// OrchestrateRequest is the POST /orchestrate body. Message must be
// present but may be empty; the router answers an empty message.
type OrchestrateRequest struct {
	Message *string `json:"message" binding:"required"`
	UserID  string `json:"user_id" binding:"required"`
}

// OrchestrateResponse carries the tool result, or null when no tool applied.
type OrchestrateResponse struct {
	Response *tools.Result `json:"response"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// Config controls the HTTP layer.
type Config struct {
	// RequestTimeout bounds one orchestration. Zero means no limit.
	RequestTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{RequestTimeout: 60 * time.Second}
}

// Server holds the HTTP handlers.
type Server struct {
	orch   Orchestrator
	cfg    Config
	logger *slog.Logger
}

// New creates a Server. A nil logger uses slog.Default().
func New(orch Orchestrator, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{orch: orch, cfg: cfg, logger: logger}
}

// Handler builds the gin engine with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("tutorflow"))
	r.Use(requestID())
	r.Use(s.accessLog())

	r.GET("/", s.handleStatus)
	r.POST("/orchestrate", s.handleOrchestrate)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "API is running"})
}

func (s *Server) handleOrchestrate(c *gin.Context) {
	rid := c.GetString(requestIDHeader)
	logger := s.logger.With(slog.String("request_id", rid), slog.String("handler", "orchestrate"))

	var req OrchestrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "invalid request: " + err.Error(),
			Code:      "INVALID_REQUEST",
			RequestID: rid,
		})
		return
	}

	ctx := c.Request.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	resp, err := s.orch.Run(ctx, orchestrator.Request{Message: *req.Message, UserID: req.UserID})
	if err != nil {
		status, code := statusFor(err)
		logger.Warn("orchestration failed", slog.Int("status", status), slog.Any("error", err))
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code, RequestID: rid})
		return
	}

	c.JSON(http.StatusOK, OrchestrateResponse{Response: resp.Result})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "CANCELLED"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// requestID reuses the caller's X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()

		s.logger.Info("http request",
			slog.String("request_id", c.GetString(requestIDHeader)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
