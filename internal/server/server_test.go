package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/tutorflow/internal/extract"
	"github.com/abhisek/tutorflow/internal/orchestrator"
	"github.com/abhisek/tutorflow/internal/router"
	"github.com/abhisek/tutorflow/internal/tools"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var discard = slog.New(slog.DiscardHandler)

type orchFunc func(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error)

func (f orchFunc) Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error) {
	return f(ctx, req)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func offlineServer(invoker tools.Invoker) http.Handler {
	orch := orchestrator.New(
		router.New(router.NewKeywordClassifier(), router.DefaultConfig(), discard),
		extract.New(extract.PhraseSource{}, extract.DefaultConfig(), discard),
		invoker,
		orchestrator.Options{Logger: discard},
	)
	return New(orch, DefaultConfig(), discard).Handler()
}

func TestStatus(t *testing.T) {
	w := do(t, offlineServer(tools.NewMockInvoker(discard)), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"API is running"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestOrchestrate_Flashcards(t *testing.T) {
	invoker := tools.NewMockInvoker(discard)
	w := do(t, offlineServer(invoker), http.MethodPost, "/orchestrate",
		`{"message":"Make flashcards on photosynthesis, I'm struggling","user_id":"u1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Response *tools.Result `json:"response"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Response)
	assert.Equal(t, tools.StatusSuccess, body.Response.Status)
	assert.Equal(t, "deck_67890", body.Response.FlashcardDeckID)

	calls := invoker.Calls()
	require.Len(t, calls, 1)
	fc := calls[0].(tools.FlashcardParams)
	assert.Equal(t, "photosynthesis", fc.Topic)
	assert.Equal(t, tools.DifficultyEasy, fc.Difficulty)
	assert.LessOrEqual(t, fc.Count, 10)
}

func TestOrchestrate_NoTool(t *testing.T) {
	invoker := tools.NewMockInvoker(discard)
	w := do(t, offlineServer(invoker), http.MethodPost, "/orchestrate",
		`{"message":"What's the weather like today?","user_id":"u1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response":null}`, w.Body.String())
	assert.Empty(t, invoker.Calls())
}

func TestOrchestrate_EmptyMessage(t *testing.T) {
	invoker := tools.NewMockInvoker(discard)
	for _, msg := range []string{`""`, `"   "`} {
		w := do(t, offlineServer(invoker), http.MethodPost, "/orchestrate",
			`{"message":`+msg+`,"user_id":"u1"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"response":null}`, w.Body.String())
	}
	assert.Empty(t, invoker.Calls())
}

func TestOrchestrate_BadRequest(t *testing.T) {
	h := offlineServer(tools.NewMockInvoker(discard))
	for _, body := range []string{
		`{"message":"hi"}`,
		`{"user_id":"u1"}`,
		`{"message":"hi","user_id":""}`,
		`not json`,
	} {
		w := do(t, h, http.MethodPost, "/orchestrate", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)

		var e ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
		assert.Equal(t, "INVALID_REQUEST", e.Code)
	}
}

func TestOrchestrate_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{context.Canceled, StatusClientClosedRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("store offline"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		orch := orchFunc(func(context.Context, orchestrator.Request) (*orchestrator.Response, error) {
			return nil, tt.err
		})
		h := New(orch, DefaultConfig(), discard).Handler()

		req := httptest.NewRequest(http.MethodPost, "/orchestrate", strings.NewReader(`{"message":"hi","user_id":"u1"}`))
		req.Header.Set("X-Request-ID", "req-42")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, tt.code, w.Code)
		assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
		var e ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
		assert.Equal(t, "req-42", e.RequestID)
	}
}

func TestOrchestrate_Timeout(t *testing.T) {
	orch := orchFunc(func(ctx context.Context, _ orchestrator.Request) (*orchestrator.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	h := New(orch, Config{RequestTimeout: 10 * time.Millisecond}, discard).Handler()

	w := do(t, h, http.MethodPost, "/orchestrate", `{"message":"hi","user_id":"u1"}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestMetrics(t *testing.T) {
	h := offlineServer(tools.NewMockInvoker(discard))
	do(t, h, http.MethodGet, "/", "")

	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tutorflow_http_requests_total")
}
