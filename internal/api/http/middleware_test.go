package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRequestIDMiddleware(t *testing.T) {
	h := RequestIDMiddleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Fatalf("missing request id in context")
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("response header X-Request-ID missing")
	}

	// 既存IDを利用するケース
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set("X-Request-ID", "custom-id")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	if rec2.Header().Get("X-Request-ID") != "custom-id" {
		t.Fatalf("should keep provided id")
	}
}

type memLogger struct {
	mu     sync.Mutex
	levels []string
	msgs   []string
	args   [][]any
}

func (l *memLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels = append(l.levels, level)
	l.msgs = append(l.msgs, msg)
	l.args = append(l.args, args)
}

func (l *memLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *memLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *memLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func TestRecoverMiddleware(t *testing.T) {
	lg := &memLogger{}
	h := RecoverMiddleware(lg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), CodeInternalError)
	require.Equal(t, []string{"http.panic"}, lg.msgs)
}

func TestAccessLog(t *testing.T) {
	lg := &memLogger{}
	h := RequestIDMiddleware()(AccessLog(lg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	})))
	req := httptest.NewRequest(http.MethodGet, "/kvs/x", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, []string{"access.log"}, lg.msgs)
	require.Equal(t, []string{"info"}, lg.levels)
	args := lg.args[0]
	require.Contains(t, args, http.StatusTeapot)
	require.Contains(t, args, "/kvs/x")
	require.Contains(t, args, "rid-1")
	require.NotContains(t, args, "cache")
}

func TestAccessLogLevels(t *testing.T) {
	lg := &memLogger{}
	h := AccessLog(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	for _, p := range []string{"/health", "/boom", "/stats"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	require.Equal(t, []string{"debug", "error", "info"}, lg.levels)
	// 何も書かないハンドラは 200 として記録する
	require.Contains(t, lg.args[2], http.StatusOK)
}

func TestRemoteIPUsesFirstForwardedHop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "203.0.113.7", remoteIP(req))

	req.Header.Del("X-Forwarded-For")
	require.Equal(t, req.RemoteAddr, remoteIP(req))
}

func TestErrorHandler(t *testing.T) {
	lg := &memLogger{}
	h := RequestIDMiddleware()(errorHandler{
		fn: func(_ http.ResponseWriter, r *http.Request) error {
			if r.URL.Path == "/missing" {
				return NotFound("key not found")
			}
			return errors.New("disk on fire")
		},
		log: lg,
	})

	// 4xx はログに出さない
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, lg.msgs)

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set("X-Request-ID", "rid-500")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, []string{"http.error"}, lg.msgs)
	require.Contains(t, lg.args[0], "disk on fire")
	require.Contains(t, lg.args[0], "rid-500")

	var env struct {
		Error *AppError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Equal(t, CodeInternalError, env.Error.Code)
	require.Equal(t, "rid-500", env.Error.RequestID)
	// 内部のエラー文はクライアントに返さない
	require.NotContains(t, env.Error.Message, "disk")
}

func TestRateLimit(t *testing.T) {
	lim := rate.NewLimiter(rate.Limit(0.0001), 2)
	h := RateLimit(lim)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitNilPassesThrough(t *testing.T) {
	called := false
	h := RateLimit(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)
}

func TestFromStdError(t *testing.T) {
	require.Nil(t, FromStdError(nil))
	app := NotFound("x")
	require.Same(t, app, FromStdError(app))
	require.Equal(t, CodeInternalError, FromStdError(http.ErrAbortHandler).Code)

	tooBig := FromStdError(fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 42}))
	require.Equal(t, http.StatusRequestEntityTooLarge, tooBig.Status)
	require.Equal(t, CodeValueTooLarge, tooBig.Code)
	require.Equal(t, map[string]int64{"limit_bytes": 42}, tooBig.Meta)
	require.Equal(t, CodeTimeout, FromStdError(context.DeadlineExceeded).Code)
}

func TestWriteErrorDoesNotMutateSharedError(t *testing.T) {
	shared := NotFound("key not found")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), requestIDKey, "rid-x"))
	rec := httptest.NewRecorder()
	writeError(rec, req, shared)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), `"request_id":"rid-x"`)
	require.Empty(t, shared.RequestID)
}
