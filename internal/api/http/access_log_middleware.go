package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	ilog "github.com/amakane-hakari/clockkv/internal/log"
)

// headerCache は GET /kvs/{key} がキャッシュのヒット/ミスを返すヘッダです。
const headerCache = "X-Cache"

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// Unwrap は http.ResponseController 用です。
func (w *statusRecorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// AccessLog はリクエストのアクセスログを記録するミドルウェアです。
// キーをそのままログに出さないよう、パスではなく chi のルートパターンを記録します。
// 5xx は Error、/health と /metrics は Debug、それ以外は Info で出します。
func AccessLog(l ilog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			args := []any{
				"method", r.Method,
				"route", routePattern(r),
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes_in", max(r.ContentLength, 0),
				"bytes_out", rec.size,
				"remote", remoteIP(r),
				"request_id", GetRequestID(r.Context()),
			}
			if c := rec.Header().Get(headerCache); c != "" {
				args = append(args, "cache", c)
			}
			switch {
			case rec.status >= http.StatusInternalServerError:
				l.Error("access.log", args...)
			case r.URL.Path == "/health" || r.URL.Path == "/metrics":
				l.Debug("access.log", args...)
			default:
				l.Info("access.log", args...)
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// remoteIP は X-Forwarded-For の先頭（クライアント側）を優先します。
func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(ip)
	}
	return r.RemoteAddr
}
