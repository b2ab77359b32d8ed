package http

import (
	"net/http"

	ilog "github.com/amakane-hakari/clockkv/internal/log"
)

// errorHandler はエラーを返すハンドラを http.Handler にします。
// 返されたエラーは AppError の封筒にし、5xx になったものは元のエラーごとログに残します。
type errorHandler struct {
	fn  func(w http.ResponseWriter, r *http.Request) error
	log ilog.Logger
}

func (h errorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h.fn(w, r)
	if err == nil {
		return
	}
	app := FromStdError(err)
	if app.Status >= http.StatusInternalServerError && h.log != nil {
		h.log.Error("http.error",
			"code", app.Code,
			"err", err.Error(),
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", GetRequestID(r.Context()),
		)
	}
	writeError(w, r, app)
}
