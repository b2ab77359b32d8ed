package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// AppError はクライアントに返すエラーです。封筒 {"error": ...} に入れて返します。
type AppError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Meta      any    `json:"meta,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

const (
	// CodeBadRequest は 400 Bad Request エラーを表します。
	CodeBadRequest = "BAD_REQUEST"
	// CodeNotFound はキーが存在しない（追い出し・期限切れを含む）ことを表します。
	CodeNotFound = "NOT_FOUND"
	// CodeInternalError は 500 Internal Server Error エラーを表します。
	CodeInternalError = "INTERNAL_ERROR"
	// CodeInvalidJSON は 不正なJSONによる 400 Bad Request エラーを表します。
	CodeInvalidJSON = "INVALID_JSON"
	// CodeValueTooLarge は値やボディが上限を超えた 413 エラーを表します。
	CodeValueTooLarge = "VALUE_TOO_LARGE"
	// CodeTimeout は タイムアウトによる 408 Request Timeout エラーを表します。
	CodeTimeout = "TIMEOUT"
	// CodeCanceled は キャンセルによる 408 Request Timeout エラーを表します。
	CodeCanceled = "CANCELED"
	// CodeTooManyRequests は 429 Too Many Requests エラーを表します。
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
)

func (e *AppError) Error() string { return e.Code + ": " + e.Message }

// NewAppError は新しい AppError を作成します。
func NewAppError(status int, code, message string, meta any) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Meta:    meta,
	}
}

// BadRequest は 400 Bad Request エラーを表す AppError を作成します。
func BadRequest(msg string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, msg, nil)
}

// NotFound は 404 Not Found エラーを表す AppError を作成します。
func NotFound(msg string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, msg, nil)
}

// Internal は 500 Internal Server Error エラーを表す AppError を作成します。
func Internal(msg string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, msg, nil)
}

// InvalidJSON は 不正なJSONによる 400 Bad Request エラーを表す AppError を作成します。
func InvalidJSON(msg string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidJSON, msg, nil)
}

// ValueTooLarge は上限 limit バイトを超えた 413 エラーを表す AppError を作成します。
func ValueTooLarge(msg string, limit int64) *AppError {
	return NewAppError(http.StatusRequestEntityTooLarge, CodeValueTooLarge, msg, map[string]int64{"limit_bytes": limit})
}

// TooManyRequests は 429 Too Many Requests エラーを表す AppError を作成します。
func TooManyRequests(msg string) *AppError {
	return NewAppError(http.StatusTooManyRequests, CodeTooManyRequests, msg, nil)
}

// FromStdError は標準の error を AppError に変換します。
func FromStdError(err error) *AppError {
	if err == nil {
		return nil
	}

	var app *AppError
	if errors.As(err, &app) {
		return app
	}
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return ValueTooLarge("request body too large", mbe.Limit)
	case errors.Is(err, context.Canceled):
		return NewAppError(http.StatusRequestTimeout, CodeCanceled, "request canceled", nil)
	case errors.Is(err, context.DeadlineExceeded):
		return NewAppError(http.StatusRequestTimeout, CodeTimeout, "request timeout", nil)
	default:
		return Internal("unexpected error")
	}
}

type successEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Err *AppError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Data: data})
}

// writeError は err を封筒に入れて返します。AppError は共有されうるので
// リクエストIDはコピーに付けます。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	out := *FromStdError(err)
	out.RequestID = GetRequestID(r.Context())
	writeJSON(w, out.Status, errorEnvelope{Err: &out})
}
