package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxValueBytes は Deps.MaxValueBytes が 0 のときの値の上限です。
const DefaultMaxValueBytes = 64 << 10

// JSON エスケープで値が最大 6 倍（\uXXXX）に膨らむ分と、ttl_ms などの余白
const bodyOverhead = 1 << 10

// bodyLimit は値の上限 maxValue を収められるボディの上限です。
func bodyLimit(maxValue int) int64 {
	return int64(maxValue)*6 + bodyOverhead
}

// decodeValue は PUT /kvs/{key} のボディを 1 つの JSON オブジェクトとして読み、
// 値が maxValue バイトを超えていれば 413 を返します。
// ボディ自体も bodyLimit(maxValue) で打ち切り、上限まで読まずに拒否します。
func decodeValue(w http.ResponseWriter, r *http.Request, maxValue int) (valueRequest, error) {
	var req valueRequest
	if r.Body == nil || r.Body == http.NoBody {
		return req, InvalidJSON("empty body")
	}
	limit := bodyLimit(maxValue)
	if r.ContentLength > limit {
		return req, ValueTooLarge("request body too large", limit)
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	defer func() {
		_ = body.Close()
	}()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, decodeError(err)
	}
	// 余分なトークンがないか確認(多重JSON防止)
	if dec.More() {
		return req, InvalidJSON("multiple JSON values")
	}
	if len(req.Value) > maxValue {
		return req, ValueTooLarge(fmt.Sprintf("value is %d bytes", len(req.Value)), int64(maxValue))
	}
	if req.TTLMs < 0 {
		return req, BadRequest("ttl_ms must not be negative")
	}
	return req, nil
}

func decodeError(err error) error {
	var mbe *http.MaxBytesError
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	switch {
	case errors.As(err, &mbe):
		return ValueTooLarge("request body too large", mbe.Limit)
	case errors.Is(err, io.EOF):
		return InvalidJSON("empty body")
	case errors.As(err, &se), errors.Is(err, io.ErrUnexpectedEOF):
		return InvalidJSON("malformed JSON")
	case errors.As(err, &ute):
		return InvalidJSON(fmt.Sprintf("field %q must be %s", ute.Field, ute.Type))
	default:
		return InvalidJSON("invalid JSON")
	}
}
