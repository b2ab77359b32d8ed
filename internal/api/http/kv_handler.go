package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/amakane-hakari/clockkv/internal/cache"
	ilog "github.com/amakane-hakari/clockkv/internal/log"
)

// Cache は HTTP ハンドラが使うキャッシュ操作です。
type Cache interface {
	Get(key string) (string, bool)
	PutWithTTL(key, value string, ttl time.Duration) (prev string, existed bool)
	Remove(key string) (string, bool)
	Stats() cache.Stats
}

type kvHandler struct {
	c        Cache
	log      ilog.Logger
	maxValue int
}

func (h *kvHandler) handle(fn func(w http.ResponseWriter, r *http.Request) error) http.Handler {
	return errorHandler{fn: fn, log: h.log}
}

func (h *kvHandler) mount(r chi.Router) {
	r.Route("/kvs", func(r chi.Router) {
		r.Method(http.MethodPut, "/{key}", h.handle(h.put))
		r.Method(http.MethodGet, "/{key}", h.handle(h.get))
		r.Method(http.MethodDelete, "/{key}", h.handle(h.del))
	})
}

type valueRequest struct {
	Value string `json:"value"`
	TTLMs int64  `json:"ttl_ms,omitempty"`
}

type valueDTO struct {
	Key      string  `json:"key"`
	Value    string  `json:"value,omitempty"`
	Previous *string `json:"previous,omitempty"`
}

func (h *kvHandler) put(w http.ResponseWriter, r *http.Request) error {
	key := chi.URLParam(r, "key")
	if key == "" {
		return BadRequest("empty key")
	}
	req, err := decodeValue(w, r, h.maxValue)
	if err != nil {
		return err
	}
	prev, existed := h.c.PutWithTTL(key, req.Value, time.Duration(req.TTLMs)*time.Millisecond)
	dto := valueDTO{Key: key, Value: req.Value}
	if existed {
		dto.Previous = &prev
	}
	writeSuccess(w, http.StatusOK, dto)
	return nil
}

func (h *kvHandler) get(w http.ResponseWriter, r *http.Request) error {
	key := chi.URLParam(r, "key")
	if key == "" {
		return BadRequest("empty key")
	}
	v, ok := h.c.Get(key)
	if !ok {
		w.Header().Set(headerCache, "MISS")
		return NotFound("key not found")
	}
	w.Header().Set(headerCache, "HIT")
	writeSuccess(w, http.StatusOK, valueDTO{Key: key, Value: v})
	return nil
}

func (h *kvHandler) del(w http.ResponseWriter, r *http.Request) error {
	key := chi.URLParam(r, "key")
	if key == "" {
		return BadRequest("empty key")
	}
	h.c.Remove(key)
	writeSuccess(w, http.StatusOK, valueDTO{Key: key})
	return nil
}

func (h *kvHandler) stats(w http.ResponseWriter, _ *http.Request) error {
	writeSuccess(w, http.StatusOK, h.c.Stats())
	return nil
}
