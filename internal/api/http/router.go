package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	ilog "github.com/amakane-hakari/clockkv/internal/log"
)

// Deps はルータが必要とする依存です。Cache 以外はゼロ値でも構いません。
type Deps struct {
	Cache         Cache
	Logger        ilog.Logger
	Limiter       *rate.Limiter
	Metrics       http.Handler // /metrics で公開するハンドラ
	MaxValueBytes int          // 0 なら DefaultMaxValueBytes
}

// NewRouter は API のルータを作成します。
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware())
	r.Use(RecoverMiddleware(d.Logger))
	r.Use(AccessLog(d.Logger))

	r.Method(http.MethodGet, "/health", healthHandler{c: d.Cache})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	kv := &kvHandler{c: d.Cache, log: d.Logger, maxValue: d.MaxValueBytes}
	if kv.maxValue <= 0 {
		kv.maxValue = DefaultMaxValueBytes
	}
	r.Group(func(r chi.Router) {
		r.Use(RateLimit(d.Limiter))
		kv.mount(r)
		r.Method(http.MethodGet, "/stats", kv.handle(kv.stats))
	})
	return r
}
