package http

import (
	"net/http"
	"sync/atomic"
)

var draining atomic.Bool

// SetDraining はドレイニング状態を設定します。ドレイニング中の /health は 503 を返します。
func SetDraining(v bool) {
	draining.Store(v)
}

type healthDTO struct {
	Status       string  `json:"status"`
	Len          int     `json:"len"`
	Capacity     int     `json:"capacity"`
	Fill         float64 `json:"fill"`
	Generation   uint64  `json:"generation"`
	OverCapacity bool    `json:"over_capacity,omitempty"` // 非同期の追い出しが追いついていない
}

type healthHandler struct {
	c Cache
}

func (h healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	st := h.c.Stats()
	dto := healthDTO{
		Status:       "ok",
		Len:          st.Len,
		Capacity:     st.Capacity,
		Generation:   st.Generation,
		OverCapacity: st.Len > st.Capacity,
	}
	if st.Capacity > 0 {
		dto.Fill = float64(st.Len) / float64(st.Capacity)
	}
	status := http.StatusOK
	if draining.Load() {
		dto.Status = "draining"
		status = http.StatusServiceUnavailable
	}
	writeSuccess(w, status, dto)
}
