package metrics

import (
	"sync/atomic"
)

// Interface はメトリクス更新用抽象
type Interface interface {
	IncPutNew()
	IncPutUpdate()
	IncGetHit()
	IncGetMiss()
	AddEvicted(n int)
	AddSpared(n int)
	AddTTLExpired(n int)
	ObserveSweep(visited int)
	SetSize(n int)
}

// Noop は何もしないメトリクス実装
type Noop struct{}

// IncPutNew は何もしないメトリクス実装
func (Noop) IncPutNew() {}

// IncPutUpdate は何もしないメトリクス実装
func (Noop) IncPutUpdate() {}

// IncGetHit は何もしないメトリクス実装
func (Noop) IncGetHit() {}

// IncGetMiss は何もしないメトリクス実装
func (Noop) IncGetMiss() {}

// AddEvicted は何もしないメトリクス実装
func (Noop) AddEvicted(_ int) {}

// AddSpared は何もしないメトリクス実装
func (Noop) AddSpared(_ int) {}

// AddTTLExpired は何もしないメトリクス実装
func (Noop) AddTTLExpired(_ int) {}

// ObserveSweep は何もしないメトリクス実装
func (Noop) ObserveSweep(_ int) {}

// SetSize は何もしないメトリクス実装
func (Noop) SetSize(_ int) {}

// Simple はシンプルなメトリクス実装です。
type Simple struct {
	PutNew     atomic.Uint64
	PutUpdate  atomic.Uint64
	GetHit     atomic.Uint64
	GetMiss    atomic.Uint64
	Evicted    atomic.Uint64
	Spared     atomic.Uint64
	TTLExpired atomic.Uint64
	Sweeps     atomic.Uint64
	Visited    atomic.Uint64
	Size       atomic.Uint64
}

// NewSimple は新しい Simple メトリクスを作成します。
func NewSimple() *Simple { return &Simple{} }

// IncPutNew は新しいキーが追加されたことをカウントします。
func (m *Simple) IncPutNew() { m.PutNew.Add(1) }

// IncPutUpdate は既存のキーが更新されたことをカウントします。
func (m *Simple) IncPutUpdate() { m.PutUpdate.Add(1) }

// IncGetHit はキャッシュヒットをカウントします。
func (m *Simple) IncGetHit() { m.GetHit.Add(1) }

// IncGetMiss はキャッシュミスをカウントします。
func (m *Simple) IncGetMiss() { m.GetMiss.Add(1) }

// AddEvicted はエビクションされたアイテムの数を加算します。
func (m *Simple) AddEvicted(n int) {
	if n > 0 {
		m.Evicted.Add(uint64(n))
	}
}

// AddSpared は参照ビットにより見逃されたアイテムの数を加算します。
func (m *Simple) AddSpared(n int) {
	if n > 0 {
		m.Spared.Add(uint64(n))
	}
}

// AddTTLExpired は TTL が期限切れになったアイテムの数を加算します。
func (m *Simple) AddTTLExpired(n int) {
	if n > 0 {
		m.TTLExpired.Add(uint64(n))
	}
}

// ObserveSweep はスイープ 1 回分の訪問スロット数を記録します。
func (m *Simple) ObserveSweep(visited int) {
	m.Sweeps.Add(1)
	if visited > 0 {
		m.Visited.Add(uint64(visited))
	}
}

// SetSize はキャッシュの現在のエントリ数を設定します。
func (m *Simple) SetSize(n int) {
	if n >= 0 {
		m.Size.Store(uint64(n))
	}
}
