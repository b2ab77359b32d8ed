package table

import "sync/atomic"

const cacheLineSize = 64

// Entry はテーブルが保持する 1 件のエントリです。
// key と hash は挿入後に変化しません。val はシャードのロック下でのみ読み書きされます。
type Entry[K comparable, V any] struct {
	key  K
	hash uint64
	val  V

	ref      atomic.Bool
	dead     atomic.Bool  // tombstone
	expireAt atomic.Int64 // 0 = no expiry (UnixNano)
}

// Key はエントリのキーを返します。
func (e *Entry[K, V]) Key() K { return e.key }

// Referenced は参照ビットが立っているかを返します。
func (e *Entry[K, V]) Referenced() bool { return e.ref.Load() }

// Reference は参照ビットを立てます。既に立っている場合は書き込みません。
func (e *Entry[K, V]) Reference() {
	if !e.ref.Load() {
		e.ref.Store(true)
	}
}

// ClearReference は参照ビットを落とし、落とす前に立っていたかを返します。
func (e *Entry[K, V]) ClearReference() bool {
	return e.ref.CompareAndSwap(true, false)
}

// Dead はエントリが論理削除（tombstone）済みかを返します。
func (e *Entry[K, V]) Dead() bool { return e.dead.Load() }

// ExpireAt は有効期限（UnixNano、0 は無期限）を返します。
func (e *Entry[K, V]) ExpireAt() int64 { return e.expireAt.Load() }

// Expired は now 時点で期限切れかを返します。
func (e *Entry[K, V]) Expired(now int64) bool {
	exp := e.expireAt.Load()
	return exp > 0 && exp <= now
}

// SlotState はスロットの状態です。
type SlotState uint8

const (
	// SlotEmpty は一度も使われていないスロットです。
	SlotEmpty SlotState = iota
	// SlotOccupied は生きたエントリを持つスロットです。
	SlotOccupied
	// SlotTombstone は削除済みエントリを保持したままのスロットです。
	SlotTombstone
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotOccupied:
		return "occupied"
	case SlotTombstone:
		return "tombstone"
	default:
		return "unknown"
	}
}

// Slot は View から読み出したスロットの内容です。
type Slot[K comparable, V any] struct {
	State SlotState
	Entry *Entry[K, V] // SlotEmpty の場合は nil
}

type slot[K comparable, V any] struct {
	p atomic.Pointer[Entry[K, V]]
}

func (s *slot[K, V]) load() Slot[K, V] {
	e := s.p.Load()
	switch {
	case e == nil:
		return Slot[K, V]{State: SlotEmpty}
	case e.dead.Load():
		return Slot[K, V]{State: SlotTombstone, Entry: e}
	default:
		return Slot[K, V]{State: SlotOccupied, Entry: e}
	}
}
