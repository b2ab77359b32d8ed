package cache

import (
	"sync"
	"sync/atomic"

	"github.com/amakane-hakari/clockkv/internal/table"
)

// 1 回のスイープで View を取り直す上限
const maxViewAcquisitions = 3

// SweepResult はスイープ 1 回分の結果です。
type SweepResult struct {
	Start      int    // 開始時のカーソル位置（View 上のグローバル位置）
	StartShard int    // 開始時のカーソルのシャード
	StartSlot  int    // 開始時のカーソルのシャード内位置
	Visited    int    // 訪問したスロット数
	Spared     int    // 参照ビットを落として見逃した数
	Evicted    int    // 参照ビットが立っていなかったため追い出した数
	Expired    int    // 期限切れで追い出した数
	Revolution bool   // View を 1 周し終えたか
	Restarts   int    // シャードのリハッシュにより View を取り直した回数
	Generation uint64 // 最後に使った View のテーブル世代
	Err        error  // View を取得できなかった場合のエラー
}

// SecondChance はテーブルの物理スロット順を巡回する CLOCK 方式のエビクタです。
// スイープは同時に 1 つしか走りません。
//
// カーソルは (シャード, シャード内位置) の組で保持します。あるシャードが
// リハッシュされたときは、そのシャードの中にいたカーソルだけをシャードの
// 先頭に戻し、他のシャードのリハッシュでは位置を保ちます。
type SecondChance[K comparable, V any] struct {
	t *table.Table[K, V]

	sweeping atomic.Bool
	mu       sync.Mutex // shard, slot, shardGen, started を保護

	shard    int
	slot     int
	shardGen uint64 // slot が有効なシャード世代
	started  bool

	pos      atomic.Int64 // 公開用のカーソル位置
	posShard atomic.Int64
	onEvict  func(key K, value V)
}

// NewSecondChance は t を対象とするエビクタを作成します。
func NewSecondChance[K comparable, V any](t *table.Table[K, V]) *SecondChance[K, V] {
	return &SecondChance[K, V]{t: t}
}

// OnEvict は追い出したエントリごとに呼ばれる関数を設定します。
// スイープを始める前に設定してください。
func (s *SecondChance[K, V]) OnEvict(fn func(key K, value V)) {
	s.onEvict = fn
}

// Cursor は現在のカーソルのシャードとシャード内位置を返します。
func (s *SecondChance[K, V]) Cursor() (shard, slot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shard, s.slot
}

// Position はロックを取らずに直近のカーソル位置（グローバル位置）を返します。
func (s *SecondChance[K, V]) Position() int {
	return int(s.pos.Load())
}

// PositionShard はロックを取らずに直近のカーソルのシャードを返します。
func (s *SecondChance[K, V]) PositionShard() int {
	return int(s.posShard.Load())
}

// Sweep は生きたエントリ数が limit 以下になるまで追い出します。
// 他のスイープが走っている場合は終わるまで待ちます。
func (s *SecondChance[K, V]) Sweep(limit int) SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep(limit)
}

// TrySweep は Sweep と同じですが、他のスイープが走っている場合は待たずに
// ok=false を返します。
func (s *SecondChance[K, V]) TrySweep(limit int) (res SweepResult, ok bool) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return res, false
	}
	defer s.sweeping.Store(false)
	if !s.mu.TryLock() {
		return res, false
	}
	defer s.mu.Unlock()
	return s.sweep(limit), true
}

func (s *SecondChance[K, V]) sweep(limit int) SweepResult {
	res := SweepResult{Start: s.Position(), StartShard: s.shard, StartSlot: s.slot}
	if s.t.Len() <= limit {
		return res
	}
	now := s.t.Now()

	for attempt := range maxViewAcquisitions {
		view, err := s.t.Snapshot()
		if err != nil {
			res.Err = err
			return res
		}
		s.resume(view)
		start := view.ShardOffset(s.shard) + s.slot
		if attempt == 0 {
			res.Start, res.StartShard, res.StartSlot = start, s.shard, s.slot
		}
		res.Generation = view.Generation()

		n := view.Len()
		visits := 0
		stale := false
		view.Range(start, func(i int, slot table.Slot[K, V]) bool {
			sh, _ := view.Locate(i)
			if view.ShardStale(sh) {
				// 配列が差し替わったシャードは先頭からやり直す
				s.shard, s.slot = sh, 0
				stale = true
				return false
			}
			s.visit(slot, now, &res)
			visits++
			s.advance(view, i+1)
			return s.t.Len() > limit
		})
		res.Visited += visits
		s.publish(view)

		if !stale {
			res.Revolution = visits == n
			return res
		}
		res.Restarts++
	}
	return res
}

// resume は新しい View に合わせてカーソルを調整します。
// カーソルのいるシャードの世代が変わっていればそのシャードの先頭に戻します。
func (s *SecondChance[K, V]) resume(view *table.View[K, V]) {
	if !s.started || s.shard >= view.Shards() {
		s.shard, s.slot = 0, 0
		s.shardGen = view.ShardGeneration(0)
		s.started = true
		return
	}
	if g := view.ShardGeneration(s.shard); g != s.shardGen {
		s.slot = 0
		s.shardGen = g
	}
	if s.slot >= view.ShardLen(s.shard) {
		s.slot = 0
	}
}

func (s *SecondChance[K, V]) advance(view *table.View[K, V], next int) {
	if next >= view.Len() {
		next = 0
	}
	s.shard, s.slot = view.Locate(next)
	s.shardGen = view.ShardGeneration(s.shard)
}

func (s *SecondChance[K, V]) publish(view *table.View[K, V]) {
	pos := 0
	if s.slot < view.ShardLen(s.shard) {
		pos = view.ShardOffset(s.shard) + s.slot
	}
	s.pos.Store(int64(pos))
	s.posShard.Store(int64(s.shard))
}

func (s *SecondChance[K, V]) visit(slot table.Slot[K, V], now int64, res *SweepResult) {
	if slot.State != table.SlotOccupied {
		return
	}
	e := slot.Entry
	switch {
	case e.Expired(now):
		if v, ok := s.t.RemoveEntry(e); ok {
			res.Expired++
			s.evicted(e.Key(), v)
		}
	case e.ClearReference():
		res.Spared++
	default:
		if v, ok := s.t.RemoveEntry(e); ok {
			res.Evicted++
			s.evicted(e.Key(), v)
		}
	}
}

func (s *SecondChance[K, V]) evicted(key K, value V) {
	if s.onEvict != nil {
		s.onEvict(key, value)
	}
}
