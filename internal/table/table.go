// Package table は second-chance キャッシュ用の並行ハッシュテーブルです。
//
// シャードごとにオープンアドレス法（線形探索）のスロット配列を持ち、
// 削除は tombstone で表します。スロット配列は世代番号付きの View として
// ロックなしで順に読み出せるため、エビクタはテーブルをコピーせずに
// 物理スロット順でスイープできます。
package table

import (
	"math"
	"sync/atomic"
)

const snapshotRetries = 3

// Table は並行に読み書きできるキー/値ストアです。
type Table[K comparable, V any] struct {
	cfg       Config
	shards    []shard[K, V]
	shardMask uint64
	gen       atomic.Uint64
	live      atomic.Int64
}

// New は新しい Table を作成します。
func New[K comparable, V any](opts ...Option) *Table[K, V] {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	def := defaultConfig()
	if cfg.Shards < 1 {
		cfg.Shards = def.Shards
	}
	if cfg.InitialSlots < 1 {
		cfg.InitialSlots = def.InitialSlots
	}
	if cfg.MaxLoad <= 0 || cfg.MaxLoad > 0.9 {
		cfg.MaxLoad = def.MaxLoad
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	// 2 の冪に揃える
	cfg.Shards = nextPowerOfTwo(cfg.Shards)
	cfg.InitialSlots = nextPowerOfTwo(max(cfg.InitialSlots, 2))

	t := &Table[K, V]{
		cfg:       cfg,
		shards:    make([]shard[K, V], cfg.Shards),
		shardMask: uint64(cfg.Shards - 1),
	}
	for i := range t.shards {
		t.shards[i].init(cfg.InitialSlots)
	}
	return t
}

func (t *Table[K, V]) shardFor(h uint64) (int, *shard[K, V]) {
	idx := int((h >> 32) & t.shardMask)
	return idx, &t.shards[idx]
}

// Load は key のエントリを返します。期限切れのエントリは tombstone にし、
// expired=true を返します。見つからない場合 e は nil です。
func (t *Table[K, V]) Load(key K) (v V, e *Entry[K, V], expired bool) {
	h := hashKey(key)
	_, sh := t.shardFor(h)
	sh.mu.RLock()
	e = sh.find(h, key)
	if e == nil {
		sh.mu.RUnlock()
		return v, nil, false
	}
	if e.Expired(t.cfg.Now()) {
		sh.mu.RUnlock()
		// 遅延削除。他ゴルーチンが先に更新/削除していないか再確認する
		sh.mu.Lock()
		if cur := sh.find(h, key); cur == e && e.Expired(t.cfg.Now()) {
			sh.tombstone(e)
			t.live.Add(-1)
			sh.mu.Unlock()
			return v, nil, true
		}
		sh.mu.Unlock()
		return t.Load(key)
	}
	v = e.val
	sh.mu.RUnlock()
	return v, e, false
}

// Get は key の値を返します。参照ビットには触れません。
func (t *Table[K, V]) Get(key K) (V, bool) {
	v, e, _ := t.Load(key)
	return v, e != nil
}

// Lookup は key の生きたエントリを返します。
func (t *Table[K, V]) Lookup(key K) (*Entry[K, V], bool) {
	_, e, _ := t.Load(key)
	return e, e != nil
}

// Contains は key の生きた（期限内の）エントリが存在するかを返します。
func (t *Table[K, V]) Contains(key K) bool {
	h := hashKey(key)
	_, sh := t.shardFor(h)
	sh.mu.RLock()
	e := sh.find(h, key)
	ok := e != nil && !e.Expired(t.cfg.Now())
	sh.mu.RUnlock()
	return ok
}

// Put は key に value をセットし、直前の値を返します。
// 既存キーの更新では値を置き換えて参照ビットを立てます。
// 期限切れの既存エントリは存在しなかったものとして扱います。
func (t *Table[K, V]) Put(key K, value V, expireAt int64) (prev V, existed bool) {
	h := hashKey(key)
	idx, sh := t.shardFor(h)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e := sh.find(h, key); e != nil {
		if !e.Expired(t.cfg.Now()) {
			prev = e.val
			e.val = value
			e.expireAt.Store(expireAt)
			e.Reference()
			return prev, true
		}
		sh.tombstone(e)
		t.live.Add(-1)
	}

	if sh.needsRehash(t.cfg.MaxLoad) {
		t.rehash(idx, sh)
	}
	e := &Entry[K, V]{key: key, hash: h, val: value}
	e.expireAt.Store(expireAt)
	sh.insert(e)
	t.live.Add(1)
	return prev, false
}

// Remove は key を tombstone にし、削除した値を返します。
func (t *Table[K, V]) Remove(key K) (v V, ok bool) {
	h := hashKey(key)
	_, sh := t.shardFor(h)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e := sh.find(h, key)
	if e == nil {
		return v, false
	}
	sh.tombstone(e)
	t.live.Add(-1)
	if e.Expired(t.cfg.Now()) {
		return v, false
	}
	return e.val, true
}

// RemoveEntry は e がまだ生きていれば e だけを削除します。
// 同じキーで再挿入された新しいエントリは削除しません。
func (t *Table[K, V]) RemoveEntry(e *Entry[K, V]) (v V, ok bool) {
	if e == nil || e.dead.Load() {
		return v, false
	}
	_, sh := t.shardFor(e.hash)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.find(e.hash, e.key) != e {
		return v, false
	}
	sh.tombstone(e)
	t.live.Add(-1)
	return e.val, true
}

// Len は生きたエントリ数を返します。期限切れでまだ回収されていないものを含みます。
func (t *Table[K, V]) Len() int {
	return int(t.live.Load())
}

// Generation は現在のテーブル世代を返します。どのシャードのリハッシュでも増加します。
func (t *Table[K, V]) Generation() uint64 {
	return t.gen.Load()
}

// ShardGeneration はシャード idx の世代を返します。そのシャードのリハッシュでだけ増加します。
func (t *Table[K, V]) ShardGeneration(idx int) uint64 {
	return t.shards[idx].gen.Load()
}

// ShardIndex は key を保持するシャードの番号を返します。
func (t *Table[K, V]) ShardIndex(key K) int {
	idx, _ := t.shardFor(hashKey(key))
	return idx
}

// Now はテーブルが TTL 判定に使う現在時刻（UnixNano）を返します。
func (t *Table[K, V]) Now() int64 {
	return t.cfg.Now()
}

// Snapshot は現在世代のスロット配列への読み取り専用 View を返します。
// 各シャードの配列とシャード世代は同じロックの下で組で記録されます。
// 組み立て中にテーブル世代が変わり続けた場合は ErrGenerationChanged を返します。
func (t *Table[K, V]) Snapshot() (*View[K, V], error) {
	for range snapshotRetries {
		g := t.gen.Load()
		arrays := make([][]slot[K, V], len(t.shards))
		gens := make([]uint64, len(t.shards))
		for i := range t.shards {
			sh := &t.shards[i]
			sh.mu.RLock()
			arrays[i] = sh.slots
			gens[i] = sh.gen.Load()
			sh.mu.RUnlock()
		}
		if t.gen.Load() == g {
			return newView(t, g, arrays, gens), nil
		}
	}
	return nil, ErrGenerationChanged
}

// Stats はシャード全体の内部カウンタを集計して返します。
func (t *Table[K, V]) Stats() Stats {
	st := Stats{Shards: len(t.shards), Generation: t.gen.Load()}
	for i := range t.shards {
		sh := &t.shards[i]
		sh.mu.RLock()
		st.Slots += len(sh.slots)
		st.Live += sh.live
		st.Tombstones += sh.tombs
		sh.mu.RUnlock()
	}
	return st
}

// Stats はテーブルの構造統計です。
type Stats struct {
	Shards     int
	Slots      int
	Live       int
	Tombstones int
	Generation uint64
}

func (t *Table[K, V]) rehash(idx int, sh *shard[K, V]) {
	oldSlots := len(sh.slots)
	// リハッシュ後の負荷率が MaxLoad の半分に収まる大きさ
	want := int(math.Ceil(float64(sh.live+1) * 2 / t.cfg.MaxLoad))
	n := nextPowerOfTwo(max(want, t.cfg.InitialSlots))
	reclaimed := sh.rehash(n)
	sg := sh.gen.Add(1)
	g := t.gen.Add(1)
	if t.cfg.OnRehash != nil {
		t.cfg.OnRehash(RehashEvent{
			Shard:           idx,
			Generation:      g,
			ShardGeneration: sg,
			OldSlots:        oldSlots,
			NewSlots:        n,
			Live:            sh.live,
			Reclaimed:       reclaimed,
		})
	}
}
