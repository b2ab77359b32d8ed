package table

import (
	"sync"
	"sync/atomic"
)

type shard[K comparable, V any] struct {
	mu    sync.RWMutex
	slots []slot[K, V]
	mask  uint64
	live  int
	tombs int
	gen   atomic.Uint64       // このシャードのリハッシュ回数
	_     [cacheLineSize]byte // cache line padding
}

func (sh *shard[K, V]) init(n int) {
	sh.slots = make([]slot[K, V], n)
	sh.mask = uint64(n - 1)
	sh.live = 0
	sh.tombs = 0
}

// find は key の生きたエントリを線形探索で探します。ロックを保持して呼ぶこと。
func (sh *shard[K, V]) find(h uint64, key K) *Entry[K, V] {
	i := h & sh.mask
	for range sh.slots {
		e := sh.slots[i].p.Load()
		if e == nil {
			return nil
		}
		if e.hash == h && e.key == key && !e.dead.Load() {
			return e
		}
		i = (i + 1) & sh.mask
	}
	return nil
}

// insert は key が存在しないことを確認済みの状態で呼びます。
// 探索経路上の最初の tombstone があれば再利用します。書き込みロックを保持して呼ぶこと。
func (sh *shard[K, V]) insert(e *Entry[K, V]) {
	i := e.hash & sh.mask
	reuse := -1
	for range sh.slots {
		cur := sh.slots[i].p.Load()
		if cur == nil {
			break
		}
		if reuse < 0 && cur.dead.Load() {
			reuse = int(i)
		}
		i = (i + 1) & sh.mask
	}
	if reuse >= 0 {
		sh.slots[reuse].p.Store(e)
		sh.tombs--
	} else {
		sh.slots[i].p.Store(e)
	}
	sh.live++
}

// tombstone は e を論理削除します。書き込みロックを保持して呼ぶこと。
func (sh *shard[K, V]) tombstone(e *Entry[K, V]) {
	e.dead.Store(true)
	sh.live--
	sh.tombs++
}

func (sh *shard[K, V]) needsRehash(maxLoad float64) bool {
	return float64(sh.live+sh.tombs+1) > maxLoad*float64(len(sh.slots))
}

// rehash は生きたエントリだけを新しい配列へ移し、tombstone を回収します。
// 古い配列は書き換えないので、既存の View は安全に読み続けられます。
func (sh *shard[K, V]) rehash(n int) (reclaimed int) {
	old := sh.slots
	reclaimed = sh.tombs
	sh.init(n)
	for i := range old {
		e := old[i].p.Load()
		if e == nil || e.dead.Load() {
			continue
		}
		sh.insert(e)
	}
	return reclaimed
}
