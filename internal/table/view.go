package table

import "sort"

// View はある世代のスロット配列全体を、シャード 0 から順に連結した
// 読み取り専用の並びとして見せます。同じ世代である限り順序は安定です。
//
// View が参照する配列はリハッシュ後も書き換えられないため、古い View を
// 読んでもメモリ安全ですが、内容はもう最新ではありません。
// テーブル全体は Stale、シャード単位は ShardStale で判定してください。
type View[K comparable, V any] struct {
	t       *Table[K, V]
	gen     uint64
	arrays  [][]slot[K, V]
	gens    []uint64 // gens[i] は arrays[i] を取得したときのシャード世代
	offsets []int    // offsets[i] は arrays[i] の先頭のグローバル位置
	n       int
}

func newView[K comparable, V any](t *Table[K, V], gen uint64, arrays [][]slot[K, V], gens []uint64) *View[K, V] {
	v := &View[K, V]{
		t:       t,
		gen:     gen,
		arrays:  arrays,
		gens:    gens,
		offsets: make([]int, len(arrays)),
	}
	for i, a := range arrays {
		v.offsets[i] = v.n
		v.n += len(a)
	}
	return v
}

// Len はスロット総数を返します。
func (v *View[K, V]) Len() int { return v.n }

// Generation は View が属するテーブル世代を返します。
func (v *View[K, V]) Generation() uint64 { return v.gen }

// Stale はいずれかのシャードが View 取得後にリハッシュされたかを返します。
func (v *View[K, V]) Stale() bool { return v.t.gen.Load() != v.gen }

// Shards はシャード数を返します。
func (v *View[K, V]) Shards() int { return len(v.arrays) }

// ShardGeneration は View が記録したシャード s の世代を返します。
func (v *View[K, V]) ShardGeneration(s int) uint64 { return v.gens[s] }

// ShardStale はシャード s が View 取得後にリハッシュされたかを返します。
func (v *View[K, V]) ShardStale(s int) bool { return v.t.shards[s].gen.Load() != v.gens[s] }

// ShardOffset はシャード s の先頭のグローバル位置を返します。
func (v *View[K, V]) ShardOffset(s int) int { return v.offsets[s] }

// ShardLen はシャード s のスロット数を返します。
func (v *View[K, V]) ShardLen(s int) int { return len(v.arrays[s]) }

// Locate はグローバル位置 i をシャード番号とシャード内の位置に分解します。
func (v *View[K, V]) Locate(i int) (shard, slot int) {
	s := sort.Search(len(v.offsets), func(j int) bool { return v.offsets[j] > i }) - 1
	return s, i - v.offsets[s]
}

// At は位置 i (0 ≤ i < Len) のスロットを返します。
func (v *View[K, V]) At(i int) Slot[K, V] {
	s, off := v.Locate(i)
	return v.arrays[s][off].load()
}

// Range は位置 from から物理順にスロットを訪問します。末尾で先頭に折り返し、
// 全スロットを 1 周するか yield が false を返すまで続けます。
func (v *View[K, V]) Range(from int, yield func(i int, s Slot[K, V]) bool) {
	if v.n == 0 {
		return
	}
	from %= v.n
	i := from
	for {
		if !yield(i, v.At(i)) {
			return
		}
		i++
		if i == v.n {
			i = 0
		}
		if i == from {
			return
		}
	}
}
