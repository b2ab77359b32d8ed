package table

import (
	"fmt"
	"hash/fnv"
)

func hashKey[K comparable](key K) uint64 {
	var h uint64
	switch k := any(key).(type) {
	case string:
		f := fnv.New64a()
		_, _ = f.Write([]byte(k))
		h = f.Sum64()
	case int:
		h = uint64(k)
	case int32:
		h = uint64(k)
	case int64:
		h = uint64(k)
	case uint:
		h = uint64(k)
	case uint32:
		h = uint64(k)
	case uint64:
		h = k
	default:
		f := fnv.New64a()
		_, _ = fmt.Fprintf(f, "%v", k)
		h = f.Sum64()
	}
	return mix64(h)
}

// mix64 は整数キーがそのまま下位ビットに偏らないよう全ビットを撹拌します。
// 上位ビットでシャード、下位ビットでスロットを選ぶため必要です。
func mix64(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
