package cache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/amakane-hakari/clockkv/internal/metrics"
	"github.com/amakane-hakari/clockkv/internal/table"
)

// Cache は容量上限付きの並行キャッシュです。
type Cache[K comparable, V any] struct {
	cfg      Config
	capacity int
	t        *table.Table[K, V]
	ev       *SecondChance[K, V]

	async     atomic.Bool
	wakeCh    chan struct{}
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Stats はキャッシュの状態です。
type Stats struct {
	Len         int    `json:"len"`
	Capacity    int    `json:"capacity"`
	Generation  uint64 `json:"generation"`
	Cursor      int    `json:"cursor"`
	CursorShard int    `json:"cursor_shard"`
	Slots       int    `json:"slots"`
	Tombstones  int    `json:"tombstones"`
	Shards      int    `json:"shards"`
}

// New は容量 capacity の Cache を作成します。capacity が 0 以下なら
// ErrInvalidCapacity を返します。
func New[K comparable, V any](capacity int, opts ...Option) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache.New(%d): %w", capacity, ErrInvalidCapacity)
	}
	cfg := Config{Shards: 16}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Shards < 1 {
		cfg.Shards = 16
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop{}
	}

	topts := []table.Option{
		table.WithShards(cfg.Shards),
		table.WithInitialSlots(cfg.InitialSlots),
	}
	if cfg.Clock != nil {
		topts = append(topts, table.WithClock(cfg.Clock))
	}
	if cfg.Logger != nil {
		l := cfg.Logger
		topts = append(topts, table.WithRehashHook(func(ev table.RehashEvent) {
			l.Debug("table.rehash",
				"shard", ev.Shard,
				"generation", ev.Generation,
				"shard_generation", ev.ShardGeneration,
				"old_slots", ev.OldSlots,
				"new_slots", ev.NewSlots,
				"reclaimed", ev.Reclaimed,
			)
		}))
	}

	t := table.New[K, V](topts...)
	c := &Cache[K, V]{
		cfg:      cfg,
		capacity: capacity,
		t:        t,
		ev:       NewSecondChance(t),
		stopCh:   make(chan struct{}),
	}

	if cfg.AsyncEviction {
		c.wakeCh = make(chan struct{}, 1)
		c.async.Store(true)
		c.wg.Add(1)
		go c.evictionLoop()
	}
	if cfg.CleanupInterval > 0 {
		c.wg.Add(1)
		go c.cleanupLoop()
	}
	return c, nil
}

// WithOnEvict はキャッシュ自身が取り除いたエントリ（追い出し・期限切れ）ごとに
// 呼ばれる関数を設定するメソッドです。使い始める前に呼んでください。
func (c *Cache[K, V]) WithOnEvict(fn func(key K, value V)) *Cache[K, V] {
	c.ev.OnEvict(fn)
	return c
}

// Len はキャッシュ内のエントリ数を返します。
// 期限切れでまだ回収されていないエントリを含みます。
func (c *Cache[K, V]) Len() int { return c.t.Len() }

// Capacity は設定された容量を返します。
func (c *Cache[K, V]) Capacity() int { return c.capacity }

// Stats はキャッシュの現在の状態を返します。
func (c *Cache[K, V]) Stats() Stats {
	ts := c.t.Stats()
	return Stats{
		Len:         c.t.Len(),
		Capacity:    c.capacity,
		Generation:  ts.Generation,
		Cursor:      c.ev.Position(),
		CursorShard: c.ev.PositionShard(),
		Slots:       ts.Slots,
		Tombstones:  ts.Tombstones,
		Shards:      ts.Shards,
	}
}

// Close はバックグラウンドのゴルーチンを停止します。2 回目以降の呼び出しは何もしません。
// Close 後もキャッシュ自体は同期的な追い出しで使い続けられます。
func (c *Cache[K, V]) Close() {
	c.closeOnce.Do(func() {
		c.async.Store(false)
		close(c.stopCh)
		c.wg.Wait()
	})
}
