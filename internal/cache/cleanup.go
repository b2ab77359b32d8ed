package cache

import (
	"time"

	"github.com/amakane-hakari/clockkv/internal/table"
)

func (c *Cache[K, V]) cleanupLoop() {
	defer c.wg.Done()
	t := time.NewTicker(c.cfg.CleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.scanExpired()
		case <-c.stopCh:
			return
		}
	}
}

// scanExpired は View を 1 周して期限切れのエントリを取り除きます。
// 途中でリハッシュされた場合は残りを次の周期に回します。
func (c *Cache[K, V]) scanExpired() int {
	view, err := c.t.Snapshot()
	if err != nil {
		if c.cfg.Logger != nil {
			c.cfg.Logger.Debug("cache.ttl.cleanup.skipped", "err", err)
		}
		return 0
	}
	now := c.t.Now()
	removed := 0
	view.Range(0, func(i int, s table.Slot[K, V]) bool {
		// リハッシュされたシャードは次回の走査に回す
		if sh, _ := view.Locate(i); view.ShardStale(sh) {
			return true
		}
		if s.State == table.SlotOccupied && s.Entry.Expired(now) {
			if v, ok := c.t.RemoveEntry(s.Entry); ok {
				removed++
				c.ev.evicted(s.Entry.Key(), v)
			}
		}
		return true
	})
	if removed > 0 {
		c.cfg.Metrics.AddTTLExpired(removed)
		c.cfg.Metrics.SetSize(c.t.Len())
		if c.cfg.Logger != nil {
			c.cfg.Logger.Info("cache.ttl.cleanup", "removed", removed, "generation", view.Generation())
		}
	}
	return removed
}
