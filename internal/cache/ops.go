package cache

import "time"

// Get はキーに対応する値を取得し、ヒットした場合は参照ビットを立てます。
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, e, expired := c.t.Load(key)
	if expired {
		c.cfg.Metrics.AddTTLExpired(1)
		if c.cfg.Logger != nil {
			c.cfg.Logger.Debug("cache.ttl.expired", "key", key)
		}
	}
	if e == nil {
		c.cfg.Metrics.IncGetMiss()
		var zero V
		return zero, false
	}
	e.Reference()
	c.cfg.Metrics.IncGetHit()
	return v, true
}

// Peek は Get と同じですが参照ビットに触れません。
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	return c.t.Get(key)
}

// Put はキーと値をキャッシュにセットし、直前の値を返します。
func (c *Cache[K, V]) Put(key K, value V) (prev V, existed bool) {
	return c.PutWithTTL(key, value, 0)
}

// PutWithTTL は有効期限付きでキーと値をセットします。ttl が 0 以下なら無期限です。
//
// 新しいキーで容量が埋まっている場合は、挿入前に capacity-1 件まで追い出します。
// 挿入後も並行な Put により容量を超えていれば capacity 件まで追い出します。
func (c *Cache[K, V]) PutWithTTL(key K, value V, ttl time.Duration) (prev V, existed bool) {
	var exp int64
	if ttl > 0 {
		exp = c.t.Now() + int64(ttl)
	}

	if c.t.Len() >= c.capacity && !c.t.Contains(key) {
		c.evict(c.capacity - 1)
	}
	prev, existed = c.t.Put(key, value, exp)

	if existed {
		c.cfg.Metrics.IncPutUpdate()
	} else {
		c.cfg.Metrics.IncPutNew()
	}
	if c.cfg.Logger != nil {
		if existed {
			c.cfg.Logger.Debug("cache.update", "key", key)
		} else {
			c.cfg.Logger.Debug("cache.put", "key", key, "ttl", ttl.String())
		}
	}

	if c.t.Len() > c.capacity {
		c.evict(c.capacity)
	}
	c.cfg.Metrics.SetSize(c.t.Len())
	return prev, existed
}

// Remove はキーを削除し、削除した値を返します。
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	v, ok := c.t.Remove(key)
	if ok && c.cfg.Logger != nil {
		c.cfg.Logger.Debug("cache.delete", "key", key)
	}
	c.cfg.Metrics.SetSize(c.t.Len())
	return v, ok
}

// Sweep は容量まで追い出すスイープを同期的に実行します。
// 参照ビットがすべて立っていて 1 周で容量に収まらない場合は、もう 1 周します。
func (c *Cache[K, V]) Sweep() SweepResult {
	return c.runSweep(c.capacity, true)
}
