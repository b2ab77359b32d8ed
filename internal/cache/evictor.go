package cache

// evict は生きたエントリ数が limit 以下になるよう追い出します。
// 非同期モードではバックグラウンドに通知するだけです。
func (c *Cache[K, V]) evict(limit int) {
	if c.async.Load() {
		select {
		case c.wakeCh <- struct{}{}:
		default:
		}
		return
	}
	c.runSweep(limit, false)
}

// runSweep はスイープを実行し、結果をメトリクスとログに反映します。
// 1 周しても limit を超えている場合（すべての参照ビットが立っていた場合）は、
// ビットが落ちた状態でもう 1 周します。
func (c *Cache[K, V]) runSweep(limit int, wait bool) SweepResult {
	var total SweepResult
	for pass := range 2 {
		var res SweepResult
		if wait {
			res = c.ev.Sweep(limit)
		} else {
			var ok bool
			if res, ok = c.ev.TrySweep(limit); !ok {
				return total
			}
		}
		c.record(res)
		if pass == 0 {
			total = res
		} else {
			total.Visited += res.Visited
			total.Spared += res.Spared
			total.Evicted += res.Evicted
			total.Expired += res.Expired
			total.Restarts += res.Restarts
			total.Revolution = res.Revolution
			total.Generation = res.Generation
			total.Err = res.Err
		}
		if res.Err != nil || !res.Revolution || c.t.Len() <= limit {
			break
		}
	}
	return total
}

func (c *Cache[K, V]) record(res SweepResult) {
	if res.Err != nil {
		if c.cfg.Logger != nil {
			c.cfg.Logger.Debug("cache.sweep.skipped", "err", res.Err)
		}
		return
	}
	if res.Visited == 0 {
		return
	}
	c.cfg.Metrics.ObserveSweep(res.Visited)
	c.cfg.Metrics.AddSpared(res.Spared)
	c.cfg.Metrics.AddEvicted(res.Evicted)
	c.cfg.Metrics.AddTTLExpired(res.Expired)
	c.cfg.Metrics.SetSize(c.t.Len())
	if c.cfg.Logger != nil {
		c.cfg.Logger.Debug("cache.sweep",
			"start", res.Start,
			"start_shard", res.StartShard,
			"visited", res.Visited,
			"spared", res.Spared,
			"restarts", res.Restarts,
			"generation", res.Generation,
		)
		if n := res.Evicted + res.Expired; n > 0 {
			c.cfg.Logger.Info("cache.evict", "count", res.Evicted, "expired", res.Expired)
		}
	}
}

func (c *Cache[K, V]) evictionLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.wakeCh:
			c.runSweep(c.capacity, true)
		case <-c.stopCh:
			return
		}
	}
}
