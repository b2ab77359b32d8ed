package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prom は Prometheus を使ったメトリクス実装です。
type Prom struct {
	putNew     prometheus.Counter
	putUpdate  prometheus.Counter
	getHit     prometheus.Counter
	getMiss    prometheus.Counter
	evicted    prometheus.Counter
	spared     prometheus.Counter
	ttlExpired prometheus.Counter
	sweep      prometheus.Histogram
	size       prometheus.Gauge
}

// NewProm は Prometheus を使ったメトリクス実装を初期化し、reg に登録します。
// reg が nil の場合は prometheus.DefaultRegisterer を使います。
// 同じ reg に 2 回登録すると panic するため、呼び出しは 1 回だけにしてください。
func NewProm(namespace string, reg prometheus.Registerer) *Prom {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	makeC := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}

	p := &Prom{
		putNew:     makeC("put_new_total", "Number of new keys put"),
		putUpdate:  makeC("put_update_total", "Number of keys updated"),
		getHit:     makeC("get_hit_total", "Number of cache hits"),
		getMiss:    makeC("get_miss_total", "Number of cache misses"),
		evicted:    makeC("evicted_total", "Number of evicted items"),
		spared:     makeC("spared_total", "Number of items given a second chance"),
		ttlExpired: makeC("ttl_expired_total", "Number of TTL expired items"),
		sweep: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_visited_slots",
			Help:      "Slots visited per eviction sweep",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_size",
			Help:      "Current number of live entries",
		}),
	}

	reg.MustRegister(
		p.putNew, p.putUpdate, p.getHit, p.getMiss, p.evicted, p.spared, p.ttlExpired, p.sweep, p.size,
	)
	return p
}

// IncPutNew は新しいキーが追加されたことをカウントします。
func (p *Prom) IncPutNew() { p.putNew.Inc() }

// IncPutUpdate は既存のキーが更新されたことをカウントします。
func (p *Prom) IncPutUpdate() { p.putUpdate.Inc() }

// IncGetHit はキャッシュヒットをカウントします。
func (p *Prom) IncGetHit() { p.getHit.Inc() }

// IncGetMiss はキャッシュミスをカウントします。
func (p *Prom) IncGetMiss() { p.getMiss.Inc() }

// AddEvicted は追い出されたアイテムの数を加算します。
func (p *Prom) AddEvicted(n int) {
	if n > 0 {
		p.evicted.Add(float64(n))
	}
}

// AddSpared は参照ビットにより見逃されたアイテムの数を加算します。
func (p *Prom) AddSpared(n int) {
	if n > 0 {
		p.spared.Add(float64(n))
	}
}

// AddTTLExpired はTTLが期限切れになったアイテムの数を加算します。
func (p *Prom) AddTTLExpired(n int) {
	if n > 0 {
		p.ttlExpired.Add(float64(n))
	}
}

// ObserveSweep はスイープ 1 回分の訪問スロット数を記録します。
func (p *Prom) ObserveSweep(visited int) { p.sweep.Observe(float64(visited)) }

// SetSize は現在のエントリ数を設定します。
func (p *Prom) SetSize(n int) {
	if n >= 0 {
		p.size.Set(float64(n))
	}
}
