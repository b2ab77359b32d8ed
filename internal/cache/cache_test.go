package cache

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func mustNew[K comparable, V any](t testing.TB, capacity int, opts ...Option) *Cache[K, V] {
	t.Helper()
	c, err := New[K, V](capacity, opts...)
	if err != nil {
		t.Fatalf("New(%d): %v", capacity, err)
	}
	return c
}

func TestCache_PutGetRemove(t *testing.T) {
	c := mustNew[string, string](t, 10)

	c.Put("foo", "bar")
	if v, ok := c.Get("foo"); !ok || v != "bar" {
		t.Fatalf("expected bar, got %v", v)
	}

	if _, ok := c.Get("baz"); ok {
		t.Fatalf("expected baz to not exist")
	}

	if v, ok := c.Remove("foo"); !ok || v != "bar" {
		t.Fatalf("expected remove to return bar, got %v %v", v, ok)
	}
	if _, ok := c.Get("foo"); ok {
		t.Fatalf("expected foo to be deleted")
	}
	if _, ok := c.Remove("foo"); ok {
		t.Fatalf("second remove should report absent")
	}
	if c.Capacity() != 10 {
		t.Fatalf("capacity want 10 got %d", c.Capacity())
	}
}

func TestCache_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		c, err := New[string, string](capacity)
		if !errors.Is(err, ErrInvalidCapacity) {
			t.Fatalf("capacity %d: expected ErrInvalidCapacity, got %v", capacity, err)
		}
		if c != nil {
			t.Fatalf("capacity %d: expected nil cache", capacity)
		}
	}
}

func TestCache_LastWriteWins(t *testing.T) {
	c := mustNew[string, int](t, 4)
	c.Put("k", 1)
	prev, existed := c.Put("k", 2)
	if !existed || prev != 1 {
		t.Fatalf("expected previous value 1, got %d existed=%v", prev, existed)
	}
	if v, _ := c.Get("k"); v != 2 {
		t.Fatalf("expected 2 got %d", v)
	}
	if c.Len() != 1 {
		t.Fatalf("expected len=1 got %d", c.Len())
	}
}

func TestCache_SecondChanceEviction(t *testing.T) {
	c := mustNew[string, string](t, 2)

	c.Put("a", "1")
	c.Put("b", "2")

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected a")
	}

	c.Put("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("c should remain")
	}
	if c.Len() != 2 {
		t.Fatalf("expected len=2 got %d", c.Len())
	}
}

func TestCache_BoundedEviction(t *testing.T) {
	c := mustNew[int, int](t, 10, WithShards(4))
	for i := range 1000 {
		c.Put(i, i)
		if i%2 == 0 {
			c.Get(i)
		}
		if l := c.Len(); l > 10 {
			t.Fatalf("after put %d: len %d exceeds capacity", i, l)
		}
	}
}

func TestCache_ChurnEvictsOldEntries(t *testing.T) {
	const capacity = 4096
	c := mustNew[int, int](t, capacity)

	// キー = 挿入順なので、追い出し時点の cur-k がエントリの年齢になる
	var cur, young, total int
	c.WithOnEvict(func(k, _ int) {
		total++
		if cur-k < capacity/4 {
			young++
		}
	})
	for cur = 0; cur < 20*capacity; cur++ {
		c.Put(cur, cur)
	}

	st := c.Stats()
	if st.Generation == 0 {
		t.Fatalf("expected shard rehashes under churn %+v", st)
	}
	if st.Len > capacity {
		t.Fatalf("len %d exceeds capacity", st.Len)
	}
	share := float64(young) / float64(total)
	t.Logf("evictions=%d young=%d share=%.3f generation=%d", total, young, share, st.Generation)
	if share > 0.4 {
		t.Fatalf("%.1f%% of evictions hit entries younger than capacity/4 inserts", share*100)
	}
}

func TestCache_AllReferencedStillBounded(t *testing.T) {
	c := mustNew[int, int](t, 4)
	for i := range 4 {
		c.Put(i, i)
		c.Get(i)
	}
	c.Put(100, 100)
	if l := c.Len(); l > 4 {
		t.Fatalf("expected len<=4 got %d", l)
	}
	if _, ok := c.Peek(100); !ok {
		t.Fatalf("newest key should be present")
	}
}

func TestCache_PeekDoesNotReference(t *testing.T) {
	c := mustNew[string, string](t, 2)
	c.Put("a", "1")
	c.Put("b", "2")
	c.Get("b")
	if _, ok := c.Peek("a"); !ok {
		t.Fatalf("peek should see a")
	}

	c.Put("c", "3")
	if _, ok := c.Peek("a"); ok {
		t.Fatalf("a was only peeked and should be evicted")
	}
	if _, ok := c.Peek("b"); !ok {
		t.Fatalf("b should remain")
	}
}

func TestCache_ConcurrentDisjointKeys(t *testing.T) {
	const capacity, workers, perWorker = 100, 8, 200
	c := mustNew[string, string](t, capacity, WithShards(8), WithInitialSlots(2))

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := range perWorker {
				k := "w" + strconv.Itoa(w) + "-" + strconv.Itoa(i)
				c.Put(k, k)
				c.Get(k)
			}
		}(w)
	}
	wg.Wait()
	c.Sweep()

	if l := c.Len(); l > capacity {
		t.Fatalf("expected len<=%d got %d", capacity, l)
	}
	present := 0
	for w := range workers {
		for i := range perWorker {
			k := "w" + strconv.Itoa(w) + "-" + strconv.Itoa(i)
			if v, ok := c.Peek(k); ok {
				if v != k {
					t.Fatalf("value mismatch for %s: %s", k, v)
				}
				present++
			}
		}
	}
	if present != c.Len() {
		t.Fatalf("retrievable keys %d != len %d", present, c.Len())
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	var now atomic.Int64
	now.Store(time.Now().UnixNano())
	c := mustNew[string, string](t, 10, WithClock(now.Load))

	c.PutWithTTL("ephemeral", "x", 50*time.Millisecond)
	if v, ok := c.Get("ephemeral"); !ok || v != "x" {
		t.Fatalf("expected present before expiry")
	}

	now.Add(int64(70 * time.Millisecond))

	if _, ok := c.Get("ephemeral"); ok {
		t.Fatalf("expected expired key")
	}
	if c.Len() != 0 {
		t.Fatalf("expired key should be reclaimed by Get, len=%d", c.Len())
	}
}

func TestCache_BackgroundCleanup(t *testing.T) {
	c := mustNew[string, string](t, 10, WithCleanupInterval(20*time.Millisecond))
	defer c.Close()

	c.PutWithTTL("k", "v", 30*time.Millisecond)
	c.Put("keep", "v")

	if _, ok := c.Peek("k"); !ok {
		t.Fatalf("should exist before expiry")
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected cleanup to remove k without a read, len=%d", c.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := c.Peek("keep"); !ok {
		t.Fatalf("keep should survive cleanup")
	}
}

func TestCache_AsyncEviction(t *testing.T) {
	c := mustNew[int, int](t, 10, WithAsyncEviction())
	defer c.Close()

	for i := range 100 {
		c.Put(i, i)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.Len() > 10 {
		if time.Now().After(deadline) {
			t.Fatalf("background eviction did not converge, len=%d", c.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCache_CloseIdempotent(t *testing.T) {
	c := mustNew[int, int](t, 2, WithAsyncEviction(), WithCleanupInterval(time.Millisecond))
	c.Close()
	c.Close()

	// Close 後は同期的に追い出す
	for i := range 10 {
		c.Put(i, i)
	}
	if l := c.Len(); l > 2 {
		t.Fatalf("expected len<=2 after close, got %d", l)
	}
}

func TestCache_OnEvict(t *testing.T) {
	var evicted []string
	c := mustNew[string, string](t, 1)
	c.WithOnEvict(func(k, _ string) { evicted = append(evicted, k) })

	c.Put("a", "1")
	c.Put("b", "2")

	if len(evicted) != 1 || evicted[0] != "a" {
		t.Fatalf("expected [a] evicted, got %v", evicted)
	}
	c.Remove("b")
	if len(evicted) != 1 {
		t.Fatalf("explicit remove must not trigger the callback")
	}
}

func TestCache_Stats(t *testing.T) {
	c := mustNew[int, int](t, 3, WithShards(2))
	for i := range 5 {
		c.Put(i, i)
	}
	st := c.Stats()
	if st.Len != 3 || st.Capacity != 3 || st.Shards != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if st.Cursor < 0 || st.Cursor >= st.Slots {
		t.Fatalf("cursor out of range %+v", st)
	}
	if st.Slots != 16 {
		t.Fatalf("expected 2 shards x 8 slots %+v", st)
	}
}

type recordLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordLogger) add(msg string) {
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}

func (l *recordLogger) Debug(msg string, _ ...any) { l.add(msg) }
func (l *recordLogger) Info(msg string, _ ...any)  { l.add(msg) }
func (l *recordLogger) Error(msg string, _ ...any) { l.add(msg) }

func (l *recordLogger) has(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.msgs {
		if m == msg {
			return true
		}
	}
	return false
}

func TestCache_Logging(t *testing.T) {
	lg := &recordLogger{}
	c := mustNew[int, int](t, 2, WithLogger(lg), WithShards(1), WithInitialSlots(2))
	for i := range 4 {
		c.Put(i, i)
	}
	c.Put(3, 30)
	c.Remove(3)

	for _, msg := range []string{"cache.put", "cache.update", "cache.delete", "cache.sweep", "cache.evict", "table.rehash"} {
		if !lg.has(msg) {
			t.Fatalf("expected %q to be logged", msg)
		}
	}
}
