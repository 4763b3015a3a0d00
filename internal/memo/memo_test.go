package memo

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestGetCachesWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	cache := New[int](30*time.Second, clock.Now)

	calls := 0
	fill := func() (int, error) { calls++; return 42, nil }

	for i := 0; i < 3; i++ {
		v, err := cache.Get("k", fill)
		if err != nil || v != 42 {
			t.Fatalf("unexpected result: %v %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("TTL 内应只调用一次, 实际 %d", calls)
	}

	clock.Advance(29 * time.Second)
	if _, err := cache.Get("k", fill); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("29s 后仍应命中缓存, 实际调用 %d 次", calls)
	}

	clock.Advance(2 * time.Second)
	if _, err := cache.Get("k", fill); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("过期后应重新计算, 实际调用 %d 次", calls)
	}
}

func TestGetKeysAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	cache := New[string](time.Minute, clock.Now)

	a, _ := cache.Get("a", func() (string, error) { return "va", nil })
	b, _ := cache.Get("b", func() (string, error) { return "vb", nil })
	if a != "va" || b != "vb" {
		t.Fatalf("键之间不应互相影响: %q %q", a, b)
	}
}

func TestGetDoesNotCacheErrors(t *testing.T) {
	cache := New[int](time.Minute, nil)

	calls := 0
	boom := errors.New("boom")
	fill := func() (int, error) { calls++; return 0, boom }

	if _, err := cache.Get("k", fill); !errors.Is(err, boom) {
		t.Fatalf("应透传错误, 实际 %v", err)
	}
	if _, err := cache.Get("k", fill); !errors.Is(err, boom) {
		t.Fatalf("应透传错误, 实际 %v", err)
	}
	if calls != 2 {
		t.Fatalf("错误不应被缓存, 实际调用 %d 次", calls)
	}
}

func TestGetDeduplicatesConcurrentFills(t *testing.T) {
	cache := New[int](time.Minute, nil)

	var calls int32
	gate := make(chan struct{})
	fill := func() (int, error) {
		atomic.AddInt32(&calls, 1)
		<-gate
		return 7, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := cache.Get("k", fill)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("并发请求应合并为一次计算, 实际 %d 次", got)
	}
	for _, v := range results {
		if v != 7 {
			t.Fatalf("所有并发调用应共享结果: %v", results)
		}
	}
}

func TestFlush(t *testing.T) {
	cache := New[int](time.Hour, nil)
	calls := 0
	fill := func() (int, error) { calls++; return 1, nil }

	_, _ = cache.Get("k", fill)
	cache.Flush()
	_, _ = cache.Get("k", fill)
	if calls != 2 {
		t.Fatalf("Flush 后应重新计算, 实际 %d 次", calls)
	}
}
