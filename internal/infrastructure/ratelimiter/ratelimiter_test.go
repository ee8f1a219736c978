package ratelimiter

import (
	"errors"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(clock *fakeClock, rate, burst int) Limiter {
	cache := newInMemory(clock.Now, time.Hour)
	return New(Options{
		MaxRatePerSecond: rate,
		MaxBurst:         burst,
		Cache:            cache,
		CacheTTL:         time.Minute,
		Now:              clock.Now,
	})
}

func TestTokenBucketBurstThenRefill(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	rl := newTestLimiter(clock, 2, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d denied within burst", i)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("request allowed past burst")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other source shares the bucket")
	}

	// Two tokens per second: 400ms is not enough for one.
	clock.Advance(400 * time.Millisecond)
	if rl.Allow("10.0.0.1") {
		t.Fatal("token granted before it was earned")
	}

	// The partial 400ms carries over.
	clock.Advance(100 * time.Millisecond)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("token not granted after 500ms")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("extra token granted")
	}

	clock.Advance(time.Hour)
	if got := rl.Remaining("10.0.0.1"); got != 3 {
		t.Fatalf("remaining = %d, want full burst", got)
	}
}

func TestGetSourceKeyIgnoresUntrustedHeader(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, SourceHeaderKey: "X-Forwarded-For"})

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	for _, forged := range []string{"198.51.100.7", "198.51.100.8"} {
		r.Header.Set("X-Forwarded-For", forged)
		if got := rl.GetSourceKey(r); got != "192.0.2.1" {
			t.Fatalf("key = %q for forged %q", got, forged)
		}
	}
}

func TestGetSourceKeyPrefersTrustedHeader(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, SourceHeaderKey: "X-Forwarded-For", TrustSourceHeader: true})

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	if got := rl.GetSourceKey(r); got != "192.0.2.1" {
		t.Fatalf("key = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "198.51.100.7")
	if got := rl.GetSourceKey(r); got != "198.51.100.7" {
		t.Fatalf("key = %q", got)
	}
	if rl.GetMaxBurst() != 1 {
		t.Fatalf("burst = %d", rl.GetMaxBurst())
	}
}

func TestInMemoryExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := newInMemory(clock.Now, time.Hour)
	defer cache.Close()

	if _, err := cache.Get("k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("err = %v", err)
	}

	_ = cache.SetWithExpiration("k", 7, time.Second)
	_ = cache.Set("forever", 1)
	if v, err := cache.Get("k"); err != nil || v != 7 {
		t.Fatalf("Get = %d, %v", v, err)
	}

	clock.Advance(2 * time.Second)
	if _, err := cache.Get("k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expired entry returned: %v", err)
	}

	cache.removeExpired()
	if cache.len() != 1 {
		t.Fatalf("len = %d after cleanup", cache.len())
	}
}

func TestAttemptLimiterWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	al := newAttemptLimiter(3, time.Minute, clock.Now)
	defer al.Close()

	for i := 0; i < 3; i++ {
		if ok, _ := al.Allow("room-1|10.0.0.1"); !ok {
			t.Fatalf("attempt %d denied", i)
		}
	}

	clock.Advance(15 * time.Second)
	ok, retryAfter := al.Allow("room-1|10.0.0.1")
	if ok || retryAfter != 45*time.Second {
		t.Fatalf("Allow = %v, %v", ok, retryAfter)
	}
	if ok, _ := al.Allow("room-2|10.0.0.1"); !ok {
		t.Fatal("separate key shares the window")
	}

	clock.Advance(45 * time.Second)
	if ok, _ := al.Allow("room-1|10.0.0.1"); !ok {
		t.Fatal("attempt denied in a fresh window")
	}

	clock.Advance(2 * time.Minute)
	al.cleanup()
	if _, ok := al.counts.Load("room-2|10.0.0.1"); ok {
		t.Fatal("stale window not cleaned up")
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("DUET_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DUET_TEST_REDIS_ADDR not set")
	}

	cache := NewRedis(redis.NewClient(&redis.Options{Addr: addr}), "duet-test:")
	defer cache.Close()

	key := "bucket-" + time.Now().Format(time.RFC3339Nano)
	if _, err := cache.Get(key); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("err = %v", err)
	}
	if err := cache.SetWithExpiration(key, 5, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, err := cache.Get(key); err != nil || v != 5 {
		t.Fatalf("Get = %d, %v", v, err)
	}
}
