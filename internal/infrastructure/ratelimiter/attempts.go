package ratelimiter

import (
	"sync"
	"sync/atomic"
	"time"
)

// AttemptLimiter caps attempts per key in fixed windows. It guards password
// and token checks against guessing.
type AttemptLimiter struct {
	counts      sync.Map // string -> *attemptWindow
	limit       int64
	window      time.Duration
	now         func() time.Time
	cleanupTick *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

type attemptWindow struct {
	count   int64        // atomic
	resetAt atomic.Value // stores time.Time
	mu      sync.Mutex   // only for reset (rare)
}

func NewAttemptLimiter(limit int, window time.Duration) *AttemptLimiter {
	return newAttemptLimiter(limit, window, time.Now)
}

func newAttemptLimiter(limit int, window time.Duration, now func() time.Time) *AttemptLimiter {
	al := &AttemptLimiter{
		limit:       int64(limit),
		window:      window,
		now:         now,
		cleanupTick: time.NewTicker(window),
		done:        make(chan struct{}),
	}
	go al.startCleanup()
	return al
}

// Allow records an attempt for key. When the window's budget is spent it
// returns false and the time until the window resets.
func (al *AttemptLimiter) Allow(key string) (bool, time.Duration) {
	if al.limit <= 0 {
		return true, 0
	}

	now := al.now()
	nextReset := now.Truncate(al.window).Add(al.window)

	val, _ := al.counts.LoadOrStore(key, &attemptWindow{})
	data := val.(*attemptWindow)

	data.mu.Lock()
	if data.resetAt.Load() == nil {
		data.resetAt.Store(nextReset)
		atomic.StoreInt64(&data.count, 0)
	}
	data.mu.Unlock()

	currentReset := data.resetAt.Load().(time.Time)
	if now.Before(currentReset) {
		return al.take(data, now, currentReset)
	}

	data.mu.Lock()
	defer data.mu.Unlock()

	// Another goroutine may have reset the window already.
	if currentReset := data.resetAt.Load().(time.Time); now.Before(currentReset) {
		return al.take(data, now, currentReset)
	}

	atomic.StoreInt64(&data.count, 1)
	data.resetAt.Store(nextReset)
	return true, 0
}

func (al *AttemptLimiter) take(data *attemptWindow, now, resetAt time.Time) (bool, time.Duration) {
	if atomic.AddInt64(&data.count, 1) > al.limit {
		atomic.AddInt64(&data.count, -1)
		return false, resetAt.Sub(now)
	}
	return true, 0
}

func (al *AttemptLimiter) startCleanup() {
	for {
		select {
		case <-al.cleanupTick.C:
			al.cleanup()
		case <-al.done:
			return
		}
	}
}

func (al *AttemptLimiter) cleanup() {
	now := al.now()
	al.counts.Range(func(key, value any) bool {
		data := value.(*attemptWindow)
		if resetAt := data.resetAt.Load(); resetAt != nil && now.After(resetAt.(time.Time)) {
			al.counts.Delete(key)
		}
		return true
	})
}

func (al *AttemptLimiter) Close() {
	al.closeOnce.Do(func() {
		close(al.done)
		al.cleanupTick.Stop()
	})
}
