package ratelimiter

import (
	"math"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	bucketKeyPrefix   = "rl:bucket:"
	lastFillKeyPrefix = "rl:fill:"
	defaultSourceKey  = "X-RateLimit-Key"
)

type Limiter interface {
	Allow(sourceKey string) bool
	GetSourceKey(r *http.Request) string
	Remaining(sourceKey string) int
	GetMaxBurst() int
}

// RateLimiter is a token bucket per source key. Bucket state lives in the
// cache so replicas sharing a Redis cache share limits.
type RateLimiter struct {
	maxRatePerMillisecond float64
	maxBurst              int
	cache                 GetterSetter
	cacheTTL              time.Duration
	sourceHeaderKey       string
	trustSourceHeader     bool
	now                   func() time.Time
	// locks holds one *sync.Mutex per source key.
	locks sync.Map
}

func (rl *RateLimiter) lockFor(sourceKey string) *sync.Mutex {
	lock, _ := rl.locks.LoadOrStore(sourceKey, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

type bucketState struct {
	tokens   int
	lastFill int64 // Unix milliseconds
}

// load reads a bucket. Misses and cache failures both yield a full bucket,
// so a broken cache fails open.
func (rl *RateLimiter) load(sourceKey string, now int64) bucketState {
	tokens, tokensErr := rl.cache.Get(bucketKeyPrefix + sourceKey)
	lastFill, fillErr := rl.cache.Get(lastFillKeyPrefix + sourceKey)
	if tokensErr != nil || fillErr != nil {
		return bucketState{tokens: rl.maxBurst, lastFill: now}
	}
	return bucketState{tokens: tokens, lastFill: int64(lastFill)}
}

func (rl *RateLimiter) store(sourceKey string, state bucketState) {
	_ = rl.cache.SetWithExpiration(bucketKeyPrefix+sourceKey, state.tokens, rl.cacheTTL)
	_ = rl.cache.SetWithExpiration(lastFillKeyPrefix+sourceKey, int(state.lastFill), rl.cacheTTL)
}

// refill adds whole tokens for the elapsed time. lastFill only moves forward
// by the time those tokens account for, so partial progress towards the next
// token carries over.
func (rl *RateLimiter) refill(state bucketState, now int64) bucketState {
	elapsed := now - state.lastFill
	if elapsed <= 0 || rl.maxRatePerMillisecond <= 0 {
		return state
	}
	if state.tokens >= rl.maxBurst {
		return bucketState{tokens: rl.maxBurst, lastFill: now}
	}

	earned := int(math.Floor(float64(elapsed) * rl.maxRatePerMillisecond))
	switch {
	case earned <= 0:
		return state
	case state.tokens+earned >= rl.maxBurst:
		return bucketState{tokens: rl.maxBurst, lastFill: now}
	}

	return bucketState{
		tokens:   state.tokens + earned,
		lastFill: state.lastFill + int64(float64(earned)/rl.maxRatePerMillisecond),
	}
}

// settle refills the bucket for sourceKey, takes cost tokens when enough are
// left and persists any change. It reports whether the tokens were taken and
// what remains.
func (rl *RateLimiter) settle(sourceKey string, cost int) (bool, int) {
	lock := rl.lockFor(sourceKey)
	lock.Lock()
	defer lock.Unlock()

	now := rl.now().UnixMilli()
	before := rl.load(sourceKey, now)
	after := rl.refill(before, now)

	taken := cost > 0 && after.tokens >= cost
	if taken {
		after.tokens -= cost
	}
	if taken || after != before {
		rl.store(sourceKey, after)
	}
	return taken, after.tokens
}

func (rl *RateLimiter) Allow(sourceKey string) bool {
	ok, _ := rl.settle(sourceKey, 1)
	return ok
}

func (rl *RateLimiter) Remaining(sourceKey string) int {
	_, left := rl.settle(sourceKey, 0)
	return left
}

func (rl *RateLimiter) GetMaxBurst() int {
	return rl.maxBurst
}

// GetSourceKey buckets by the configured header, falling back to the client
// address.
func (rl *RateLimiter) GetSourceKey(r *http.Request) string {
	if !rl.trustSourceHeader {
		return ClientIP(r)
	}
	if key := r.Header.Get(rl.sourceHeaderKey); key != "" {
		return key
	}
	return ClientIP(r)
}

// ClientIP is the request's remote address without the port, so reconnects
// from one host share a bucket.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type Options struct {
	MaxRatePerSecond int
	MaxBurst         int
	Cache            GetterSetter
	CacheTTL         time.Duration
	SourceHeaderKey  string
	// TrustSourceHeader lets SourceHeaderKey pick the bucket. Otherwise the
	// bucket is the client address.
	TrustSourceHeader bool
	Now               func() time.Time
}

func New(options Options) Limiter {
	if options.Cache == nil {
		options.Cache = NewInMemory()
	}
	if options.CacheTTL == 0 {
		options.CacheTTL = 10 * time.Second
	}
	if options.MaxBurst <= 0 {
		options.MaxBurst = options.MaxRatePerSecond
	}
	if options.SourceHeaderKey == "" {
		options.SourceHeaderKey = defaultSourceKey
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &RateLimiter{
		maxRatePerMillisecond: float64(options.MaxRatePerSecond) / 1000.0,
		maxBurst:              options.MaxBurst,
		cache:                 options.Cache,
		cacheTTL:              options.CacheTTL,
		sourceHeaderKey:       options.SourceHeaderKey,
		trustSourceHeader:     options.TrustSourceHeader,
		now:                   options.Now,
	}
}
