// Package ratelimit provides per-key token bucket rate limiting for MCP
// tools and pacing for model calls.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// Limiter implements a per-key token bucket rate limiter.
// Each key gets its own bucket with the configured rate and burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   int              // max burst size (also initial token count)
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and burst size.
// The burst size also serves as the initial number of tokens available.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow checks if a request for the given key should be allowed.
// Returns true if allowed, false if rate limited.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.take(key)
	return ok
}

// take consumes a token for key if one is available. Otherwise it returns
// how long until the next token accrues.
func (l *Limiter) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()

	b, ok := l.buckets[key]
	if !ok {
		// First request for this key: start with full burst
		b = &bucket{
			tokens:    float64(l.burst),
			lastCheck: now,
		}
		l.buckets[key] = b
	}

	// Refill tokens based on elapsed time
	elapsed := now.Sub(b.lastCheck).Seconds()
	if elapsed > 0 {
		b.tokens += l.rate * elapsed
		if b.tokens > float64(l.burst) {
			b.tokens = float64(l.burst)
		}
		b.lastCheck = now
	}

	// Check if we have at least 1 token
	if b.tokens < 1.0 {
		if l.rate <= 0 {
			return false, time.Duration(math.MaxInt64)
		}
		wait := time.Duration((1.0 - b.tokens) / l.rate * float64(time.Second))
		return false, max(wait, time.Millisecond)
	}

	b.tokens--
	return true, 0
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default set of per-tool rate limiters.
// Rendering is the expensive tool, so it gets the tightest budget.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"gazeviz_render":   NewLimiter(10.0/60.0, 3), // 10/minute, burst 3
		"gazeviz_discover": NewLimiter(1.0, 10),      // 60/minute, burst 10
		"gazeviz_history":  NewLimiter(1.0, 10),      // 60/minute, burst 10
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Returns nil if allowed, or an error if rate limited.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil // No limiter configured = no limit
	}

	if !limiter.Allow(toolName) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}

	return nil
}

// Pacer spaces out calls to a single resource, such as a remote model API.
// Unlike Limiter.Allow, Wait blocks until a token is available.
type Pacer struct {
	limiter *Limiter
	after   func(time.Duration) <-chan time.Time
}

// NewPacer allows one call per interval with the given burst. An interval
// of zero or less disables pacing.
func NewPacer(interval time.Duration, burst int) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	if burst < 1 {
		burst = 1
	}
	return &Pacer{
		limiter: NewLimiter(1/interval.Seconds(), burst),
		after:   time.After,
	}
}

// Wait blocks until the next call may proceed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, wait := p.limiter.take("")
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.after(wait):
		}
	}
}
