package server

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jathurchan/namereg/logger"
)

// RateLimiter defines the interface for request rate limiting.
type RateLimiter interface {
	Allow() bool
	Wait(ctx context.Context) error
}

// TokenBucketRateLimiter implements rate limiting using a token bucket algorithm.
type TokenBucketRateLimiter struct {
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewTokenBucketRateLimiter creates a limiter admitting maxRequests per window
// with the given burst. A non-positive window disables limiting.
func NewTokenBucketRateLimiter(maxRequests, burst int, window time.Duration, logger logger.Logger) *TokenBucketRateLimiter {
	var rps rate.Limit
	if window.Seconds() > 0 {
		rps = rate.Limit(float64(maxRequests) / window.Seconds())
	} else {
		rps = rate.Inf
		logger.Warnw("Rate limit window is zero or negative, disabling rate limiter.", "window", window)
	}
	if burst <= 0 {
		burst = 1
		if rps != rate.Inf {
			logger.Warnw("Rate limit burst is zero or negative, setting to 1.", "burst", burst)
		}
	}

	return &TokenBucketRateLimiter{
		limiter: rate.NewLimiter(rps, burst),
		logger:  logger,
	}
}

// Allow returns true if a request can proceed immediately.
func (rl *TokenBucketRateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// Wait blocks until a request can proceed or the context is cancelled.
func (rl *TokenBucketRateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// RateLimiterPool hands out one limiter per key, typically the caller
// address, so a single account cannot exhaust the server's budget.
type RateLimiterPool struct {
	mu       sync.Mutex
	limiters map[string]RateLimiter
	factory  func() RateLimiter
	maxKeys  int
}

// NewRateLimiterPool creates a pool that builds limiters with factory.
// When more than maxKeys keys are tracked the pool starts over.
func NewRateLimiterPool(factory func() RateLimiter, maxKeys int) *RateLimiterPool {
	if maxKeys <= 0 {
		maxKeys = DefaultRateLimiterPoolSize
	}
	return &RateLimiterPool{
		limiters: make(map[string]RateLimiter),
		factory:  factory,
		maxKeys:  maxKeys,
	}
}

// Get returns the limiter for key, creating it on first use.
func (p *RateLimiterPool) Get(key string) RateLimiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if rl, ok := p.limiters[key]; ok {
		return rl
	}
	if len(p.limiters) >= p.maxKeys {
		clear(p.limiters)
	}
	rl := p.factory()
	p.limiters[key] = rl
	return rl
}

// Len returns the number of keys currently tracked.
func (p *RateLimiterPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}
