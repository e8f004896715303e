package interceptors

import (
	"context"
	"fmt"
	"sync"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/messaging"
	"golang.org/x/time/rate"
)

// RateLimiter decides whether a call may proceed
type RateLimiter interface {
	Allow(ctx context.Context, call *messaging.Call) error
}

// RateLimitingInterceptor rejects calls the limiter refuses with a GenericError
type RateLimitingInterceptor struct {
	limiter RateLimiter
}

// NewRateLimitingInterceptor creates a new rate limiting interceptor
func NewRateLimitingInterceptor(limiter RateLimiter) *RateLimitingInterceptor {
	return &RateLimitingInterceptor{limiter: limiter}
}

// Intercept implements Interceptor
func (i *RateLimitingInterceptor) Intercept(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome {
	if err := i.limiter.Allow(ctx, call); err != nil {
		return messaging.Rejected(contracts.Server(err.Error()))
	}
	return next.HandleCall(ctx, call)
}

// Name implements Interceptor
func (i *RateLimitingInterceptor) Name() string {
	return "RateLimitingInterceptor"
}

// KeyFunc picks the bucket a call is counted against
type KeyFunc func(call *messaging.Call) string

// ByAction counts calls per action
func ByAction(call *messaging.Call) string {
	return call.Action
}

// BySender counts calls per immediate sender
func BySender(call *messaging.Call) string {
	return string(call.Inbound.Sender)
}

// TokenBucketLimiter keeps one token bucket per key
type TokenBucketLimiter struct {
	limit    rate.Limit
	burst    int
	key      KeyFunc
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewTokenBucketLimiter allows perSecond calls per key with the given burst
func NewTokenBucketLimiter(perSecond float64, burst int, key KeyFunc) *TokenBucketLimiter {
	if key == nil {
		key = ByAction
	}
	return &TokenBucketLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		key:      key,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow implements RateLimiter
func (l *TokenBucketLimiter) Allow(ctx context.Context, call *messaging.Call) error {
	key := l.key(call)

	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	if !limiter.Allow() {
		return fmt.Errorf("rate limit exceeded for %q", key)
	}
	return nil
}
