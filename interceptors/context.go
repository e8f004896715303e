package interceptors

import (
	"context"
	"sync"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	// InterceptorContextKey is the key for storing interceptor context
	InterceptorContextKey contextKey = "ocpp:interceptor:context"
)

// Keys set by the built-in interceptors
const (
	ValidatedKey          = "validated"
	SignaturesVerifiedKey = "signaturesVerified"
)

// InterceptorContext holds values shared between the interceptors and the handler of one call
type InterceptorContext struct {
	values map[string]interface{}
	mu     sync.RWMutex
}

// NewInterceptorContext creates a new interceptor context
func NewInterceptorContext() *InterceptorContext {
	return &InterceptorContext{
		values: make(map[string]interface{}),
	}
}

// Set stores a value in the interceptor context
func (ic *InterceptorContext) Set(key string, value interface{}) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.values[key] = value
}

// Get retrieves a value from the interceptor context
func (ic *InterceptorContext) Get(key string) (interface{}, bool) {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	value, exists := ic.values[key]
	return value, exists
}

// GetString retrieves a string value from the interceptor context
func (ic *InterceptorContext) GetString(key string) (string, bool) {
	value, exists := ic.Get(key)
	if !exists {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}

// GetBool retrieves a bool value from the interceptor context
func (ic *InterceptorContext) GetBool(key string) (bool, bool) {
	value, exists := ic.Get(key)
	if !exists {
		return false, false
	}
	b, ok := value.(bool)
	return b, ok
}

// Delete removes a value from the interceptor context
func (ic *InterceptorContext) Delete(key string) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	delete(ic.values, key)
}

// GetInterceptorContext retrieves the interceptor context from the context
func GetInterceptorContext(ctx context.Context) (*InterceptorContext, bool) {
	ic, ok := ctx.Value(InterceptorContextKey).(*InterceptorContext)
	return ic, ok
}

// WithInterceptorContext adds the interceptor context to the context
func WithInterceptorContext(ctx context.Context, ic *InterceptorContext) context.Context {
	return context.WithValue(ctx, InterceptorContextKey, ic)
}

// EnsureInterceptorContext ensures an interceptor context exists in the context
func EnsureInterceptorContext(ctx context.Context) (context.Context, *InterceptorContext) {
	ic, exists := GetInterceptorContext(ctx)
	if !exists {
		ic = NewInterceptorContext()
		ctx = WithInterceptorContext(ctx, ic)
	}
	return ctx, ic
}

// IsVerified reports whether the call passed both schema validation and signature verification
func IsVerified(ctx context.Context) bool {
	ic, ok := GetInterceptorContext(ctx)
	if !ok {
		return false
	}
	validated, _ := ic.GetBool(ValidatedKey)
	signed, _ := ic.GetBool(SignaturesVerifiedKey)
	return validated && signed
}
