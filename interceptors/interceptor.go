package interceptors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/messaging"
	"github.com/glimte/ocpp-envelope/schema"
)

// Interceptor processes a call before it reaches the action handler
type Interceptor interface {
	// Intercept processes a call and hands it to next, or answers it itself
	Intercept(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome

	// Name returns the interceptor name for logging and debugging
	Name() string
}

// InterceptorFunc is a function adapter for Interceptor
type InterceptorFunc struct {
	name string
	fn   func(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome
}

// NewInterceptorFunc creates a new function-based interceptor
func NewInterceptorFunc(name string, fn func(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome) *InterceptorFunc {
	return &InterceptorFunc{name: name, fn: fn}
}

// Intercept implements Interceptor
func (i *InterceptorFunc) Intercept(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome {
	return i.fn(ctx, call, next)
}

// Name implements Interceptor
func (i *InterceptorFunc) Name() string {
	return i.name
}

// InterceptorChain manages a chain of interceptors
type InterceptorChain struct {
	interceptors []Interceptor
	logger       *slog.Logger
}

// NewInterceptorChain creates a new interceptor chain
func NewInterceptorChain(logger *slog.Logger) *InterceptorChain {
	if logger == nil {
		logger = slog.Default()
	}

	return &InterceptorChain{
		interceptors: make([]Interceptor, 0),
		logger:       logger,
	}
}

// Add adds an interceptor to the chain
func (c *InterceptorChain) Add(interceptor Interceptor) *InterceptorChain {
	c.interceptors = append(c.interceptors, interceptor)
	return c
}

// Names lists the interceptors in execution order
func (c *InterceptorChain) Names() []string {
	names := make([]string, len(c.interceptors))
	for i, interceptor := range c.interceptors {
		names[i] = interceptor.Name()
	}
	return names
}

// Execute runs the call through every interceptor, then finalHandler
func (c *InterceptorChain) Execute(ctx context.Context, call *messaging.Call, finalHandler messaging.CallHandler) messaging.Outcome {
	return c.Wrap(finalHandler).HandleCall(ctx, call)
}

// Wrap returns finalHandler behind the chain
func (c *InterceptorChain) Wrap(finalHandler messaging.CallHandler) messaging.CallHandler {
	handler := finalHandler
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		interceptor := c.interceptors[i]
		currentHandler := handler
		handler = messaging.CallHandlerFunc(func(ctx context.Context, call *messaging.Call) messaging.Outcome {
			return interceptor.Intercept(ctx, call, currentHandler)
		})
	}
	return handler
}

// Middleware installs the chain in a dispatcher:
//
//	d := messaging.NewDispatcher(messaging.WithMiddleware(chain.Middleware()))
func (c *InterceptorChain) Middleware() messaging.MiddlewareFunc {
	return func(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome {
		return c.Execute(ctx, call, next)
	}
}

// Built-in interceptors

// RecoveryInterceptor turns a panic below it into an InternalError outcome
type RecoveryInterceptor struct {
	logger *slog.Logger
}

// NewRecoveryInterceptor creates a recovery interceptor logging to logger
func NewRecoveryInterceptor(logger *slog.Logger) *RecoveryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryInterceptor{logger: logger}
}

// Intercept implements Interceptor
func (i *RecoveryInterceptor) Intercept(ctx context.Context, call *messaging.Call, next messaging.CallHandler) (outcome messaging.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("call handler panicked",
				"action", call.Action,
				"requestId", call.Inbound.RequestID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			outcome = messaging.Rejected(contracts.FromException(fmt.Errorf("panic: %v", r)))
		}
	}()
	return next.HandleCall(ctx, call)
}

func (i *RecoveryInterceptor) Name() string {
	return "RecoveryInterceptor"
}

// LoggingInterceptor logs call processing
type LoggingInterceptor struct {
	logger *slog.Logger
}

// NewLoggingInterceptor creates a new logging interceptor
func NewLoggingInterceptor(logger *slog.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return &LoggingInterceptor{logger: logger}
}

// Intercept implements Interceptor
func (i *LoggingInterceptor) Intercept(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome {
	start := time.Now()

	i.logger.Debug("processing call",
		"action", call.Action,
		"requestId", call.Inbound.RequestID,
		"sender", call.Inbound.Sender,
	)

	outcome := next.HandleCall(ctx, call)
	duration := time.Since(start)

	if !outcome.Result.IsOK() {
		i.logger.Warn("call rejected",
			"action", call.Action,
			"requestId", call.Inbound.RequestID,
			"duration", duration,
			"result", outcome.Result.String(),
		)
	} else {
		i.logger.Info("call processed",
			"action", call.Action,
			"requestId", call.Inbound.RequestID,
			"duration", duration,
		)
	}

	return outcome
}

// Name implements Interceptor
func (i *LoggingInterceptor) Name() string {
	return "LoggingInterceptor"
}

// MetricsInterceptor collects metrics about call processing
type MetricsInterceptor struct {
	collector MetricsCollector
}

// MetricsCollector defines the interface for collecting metrics
type MetricsCollector interface {
	IncrementCallCount(action string)
	RecordProcessingTime(action string, duration time.Duration)
	IncrementErrorCount(action string, code contracts.ResultCode)
}

// NewMetricsInterceptor creates a new metrics interceptor
func NewMetricsInterceptor(collector MetricsCollector) *MetricsInterceptor {
	return &MetricsInterceptor{collector: collector}
}

// Intercept implements Interceptor
func (i *MetricsInterceptor) Intercept(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome {
	start := time.Now()

	i.collector.IncrementCallCount(call.Action)

	outcome := next.HandleCall(ctx, call)

	i.collector.RecordProcessingTime(call.Action, time.Since(start))

	if !outcome.Result.IsOK() {
		i.collector.IncrementErrorCount(call.Action, outcome.Result.Code)
	}

	return outcome
}

// Name implements Interceptor
func (i *MetricsInterceptor) Name() string {
	return "MetricsInterceptor"
}

// PayloadValidator checks a raw payload against the schema of its action
type PayloadValidator interface {
	Validate(ctx context.Context, action string, payload []byte) *schema.ValidationResult
}

// ValidationInterceptor rejects payloads that fail schema validation with a FormationViolation
type ValidationInterceptor struct {
	validator PayloadValidator
}

// NewValidationInterceptor creates a new validation interceptor
func NewValidationInterceptor(validator PayloadValidator) *ValidationInterceptor {
	return &ValidationInterceptor{validator: validator}
}

// Intercept implements Interceptor
func (i *ValidationInterceptor) Intercept(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome {
	result := i.validator.Validate(ctx, call.Action, call.Payload)
	if !result.Valid {
		return messaging.Rejected(result.Result())
	}

	ctx, ic := EnsureInterceptorContext(ctx)
	ic.Set(ValidatedKey, true)
	return next.HandleCall(ctx, call)
}

// Name implements Interceptor
func (i *ValidationInterceptor) Name() string {
	return "ValidationInterceptor"
}

// SignatureVerifier checks the signatures embedded in a payload
type SignatureVerifier interface {
	Verify(payload json.RawMessage) contracts.Result
}

// SignatureInterceptor rejects payloads whose signatures do not verify.
// Place it after ValidationInterceptor: signatures of a malformed payload are never checked.
type SignatureInterceptor struct {
	verifier SignatureVerifier
}

// NewSignatureInterceptor creates a new signature interceptor
func NewSignatureInterceptor(verifier SignatureVerifier) *SignatureInterceptor {
	return &SignatureInterceptor{verifier: verifier}
}

// Intercept implements Interceptor
func (i *SignatureInterceptor) Intercept(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome {
	if result := i.verifier.Verify(call.Payload); !result.IsOK() {
		return messaging.Rejected(result)
	}

	ctx, ic := EnsureInterceptorContext(ctx)
	ic.Set(SignaturesVerifiedKey, true)
	return next.HandleCall(ctx, call)
}

// Name implements Interceptor
func (i *SignatureInterceptor) Name() string {
	return "SignatureInterceptor"
}

// TimeoutInterceptor bounds call processing. A call carrying its own timeout
// uses that instead of the default.
type TimeoutInterceptor struct {
	timeout time.Duration
}

// NewTimeoutInterceptor creates a new timeout interceptor
func NewTimeoutInterceptor(timeout time.Duration) *TimeoutInterceptor {
	return &TimeoutInterceptor{timeout: timeout}
}

// Intercept implements Interceptor
func (i *TimeoutInterceptor) Intercept(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome {
	timeout := i.timeout
	if call.Inbound.Timeout > 0 {
		timeout = call.Inbound.Timeout
	}
	if timeout <= 0 {
		return next.HandleCall(ctx, call)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan messaging.Outcome, 1)
	go func() {
		// the caller's recovery cannot see this goroutine
		defer func() {
			if r := recover(); r != nil {
				done <- messaging.Rejected(contracts.FromException(fmt.Errorf("panic: %v", r)))
			}
		}()
		done <- next.HandleCall(timeoutCtx, call)
	}()

	select {
	case outcome := <-done:
		return outcome
	case <-timeoutCtx.Done():
		return messaging.Rejected(contracts.FromException(
			fmt.Errorf("call %s timed out after %v: %w", call.Inbound.RequestID, timeout, timeoutCtx.Err()),
		))
	}
}

// Name implements Interceptor
func (i *TimeoutInterceptor) Name() string {
	return "TimeoutInterceptor"
}

// Default interceptor chain builder

// DefaultInterceptorChainBuilder builds a common interceptor chain
type DefaultInterceptorChainBuilder struct {
	chain  *InterceptorChain
	logger *slog.Logger
}

// NewDefaultInterceptorChainBuilder creates a new builder
func NewDefaultInterceptorChainBuilder(logger *slog.Logger) *DefaultInterceptorChainBuilder {
	if logger == nil {
		logger = slog.Default()
	}

	return &DefaultInterceptorChainBuilder{
		chain:  NewInterceptorChain(logger),
		logger: logger,
	}
}

// WithRecovery adds the panic recovery interceptor
func (b *DefaultInterceptorChainBuilder) WithRecovery() *DefaultInterceptorChainBuilder {
	b.chain.Add(NewRecoveryInterceptor(b.logger))
	return b
}

// WithLogging adds logging interceptor
func (b *DefaultInterceptorChainBuilder) WithLogging() *DefaultInterceptorChainBuilder {
	b.chain.Add(NewLoggingInterceptor(b.logger))
	return b
}

// WithMetrics adds metrics interceptor
func (b *DefaultInterceptorChainBuilder) WithMetrics(collector MetricsCollector) *DefaultInterceptorChainBuilder {
	b.chain.Add(NewMetricsInterceptor(collector))
	return b
}

// WithValidation adds validation interceptor
func (b *DefaultInterceptorChainBuilder) WithValidation(validator PayloadValidator) *DefaultInterceptorChainBuilder {
	b.chain.Add(NewValidationInterceptor(validator))
	return b
}

// WithSignatures adds signature interceptor
func (b *DefaultInterceptorChainBuilder) WithSignatures(verifier SignatureVerifier) *DefaultInterceptorChainBuilder {
	b.chain.Add(NewSignatureInterceptor(verifier))
	return b
}

// WithRateLimit adds rate limiting interceptor
func (b *DefaultInterceptorChainBuilder) WithRateLimit(limiter RateLimiter) *DefaultInterceptorChainBuilder {
	b.chain.Add(NewRateLimitingInterceptor(limiter))
	return b
}

// WithTimeout adds timeout interceptor
func (b *DefaultInterceptorChainBuilder) WithTimeout(timeout time.Duration) *DefaultInterceptorChainBuilder {
	b.chain.Add(NewTimeoutInterceptor(timeout))
	return b
}

// WithCustom adds a custom interceptor
func (b *DefaultInterceptorChainBuilder) WithCustom(interceptor Interceptor) *DefaultInterceptorChainBuilder {
	b.chain.Add(interceptor)
	return b
}

// Build returns the built interceptor chain
func (b *DefaultInterceptorChainBuilder) Build() *InterceptorChain {
	return b.chain
}
