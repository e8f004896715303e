// Package interceptors wraps the dispatch of incoming OCPP calls with
// cross-cutting concerns.
//
// An Interceptor sees the raw call before any action handler parses it and can
// either pass it on or answer it with a rejected outcome. Built-in interceptors:
//   - RecoveryInterceptor: turns handler panics into InternalError results
//   - LoggingInterceptor: logs each call with its duration and result
//   - MetricsInterceptor: reports per-action counts, timings and failures
//   - ValidationInterceptor: schema validation, FormationViolation on failure
//   - SignatureInterceptor: signature verification, SignatureError on failure
//   - RateLimitingInterceptor: token buckets per action or per sender
//   - TimeoutInterceptor: bounds processing by the call's timeout
//   - FilteringInterceptor and ConditionalInterceptor: per action or sender rules
//
// Validation must come before signature verification:
//
//	chain := interceptors.NewDefaultInterceptorChainBuilder(logger).
//		WithRecovery().
//		WithLogging().
//		WithValidation(validator).
//		WithSignatures(signing.NewVerifier()).
//		Build()
//
//	dispatcher := messaging.NewDispatcher(messaging.WithMiddleware(chain.Middleware()))
//
// Interceptors run in the order they are added, the action handler last.
package interceptors
