package config

import (
	"log/slog"

	"github.com/glimte/ocpp-envelope/interceptors"
	"github.com/glimte/ocpp-envelope/messaging"
	"github.com/glimte/ocpp-envelope/schema"
	"github.com/glimte/ocpp-envelope/signing"
)

// VerifierOptions maps the signing policy onto signing.NewVerifier
func (c Config) VerifierOptions(logger *slog.Logger) []signing.VerifierOption {
	opts := []signing.VerifierOption{signing.WithRequiredSignatures(c.RequireSignatures)}
	if len(c.TrustedKeys) > 0 {
		opts = append(opts, signing.WithTrustedKeys(c.TrustedKeys...))
	}
	if logger != nil {
		opts = append(opts, signing.WithVerifierLogger(logger))
	}
	return opts
}

// ValidatorOptions maps strict_validation onto schema.NewMessageValidator
func (c Config) ValidatorOptions() []schema.ValidatorOption {
	return []schema.ValidatorOption{
		schema.WithStrictMode(c.StrictValidation),
		schema.WithRequireSchema(c.StrictValidation),
	}
}

// TrackerOptions sets how long the request tracker keeps answered requests
func (c Config) TrackerOptions(logger *slog.Logger) []messaging.TrackerOption {
	opts := []messaging.TrackerOption{messaging.WithRetention(c.TrackerRetention)}
	if logger != nil {
		opts = append(opts, messaging.WithTrackerLogger(logger))
	}
	return opts
}

// RequestOptions applies the default timeout to outgoing requests
func (c Config) RequestOptions() []messaging.RequestOption {
	return []messaging.RequestOption{messaging.WithRequestTimeout(c.DefaultRequestTimeout)}
}

// RateLimiter returns nil when limiting is disabled
func (c Config) RateLimiter() interceptors.RateLimiter {
	if c.RateLimit.PerSecond <= 0 {
		return nil
	}
	key := interceptors.ByAction
	if c.RateLimit.Key == "sender" {
		key = interceptors.BySender
	}
	return interceptors.NewTokenBucketLimiter(c.RateLimit.PerSecond, c.RateLimit.Burst, key)
}

// InterceptorChain builds the inbound chain: recovery, logging, rate limit,
// validation, then signatures, bounded by the default timeout.
func (c Config) InterceptorChain(logger *slog.Logger, validator interceptors.PayloadValidator) *interceptors.InterceptorChain {
	b := interceptors.NewDefaultInterceptorChainBuilder(logger).
		WithRecovery().
		WithLogging()
	if limiter := c.RateLimiter(); limiter != nil {
		b = b.WithRateLimit(limiter)
	}
	if validator != nil {
		b = b.WithValidation(validator)
	}
	return b.
		WithSignatures(signing.NewVerifier(c.VerifierOptions(logger)...)).
		WithTimeout(c.DefaultRequestTimeout).
		Build()
}
