// Package config loads the envelope defaults and signing policy from TOML.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/glimte/ocpp-envelope/messaging"
	"github.com/glimte/ocpp-envelope/signing"
	gotoml "github.com/pelletier/go-toml/v2"
)

// Config holds the settings shared by the envelope packages and envelopectl
type Config struct {
	DefaultRequestTimeout time.Duration
	EmitContext           bool
	RequireSignatures     bool
	TrustedKeys           []string
	SignatureEncoding     signing.Encoding
	SigningMethod         signing.Method
	LogLevel              slog.Level
	StrictValidation      bool
	ProtocolVersion       string
	TrackerRetention      time.Duration
	RateLimit             RateLimitConfig
}

// RateLimitConfig sizes the inbound token buckets. A zero rate disables limiting.
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
	// Key is "action" or "sender"
	Key string
}

type fileConfig struct {
	DefaultRequestTimeout string   `toml:"default_request_timeout"`
	EmitContext           bool     `toml:"emit_context"`
	RequireSignatures     bool     `toml:"require_signatures"`
	TrustedKeys           []string `toml:"trusted_keys"`
	SignatureEncoding     string   `toml:"signature_encoding"`
	SigningMethod         string   `toml:"signing_method"`
	LogLevel              string   `toml:"log_level"`
	StrictValidation      bool     `toml:"strict_validation"`
	ProtocolVersion       string   `toml:"protocol_version"`
	TrackerRetention      string   `toml:"tracker_retention"`
	RateLimit             struct {
		PerSecond float64 `toml:"per_second"`
		Burst     int     `toml:"burst"`
		Key       string  `toml:"key"`
	} `toml:"rate_limit"`
}

// Default returns the settings used when no file overrides them
func Default() Config {
	return Config{
		DefaultRequestTimeout: messaging.DefaultRequestTimeout,
		SignatureEncoding:     signing.EncodingBase64,
		SigningMethod:         signing.MethodEd25519,
		LogLevel:              slog.LevelInfo,
		StrictValidation:      true,
		ProtocolVersion:       "2.1.0",
		TrackerRetention:      5 * time.Minute,
		RateLimit:             RateLimitConfig{Key: "action"},
	}
}

// Load reads path over Default. Keys absent from the file keep their defaults.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return apply(Default(), raw, meta)
}

// Decode reads TOML from r over Default
func Decode(r io.Reader) (Config, error) {
	var raw fileConfig
	meta, err := toml.NewDecoder(r).Decode(&raw)
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return apply(Default(), raw, meta)
}

func apply(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	if meta.IsDefined("default_request_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DefaultRequestTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse default_request_timeout: %w", err)
		}
		cfg.DefaultRequestTimeout = d
	}

	if meta.IsDefined("emit_context") {
		cfg.EmitContext = raw.EmitContext
	}

	if meta.IsDefined("require_signatures") {
		cfg.RequireSignatures = raw.RequireSignatures
	}

	if meta.IsDefined("trusted_keys") {
		cfg.TrustedKeys = normalizeKeys(raw.TrustedKeys)
	}

	if meta.IsDefined("signature_encoding") {
		enc, err := signing.ParseEncoding(strings.TrimSpace(raw.SignatureEncoding))
		if err != nil {
			return Config{}, fmt.Errorf("parse signature_encoding: %w", err)
		}
		cfg.SignatureEncoding = enc
	}

	if meta.IsDefined("signing_method") {
		method, err := signing.ParseMethod(strings.TrimSpace(raw.SigningMethod))
		if err != nil {
			return Config{}, fmt.Errorf("parse signing_method: %w", err)
		}
		cfg.SigningMethod = method
	}

	if meta.IsDefined("log_level") {
		var level slog.Level
		if err := level.UnmarshalText([]byte(strings.TrimSpace(raw.LogLevel))); err != nil {
			return Config{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = level
	}

	if meta.IsDefined("strict_validation") {
		cfg.StrictValidation = raw.StrictValidation
	}

	if meta.IsDefined("protocol_version") {
		cfg.ProtocolVersion = strings.TrimSpace(raw.ProtocolVersion)
	}

	if meta.IsDefined("tracker_retention") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.TrackerRetention))
		if err != nil {
			return Config{}, fmt.Errorf("parse tracker_retention: %w", err)
		}
		cfg.TrackerRetention = d
	}

	if meta.IsDefined("rate_limit", "per_second") {
		cfg.RateLimit.PerSecond = raw.RateLimit.PerSecond
	}
	if meta.IsDefined("rate_limit", "burst") {
		cfg.RateLimit.Burst = raw.RateLimit.Burst
	}
	if meta.IsDefined("rate_limit", "key") {
		cfg.RateLimit.Key = strings.TrimSpace(raw.RateLimit.Key)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Validate checks the settings are usable together
func (c Config) Validate() error {
	if c.DefaultRequestTimeout <= 0 {
		return fmt.Errorf("default_request_timeout must be positive, got %v", c.DefaultRequestTimeout)
	}
	if _, err := signing.ParseEncoding(string(c.SignatureEncoding)); err != nil {
		return fmt.Errorf("signature_encoding: %w", err)
	}
	if _, err := signing.ParseMethod(string(c.SigningMethod)); err != nil {
		return fmt.Errorf("signing_method: %w", err)
	}
	if _, err := semver.NewVersion(c.ProtocolVersion); err != nil {
		return fmt.Errorf("protocol_version %q: %w", c.ProtocolVersion, err)
	}
	if c.TrackerRetention < 0 {
		return fmt.Errorf("tracker_retention cannot be negative")
	}
	if c.RateLimit.PerSecond < 0 {
		return fmt.Errorf("rate_limit.per_second cannot be negative")
	}
	if c.RateLimit.PerSecond > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit.burst must be at least 1 when limiting")
	}
	switch c.RateLimit.Key {
	case "action", "sender":
	default:
		return fmt.Errorf("rate_limit.key must be action or sender, got %q", c.RateLimit.Key)
	}
	return nil
}

// Write renders c as TOML that Load reads back unchanged
func (c Config) Write(w io.Writer) error {
	var raw fileConfig
	raw.DefaultRequestTimeout = c.DefaultRequestTimeout.String()
	raw.EmitContext = c.EmitContext
	raw.RequireSignatures = c.RequireSignatures
	raw.TrustedKeys = c.TrustedKeys
	if raw.TrustedKeys == nil {
		raw.TrustedKeys = []string{}
	}
	raw.SignatureEncoding = string(c.SignatureEncoding)
	raw.SigningMethod = string(c.SigningMethod)
	raw.LogLevel = c.LogLevel.String()
	raw.StrictValidation = c.StrictValidation
	raw.ProtocolVersion = c.ProtocolVersion
	raw.TrackerRetention = c.TrackerRetention.String()
	raw.RateLimit.PerSecond = c.RateLimit.PerSecond
	raw.RateLimit.Burst = c.RateLimit.Burst
	raw.RateLimit.Key = c.RateLimit.Key

	data, err := gotoml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Logger returns a text logger writing to w at the configured level
func (c Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}
