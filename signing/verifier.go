package signing

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/ocpp-envelope/contracts"
)

// ErrInvalidSignature is returned when a signature does not match the payload
var ErrInvalidSignature = errors.New("invalid signature")

// SignOption configures the signature objects Sign produces
type SignOption func(*signConfig)

type signConfig struct {
	name        string
	description string
	now         func() time.Time
}

// WithSignerName sets the optional name of the signature
func WithSignerName(name string) SignOption {
	return func(c *signConfig) {
		c.name = name
	}
}

// WithSignatureDescription sets the optional description of the signature
func WithSignatureDescription(description string) SignOption {
	return func(c *signConfig) {
		c.description = description
	}
}

// WithSigningTime stamps signatures with the given clock
func WithSigningTime(now func() time.Time) SignOption {
	return func(c *signConfig) {
		c.now = now
	}
}

// Sign computes one signature per signer over the canonical form of payload
func Sign(payload []byte, encoding Encoding, signers []Signer, opts ...SignOption) ([]contracts.Signature, error) {
	cfg := &signConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	canonical, err := CanonicalPayload(payload)
	if err != nil {
		return nil, err
	}

	sigs := make([]contracts.Signature, 0, len(signers))
	for _, signer := range signers {
		raw, err := signer.Sign(canonical)
		if err != nil {
			return nil, fmt.Errorf("%s signer failed: %w", signer.Method(), err)
		}
		keyID, err := encoding.Encode(signer.PublicKey())
		if err != nil {
			return nil, err
		}
		value, err := encoding.Encode(raw)
		if err != nil {
			return nil, err
		}

		sig := contracts.Signature{
			KeyID:          keyID,
			Value:          value,
			SigningMethod:  string(signer.Method()),
			EncodingMethod: string(encoding),
		}
		if cfg.name != "" {
			sig.Name = contracts.Some(cfg.name)
		}
		if cfg.description != "" {
			sig.Description = contracts.Some(cfg.description)
		}
		if cfg.now != nil {
			sig.Timestamp = contracts.Some(cfg.now().UTC())
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// Attach adds sigs to the payload's existing signatures. Keys of the result are sorted.
func Attach(payload []byte, sigs []contracts.Signature) ([]byte, error) {
	obj, err := contracts.DecodeJSONObject(payload)
	if err != nil {
		return nil, err
	}

	var existing []contracts.Signature
	if raw, ok := obj[contracts.SignaturesField]; ok && obj.Has(contracts.SignaturesField) {
		if existing, err = contracts.ParseSignatures(raw); err != nil {
			return nil, contracts.WrapParseError(contracts.SignaturesField, err)
		}
	}
	all := contracts.UniqueSignatures(append(existing, sigs...))

	w := contracts.NewJSONWriter()
	for _, key := range obj.Keys() {
		if key != contracts.SignaturesField {
			w.SetRaw(key, obj[key])
		}
	}
	return contracts.WriteSignatures(w, all).Bytes()
}

// VerifySignature checks one signature against a canonical payload
func VerifySignature(canonical []byte, sig contracts.Signature) error {
	method, err := ParseMethod(sig.SigningMethod)
	if err != nil {
		return err
	}
	encoding, err := ParseEncoding(sig.EncodingMethod)
	if err != nil {
		return err
	}
	publicKey, err := encoding.Decode(sig.KeyID)
	if err != nil {
		return fmt.Errorf("failed to decode key id: %w", err)
	}
	value, err := encoding.Decode(sig.Value)
	if err != nil {
		return fmt.Errorf("failed to decode signature value: %w", err)
	}

	ok, err := verify(method, publicKey, canonical, value)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}

// Verifier checks the signatures embedded in payloads
type Verifier struct {
	required bool
	trusted  map[string]struct{}
	logger   *slog.Logger
}

// VerifierOption configures the Verifier
type VerifierOption func(*Verifier)

// WithRequiredSignatures fails payloads that carry no signature
func WithRequiredSignatures(required bool) VerifierOption {
	return func(v *Verifier) {
		v.required = required
	}
}

// WithTrustedKeys only accepts signatures whose key id is listed
func WithTrustedKeys(keyIDs ...string) VerifierOption {
	return func(v *Verifier) {
		if v.trusted == nil {
			v.trusted = make(map[string]struct{}, len(keyIDs))
		}
		for _, k := range keyIDs {
			v.trusted[k] = struct{}{}
		}
	}
}

// WithVerifierLogger sets the logger
func WithVerifierLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// NewVerifier creates a verifier. By default unsigned payloads pass.
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{logger: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks every signature of payload. All of them must be valid.
func (v *Verifier) Verify(payload json.RawMessage) contracts.Result {
	obj, err := contracts.DecodeJSONObject(payload)
	if err != nil {
		return contracts.FormationViolationResult(err.Error())
	}

	sigs, err := contracts.OptionalField(obj, contracts.SignaturesField, func(raw json.RawMessage) ([]contracts.Signature, error) {
		return contracts.ParseSignatures(raw)
	})
	if err != nil {
		return contracts.FormationViolationResult(err.Error())
	}

	list, _ := sigs.Get()
	if len(list) == 0 {
		if v.required {
			return contracts.SignatureErrorResult("payload is not signed")
		}
		return contracts.OK()
	}

	canonical, err := CanonicalPayload(payload)
	if err != nil {
		return contracts.FormationViolationResult(err.Error())
	}

	for i, sig := range list {
		if v.trusted != nil {
			if _, ok := v.trusted[sig.KeyID]; !ok {
				v.logger.Warn("untrusted signing key", "index", i, "keyId", sig.KeyID)
				return contracts.SignatureErrorResult(fmt.Sprintf("signatures[%d]: untrusted key", i))
			}
		}
		if err := VerifySignature(canonical, sig); err != nil {
			v.logger.Warn("signature verification failed", "index", i, "method", sig.SigningMethod, "error", err)
			return contracts.SignatureErrorResult(fmt.Sprintf("signatures[%d]: %v", i, err))
		}
	}
	return contracts.OK()
}
