package contracts

import (
	"encoding/json"
	"time"

	"github.com/glimte/ocpp-envelope/internal/hashing"
)

// SignaturesField is the JSON key of the attached signature list
const SignaturesField = "signatures"

// Signature is one cryptographic signature attached to a message
type Signature struct {
	// KeyID carries the encoded public key of the signer
	KeyID string
	// Value carries the encoded signature bytes
	Value          string
	SigningMethod  string
	EncodingMethod string
	Name           Optional[string]
	Description    Optional[string]
	Timestamp      Optional[time.Time]
	CustomData     Optional[CustomData]
}

// ParseSignature parses one signature object
func ParseSignature(raw json.RawMessage, hooks ...CustomParser[Signature]) (Signature, error) {
	obj, err := ParseObject(raw)
	if err != nil {
		return Signature{}, err
	}

	var sig Signature
	if sig.KeyID, err = Mandatory(obj, "keyId", NonEmptyString); err != nil {
		return Signature{}, err
	}
	if sig.Value, err = Mandatory(obj, "value", NonEmptyString); err != nil {
		return Signature{}, err
	}
	if sig.SigningMethod, err = Mandatory(obj, "signingMethod", NonEmptyString); err != nil {
		return Signature{}, err
	}
	if sig.EncodingMethod, err = Mandatory(obj, "encodingMethod", NonEmptyString); err != nil {
		return Signature{}, err
	}
	if sig.Name, err = OptionalField(obj, "name", ParseString); err != nil {
		return Signature{}, err
	}
	if sig.Description, err = OptionalField(obj, "description", ParseString); err != nil {
		return Signature{}, err
	}
	if sig.Timestamp, err = OptionalField(obj, "timestamp", ParseTime); err != nil {
		return Signature{}, err
	}
	if sig.CustomData, err = OptionalField(obj, CustomDataField, func(r json.RawMessage) (CustomData, error) {
		return ParseCustomData(r)
	}); err != nil {
		return Signature{}, err
	}

	return ApplyCustomParser(obj, sig, hooks)
}

// ParseSignatures parses a signature array, keeping order and dropping exact duplicates
func ParseSignatures(raw json.RawMessage, hooks ...CustomParser[Signature]) ([]Signature, error) {
	parsed, err := ParseArray(func(r json.RawMessage) (Signature, error) {
		return ParseSignature(r, hooks...)
	})(raw)
	if err != nil {
		return nil, err
	}
	return UniqueSignatures(parsed), nil
}

// UniqueSignatures removes exact duplicates, keeping the first occurrence
func UniqueSignatures(sigs []Signature) []Signature {
	out := make([]Signature, 0, len(sigs))
	for _, s := range sigs {
		dup := false
		for _, seen := range out {
			if seen.Equal(s) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}

// ToJSON serializes the signature
func (s Signature) ToJSON(hooks ...CustomSerializer[Signature]) *JSONWriter {
	w := NewJSONWriter().
		Set("keyId", s.KeyID).
		Set("value", s.Value).
		Set("signingMethod", s.SigningMethod).
		Set("encodingMethod", s.EncodingMethod)
	SetOptional(w, "name", s.Name)
	SetOptional(w, "description", s.Description)
	if ts, ok := s.Timestamp.Get(); ok {
		w.Set("timestamp", FormatTime(ts))
	}
	SetOptional(w, CustomDataField, s.CustomData)
	return ApplyCustomSerializer(s, w, hooks)
}

// MarshalJSON implements json.Marshaler
func (s Signature) MarshalJSON() ([]byte, error) {
	return s.ToJSON().MarshalJSON()
}

// Equal compares every field
func (s Signature) Equal(other Signature) bool {
	return s.KeyID == other.KeyID &&
		s.Value == other.Value &&
		s.SigningMethod == other.SigningMethod &&
		s.EncodingMethod == other.EncodingMethod &&
		OptionalEqual(s.Name, other.Name) &&
		OptionalEqual(s.Description, other.Description) &&
		s.Timestamp.EqualFunc(other.Timestamp, time.Time.Equal) &&
		s.CustomData.EqualFunc(other.CustomData, CustomData.Equal)
}

// HashCode hashes the same fields Equal compares
func (s Signature) HashCode() uint64 {
	name, hasName := s.Name.Get()
	desc, hasDesc := s.Description.Get()
	ts, hasTS := s.Timestamp.Get()
	cd, hasCD := s.CustomData.Get()
	return hashing.Combine(
		hashing.String(s.KeyID),
		hashing.String(s.Value),
		hashing.String(s.SigningMethod),
		hashing.String(s.EncodingMethod),
		hashing.Optional(hasName, hashing.String(name)),
		hashing.Optional(hasDesc, hashing.String(desc)),
		hashing.Optional(hasTS, hashing.Int(ts.UnixNano())),
		hashing.Optional(hasCD, cd.HashCode()),
	)
}

// SignaturesEqual compares two signature lists element by element
func SignaturesEqual(a, b []Signature) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// HashSignatures hashes an ordered signature list
func HashSignatures(sigs []Signature) uint64 {
	fields := make([]uint64, len(sigs))
	for i, s := range sigs {
		fields[i] = s.HashCode()
	}
	return hashing.Combine(fields...)
}

// WriteSignatures stores the list under "signatures", omitting it when empty
func WriteSignatures(w *JSONWriter, sigs []Signature, hooks ...CustomSerializer[Signature]) *JSONWriter {
	if len(sigs) == 0 {
		return w
	}
	items := make([]*JSONWriter, len(sigs))
	for i, s := range sigs {
		items[i] = s.ToJSON(hooks...)
	}
	return w.Set(SignaturesField, items)
}
