package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/glimte/ocpp-envelope/internal/hashing"
)

// GenericStatus is the accept/reject outcome shared by many actions
type GenericStatus string

const (
	GenericStatusAccepted GenericStatus = "Accepted"
	GenericStatusRejected GenericStatus = "Rejected"
)

// ParseGenericStatus parses a generic status value
func ParseGenericStatus(raw json.RawMessage) (GenericStatus, error) {
	s, err := ParseString(raw)
	if err != nil {
		return "", err
	}
	switch GenericStatus(s) {
	case GenericStatusAccepted, GenericStatusRejected:
		return GenericStatus(s), nil
	default:
		return "", fmt.Errorf("unknown value %q", s)
	}
}

// ParseEnum returns a parser accepting only the listed string values
func ParseEnum[T ~string](allowed ...T) func(json.RawMessage) (T, error) {
	return func(raw json.RawMessage) (T, error) {
		s, err := ParseString(raw)
		if err != nil {
			return "", err
		}
		for _, a := range allowed {
			if T(s) == a {
				return a, nil
			}
		}
		return "", fmt.Errorf("unknown value %q", s)
	}
}

const (
	// MaxReasonCodeLength bounds StatusInfo.ReasonCode
	MaxReasonCodeLength = 20

	// MaxAdditionalInfoLength bounds StatusInfo.AdditionalInfo
	MaxAdditionalInfoLength = 512
)

// StatusInfo elaborates on a status result
type StatusInfo struct {
	ReasonCode     string
	AdditionalInfo Optional[string]
	CustomData     Optional[CustomData]
}

// NewStatusInfo creates a status elaboration
func NewStatusInfo(reasonCode string, additionalInfo Optional[string]) StatusInfo {
	return StatusInfo{ReasonCode: reasonCode, AdditionalInfo: additionalInfo}
}

// ParseStatusInfo parses a statusInfo object
func ParseStatusInfo(raw json.RawMessage, hooks ...CustomParser[StatusInfo]) (StatusInfo, error) {
	obj, err := ParseObject(raw)
	if err != nil {
		return StatusInfo{}, err
	}

	reasonCode, err := Mandatory(obj, "reasonCode", BoundedString(MaxReasonCodeLength))
	if err != nil {
		return StatusInfo{}, err
	}

	additionalInfo, err := OptionalField(obj, "additionalInfo", BoundedString(MaxAdditionalInfoLength))
	if err != nil {
		return StatusInfo{}, err
	}

	customData, err := OptionalField(obj, CustomDataField, func(r json.RawMessage) (CustomData, error) {
		return ParseCustomData(r)
	})
	if err != nil {
		return StatusInfo{}, err
	}

	info := StatusInfo{
		ReasonCode:     reasonCode,
		AdditionalInfo: additionalInfo,
		CustomData:     customData,
	}
	return ApplyCustomParser(obj, info, hooks)
}

// ToJSON serializes the status info
func (s StatusInfo) ToJSON(hooks ...CustomSerializer[StatusInfo]) *JSONWriter {
	w := NewJSONWriter().Set("reasonCode", s.ReasonCode)
	SetOptional(w, "additionalInfo", s.AdditionalInfo)
	SetOptional(w, CustomDataField, s.CustomData)
	return ApplyCustomSerializer(s, w, hooks)
}

// MarshalJSON implements json.Marshaler
func (s StatusInfo) MarshalJSON() ([]byte, error) {
	return s.ToJSON().MarshalJSON()
}

// Equal compares every field
func (s StatusInfo) Equal(other StatusInfo) bool {
	return s.ReasonCode == other.ReasonCode &&
		OptionalEqual(s.AdditionalInfo, other.AdditionalInfo) &&
		s.CustomData.EqualFunc(other.CustomData, CustomData.Equal)
}

// HashCode hashes the same fields Equal compares
func (s StatusInfo) HashCode() uint64 {
	info, hasInfo := s.AdditionalInfo.Get()
	cd, hasCD := s.CustomData.Get()
	return hashing.Combine(
		hashing.String(s.ReasonCode),
		hashing.Optional(hasInfo, hashing.String(info)),
		hashing.Optional(hasCD, cd.HashCode()),
	)
}
