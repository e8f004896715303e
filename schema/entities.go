package schema

import (
	"github.com/glimte/ocpp-envelope/contracts"
)

// String returns a string property limited to maxLength characters; 0 means unbounded
func String(maxLength int) *PropertyDef {
	p := &PropertyDef{Type: "string"}
	if maxLength > 0 {
		p.MaxLength = &maxLength
	}
	return p
}

// Integer returns an integer property
func Integer() *PropertyDef {
	return &PropertyDef{Type: "integer"}
}

// DateTime returns an RFC 3339 timestamp property
func DateTime() *PropertyDef {
	return &PropertyDef{Type: "string", Format: "date-time"}
}

// Enum returns a string property restricted to values
func Enum[T ~string](values ...T) *PropertyDef {
	enum := make([]interface{}, len(values))
	for i, v := range values {
		enum[i] = string(v)
	}
	return &PropertyDef{Type: "string", Enum: enum}
}

// CustomData describes the vendor extension object. Only vendorId is checked.
func CustomData() *PropertyDef {
	return &PropertyDef{
		Type: "object",
		Properties: map[string]*PropertyDef{
			"vendorId": String(contracts.MaxVendorIDLength),
		},
		Required:             []string{"vendorId"},
		AdditionalProperties: true,
	}
}

// StatusInfo describes the statusInfo object
func StatusInfo() *PropertyDef {
	return &PropertyDef{
		Type: "object",
		Properties: map[string]*PropertyDef{
			"reasonCode":              String(contracts.MaxReasonCodeLength),
			"additionalInfo":          String(contracts.MaxAdditionalInfoLength),
			contracts.CustomDataField: CustomData(),
		},
		Required: []string{"reasonCode"},
	}
}

// Signatures describes the list of attached signatures
func Signatures() *PropertyDef {
	minItems := 1
	return &PropertyDef{
		Type:     "array",
		MinItems: &minItems,
		Items: &PropertyDef{
			Type: "object",
			Properties: map[string]*PropertyDef{
				"keyId":                   String(0),
				"value":                   String(0),
				"signingMethod":           String(0),
				"encodingMethod":          String(0),
				"name":                    String(0),
				"description":             String(0),
				"timestamp":               DateTime(),
				contracts.CustomDataField: CustomData(),
			},
			Required: []string{"keyId", "value", "signingMethod", "encodingMethod"},
		},
	}
}

// Envelope adds the properties every payload may carry to properties
func Envelope(properties map[string]*PropertyDef) map[string]*PropertyDef {
	properties[contracts.CustomDataField] = CustomData()
	properties[contracts.SignaturesField] = Signatures()
	return properties
}
