package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/glimte/ocpp-envelope/internal/hashing"
)

// MaxVendorIDLength bounds the vendorId of a customData object
const MaxVendorIDLength = 255

// CustomDataField is the JSON key of the vendor extension object
const CustomDataField = "customData"

// CustomData is the vendor extension slot allowed on structured entities.
// Keys other than vendorId are kept verbatim in Extra.
type CustomData struct {
	VendorID string
	Extra    map[string]json.RawMessage
}

// NewCustomData creates a vendor extension object
func NewCustomData(vendorID string, extra map[string]json.RawMessage) (CustomData, error) {
	if vendorID == "" {
		return CustomData{}, NewParseError("vendorId", "value cannot be empty")
	}
	if n := utf8.RuneCountInString(vendorID); n > MaxVendorIDLength {
		return CustomData{}, NewParseError("vendorId", fmt.Sprintf("string length %d exceeds maximum %d", n, MaxVendorIDLength))
	}

	compacted := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		if k == "vendorId" {
			continue
		}
		c, err := ParseRaw(v)
		if err != nil {
			return CustomData{}, WrapParseError(k, err)
		}
		compacted[k] = c
	}

	return CustomData{VendorID: vendorID, Extra: compacted}, nil
}

// ParseCustomData parses a customData object
func ParseCustomData(raw json.RawMessage, hooks ...CustomParser[CustomData]) (CustomData, error) {
	obj, err := ParseObject(raw)
	if err != nil {
		return CustomData{}, err
	}

	vendorID, err := Mandatory(obj, "vendorId", BoundedString(MaxVendorIDLength))
	if err != nil {
		return CustomData{}, err
	}

	extra := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		if k != "vendorId" {
			extra[k] = v
		}
	}

	cd, err := NewCustomData(vendorID, extra)
	if err != nil {
		return CustomData{}, err
	}

	return ApplyCustomParser(obj, cd, hooks)
}

// ToJSON serializes the object with vendorId first and extra keys sorted
func (c CustomData) ToJSON(hooks ...CustomSerializer[CustomData]) *JSONWriter {
	w := NewJSONWriter().Set("vendorId", c.VendorID)

	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.SetRaw(k, c.Extra[k])
	}

	return ApplyCustomSerializer(c, w, hooks)
}

// MarshalJSON implements json.Marshaler
func (c CustomData) MarshalJSON() ([]byte, error) {
	return c.ToJSON().MarshalJSON()
}

// Equal compares vendor id and every extra field
func (c CustomData) Equal(other CustomData) bool {
	if c.VendorID != other.VendorID || len(c.Extra) != len(other.Extra) {
		return false
	}
	for k, v := range c.Extra {
		ov, ok := other.Extra[k]
		if !ok || !bytes.Equal(v, ov) {
			return false
		}
	}
	return true
}

// HashCode hashes the same fields Equal compares
func (c CustomData) HashCode() uint64 {
	return hashing.Combine(
		hashing.String(c.VendorID),
		hashing.Map(c.Extra, func(v json.RawMessage) uint64 { return hashing.Bytes(v) }),
	)
}
