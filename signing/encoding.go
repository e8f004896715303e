package signing

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/glimte/ocpp-envelope/contracts"
)

// Encoding names how key ids and signature values are rendered as strings
type Encoding string

const (
	EncodingBase64 Encoding = "base64"
	EncodingHex    Encoding = "hex"
)

// ParseEncoding parses an encoding name, case-insensitively
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(strings.ToLower(s)); e {
	case EncodingBase64, EncodingHex:
		return e, nil
	default:
		return "", fmt.Errorf("unsupported encoding method %q", s)
	}
}

// Encode renders b
func (e Encoding) Encode(b []byte) (string, error) {
	switch e {
	case EncodingBase64:
		return base64.StdEncoding.EncodeToString(b), nil
	case EncodingHex:
		return hexutil.Encode(b), nil
	default:
		return "", fmt.Errorf("unsupported encoding method %q", e)
	}
}

// Decode parses s. Hex accepts values with or without the 0x prefix.
func (e Encoding) Decode(s string) ([]byte, error) {
	switch e {
	case EncodingBase64:
		return base64.StdEncoding.DecodeString(s)
	case EncodingHex:
		if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
			s = "0x" + s
		}
		return hexutil.Decode(s)
	default:
		return nil, fmt.Errorf("unsupported encoding method %q", e)
	}
}

// CanonicalPayload returns the bytes signatures are computed over: the payload
// without its signatures field, keys sorted, no insignificant whitespace.
func CanonicalPayload(payload []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	delete(obj, contracts.SignaturesField)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return nil, fmt.Errorf("failed to encode canonical payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
