package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/glimte/ocpp-envelope/internal/hashing"
)

// ResultCode classifies the outcome of processing a request
type ResultCode string

const (
	ResultCodeOK                            ResultCode = "OK"
	ResultCodeFormationViolation            ResultCode = "FormationViolation"
	ResultCodeSignatureError                ResultCode = "SignatureError"
	ResultCodeGenericError                  ResultCode = "GenericError"
	ResultCodeInternalError                 ResultCode = "InternalError"
	ResultCodeNotImplemented                ResultCode = "NotImplemented"
	ResultCodeNotSupported                  ResultCode = "NotSupported"
	ResultCodeProtocolError                 ResultCode = "ProtocolError"
	ResultCodeSecurityError                 ResultCode = "SecurityError"
	ResultCodeFormatViolation               ResultCode = "FormatViolation"
	ResultCodePropertyConstraintViolation   ResultCode = "PropertyConstraintViolation"
	ResultCodeOccurrenceConstraintViolation ResultCode = "OccurrenceConstraintViolation"
	ResultCodeTypeConstraintViolation       ResultCode = "TypeConstraintViolation"
	ResultCodeMessageTypeNotSupported       ResultCode = "MessageTypeNotSupported"
	ResultCodeRPCFrameworkError             ResultCode = "RPCFrameworkError"
)

var knownResultCodes = map[ResultCode]struct{}{
	ResultCodeOK:                            {},
	ResultCodeFormationViolation:            {},
	ResultCodeSignatureError:                {},
	ResultCodeGenericError:                  {},
	ResultCodeInternalError:                 {},
	ResultCodeNotImplemented:                {},
	ResultCodeNotSupported:                  {},
	ResultCodeProtocolError:                 {},
	ResultCodeSecurityError:                 {},
	ResultCodeFormatViolation:               {},
	ResultCodePropertyConstraintViolation:   {},
	ResultCodeOccurrenceConstraintViolation: {},
	ResultCodeTypeConstraintViolation:       {},
	ResultCodeMessageTypeNotSupported:       {},
	ResultCodeRPCFrameworkError:             {},
}

// ParseResultCode parses a result code
func ParseResultCode(s string) (ResultCode, error) {
	if _, ok := knownResultCodes[ResultCode(s)]; !ok {
		return "", fmt.Errorf("unknown result code %q", s)
	}
	return ResultCode(s), nil
}

// Result is the outcome attached to every response. Exactly one code applies.
type Result struct {
	Code        ResultCode
	Description Optional[string]
	// Details holds structured error details as compact JSON, nil when absent
	Details json.RawMessage
}

// OK is the result of normal, successful processing
func OK() Result {
	return Result{Code: ResultCodeOK}
}

// FormationViolationResult reports a payload that failed structural or semantic validation
func FormationViolationResult(reason string) Result {
	return Result{Code: ResultCodeFormationViolation, Description: optionalText(reason)}
}

// SignatureErrorResult reports a failed signature verification
func SignatureErrorResult(reason string) Result {
	return Result{Code: ResultCodeSignatureError, Description: optionalText(reason)}
}

// Server reports an opaque server-side failure
func Server(description string) Result {
	return Result{Code: ResultCodeGenericError, Description: optionalText(description)}
}

// Failed is an alias of Server
func Failed(description string) Result {
	return Server(description)
}

// FromException converts an unexpected error into an opaque failure keeping only its message
func FromException(err error) Result {
	if err == nil {
		return Result{Code: ResultCodeInternalError}
	}
	return Result{Code: ResultCodeInternalError, Description: optionalText(err.Error())}
}

// FromErrorResponse carries the error of a request-level transport error.
// An empty or OK code is reported as GenericError.
func FromErrorResponse(code ResultCode, description string, details json.RawMessage) Result {
	if code == "" || code == ResultCodeOK {
		code = ResultCodeGenericError
	}
	r := Result{Code: code, Description: optionalText(description)}
	if len(bytes.TrimSpace(details)) > 0 && !isNull(details) {
		if compact, err := ParseRaw(details); err == nil && !bytes.Equal(compact, []byte("{}")) {
			r.Details = compact
		}
	}
	return r
}

// IsOK reports whether processing succeeded
func (r Result) IsOK() bool {
	return r.Code == ResultCodeOK
}

// ErrorPayload renders the uniform error object, nil for OK
func (r Result) ErrorPayload() *JSONWriter {
	if r.IsOK() {
		return nil
	}
	w := NewJSONWriter().Set("errorCode", r.Code)
	SetOptional(w, "errorDescription", r.Description)
	if len(r.Details) > 0 {
		w.SetRaw("errorDetails", r.Details)
	}
	return w
}

// ParseResult parses an error object produced by ErrorPayload
func ParseResult(raw json.RawMessage) (Result, error) {
	obj, err := ParseObject(raw)
	if err != nil {
		return Result{}, err
	}

	code, err := Mandatory(obj, "errorCode", func(r json.RawMessage) (ResultCode, error) {
		s, err := ParseString(r)
		if err != nil {
			return "", err
		}
		return ParseResultCode(s)
	})
	if err != nil {
		return Result{}, err
	}

	desc, err := OptionalField(obj, "errorDescription", ParseString)
	if err != nil {
		return Result{}, err
	}

	details, err := OptionalField(obj, "errorDetails", func(r json.RawMessage) (json.RawMessage, error) {
		if _, err := ParseObject(r); err != nil {
			return nil, fmt.Errorf("expected a JSON object")
		}
		return ParseRaw(r)
	})
	if err != nil {
		return Result{}, err
	}

	return FromErrorResponse(code, desc.OrElse(""), details.OrElse(nil)), nil
}

// String renders the result for logs
func (r Result) String() string {
	if desc, ok := r.Description.Get(); ok {
		return fmt.Sprintf("%s: %s", r.Code, desc)
	}
	return string(r.Code)
}

// Equal compares code, description and details
func (r Result) Equal(other Result) bool {
	return r.Code == other.Code &&
		OptionalEqual(r.Description, other.Description) &&
		bytes.Equal(r.Details, other.Details)
}

// HashCode hashes the same fields Equal compares
func (r Result) HashCode() uint64 {
	desc, hasDesc := r.Description.Get()
	return hashing.Combine(
		hashing.String(string(r.Code)),
		hashing.Optional(hasDesc, hashing.String(desc)),
		hashing.Bytes(r.Details),
	)
}

func optionalText(s string) Optional[string] {
	if s == "" {
		return None[string]()
	}
	return Some(s)
}
