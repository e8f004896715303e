package messaging

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/glimte/ocpp-envelope/contracts"
)

// MessageType is the first element of an OCPP-J RPC frame
type MessageType int

const (
	MessageTypeCall       MessageType = 2
	MessageTypeCallResult MessageType = 3
	MessageTypeCallError  MessageType = 4
)

// String returns the frame type name
func (t MessageType) String() string {
	switch t {
	case MessageTypeCall:
		return "CALL"
	case MessageTypeCallResult:
		return "CALLRESULT"
	case MessageTypeCallError:
		return "CALLERROR"
	default:
		return fmt.Sprintf("MessageType(%d)", int(t))
	}
}

// Frame is one OCPP-J RPC frame:
//
//	[2, id, action, payload]
//	[3, id, payload]
//	[4, id, errorCode, errorDescription, errorDetails]
type Frame struct {
	Type             MessageType
	ID               contracts.RequestID
	Action           string
	Payload          json.RawMessage
	ErrorCode        contracts.ResultCode
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

// EncodeCall frames a request payload
func EncodeCall(id contracts.RequestID, action string, payload *contracts.JSONWriter) ([]byte, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("request id cannot be empty")
	}
	if action == "" {
		return nil, fmt.Errorf("action cannot be empty")
	}
	body, err := payload.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return json.Marshal([]any{MessageTypeCall, id, action, json.RawMessage(body)})
}

// EncodeCallResult frames a successful response payload
func EncodeCallResult(id contracts.RequestID, payload *contracts.JSONWriter) ([]byte, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("request id cannot be empty")
	}
	body, err := payload.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return json.Marshal([]any{MessageTypeCallResult, id, json.RawMessage(body)})
}

// EncodeCallError frames a non-OK result
func EncodeCallError(id contracts.RequestID, result contracts.Result) ([]byte, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("request id cannot be empty")
	}
	if result.IsOK() {
		return nil, fmt.Errorf("cannot encode an OK result as CALLERROR")
	}
	details := result.Details
	if len(details) == 0 {
		details = json.RawMessage("{}")
	}
	return json.Marshal([]any{MessageTypeCallError, id, result.Code, result.Description.OrElse(""), details})
}

// DecodeFrame parses an OCPP-J RPC frame
func DecodeFrame(data []byte) (*Frame, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &items); err != nil {
		return nil, contracts.NewParseError("", "expected a JSON array frame")
	}
	if len(items) < 3 {
		return nil, contracts.NewParseError("", fmt.Sprintf("frame has %d elements, expected at least 3", len(items)))
	}

	msgType, err := contracts.ParseInt(items[0])
	if err != nil {
		return nil, contracts.WrapParseError("messageTypeId", err)
	}

	rawID, err := contracts.ParseString(items[1])
	if err != nil {
		return nil, contracts.WrapParseError("messageId", err)
	}
	id, err := contracts.ParseRequestID(rawID)
	if err != nil {
		return nil, contracts.WrapParseError("messageId", err)
	}

	f := &Frame{Type: MessageType(msgType), ID: id}

	switch f.Type {
	case MessageTypeCall:
		if len(items) != 4 {
			return nil, contracts.NewParseError("", fmt.Sprintf("CALL frame has %d elements, expected 4", len(items)))
		}
		if f.Action, err = contracts.NonEmptyString(items[2]); err != nil {
			return nil, contracts.WrapParseError("action", err)
		}
		if f.Payload, err = framePayload(items[3]); err != nil {
			return nil, contracts.WrapParseError("payload", err)
		}

	case MessageTypeCallResult:
		if len(items) != 3 {
			return nil, contracts.NewParseError("", fmt.Sprintf("CALLRESULT frame has %d elements, expected 3", len(items)))
		}
		if f.Payload, err = framePayload(items[2]); err != nil {
			return nil, contracts.WrapParseError("payload", err)
		}

	case MessageTypeCallError:
		if len(items) != 5 {
			return nil, contracts.NewParseError("", fmt.Sprintf("CALLERROR frame has %d elements, expected 5", len(items)))
		}
		code, err := contracts.ParseString(items[2])
		if err != nil {
			return nil, contracts.WrapParseError("errorCode", err)
		}
		if f.ErrorCode, err = contracts.ParseResultCode(code); err != nil {
			return nil, contracts.WrapParseError("errorCode", err)
		}
		if f.ErrorDescription, err = contracts.ParseString(items[3]); err != nil {
			return nil, contracts.WrapParseError("errorDescription", err)
		}
		if f.ErrorDetails, err = framePayload(items[4]); err != nil {
			return nil, contracts.WrapParseError("errorDetails", err)
		}

	default:
		return nil, contracts.NewParseError("messageTypeId", fmt.Sprintf("unknown message type %d", msgType))
	}

	return f, nil
}

// Result maps the frame to the outcome it reports
func (f *Frame) Result() contracts.Result {
	if f.Type != MessageTypeCallError {
		return contracts.OK()
	}
	return contracts.FromErrorResponse(f.ErrorCode, f.ErrorDescription, f.ErrorDetails)
}

// Encode renders the frame back to its wire form
func (f *Frame) Encode() ([]byte, error) {
	switch f.Type {
	case MessageTypeCall:
		return json.Marshal([]any{f.Type, f.ID, f.Action, f.Payload})
	case MessageTypeCallResult:
		return json.Marshal([]any{f.Type, f.ID, f.Payload})
	case MessageTypeCallError:
		return EncodeCallError(f.ID, f.Result())
	default:
		return nil, fmt.Errorf("unknown message type %d", int(f.Type))
	}
}

func framePayload(raw json.RawMessage) (json.RawMessage, error) {
	if _, err := contracts.ParseObject(raw); err != nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return contracts.ParseRaw(raw)
}
