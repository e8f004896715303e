package contracts

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxRequestIDLength is the longest message id an OCPP-J frame may carry
const MaxRequestIDLength = 36

// RequestID uniquely identifies a pending request and correlates its response
type RequestID string

// NewRequestID creates a fresh random request id
func NewRequestID() RequestID {
	return RequestID(uuid.New().String())
}

// ParseRequestID validates a request id received from the wire
func ParseRequestID(s string) (RequestID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: request id cannot be empty", ErrInvalidIdentifier)
	}
	if len(s) > MaxRequestIDLength {
		return "", fmt.Errorf("%w: request id exceeds %d characters", ErrInvalidIdentifier, MaxRequestIDLength)
	}
	return RequestID(s), nil
}

// String returns the request id text
func (id RequestID) String() string {
	return string(id)
}

// IsZero reports whether the id is unset
func (id RequestID) IsZero() bool {
	return id == ""
}

// EventTrackingID correlates a chain of related requests and responses across logs
type EventTrackingID string

// NewEventTrackingID creates a fresh event tracking id
func NewEventTrackingID() EventTrackingID {
	return EventTrackingID(uuid.New().String())
}

// ParseEventTrackingID validates an event tracking id
func ParseEventTrackingID(s string) (EventTrackingID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: event tracking id cannot be empty", ErrInvalidIdentifier)
	}
	return EventTrackingID(s), nil
}

// String returns the event tracking id text
func (id EventTrackingID) String() string {
	return string(id)
}

// NetworkingNodeID identifies one node (charge point, relay, CSMS) of the network
type NetworkingNodeID string

// ParseNetworkingNodeID trims and validates a node identifier
func ParseNetworkingNodeID(s string) (NetworkingNodeID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: networking node id cannot be empty", ErrInvalidIdentifier)
	}
	return NetworkingNodeID(s), nil
}

// String returns the node id text
func (id NetworkingNodeID) String() string {
	return string(id)
}

// IsZero reports whether the id is unset
func (id NetworkingNodeID) IsZero() bool {
	return id == ""
}

// JSONLDContext is the URI naming the JSON-LD schema of a payload
type JSONLDContext string

// String returns the context URI
func (c JSONLDContext) String() string {
	return string(c)
}

// ContextField is the JSON key carrying the JSON-LD context
const ContextField = "@context"
