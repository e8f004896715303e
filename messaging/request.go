package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/internal/hashing"
)

// DefaultRequestTimeout is used when a request does not carry its own timeout
const DefaultRequestTimeout = 30 * time.Second

// SerializationFormat hints how a message is to be put on the wire
type SerializationFormat string

const (
	FormatJSON   SerializationFormat = "JSON"
	FormatJSONLD SerializationFormat = "JSON-LD"
)

// HasEnvelope is implemented by every concrete request through its embedded Request
type HasEnvelope interface {
	Envelope() *Request
}

// Request is the envelope embedded by value in every concrete request
type Request struct {
	ID              contracts.RequestID
	Action          string
	Timestamp       time.Time
	Timeout         time.Duration
	EventTrackingID contracts.EventTrackingID
	// Destination is the outbound routing chosen by the sender
	Destination contracts.SourceRouting
	// NetworkPath and Sender are supplied by the transport on arrival
	NetworkPath contracts.NetworkPath
	Sender      contracts.NetworkingNodeID
	Signatures  []contracts.Signature
	CustomData  contracts.Optional[contracts.CustomData]
	Format      SerializationFormat
}

// RequestOption configures request envelope creation
type RequestOption func(*Request)

// WithRequestID sets a custom request id
func WithRequestID(id contracts.RequestID) RequestOption {
	return func(r *Request) {
		r.ID = id
	}
}

// WithRequestTimestamp sets a custom timestamp
func WithRequestTimestamp(ts time.Time) RequestOption {
	return func(r *Request) {
		r.Timestamp = ts.UTC()
	}
}

// WithRequestTimeout sets the timeout the transport should enforce
func WithRequestTimeout(timeout time.Duration) RequestOption {
	return func(r *Request) {
		r.Timeout = timeout
	}
}

// WithEventTrackingID threads an existing event tracking id through the request
func WithEventTrackingID(id contracts.EventTrackingID) RequestOption {
	return func(r *Request) {
		r.EventTrackingID = id
	}
}

// WithDestination sets the outbound routing
func WithDestination(destination contracts.SourceRouting) RequestOption {
	return func(r *Request) {
		r.Destination = destination
	}
}

// WithSignatures attaches signatures
func WithSignatures(sigs ...contracts.Signature) RequestOption {
	return func(r *Request) {
		r.Signatures = append(r.Signatures, sigs...)
	}
}

// WithCustomData attaches vendor data
func WithCustomData(cd contracts.CustomData) RequestOption {
	return func(r *Request) {
		r.CustomData = contracts.Some(cd)
	}
}

// WithSerializationFormat sets the serialization hint
func WithSerializationFormat(format SerializationFormat) RequestOption {
	return func(r *Request) {
		r.Format = format
	}
}

// NewRequest creates a request envelope with a fresh id, the current time and the default timeout
func NewRequest(action string, opts ...RequestOption) Request {
	r := Request{
		ID:              contracts.NewRequestID(),
		Action:          action,
		Timestamp:       time.Now().UTC(),
		Timeout:         DefaultRequestTimeout,
		EventTrackingID: contracts.NewEventTrackingID(),
		Format:          FormatJSON,
	}

	for _, opt := range opts {
		opt(&r)
	}

	if len(r.Signatures) > 0 {
		r.Signatures = contracts.UniqueSignatures(r.Signatures)
	}
	return r
}

// Envelope implements HasEnvelope
func (r *Request) Envelope() *Request {
	return r
}

// ImmediateSender returns the node that handed the request to us
func (r *Request) ImmediateSender() contracts.NetworkingNodeID {
	if !r.Sender.IsZero() {
		return r.Sender
	}
	hops := r.NetworkPath.Hops()
	if n := len(hops); n >= 2 {
		return hops[n-2]
	}
	return ""
}

// ReplyRouting computes the routing a response to this request must take
func (r *Request) ReplyRouting() (contracts.SourceRouting, error) {
	return contracts.ResponseRouting(r.NetworkPath, r.ImmediateSender())
}

// Deadline returns when the transport should give up waiting for a response
func (r *Request) Deadline() time.Time {
	return r.Timestamp.Add(r.Timeout)
}

// EnvelopeEqual compares the envelope fields, timestamps excluded
func (r *Request) EnvelopeEqual(other *Request) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.ID == other.ID &&
		r.Action == other.Action &&
		r.Timeout == other.Timeout &&
		r.EventTrackingID == other.EventTrackingID &&
		r.Destination.Equal(other.Destination) &&
		r.NetworkPath.Equal(other.NetworkPath) &&
		r.Sender == other.Sender &&
		contracts.SignaturesEqual(r.Signatures, other.Signatures) &&
		r.CustomData.EqualFunc(other.CustomData, contracts.CustomData.Equal) &&
		r.Format == other.Format
}

// EnvelopeHash hashes the fields EnvelopeEqual compares
func (r *Request) EnvelopeHash() uint64 {
	cd, hasCD := r.CustomData.Get()
	return hashing.Combine(
		hashing.String(string(r.ID)),
		hashing.String(r.Action),
		hashing.Int(int64(r.Timeout)),
		hashing.String(string(r.EventTrackingID)),
		r.Destination.HashCode(),
		r.NetworkPath.HashCode(),
		hashing.String(string(r.Sender)),
		contracts.HashSignatures(r.Signatures),
		hashing.Optional(hasCD, cd.HashCode()),
		hashing.String(string(r.Format)),
	)
}

// WriteEnvelope adds the envelope's payload fields (customData, signatures) to w
func (r *Request) WriteEnvelope(w *contracts.JSONWriter, opts EnvelopeSerializers) *contracts.JSONWriter {
	if cd, ok := r.CustomData.Get(); ok {
		w.Set(contracts.CustomDataField, cd.ToJSON(opts.CustomData))
	}
	return contracts.WriteSignatures(w, r.Signatures, opts.Signature)
}

// Inbound carries what the transport knows about a received message.
// None of it is read from the payload itself.
type Inbound struct {
	RequestID       contracts.RequestID
	Destination     contracts.SourceRouting
	NetworkPath     contracts.NetworkPath
	Sender          contracts.NetworkingNodeID
	Timestamp       time.Time
	Timeout         time.Duration
	EventTrackingID contracts.EventTrackingID
	Format          SerializationFormat
}

// InboundFor describes a request as the transport would hand it to the receiver
func InboundFor(r *Request) Inbound {
	return Inbound{
		RequestID:       r.ID,
		Destination:     r.Destination,
		NetworkPath:     r.NetworkPath,
		Sender:          r.Sender,
		Timestamp:       r.Timestamp,
		Timeout:         r.Timeout,
		EventTrackingID: r.EventTrackingID,
		Format:          r.Format,
	}
}

// ParseRequestEnvelope rebuilds a request envelope from a payload and the transport metadata
func ParseRequestEnvelope(ctx context.Context, action string, obj contracts.JSONObject, in Inbound, parsers EnvelopeParsers) (Request, error) {
	if err := ctx.Err(); err != nil {
		return Request{}, err
	}

	signatures, customData, err := parseEnvelopeFields(obj, parsers)
	if err != nil {
		return Request{}, err
	}

	r := Request{
		ID:              in.RequestID,
		Action:          action,
		Timestamp:       in.Timestamp.UTC(),
		Timeout:         in.Timeout,
		EventTrackingID: in.EventTrackingID,
		Destination:     in.Destination,
		NetworkPath:     in.NetworkPath,
		Sender:          in.Sender,
		Signatures:      signatures,
		CustomData:      customData,
		Format:          in.Format,
	}

	if r.ID.IsZero() {
		r.ID = contracts.NewRequestID()
	}
	if in.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultRequestTimeout
	}
	if r.EventTrackingID == "" {
		r.EventTrackingID = contracts.NewEventTrackingID()
	}
	if r.Format == "" {
		r.Format = FormatJSON
	}
	return r, nil
}

func parseEnvelopeFields(obj contracts.JSONObject, parsers EnvelopeParsers) ([]contracts.Signature, contracts.Optional[contracts.CustomData], error) {
	sigs, err := contracts.OptionalField(obj, contracts.SignaturesField, func(raw json.RawMessage) ([]contracts.Signature, error) {
		return contracts.ParseSignatures(raw, parsers.Signature)
	})
	if err != nil {
		return nil, contracts.None[contracts.CustomData](), err
	}

	customData, err := contracts.OptionalField(obj, contracts.CustomDataField, func(raw json.RawMessage) (contracts.CustomData, error) {
		return contracts.ParseCustomData(raw, parsers.CustomData)
	})
	if err != nil {
		return nil, contracts.None[contracts.CustomData](), err
	}

	signatures, _ := sigs.Get()
	if len(signatures) == 0 {
		signatures = nil
	}
	return signatures, customData, nil
}
