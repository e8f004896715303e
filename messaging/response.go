package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/internal/hashing"
)

// ResponseHeader holds the envelope fields of a response that do not depend on the request type
type ResponseHeader struct {
	Result      contracts.Result
	Timestamp   time.Time
	Destination contracts.SourceRouting
	NetworkPath contracts.NetworkPath
	Signatures  []contracts.Signature
	CustomData  contracts.Optional[contracts.CustomData]
}

// Response is the envelope embedded by value in every concrete response.
// It keeps a back-reference to the request it answers.
type Response[Req HasEnvelope] struct {
	Request Req
	ResponseHeader
}

// ResponseOption configures response envelope creation
type ResponseOption func(*ResponseHeader)

// WithResponseTimestamp sets a custom timestamp
func WithResponseTimestamp(ts time.Time) ResponseOption {
	return func(h *ResponseHeader) {
		h.Timestamp = ts.UTC()
	}
}

// WithResponseSignatures attaches signatures
func WithResponseSignatures(sigs ...contracts.Signature) ResponseOption {
	return func(h *ResponseHeader) {
		h.Signatures = append(h.Signatures, sigs...)
	}
}

// WithResponseCustomData attaches vendor data
func WithResponseCustomData(cd contracts.CustomData) ResponseOption {
	return func(h *ResponseHeader) {
		h.CustomData = contracts.Some(cd)
	}
}

// WithResponseDestination overrides the computed reply routing
func WithResponseDestination(destination contracts.SourceRouting) ResponseOption {
	return func(h *ResponseHeader) {
		h.Destination = destination
	}
}

// NewResponse creates a response envelope answering req.
// The destination is the reversal of the request's network path. A request
// that arrived over a path that cannot be reversed turns an OK result into a
// formation violation.
func NewResponse[Req HasEnvelope](req Req, result contracts.Result, opts ...ResponseOption) Response[Req] {
	h := ResponseHeader{
		Result:    result,
		Timestamp: time.Now().UTC(),
	}

	env := req.Envelope()
	if !env.NetworkPath.IsEmpty() {
		routing, err := env.ReplyRouting()
		if err != nil {
			if h.Result.IsOK() {
				h.Result = contracts.FormationViolationResult(err.Error())
			}
		} else {
			h.Destination = routing
		}
	}

	for _, opt := range opts {
		opt(&h)
	}

	if len(h.Signatures) > 0 {
		h.Signatures = contracts.UniqueSignatures(h.Signatures)
	}
	return Response[Req]{Request: req, ResponseHeader: h}
}

// ResponseInbound carries what the transport knows about a received response
type ResponseInbound struct {
	Destination contracts.SourceRouting
	NetworkPath contracts.NetworkPath
	Timestamp   time.Time
}

// ParseResponseEnvelope rebuilds a response envelope for req from a payload and the transport metadata
func ParseResponseEnvelope[Req HasEnvelope](ctx context.Context, req Req, obj contracts.JSONObject, in ResponseInbound, parsers EnvelopeParsers) (Response[Req], error) {
	if err := ctx.Err(); err != nil {
		return Response[Req]{}, err
	}

	signatures, customData, err := parseEnvelopeFields(obj, parsers)
	if err != nil {
		return Response[Req]{}, err
	}

	h := ResponseHeader{
		Result:      contracts.OK(),
		Timestamp:   in.Timestamp.UTC(),
		Destination: in.Destination,
		NetworkPath: in.NetworkPath,
		Signatures:  signatures,
		CustomData:  customData,
	}
	if in.Timestamp.IsZero() {
		h.Timestamp = time.Now().UTC()
	}
	return Response[Req]{Request: req, ResponseHeader: h}, nil
}

// ResponseInboundFor describes a response as the transport would hand it to the requester
func ResponseInboundFor(h *ResponseHeader) ResponseInbound {
	return ResponseInbound{
		Destination: h.Destination,
		NetworkPath: h.NetworkPath,
		Timestamp:   h.Timestamp,
	}
}

// WriteEnvelope adds the envelope's payload fields (customData, signatures) to w
func (h *ResponseHeader) WriteEnvelope(w *contracts.JSONWriter, opts EnvelopeSerializers) *contracts.JSONWriter {
	if cd, ok := h.CustomData.Get(); ok {
		w.Set(contracts.CustomDataField, cd.ToJSON(opts.CustomData))
	}
	return contracts.WriteSignatures(w, h.Signatures, opts.Signature)
}

// EnvelopeEqual compares the envelope fields, timestamps excluded, and the answered request's envelope
func (r *Response[Req]) EnvelopeEqual(other *Response[Req]) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Request.Envelope().EnvelopeEqual(other.Request.Envelope()) &&
		r.Result.Equal(other.Result) &&
		r.Destination.Equal(other.Destination) &&
		r.NetworkPath.Equal(other.NetworkPath) &&
		contracts.SignaturesEqual(r.Signatures, other.Signatures) &&
		r.CustomData.EqualFunc(other.CustomData, contracts.CustomData.Equal)
}

// EnvelopeHash hashes the fields EnvelopeEqual compares
func (r *Response[Req]) EnvelopeHash() uint64 {
	cd, hasCD := r.CustomData.Get()
	return hashing.Combine(
		r.Request.Envelope().EnvelopeHash(),
		r.Result.HashCode(),
		r.Destination.HashCode(),
		r.NetworkPath.HashCode(),
		contracts.HashSignatures(r.Signatures),
		hashing.Optional(hasCD, cd.HashCode()),
	)
}

// FailureFactory builds type-safe failed responses. Reject turns a failed
// envelope into a structurally complete payload that rejects the request.
type FailureFactory[Req HasEnvelope, Resp any] struct {
	Reject func(envelope Response[Req]) Resp
}

// FromResult builds a rejected response carrying result
func (f FailureFactory[Req, Resp]) FromResult(req Req, result contracts.Result, opts ...ResponseOption) Resp {
	return f.Reject(NewResponse(req, result, opts...))
}

// FormationViolation rejects a request whose payload failed validation
func (f FailureFactory[Req, Resp]) FormationViolation(req Req, reason string, opts ...ResponseOption) Resp {
	return f.FromResult(req, contracts.FormationViolationResult(reason), opts...)
}

// SignatureError rejects a request whose signatures could not be verified
func (f FailureFactory[Req, Resp]) SignatureError(req Req, reason string, opts ...ResponseOption) Resp {
	return f.FromResult(req, contracts.SignatureErrorResult(reason), opts...)
}

// Failed rejects a request for an opaque server-side reason
func (f FailureFactory[Req, Resp]) Failed(req Req, description string, opts ...ResponseOption) Resp {
	return f.FromResult(req, contracts.Failed(description), opts...)
}

// ExceptionOccurred rejects a request whose processing raised an error
func (f FailureFactory[Req, Resp]) ExceptionOccurred(req Req, err error, opts ...ResponseOption) Resp {
	return f.FromResult(req, contracts.FromException(err), opts...)
}

// RequestError rejects a request that failed at the RPC level
func (f FailureFactory[Req, Resp]) RequestError(req Req, code contracts.ResultCode, description string, details json.RawMessage, opts ...ResponseOption) Resp {
	return f.FromResult(req, contracts.FromErrorResponse(code, description, details), opts...)
}
