package actions

import (
	"context"
	"time"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/internal/hashing"
	"github.com/glimte/ocpp-envelope/messaging"
)

// ActionHeartbeat lets a station tell the CSMS it is still connected
const ActionHeartbeat = "Heartbeat"

const (
	HeartbeatRequestContext  contracts.JSONLDContext = "https://open.charging.cloud/context/ocpp/v2.1/heartbeat/request"
	HeartbeatResponseContext contracts.JSONLDContext = "https://open.charging.cloud/context/ocpp/v2.1/heartbeat/response"
)

// HeartbeatRequest carries nothing beyond the envelope
type HeartbeatRequest struct {
	messaging.Request

	hash uint64
}

func NewHeartbeatRequest(opts ...messaging.RequestOption) *HeartbeatRequest {
	r := &HeartbeatRequest{Request: messaging.NewRequest(ActionHeartbeat, opts...)}
	r.seal()
	return r
}

func ParseHeartbeatRequest(ctx context.Context, data []byte, in messaging.Inbound, opts ...messaging.ParseOption[*HeartbeatRequest]) (*HeartbeatRequest, error) {
	r, err := messaging.TryParse(ctx, data, func(ctx context.Context, obj contracts.JSONObject, entities messaging.EnvelopeParsers) (*HeartbeatRequest, error) {
		env, err := messaging.ParseRequestEnvelope(ctx, ActionHeartbeat, obj, in, entities)
		if err != nil {
			return nil, err
		}
		return &HeartbeatRequest{Request: env}, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	r.seal()
	return r, nil
}

func MustParseHeartbeatRequest(ctx context.Context, data []byte, in messaging.Inbound, opts ...messaging.ParseOption[*HeartbeatRequest]) *HeartbeatRequest {
	r, err := ParseHeartbeatRequest(ctx, data, in, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *HeartbeatRequest) ToJSON(opts ...messaging.SerializeOption[*HeartbeatRequest]) *contracts.JSONWriter {
	return messaging.Serialize(r, HeartbeatRequestContext, func(r *HeartbeatRequest, entities messaging.EnvelopeSerializers) *contracts.JSONWriter {
		return r.WriteEnvelope(contracts.NewJSONWriter(), entities)
	}, opts...)
}

func (r *HeartbeatRequest) MarshalJSON() ([]byte, error) {
	return r.ToJSON().Bytes()
}

func (r *HeartbeatRequest) Equal(other *HeartbeatRequest) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.EnvelopeEqual(&other.Request)
}

func (r *HeartbeatRequest) HashCode() uint64 {
	return r.hash
}

func (r *HeartbeatRequest) seal() {
	r.hash = hashing.Combine(r.EnvelopeHash())
}

// HeartbeatResponse carries the CSMS clock so the station can synchronize
type HeartbeatResponse struct {
	messaging.Response[*HeartbeatRequest]
	CurrentTime time.Time

	hash uint64
}

func NewHeartbeatResponse(req *HeartbeatRequest, currentTime time.Time, opts ...messaging.ResponseOption) *HeartbeatResponse {
	r := &HeartbeatResponse{
		Response:    messaging.NewResponse(req, contracts.OK(), opts...),
		CurrentTime: currentTime.UTC(),
	}
	r.seal()
	return r
}

// HeartbeatFailures builds failed heartbeat responses. The payload has no
// status, so a failure still reports the current time.
var HeartbeatFailures = messaging.FailureFactory[*HeartbeatRequest, *HeartbeatResponse]{
	Reject: func(env messaging.Response[*HeartbeatRequest]) *HeartbeatResponse {
		r := &HeartbeatResponse{Response: env, CurrentTime: time.Now().UTC()}
		r.seal()
		return r
	},
}

func ParseHeartbeatResponse(ctx context.Context, req *HeartbeatRequest, data []byte, in messaging.ResponseInbound, opts ...messaging.ParseOption[*HeartbeatResponse]) (*HeartbeatResponse, error) {
	r, err := messaging.TryParse(ctx, data, func(ctx context.Context, obj contracts.JSONObject, entities messaging.EnvelopeParsers) (*HeartbeatResponse, error) {
		env, err := messaging.ParseResponseEnvelope(ctx, req, obj, in, entities)
		if err != nil {
			return nil, err
		}
		currentTime, err := contracts.Mandatory(obj, "currentTime", contracts.ParseTime)
		if err != nil {
			return nil, err
		}
		return &HeartbeatResponse{Response: env, CurrentTime: currentTime}, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	r.seal()
	return r, nil
}

func MustParseHeartbeatResponse(ctx context.Context, req *HeartbeatRequest, data []byte, in messaging.ResponseInbound, opts ...messaging.ParseOption[*HeartbeatResponse]) *HeartbeatResponse {
	r, err := ParseHeartbeatResponse(ctx, req, data, in, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *HeartbeatResponse) ToJSON(opts ...messaging.SerializeOption[*HeartbeatResponse]) *contracts.JSONWriter {
	return messaging.Serialize(r, HeartbeatResponseContext, func(r *HeartbeatResponse, entities messaging.EnvelopeSerializers) *contracts.JSONWriter {
		w := contracts.NewJSONWriter().Set("currentTime", contracts.FormatTime(r.CurrentTime))
		return r.WriteEnvelope(w, entities)
	}, opts...)
}

func (r *HeartbeatResponse) MarshalJSON() ([]byte, error) {
	return r.ToJSON().Bytes()
}

func (r *HeartbeatResponse) Equal(other *HeartbeatResponse) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.CurrentTime.Equal(other.CurrentTime) && r.EnvelopeEqual(&other.Response)
}

func (r *HeartbeatResponse) HashCode() uint64 {
	return r.hash
}

func (r *HeartbeatResponse) seal() {
	r.hash = hashing.Combine(
		hashing.Int(r.CurrentTime.UnixNano()),
		r.EnvelopeHash(),
	)
}

// HeartbeatRoute binds a heartbeat handler to the dispatcher
func HeartbeatRoute(handler messaging.Handler[*HeartbeatRequest, *HeartbeatResponse], opts ...messaging.BoundaryOption) messaging.Route[*HeartbeatRequest, *HeartbeatResponse] {
	return messaging.Route[*HeartbeatRequest, *HeartbeatResponse]{
		Parse: func(ctx context.Context, payload []byte, in messaging.Inbound) (*HeartbeatRequest, error) {
			return ParseHeartbeatRequest(ctx, payload, in)
		},
		Handler:  handler,
		Failures: HeartbeatFailures,
		Serialize: func(resp *HeartbeatResponse) *contracts.JSONWriter {
			return resp.ToJSON()
		},
		Options: opts,
	}
}
