package actions

import (
	"context"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/internal/hashing"
	"github.com/glimte/ocpp-envelope/messaging"
)

// ActionReset asks a charging station to reset itself or one EVSE
const ActionReset = "Reset"

const (
	ResetRequestContext  contracts.JSONLDContext = "https://open.charging.cloud/context/ocpp/v2.1/reset/request"
	ResetResponseContext contracts.JSONLDContext = "https://open.charging.cloud/context/ocpp/v2.1/reset/response"
)

// ResetType says when the reset happens
type ResetType string

const (
	ResetTypeImmediate ResetType = "Immediate"
	ResetTypeOnIdle    ResetType = "OnIdle"
)

// ResetStatus is the station's answer to a reset request
type ResetStatus string

const (
	ResetStatusAccepted  ResetStatus = "Accepted"
	ResetStatusRejected  ResetStatus = "Rejected"
	ResetStatusScheduled ResetStatus = "Scheduled"
)

var (
	parseResetType   = contracts.ParseEnum(ResetTypeImmediate, ResetTypeOnIdle)
	parseResetStatus = contracts.ParseEnum(ResetStatusAccepted, ResetStatusRejected, ResetStatusScheduled)
)

// ResetRequest is the Reset request payload
type ResetRequest struct {
	messaging.Request
	Type ResetType
	// EvseID limits the reset to one EVSE
	EvseID contracts.Optional[int]

	hash uint64
}

// NewResetRequest creates a reset request
func NewResetRequest(resetType ResetType, evseID contracts.Optional[int], opts ...messaging.RequestOption) *ResetRequest {
	r := &ResetRequest{
		Request: messaging.NewRequest(ActionReset, opts...),
		Type:    resetType,
		EvseID:  evseID,
	}
	r.seal()
	return r
}

// ParseResetRequest parses a reset request payload. The transport metadata in
// in supplies the id, routing and timing that the payload does not carry.
func ParseResetRequest(ctx context.Context, data []byte, in messaging.Inbound, opts ...messaging.ParseOption[*ResetRequest]) (*ResetRequest, error) {
	r, err := messaging.TryParse(ctx, data, func(ctx context.Context, obj contracts.JSONObject, entities messaging.EnvelopeParsers) (*ResetRequest, error) {
		env, err := messaging.ParseRequestEnvelope(ctx, ActionReset, obj, in, entities)
		if err != nil {
			return nil, err
		}
		resetType, err := contracts.Mandatory(obj, "type", parseResetType)
		if err != nil {
			return nil, err
		}
		evseID, err := contracts.OptionalField(obj, "evseId", contracts.ParseInt)
		if err != nil {
			return nil, err
		}
		return &ResetRequest{Request: env, Type: resetType, EvseID: evseID}, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	r.seal()
	return r, nil
}

// MustParseResetRequest is ParseResetRequest panicking on failure
func MustParseResetRequest(ctx context.Context, data []byte, in messaging.Inbound, opts ...messaging.ParseOption[*ResetRequest]) *ResetRequest {
	r, err := ParseResetRequest(ctx, data, in, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// ToJSON serializes the request
func (r *ResetRequest) ToJSON(opts ...messaging.SerializeOption[*ResetRequest]) *contracts.JSONWriter {
	return messaging.Serialize(r, ResetRequestContext, func(r *ResetRequest, entities messaging.EnvelopeSerializers) *contracts.JSONWriter {
		w := contracts.NewJSONWriter().Set("type", r.Type)
		contracts.SetOptional(w, "evseId", r.EvseID)
		return r.WriteEnvelope(w, entities)
	}, opts...)
}

// MarshalJSON implements json.Marshaler
func (r *ResetRequest) MarshalJSON() ([]byte, error) {
	return r.ToJSON().Bytes()
}

// Equal compares the payload fields and the envelope
func (r *ResetRequest) Equal(other *ResetRequest) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Type == other.Type &&
		contracts.OptionalEqual(r.EvseID, other.EvseID) &&
		r.EnvelopeEqual(&other.Request)
}

// HashCode returns the hash cached at construction
func (r *ResetRequest) HashCode() uint64 {
	return r.hash
}

func (r *ResetRequest) seal() {
	evseID, hasEvseID := r.EvseID.Get()
	r.hash = hashing.Combine(
		hashing.String(string(r.Type)),
		hashing.Optional(hasEvseID, hashing.Int(int64(evseID))),
		r.EnvelopeHash(),
	)
}

// ResetResponse is the Reset response payload
type ResetResponse struct {
	messaging.Response[*ResetRequest]
	Status     ResetStatus
	StatusInfo contracts.Optional[contracts.StatusInfo]

	hash uint64
}

// NewResetResponse creates a successful reset response answering req
func NewResetResponse(req *ResetRequest, status ResetStatus, statusInfo contracts.Optional[contracts.StatusInfo], opts ...messaging.ResponseOption) *ResetResponse {
	r := &ResetResponse{
		Response:   messaging.NewResponse(req, contracts.OK(), opts...),
		Status:     status,
		StatusInfo: statusInfo,
	}
	r.seal()
	return r
}

// ResetFailures builds rejected reset responses
var ResetFailures = messaging.FailureFactory[*ResetRequest, *ResetResponse]{
	Reject: func(env messaging.Response[*ResetRequest]) *ResetResponse {
		r := &ResetResponse{Response: env, Status: ResetStatusRejected}
		r.seal()
		return r
	},
}

// ParseResetResponse parses a reset response payload answering req
func ParseResetResponse(ctx context.Context, req *ResetRequest, data []byte, in messaging.ResponseInbound, opts ...messaging.ParseOption[*ResetResponse]) (*ResetResponse, error) {
	r, err := messaging.TryParse(ctx, data, func(ctx context.Context, obj contracts.JSONObject, entities messaging.EnvelopeParsers) (*ResetResponse, error) {
		env, err := messaging.ParseResponseEnvelope(ctx, req, obj, in, entities)
		if err != nil {
			return nil, err
		}
		status, err := contracts.Mandatory(obj, "status", parseResetStatus)
		if err != nil {
			return nil, err
		}
		statusInfo, err := parseStatusInfo(obj, entities)
		if err != nil {
			return nil, err
		}
		return &ResetResponse{Response: env, Status: status, StatusInfo: statusInfo}, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	r.seal()
	return r, nil
}

// MustParseResetResponse is ParseResetResponse panicking on failure
func MustParseResetResponse(ctx context.Context, req *ResetRequest, data []byte, in messaging.ResponseInbound, opts ...messaging.ParseOption[*ResetResponse]) *ResetResponse {
	r, err := ParseResetResponse(ctx, req, data, in, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// ToJSON serializes the response
func (r *ResetResponse) ToJSON(opts ...messaging.SerializeOption[*ResetResponse]) *contracts.JSONWriter {
	return messaging.Serialize(r, ResetResponseContext, func(r *ResetResponse, entities messaging.EnvelopeSerializers) *contracts.JSONWriter {
		w := contracts.NewJSONWriter().Set("status", r.Status)
		writeStatusInfo(w, r.StatusInfo, entities)
		return r.WriteEnvelope(w, entities)
	}, opts...)
}

// MarshalJSON implements json.Marshaler
func (r *ResetResponse) MarshalJSON() ([]byte, error) {
	return r.ToJSON().Bytes()
}

// Equal compares the payload fields and the envelope
func (r *ResetResponse) Equal(other *ResetResponse) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Status == other.Status &&
		statusInfoEqual(r.StatusInfo, other.StatusInfo) &&
		r.EnvelopeEqual(&other.Response)
}

// HashCode returns the hash cached at construction
func (r *ResetResponse) HashCode() uint64 {
	return r.hash
}

func (r *ResetResponse) seal() {
	r.hash = hashing.Combine(
		hashing.String(string(r.Status)),
		hashStatusInfo(r.StatusInfo),
		r.EnvelopeHash(),
	)
}

// ResetRoute binds a reset handler to the dispatcher
func ResetRoute(handler messaging.Handler[*ResetRequest, *ResetResponse], opts ...messaging.BoundaryOption) messaging.Route[*ResetRequest, *ResetResponse] {
	return messaging.Route[*ResetRequest, *ResetResponse]{
		Parse: func(ctx context.Context, payload []byte, in messaging.Inbound) (*ResetRequest, error) {
			return ParseResetRequest(ctx, payload, in)
		},
		Handler:  handler,
		Failures: ResetFailures,
		Serialize: func(resp *ResetResponse) *contracts.JSONWriter {
			return resp.ToJSON()
		},
		Options: opts,
	}
}
