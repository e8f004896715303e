package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/internal/hashing"
	"github.com/glimte/ocpp-envelope/messaging"
)

// ActionDataTransfer exchanges vendor specific data in either direction
const ActionDataTransfer = "DataTransfer"

const (
	DataTransferRequestContext  contracts.JSONLDContext = "https://open.charging.cloud/context/ocpp/v2.1/dataTransfer/request"
	DataTransferResponseContext contracts.JSONLDContext = "https://open.charging.cloud/context/ocpp/v2.1/dataTransfer/response"
)

// MaxMessageIDLength bounds DataTransferRequest.MessageID
const MaxMessageIDLength = 50

// DataTransferStatus is the outcome a receiver reports for a data transfer
type DataTransferStatus string

const (
	DataTransferStatusAccepted         DataTransferStatus = "Accepted"
	DataTransferStatusRejected         DataTransferStatus = "Rejected"
	DataTransferStatusUnknownMessageID DataTransferStatus = "UnknownMessageId"
	DataTransferStatusUnknownVendorID  DataTransferStatus = "UnknownVendorId"
)

var parseDataTransferStatus = contracts.ParseEnum(
	DataTransferStatusAccepted,
	DataTransferStatusRejected,
	DataTransferStatusUnknownMessageID,
	DataTransferStatusUnknownVendorID,
)

func parseVendorID(raw json.RawMessage) (string, error) {
	s, err := contracts.BoundedString(contracts.MaxVendorIDLength)(raw)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("value cannot be empty")
	}
	return s, nil
}

// DataTransferRequest is the DataTransfer request payload
type DataTransferRequest struct {
	messaging.Request
	VendorID  string
	MessageID contracts.Optional[string]
	// Data is kept as compact raw JSON; its shape is up to the vendor
	Data contracts.Optional[json.RawMessage]

	hash uint64
}

// NewDataTransferRequest creates a data transfer request. Invalid or null data is dropped.
func NewDataTransferRequest(vendorID string, messageID contracts.Optional[string], data json.RawMessage, opts ...messaging.RequestOption) *DataTransferRequest {
	r := &DataTransferRequest{
		Request:   messaging.NewRequest(ActionDataTransfer, opts...),
		VendorID:  vendorID,
		MessageID: messageID,
		Data:      compactData(data),
	}
	r.seal()
	return r
}

// ParseDataTransferRequest parses a DataTransfer payload received over in
func ParseDataTransferRequest(ctx context.Context, data []byte, in messaging.Inbound, opts ...messaging.ParseOption[*DataTransferRequest]) (*DataTransferRequest, error) {
	r, err := messaging.TryParse(ctx, data, func(ctx context.Context, obj contracts.JSONObject, entities messaging.EnvelopeParsers) (*DataTransferRequest, error) {
		env, err := messaging.ParseRequestEnvelope(ctx, ActionDataTransfer, obj, in, entities)
		if err != nil {
			return nil, err
		}
		vendorID, err := contracts.Mandatory(obj, "vendorId", parseVendorID)
		if err != nil {
			return nil, err
		}
		messageID, err := contracts.OptionalField(obj, "messageId", contracts.BoundedString(MaxMessageIDLength))
		if err != nil {
			return nil, err
		}
		payload, err := parseData(obj)
		if err != nil {
			return nil, err
		}
		return &DataTransferRequest{Request: env, VendorID: vendorID, MessageID: messageID, Data: payload}, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	r.seal()
	return r, nil
}

// MustParseDataTransferRequest is like ParseDataTransferRequest but panics on error
func MustParseDataTransferRequest(ctx context.Context, data []byte, in messaging.Inbound, opts ...messaging.ParseOption[*DataTransferRequest]) *DataTransferRequest {
	r, err := ParseDataTransferRequest(ctx, data, in, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// ToJSON writes the request payload, data included only when present
func (r *DataTransferRequest) ToJSON(opts ...messaging.SerializeOption[*DataTransferRequest]) *contracts.JSONWriter {
	return messaging.Serialize(r, DataTransferRequestContext, func(r *DataTransferRequest, entities messaging.EnvelopeSerializers) *contracts.JSONWriter {
		w := contracts.NewJSONWriter().Set("vendorId", r.VendorID)
		contracts.SetOptional(w, "messageId", r.MessageID)
		writeData(w, r.Data)
		return r.WriteEnvelope(w, entities)
	}, opts...)
}

// MarshalJSON implements json.Marshaler
func (r *DataTransferRequest) MarshalJSON() ([]byte, error) {
	return r.ToJSON().Bytes()
}

// Equal compares payload and envelope
func (r *DataTransferRequest) Equal(other *DataTransferRequest) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.VendorID == other.VendorID &&
		contracts.OptionalEqual(r.MessageID, other.MessageID) &&
		dataEqual(r.Data, other.Data) &&
		r.EnvelopeEqual(&other.Request)
}

// HashCode is consistent with Equal
func (r *DataTransferRequest) HashCode() uint64 {
	return r.hash
}

func (r *DataTransferRequest) seal() {
	messageID, hasMessageID := r.MessageID.Get()
	r.hash = hashing.Combine(
		hashing.String(r.VendorID),
		hashing.Optional(hasMessageID, hashing.String(messageID)),
		hashData(r.Data),
		r.EnvelopeHash(),
	)
}

// DataTransferResponse is the DataTransfer response payload
type DataTransferResponse struct {
	messaging.Response[*DataTransferRequest]
	Status     DataTransferStatus
	StatusInfo contracts.Optional[contracts.StatusInfo]
	Data       contracts.Optional[json.RawMessage]

	hash uint64
}

// NewDataTransferResponse answers req with status and optional data
func NewDataTransferResponse(req *DataTransferRequest, status DataTransferStatus, statusInfo contracts.Optional[contracts.StatusInfo], data json.RawMessage, opts ...messaging.ResponseOption) *DataTransferResponse {
	r := &DataTransferResponse{
		Response:   messaging.NewResponse(req, contracts.OK(), opts...),
		Status:     status,
		StatusInfo: statusInfo,
		Data:       compactData(data),
	}
	r.seal()
	return r
}

// DataTransferFailures builds rejected data transfer responses
var DataTransferFailures = messaging.FailureFactory[*DataTransferRequest, *DataTransferResponse]{
	Reject: func(env messaging.Response[*DataTransferRequest]) *DataTransferResponse {
		r := &DataTransferResponse{Response: env, Status: DataTransferStatusRejected}
		r.seal()
		return r
	},
}

// ParseDataTransferResponse parses the response to req
func ParseDataTransferResponse(ctx context.Context, req *DataTransferRequest, data []byte, in messaging.ResponseInbound, opts ...messaging.ParseOption[*DataTransferResponse]) (*DataTransferResponse, error) {
	r, err := messaging.TryParse(ctx, data, func(ctx context.Context, obj contracts.JSONObject, entities messaging.EnvelopeParsers) (*DataTransferResponse, error) {
		env, err := messaging.ParseResponseEnvelope(ctx, req, obj, in, entities)
		if err != nil {
			return nil, err
		}
		status, err := contracts.Mandatory(obj, "status", parseDataTransferStatus)
		if err != nil {
			return nil, err
		}
		statusInfo, err := parseStatusInfo(obj, entities)
		if err != nil {
			return nil, err
		}
		payload, err := parseData(obj)
		if err != nil {
			return nil, err
		}
		return &DataTransferResponse{Response: env, Status: status, StatusInfo: statusInfo, Data: payload}, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	r.seal()
	return r, nil
}

// MustParseDataTransferResponse is like ParseDataTransferResponse but panics on error
func MustParseDataTransferResponse(ctx context.Context, req *DataTransferRequest, data []byte, in messaging.ResponseInbound, opts ...messaging.ParseOption[*DataTransferResponse]) *DataTransferResponse {
	r, err := ParseDataTransferResponse(ctx, req, data, in, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// ToJSON writes the response payload
func (r *DataTransferResponse) ToJSON(opts ...messaging.SerializeOption[*DataTransferResponse]) *contracts.JSONWriter {
	return messaging.Serialize(r, DataTransferResponseContext, func(r *DataTransferResponse, entities messaging.EnvelopeSerializers) *contracts.JSONWriter {
		w := contracts.NewJSONWriter().Set("status", r.Status)
		writeStatusInfo(w, r.StatusInfo, entities)
		writeData(w, r.Data)
		return r.WriteEnvelope(w, entities)
	}, opts...)
}

// MarshalJSON implements json.Marshaler
func (r *DataTransferResponse) MarshalJSON() ([]byte, error) {
	return r.ToJSON().Bytes()
}

// Equal compares payload and envelope
func (r *DataTransferResponse) Equal(other *DataTransferResponse) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Status == other.Status &&
		statusInfoEqual(r.StatusInfo, other.StatusInfo) &&
		dataEqual(r.Data, other.Data) &&
		r.EnvelopeEqual(&other.Response)
}

// HashCode is consistent with Equal
func (r *DataTransferResponse) HashCode() uint64 {
	return r.hash
}

func (r *DataTransferResponse) seal() {
	r.hash = hashing.Combine(
		hashing.String(string(r.Status)),
		hashStatusInfo(r.StatusInfo),
		hashData(r.Data),
		r.EnvelopeHash(),
	)
}

// DataTransferRoute binds a data transfer handler to the dispatcher
func DataTransferRoute(handler messaging.Handler[*DataTransferRequest, *DataTransferResponse], opts ...messaging.BoundaryOption) messaging.Route[*DataTransferRequest, *DataTransferResponse] {
	return messaging.Route[*DataTransferRequest, *DataTransferResponse]{
		Parse: func(ctx context.Context, payload []byte, in messaging.Inbound) (*DataTransferRequest, error) {
			return ParseDataTransferRequest(ctx, payload, in)
		},
		Handler:  handler,
		Failures: DataTransferFailures,
		Serialize: func(resp *DataTransferResponse) *contracts.JSONWriter {
			return resp.ToJSON()
		},
		Options: opts,
	}
}
