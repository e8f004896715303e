package messaging

import (
	"context"

	"github.com/glimte/ocpp-envelope/contracts"
)

const testAction = "Test"

type testRequest struct {
	Request
	Note string
}

type testResponse struct {
	Response[*testRequest]
	Status contracts.GenericStatus
}

func newTestRequest(note string, opts ...RequestOption) *testRequest {
	return &testRequest{Request: NewRequest(testAction, opts...), Note: note}
}

func parseTestRequest(in Inbound) ParseFunc[*testRequest] {
	return func(ctx context.Context, obj contracts.JSONObject, entities EnvelopeParsers) (*testRequest, error) {
		env, err := ParseRequestEnvelope(ctx, testAction, obj, in, entities)
		if err != nil {
			return nil, err
		}
		note, err := contracts.Mandatory(obj, "note", contracts.NonEmptyString)
		if err != nil {
			return nil, err
		}
		return &testRequest{Request: env, Note: note}, nil
	}
}

func serializeTestRequest(r *testRequest, entities EnvelopeSerializers) *contracts.JSONWriter {
	w := contracts.NewJSONWriter().Set("note", r.Note)
	return r.WriteEnvelope(w, entities)
}

func serializeTestResponse(r *testResponse) *contracts.JSONWriter {
	w := contracts.NewJSONWriter().Set("status", r.Status)
	return r.WriteEnvelope(w, EnvelopeSerializers{})
}

var testFailures = FailureFactory[*testRequest, *testResponse]{
	Reject: func(env Response[*testRequest]) *testResponse {
		return &testResponse{Response: env, Status: contracts.GenericStatusRejected}
	},
}

func acceptTestRequest(req *testRequest) *testResponse {
	return &testResponse{
		Response: NewResponse(req, contracts.OK()),
		Status:   contracts.GenericStatusAccepted,
	}
}

func testRoute(handler Handler[*testRequest, *testResponse]) Route[*testRequest, *testResponse] {
	return Route[*testRequest, *testResponse]{
		Parse: func(ctx context.Context, payload []byte, in Inbound) (*testRequest, error) {
			return TryParse(ctx, payload, parseTestRequest(in))
		},
		Handler:   handler,
		Failures:  testFailures,
		Serialize: serializeTestResponse,
	}
}

func testSignature(keyID string) contracts.Signature {
	return contracts.Signature{
		KeyID:          keyID,
		Value:          "c2ln",
		SigningMethod:  "ed25519",
		EncodingMethod: "base64",
	}
}
