package actions

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataTransferRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps data of any shape", func(t *testing.T) {
		for _, data := range []string{`{"a":[1,2]}`, `[true]`, `"text"`, `42`} {
			payload := `{"vendorId":"com.example","messageId":"m1","data":` + data + `}`

			req, err := ParseDataTransferRequest(ctx, []byte(payload), inbound())

			require.NoError(t, err, data)
			got, ok := req.Data.Get()
			require.True(t, ok)
			assert.JSONEq(t, data, string(got))

			out, err := req.ToJSON().Bytes()
			require.NoError(t, err)
			assert.Equal(t, payload, string(out))
		}
	})

	t.Run("null data is absent", func(t *testing.T) {
		req, err := ParseDataTransferRequest(ctx, []byte(`{"vendorId":"v","data":null}`), inbound())

		require.NoError(t, err)
		assert.False(t, req.Data.IsSet())
	})

	t.Run("constructor compacts data and drops invalid values", func(t *testing.T) {
		a := NewDataTransferRequest("v", contracts.None[string](), json.RawMessage("{ \"x\" : 1 }"), messaging.WithRequestID("r"))
		b := NewDataTransferRequest("v", contracts.None[string](), json.RawMessage(`{"x":1}`), messaging.WithRequestID("r"))

		assert.True(t, dataEqual(a.Data, b.Data))

		bad := NewDataTransferRequest("v", contracts.None[string](), json.RawMessage(`{`))
		assert.False(t, bad.Data.IsSet())
	})

	t.Run("missing vendorId names the field", func(t *testing.T) {
		_, err := ParseDataTransferRequest(ctx, []byte(`{"messageId":"m1"}`), inbound())

		require.Error(t, err)
		assert.Equal(t, "vendorId", fieldOf(t, err))
	})

	t.Run("empty vendorId is rejected", func(t *testing.T) {
		_, err := ParseDataTransferRequest(ctx, []byte(`{"vendorId":""}`), inbound())

		require.Error(t, err)
		assert.Equal(t, "vendorId", fieldOf(t, err))
	})

	t.Run("overlong messageId is rejected", func(t *testing.T) {
		payload := `{"vendorId":"v","messageId":"` + strings.Repeat("m", MaxMessageIDLength+1) + `"}`

		_, err := ParseDataTransferRequest(ctx, []byte(payload), inbound())

		require.Error(t, err)
		assert.Equal(t, "messageId", fieldOf(t, err))
	})

	t.Run("data takes part in equality", func(t *testing.T) {
		a := MustParseDataTransferRequest(ctx, []byte(`{"vendorId":"v","data":{"x":1}}`), inbound())
		b := MustParseDataTransferRequest(ctx, []byte(`{"vendorId":"v","data":{"x":2}}`), inbound())

		assert.False(t, a.Equal(b))
		assert.NotEqual(t, a.HashCode(), b.HashCode())
	})
}

func TestDataTransferResponse(t *testing.T) {
	ctx := context.Background()
	req := MustParseDataTransferRequest(ctx, []byte(`{"vendorId":"com.example"}`), inbound())

	t.Run("accepts every status", func(t *testing.T) {
		for _, status := range []DataTransferStatus{
			DataTransferStatusAccepted,
			DataTransferStatusRejected,
			DataTransferStatusUnknownMessageID,
			DataTransferStatusUnknownVendorID,
		} {
			payload := `{"status":"` + string(status) + `"}`

			resp, err := ParseDataTransferResponse(ctx, req, []byte(payload), messaging.ResponseInbound{})

			require.NoError(t, err)
			assert.Equal(t, status, resp.Status)
		}
	})

	t.Run("unknown status names the field", func(t *testing.T) {
		_, err := ParseDataTransferResponse(ctx, req, []byte(`{"status":"Maybe"}`), messaging.ResponseInbound{})

		require.Error(t, err)
		assert.Equal(t, "status", fieldOf(t, err))
	})

	t.Run("round trip with data and statusInfo", func(t *testing.T) {
		original := NewDataTransferResponse(req, DataTransferStatusAccepted,
			contracts.Some(contracts.NewStatusInfo("Done", contracts.None[string]())),
			json.RawMessage(`{"answer":42}`),
		)
		data, err := original.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `{"status":"Accepted","statusInfo":{"reasonCode":"Done"},"data":{"answer":42}}`, string(data))

		parsed := MustParseDataTransferResponse(ctx, req, data, messaging.ResponseInboundFor(&original.ResponseHeader))

		assert.True(t, original.Equal(parsed))
		assert.Equal(t, original.HashCode(), parsed.HashCode())
	})

	t.Run("failures are rejected without data", func(t *testing.T) {
		resp := DataTransferFailures.FormationViolation(req, "vendorId: too long")

		assert.Equal(t, DataTransferStatusRejected, resp.Status)
		assert.False(t, resp.Data.IsSet())
		assert.Equal(t, contracts.ResultCodeFormationViolation, resp.Result.Code)
	})
}
