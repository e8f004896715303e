package actions

import (
	"context"
	"testing"
	"time"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeat(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("empty request serializes to an empty object", func(t *testing.T) {
		req := NewHeartbeatRequest()

		out, err := req.MarshalJSON()

		require.NoError(t, err)
		assert.Equal(t, `{}`, string(out))
	})

	t.Run("request rejects a non object payload", func(t *testing.T) {
		_, err := ParseHeartbeatRequest(ctx, []byte(`[]`), inbound())

		assert.Error(t, err)
	})

	t.Run("response carries the current time", func(t *testing.T) {
		req := MustParseHeartbeatRequest(ctx, []byte(`{}`), inbound())
		resp := NewHeartbeatResponse(req, now)

		out, err := resp.ToJSON().Bytes()
		require.NoError(t, err)
		assert.Equal(t, `{"currentTime":"2024-05-01T12:00:00Z"}`, string(out))

		parsed, err := ParseHeartbeatResponse(ctx, req, out, messaging.ResponseInboundFor(&resp.ResponseHeader))
		require.NoError(t, err)
		assert.True(t, resp.Equal(parsed))
		assert.Equal(t, resp.HashCode(), parsed.HashCode())
	})

	t.Run("missing currentTime names the field", func(t *testing.T) {
		req := NewHeartbeatRequest()

		_, err := ParseHeartbeatResponse(ctx, req, []byte(`{}`), messaging.ResponseInbound{})

		require.Error(t, err)
		assert.Equal(t, "currentTime", fieldOf(t, err))
	})

	t.Run("malformed currentTime names the field", func(t *testing.T) {
		req := NewHeartbeatRequest()

		_, err := ParseHeartbeatResponse(ctx, req, []byte(`{"currentTime":"yesterday"}`), messaging.ResponseInbound{})

		require.Error(t, err)
		assert.Equal(t, "currentTime", fieldOf(t, err))
	})

	t.Run("failure still reports a time", func(t *testing.T) {
		req := NewHeartbeatRequest()

		resp := HeartbeatFailures.Failed(req, "clock unavailable")

		assert.Equal(t, contracts.ResultCodeGenericError, resp.Result.Code)
		assert.WithinDuration(t, time.Now(), resp.CurrentTime, time.Second)
	})
}
