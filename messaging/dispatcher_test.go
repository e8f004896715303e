package messaging

import (
	"context"
	"testing"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acceptingRoute() Route[*testRequest, *testResponse] {
	return testRoute(func(_ context.Context, req *testRequest) (*testResponse, error) {
		return acceptTestRequest(req), nil
	})
}

func TestDispatcher(t *testing.T) {
	ctx := context.Background()
	in := Inbound{Sender: "CS01", NetworkPath: contracts.NewNetworkPath("CS01", "CSMS")}

	t.Run("Register rejects duplicates and empty input", func(t *testing.T) {
		d := NewDispatcher()

		require.NoError(t, d.Register(testAction, acceptingRoute()))
		assert.Error(t, d.Register(testAction, acceptingRoute()))
		assert.Error(t, d.Register("", acceptingRoute()))
		assert.Error(t, d.Register("Other", nil))
		assert.Equal(t, []string{testAction}, d.Actions())
	})

	t.Run("Unregister removes the handler", func(t *testing.T) {
		d := NewDispatcher()
		require.NoError(t, d.Register(testAction, acceptingRoute()))

		require.NoError(t, d.Unregister(testAction))
		assert.Error(t, d.Unregister(testAction))
		assert.Empty(t, d.Actions())
	})

	t.Run("CALL produces a CALLRESULT", func(t *testing.T) {
		d := NewDispatcher()
		require.NoError(t, d.Register(testAction, acceptingRoute()))

		reply, err := d.Dispatch(ctx, []byte(`[2,"id-1","Test",{"note":"hi"}]`), in)

		require.NoError(t, err)
		assert.Equal(t, `[3,"id-1",{"status":"Accepted"}]`, string(reply))
	})

	t.Run("invalid payload produces a CALLERROR", func(t *testing.T) {
		d := NewDispatcher()
		require.NoError(t, d.Register(testAction, acceptingRoute()))

		reply, err := d.Dispatch(ctx, []byte(`[2,"id-1","Test",{}]`), in)

		require.NoError(t, err)
		f, err := DecodeFrame(reply)
		require.NoError(t, err)
		assert.Equal(t, MessageTypeCallError, f.Type)
		assert.Equal(t, contracts.ResultCodeFormationViolation, f.ErrorCode)
		assert.Contains(t, f.ErrorDescription, "'note'")
	})

	t.Run("unknown action is NotImplemented", func(t *testing.T) {
		d := NewDispatcher()

		reply, err := d.Dispatch(ctx, []byte(`[2,"id-1","Nope",{}]`), in)

		require.NoError(t, err)
		f, err := DecodeFrame(reply)
		require.NoError(t, err)
		assert.Equal(t, contracts.ResultCodeNotImplemented, f.ErrorCode)
	})

	t.Run("undecodable frame is an error", func(t *testing.T) {
		d := NewDispatcher()

		reply, err := d.Dispatch(ctx, []byte(`nope`), in)

		assert.Nil(t, reply)
		assert.Error(t, err)
	})

	t.Run("middleware runs in registration order", func(t *testing.T) {
		var order []string
		record := func(name string) MiddlewareFunc {
			return func(ctx context.Context, call *Call, next CallHandler) Outcome {
				order = append(order, name)
				return next.HandleCall(ctx, call)
			}
		}
		d := NewDispatcher(WithMiddleware(record("first"), record("second")))
		require.NoError(t, d.Register(testAction, acceptingRoute()))

		_, err := d.Dispatch(ctx, []byte(`[2,"id-1","Test",{"note":"hi"}]`), in)

		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("middleware can short circuit", func(t *testing.T) {
		deny := func(context.Context, *Call, CallHandler) Outcome {
			return Rejected(contracts.Result{Code: contracts.ResultCodeSecurityError})
		}
		d := NewDispatcher(WithMiddleware(deny))
		require.NoError(t, d.Register(testAction, acceptingRoute()))

		reply, err := d.Dispatch(ctx, []byte(`[2,"id-1","Test",{"note":"hi"}]`), in)

		require.NoError(t, err)
		assert.Equal(t, `[4,"id-1","SecurityError","",{}]`, string(reply))
	})

	t.Run("response frames complete tracked requests", func(t *testing.T) {
		tracker := NewRequestTracker()
		d := NewDispatcher(WithTracker(tracker))
		req := NewRequest(testAction, WithRequestID("id-9"))
		require.NoError(t, tracker.Track(&req))

		reply, err := d.Dispatch(ctx, []byte(`[3,"id-9",{"status":"Accepted"}]`), in)

		require.NoError(t, err)
		assert.Nil(t, reply)
		p, ok := tracker.Get("id-9")
		require.True(t, ok)
		assert.Equal(t, RequestStatusCompleted, p.Status)
	})

	t.Run("response frames without a tracker are an error", func(t *testing.T) {
		d := NewDispatcher()

		_, err := d.Dispatch(ctx, []byte(`[3,"id-9",{}]`), in)

		assert.Error(t, err)
	})
}
