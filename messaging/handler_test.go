package messaging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTestHandler struct {
	mock.Mock
}

func (m *mockTestHandler) Handle(ctx context.Context, req *testRequest) (*testResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*testResponse), args.Error(1)
}

func TestHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the handler response", func(t *testing.T) {
		req := newTestRequest("hi")
		expected := acceptTestRequest(req)
		h := &mockTestHandler{}
		h.On("Handle", ctx, req).Return(expected, nil)

		resp := Handle(ctx, req, h.Handle, testFailures)

		assert.Same(t, expected, resp)
		h.AssertExpectations(t)
	})

	t.Run("converts an error into a rejected response", func(t *testing.T) {
		req := newTestRequest("hi")
		h := &mockTestHandler{}
		h.On("Handle", ctx, req).Return(nil, errors.New("db down"))

		resp := Handle(ctx, req, h.Handle, testFailures)

		require.NotNil(t, resp)
		assert.Equal(t, contracts.ResultCodeInternalError, resp.Result.Code)
		assert.Equal(t, "db down", resp.Result.Description.OrElse(""))
		assert.Equal(t, contracts.GenericStatusRejected, resp.Status)
	})

	t.Run("recovers from a panic and logs it", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		req := newTestRequest("hi")

		resp := Handle(ctx, req, func(context.Context, *testRequest) (*testResponse, error) {
			panic("unexpected state")
		}, testFailures, WithBoundaryLogger(logger))

		require.NotNil(t, resp)
		assert.Equal(t, contracts.ResultCodeInternalError, resp.Result.Code)
		assert.Contains(t, resp.Result.Description.OrElse(""), "unexpected state")
		assert.Contains(t, buf.String(), "handler panicked")
	})

	t.Run("does not run the handler for a cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		h := &mockTestHandler{}

		resp := Handle(cancelled, newTestRequest("hi"), h.Handle, testFailures)

		assert.False(t, resp.Result.IsOK())
		h.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})
}

func TestRoute(t *testing.T) {
	ctx := context.Background()
	in := Inbound{RequestID: "req-1", Sender: "CS01", NetworkPath: contracts.NewNetworkPath("CS01", "CSMS")}

	t.Run("accepted call serializes the response", func(t *testing.T) {
		route := testRoute(func(_ context.Context, req *testRequest) (*testResponse, error) {
			return acceptTestRequest(req), nil
		})

		outcome := route.HandleCall(ctx, &Call{Action: testAction, Payload: []byte(`{"note":"hi"}`), Inbound: in})

		assert.True(t, outcome.Result.IsOK())
		assert.JSONEq(t, `{"status":"Accepted"}`, string(mustBytes(t, outcome.Payload)))
	})

	t.Run("unparseable payload is a formation violation without payload", func(t *testing.T) {
		route := testRoute(func(context.Context, *testRequest) (*testResponse, error) {
			t.Fatal("handler must not run")
			return nil, nil
		})

		outcome := route.HandleCall(ctx, &Call{Action: testAction, Payload: []byte(`{}`), Inbound: in})

		assert.Equal(t, contracts.ResultCodeFormationViolation, outcome.Result.Code)
		assert.Nil(t, outcome.Payload)
	})

	t.Run("failed handler still yields a rejecting payload", func(t *testing.T) {
		route := testRoute(func(context.Context, *testRequest) (*testResponse, error) {
			return nil, errors.New("boom")
		})

		outcome := route.HandleCall(ctx, &Call{Action: testAction, Payload: []byte(`{"note":"hi"}`), Inbound: in})

		assert.Equal(t, contracts.ResultCodeInternalError, outcome.Result.Code)
		assert.JSONEq(t, `{"status":"Rejected"}`, string(mustBytes(t, outcome.Payload)))
	})

	t.Run("handler without a response is a failure", func(t *testing.T) {
		route := testRoute(func(context.Context, *testRequest) (*testResponse, error) {
			return nil, nil
		})

		var outcome Outcome
		require.NotPanics(t, func() {
			outcome = route.HandleCall(ctx, &Call{Action: testAction, Payload: []byte(`{"note":"hi"}`), Inbound: in})
		})

		assert.Equal(t, contracts.ResultCodeGenericError, outcome.Result.Code)
		assert.Equal(t, "handler returned no response", outcome.Result.Description.OrElse(""))
		assert.JSONEq(t, `{"status":"Rejected"}`, string(mustBytes(t, outcome.Payload)))
	})

	t.Run("panicking parse hook is an internal error", func(t *testing.T) {
		route := testRoute(func(_ context.Context, req *testRequest) (*testResponse, error) {
			return acceptTestRequest(req), nil
		})
		route.Parse = func(context.Context, []byte, Inbound) (*testRequest, error) {
			panic("hook broke")
		}

		var outcome Outcome
		require.NotPanics(t, func() {
			outcome = route.HandleCall(ctx, &Call{Action: testAction, Payload: []byte(`{"note":"hi"}`), Inbound: in})
		})

		assert.Equal(t, contracts.ResultCodeInternalError, outcome.Result.Code)
		assert.Contains(t, outcome.Result.Description.OrElse(""), "hook broke")
	})
}
