package interceptors

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/messaging"
	"github.com/glimte/ocpp-envelope/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockHandler struct {
	mock.Mock
}

func (m *mockHandler) HandleCall(ctx context.Context, call *messaging.Call) messaging.Outcome {
	args := m.Called(ctx, call)
	return args.Get(0).(messaging.Outcome)
}

type mockMetricsCollector struct {
	mock.Mock
}

func (m *mockMetricsCollector) IncrementCallCount(action string) {
	m.Called(action)
}

func (m *mockMetricsCollector) RecordProcessingTime(action string, duration time.Duration) {
	m.Called(action, duration)
}

func (m *mockMetricsCollector) IncrementErrorCount(action string, code contracts.ResultCode) {
	m.Called(action, code)
}

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) Validate(ctx context.Context, action string, payload []byte) *schema.ValidationResult {
	args := m.Called(ctx, action, payload)
	return args.Get(0).(*schema.ValidationResult)
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(payload json.RawMessage) contracts.Result {
	args := m.Called(payload)
	return args.Get(0).(contracts.Result)
}

func testCall() *messaging.Call {
	return &messaging.Call{
		Action:  "Reset",
		Payload: json.RawMessage(`{"type":"Immediate"}`),
		Inbound: messaging.Inbound{RequestID: "req-1", Sender: "CS01"},
	}
}

func accepted() messaging.Outcome {
	return messaging.Outcome{
		Payload: contracts.NewJSONWriter().Set("status", "Accepted"),
		Result:  contracts.OK(),
	}
}

func recordingInterceptor(name string, order *[]string) Interceptor {
	return NewInterceptorFunc(name, func(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome {
		*order = append(*order, name)
		return next.HandleCall(ctx, call)
	})
}

func TestInterceptorChain(t *testing.T) {
	t.Run("NewInterceptorChain creates empty chain", func(t *testing.T) {
		logger := slog.Default()
		chain := NewInterceptorChain(logger)

		assert.NotNil(t, chain)
		assert.Equal(t, logger, chain.logger)
		assert.Empty(t, chain.interceptors)
	})

	t.Run("empty chain calls the final handler", func(t *testing.T) {
		chain := NewInterceptorChain(nil)
		handler := &mockHandler{}
		call := testCall()
		handler.On("HandleCall", mock.Anything, call).Return(accepted())

		outcome := chain.Execute(context.Background(), call, handler)

		assert.True(t, outcome.Result.IsOK())
		handler.AssertExpectations(t)
	})

	t.Run("interceptors run in the order they were added", func(t *testing.T) {
		var order []string
		chain := NewInterceptorChain(nil).
			Add(recordingInterceptor("first", &order)).
			Add(recordingInterceptor("second", &order))
		handler := &mockHandler{}
		handler.On("HandleCall", mock.Anything, mock.Anything).Return(accepted()).Run(func(mock.Arguments) {
			order = append(order, "handler")
		})

		chain.Execute(context.Background(), testCall(), handler)

		assert.Equal(t, []string{"first", "second", "handler"}, order)
		assert.Equal(t, []string{"first", "second"}, chain.Names())
	})

	t.Run("an interceptor can answer without calling next", func(t *testing.T) {
		chain := NewInterceptorChain(nil).Add(NewInterceptorFunc("deny", func(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome {
			return messaging.Rejected(contracts.SignatureErrorResult("no"))
		}))
		handler := &mockHandler{}

		outcome := chain.Execute(context.Background(), testCall(), handler)

		assert.Equal(t, contracts.ResultCodeSignatureError, outcome.Result.Code)
		handler.AssertNotCalled(t, "HandleCall", mock.Anything, mock.Anything)
	})

	t.Run("plugs into the dispatcher as middleware", func(t *testing.T) {
		var order []string
		chain := NewInterceptorChain(nil).Add(recordingInterceptor("chain", &order))
		d := messaging.NewDispatcher(messaging.WithMiddleware(chain.Middleware()))
		require.NoError(t, d.Register("Reset", messaging.CallHandlerFunc(func(ctx context.Context, call *messaging.Call) messaging.Outcome {
			order = append(order, "handler")
			return accepted()
		})))

		reply, err := d.Dispatch(context.Background(), []byte(`[2,"id-1","Reset",{"type":"Immediate"}]`), messaging.Inbound{})

		require.NoError(t, err)
		assert.Equal(t, `[3,"id-1",{"status":"Accepted"}]`, string(reply))
		assert.Equal(t, []string{"chain", "handler"}, order)
	})
}

func TestRecoveryInterceptor(t *testing.T) {
	t.Run("turns a panic into an internal error", func(t *testing.T) {
		var buf bytes.Buffer
		interceptor := NewRecoveryInterceptor(slog.New(slog.NewTextHandler(&buf, nil)))
		panicking := messaging.CallHandlerFunc(func(ctx context.Context, call *messaging.Call) messaging.Outcome {
			panic("boom")
		})

		outcome := interceptor.Intercept(context.Background(), testCall(), panicking)

		assert.Equal(t, contracts.ResultCodeInternalError, outcome.Result.Code)
		assert.Contains(t, outcome.Result.Description.OrElse(""), "boom")
		assert.Contains(t, buf.String(), "call handler panicked")
	})
}

func TestLoggingInterceptor(t *testing.T) {
	t.Run("logs processed and rejected calls", func(t *testing.T) {
		var buf bytes.Buffer
		interceptor := NewLoggingInterceptor(slog.New(slog.NewTextHandler(&buf, nil)))
		handler := &mockHandler{}
		handler.On("HandleCall", mock.Anything, mock.Anything).Return(accepted()).Once()
		handler.On("HandleCall", mock.Anything, mock.Anything).Return(messaging.Rejected(contracts.Failed("nope"))).Once()

		interceptor.Intercept(context.Background(), testCall(), handler)
		interceptor.Intercept(context.Background(), testCall(), handler)

		assert.Contains(t, buf.String(), "call processed")
		assert.Contains(t, buf.String(), "call rejected")
		assert.Contains(t, buf.String(), "action=Reset")
	})
}

func TestMetricsInterceptor(t *testing.T) {
	t.Run("counts calls and failures per action", func(t *testing.T) {
		collector := &mockMetricsCollector{}
		collector.On("IncrementCallCount", "Reset").Return()
		collector.On("RecordProcessingTime", "Reset", mock.AnythingOfType("time.Duration")).Return()
		collector.On("IncrementErrorCount", "Reset", contracts.ResultCodeGenericError).Return()
		handler := &mockHandler{}
		handler.On("HandleCall", mock.Anything, mock.Anything).Return(messaging.Rejected(contracts.Failed("x")))

		NewMetricsInterceptor(collector).Intercept(context.Background(), testCall(), handler)

		collector.AssertExpectations(t)
	})

	t.Run("does not count successful calls as errors", func(t *testing.T) {
		collector := &mockMetricsCollector{}
		collector.On("IncrementCallCount", "Reset").Return()
		collector.On("RecordProcessingTime", "Reset", mock.Anything).Return()
		handler := &mockHandler{}
		handler.On("HandleCall", mock.Anything, mock.Anything).Return(accepted())

		NewMetricsInterceptor(collector).Intercept(context.Background(), testCall(), handler)

		collector.AssertNotCalled(t, "IncrementErrorCount", mock.Anything, mock.Anything)
	})
}

func TestValidationAndSignatures(t *testing.T) {
	call := testCall()

	t.Run("invalid payload is a formation violation and signatures are not checked", func(t *testing.T) {
		validator := &mockValidator{}
		validator.On("Validate", mock.Anything, "Reset", []byte(call.Payload)).Return(&schema.ValidationResult{
			Valid:  false,
			Errors: []schema.ValidationError{{Field: "type", Message: "required field is missing"}},
		})
		verifier := &mockVerifier{}
		handler := &mockHandler{}
		chain := NewDefaultInterceptorChainBuilder(nil).WithValidation(validator).WithSignatures(verifier).Build()

		outcome := chain.Execute(context.Background(), call, handler)

		assert.Equal(t, contracts.ResultCodeFormationViolation, outcome.Result.Code)
		verifier.AssertNotCalled(t, "Verify", mock.Anything)
		handler.AssertNotCalled(t, "HandleCall", mock.Anything, mock.Anything)
	})

	t.Run("bad signature is a signature error", func(t *testing.T) {
		validator := &mockValidator{}
		validator.On("Validate", mock.Anything, "Reset", mock.Anything).Return(&schema.ValidationResult{Valid: true})
		verifier := &mockVerifier{}
		verifier.On("Verify", call.Payload).Return(contracts.SignatureErrorResult("signatures[0]: invalid signature"))
		handler := &mockHandler{}
		chain := NewDefaultInterceptorChainBuilder(nil).WithValidation(validator).WithSignatures(verifier).Build()

		outcome := chain.Execute(context.Background(), call, handler)

		assert.Equal(t, contracts.ResultCodeSignatureError, outcome.Result.Code)
		handler.AssertNotCalled(t, "HandleCall", mock.Anything, mock.Anything)
	})

	t.Run("handler sees the call marked verified", func(t *testing.T) {
		validator := &mockValidator{}
		validator.On("Validate", mock.Anything, "Reset", mock.Anything).Return(&schema.ValidationResult{Valid: true})
		verifier := &mockVerifier{}
		verifier.On("Verify", mock.Anything).Return(contracts.OK())
		var verified bool
		final := messaging.CallHandlerFunc(func(ctx context.Context, call *messaging.Call) messaging.Outcome {
			verified = IsVerified(ctx)
			return accepted()
		})
		chain := NewDefaultInterceptorChainBuilder(nil).WithValidation(validator).WithSignatures(verifier).Build()

		outcome := chain.Execute(context.Background(), call, final)

		assert.True(t, outcome.Result.IsOK())
		assert.True(t, verified)
	})
}

func TestTimeoutInterceptor(t *testing.T) {
	slow := messaging.CallHandlerFunc(func(ctx context.Context, call *messaging.Call) messaging.Outcome {
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
		return accepted()
	})

	t.Run("times out slow handlers", func(t *testing.T) {
		outcome := NewTimeoutInterceptor(20*time.Millisecond).Intercept(context.Background(), testCall(), slow)

		assert.Equal(t, contracts.ResultCodeInternalError, outcome.Result.Code)
		assert.Contains(t, outcome.Result.Description.OrElse(""), "timed out")
	})

	t.Run("the call's own timeout wins", func(t *testing.T) {
		call := testCall()
		call.Inbound.Timeout = 10 * time.Millisecond

		start := time.Now()
		outcome := NewTimeoutInterceptor(time.Hour).Intercept(context.Background(), call, slow)

		assert.False(t, outcome.Result.IsOK())
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("a panic below the timeout is still an internal error", func(t *testing.T) {
		panicking := messaging.CallHandlerFunc(func(ctx context.Context, call *messaging.Call) messaging.Outcome {
			panic("boom")
		})
		chain := NewDefaultInterceptorChainBuilder(nil).WithRecovery().WithTimeout(time.Second).Build()

		var outcome messaging.Outcome
		require.NotPanics(t, func() {
			outcome = chain.Execute(context.Background(), testCall(), panicking)
		})

		assert.Equal(t, contracts.ResultCodeInternalError, outcome.Result.Code)
		assert.Contains(t, outcome.Result.Description.OrElse(""), "boom")
	})

	t.Run("fast handlers pass", func(t *testing.T) {
		handler := &mockHandler{}
		handler.On("HandleCall", mock.Anything, mock.Anything).Return(accepted())

		outcome := NewTimeoutInterceptor(time.Second).Intercept(context.Background(), testCall(), handler)

		assert.True(t, outcome.Result.IsOK())
	})
}
