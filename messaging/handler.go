package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"

	"github.com/glimte/ocpp-envelope/contracts"
)

// Call is one inbound request as a transport hands it over: the action, the
// raw payload and the transport metadata.
type Call struct {
	Action  string
	Payload json.RawMessage
	Inbound Inbound
}

// Outcome is what processing a Call produced. Payload is nil when the result is not OK
// and no rejecting payload could be built.
type Outcome struct {
	Payload *contracts.JSONWriter
	Result  contracts.Result
}

// Rejected builds an outcome without a payload
func Rejected(result contracts.Result) Outcome {
	return Outcome{Result: result}
}

// CallHandler processes raw calls
type CallHandler interface {
	HandleCall(ctx context.Context, call *Call) Outcome
}

// CallHandlerFunc is a function adapter for CallHandler
type CallHandlerFunc func(ctx context.Context, call *Call) Outcome

// HandleCall implements CallHandler
func (f CallHandlerFunc) HandleCall(ctx context.Context, call *Call) Outcome {
	return f(ctx, call)
}

// HasResponseHeader is implemented by every concrete response through its embedded Response
type HasResponseHeader interface {
	Header() *ResponseHeader
}

// Header implements HasResponseHeader
func (h *ResponseHeader) Header() *ResponseHeader {
	return h
}

// Handler processes a typed request. Returned errors never escape the boundary.
type Handler[Req HasEnvelope, Resp any] func(ctx context.Context, req Req) (Resp, error)

type boundaryConfig struct {
	logger *slog.Logger
}

// BoundaryOption configures Handle
type BoundaryOption func(*boundaryConfig)

// WithBoundaryLogger sets the logger used to report swallowed failures
func WithBoundaryLogger(logger *slog.Logger) BoundaryOption {
	return func(c *boundaryConfig) {
		c.logger = logger
	}
}

// Handle runs handler at the processing boundary. Errors, panics and a done
// context are converted into a failed response built by failures, so the
// caller always gets a structurally complete response.
func Handle[Req HasEnvelope, Resp any](ctx context.Context, req Req, handler Handler[Req, Resp], failures FailureFactory[Req, Resp], opts ...BoundaryOption) (resp Resp) {
	cfg := &boundaryConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	env := req.Envelope()
	logger := cfg.logger.With("action", env.Action, "requestId", env.ID.String())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			resp = failures.ExceptionOccurred(req, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		logger.Warn("request abandoned before processing", "error", err)
		return failures.ExceptionOccurred(req, err)
	}

	resp, err := handler(ctx, req)
	if err != nil {
		logger.Error("handler failed", "error", err)
		return failures.ExceptionOccurred(req, err)
	}
	if isNil(resp) {
		logger.Error("handler returned no response")
		return failures.Failed(req, "handler returned no response")
	}
	return resp
}

// isNil also catches typed nil pointers held in an interface
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Route binds a typed handler to the raw call pipeline: parse, handle at the
// boundary, serialize.
type Route[Req HasEnvelope, Resp HasResponseHeader] struct {
	Parse     func(ctx context.Context, payload []byte, in Inbound) (Req, error)
	Handler   Handler[Req, Resp]
	Failures  FailureFactory[Req, Resp]
	Serialize func(resp Resp) *contracts.JSONWriter
	Options   []BoundaryOption
}

// HandleCall implements CallHandler. Panics raised by parse or serialize
// hooks become an InternalError outcome.
func (r Route[Req, Resp]) HandleCall(ctx context.Context, call *Call) (outcome Outcome) {
	defer func() {
		if p := recover(); p != nil {
			outcome = Rejected(contracts.FromException(fmt.Errorf("panic: %v", p)))
		}
	}()

	req, err := r.Parse(ctx, call.Payload, call.Inbound)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Rejected(contracts.FromException(ctxErr))
		}
		return Rejected(contracts.FormationViolationResult(err.Error()))
	}

	resp := Handle(ctx, req, r.Handler, r.Failures, r.Options...)
	return Outcome{
		Payload: r.Serialize(resp),
		Result:  resp.Header().Result,
	}
}
