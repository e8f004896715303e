package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/glimte/ocpp-envelope/contracts"
)

// MiddlewareFunc processes calls before they reach handlers
type MiddlewareFunc func(ctx context.Context, call *Call, next CallHandler) Outcome

// Dispatcher routes inbound OCPP-J frames to the handler registered for their action.
// CALL frames produce an encoded reply; CALLRESULT and CALLERROR frames complete
// pending requests on the tracker, if one is configured.
type Dispatcher struct {
	handlers   map[string]CallHandler
	mu         sync.RWMutex
	logger     *slog.Logger
	middleware []MiddlewareFunc
	tracker    *RequestTracker
	now        func() time.Time
}

// DispatcherOption configures the Dispatcher
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMiddleware adds middleware to the dispatcher
func WithMiddleware(middleware ...MiddlewareFunc) DispatcherOption {
	return func(d *Dispatcher) {
		d.middleware = append(d.middleware, middleware...)
	}
}

// WithTracker completes pending requests from response frames
func WithTracker(tracker *RequestTracker) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracker = tracker
	}
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]CallHandler),
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range options {
		opt(d)
	}

	return d
}

// Register binds handler to action. An action has at most one handler.
func (d *Dispatcher) Register(action string, handler CallHandler) error {
	if action == "" {
		return fmt.Errorf("action cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[action]; exists {
		return fmt.Errorf("handler already registered for action: %s", action)
	}
	d.handlers[action] = handler

	d.logger.Info("registered call handler", "action", action)
	return nil
}

// Unregister removes the handler for action
func (d *Dispatcher) Unregister(action string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[action]; !exists {
		return fmt.Errorf("no handler registered for action: %s", action)
	}
	delete(d.handlers, action)

	d.logger.Info("unregistered call handler", "action", action)
	return nil
}

// Actions returns the registered actions, sorted
func (d *Dispatcher) Actions() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	actions := make([]string, 0, len(d.handlers))
	for action := range d.handlers {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}

// Dispatch decodes data and processes it. The returned reply is nil for response frames.
// An undecodable frame is an error because there is no message id to answer to.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte, in Inbound) ([]byte, error) {
	frame, err := DecodeFrame(data)
	if err != nil {
		d.logger.Warn("dropping undecodable frame", "error", err)
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return d.DispatchFrame(ctx, frame, in)
}

// DispatchFrame processes a decoded frame
func (d *Dispatcher) DispatchFrame(ctx context.Context, frame *Frame, in Inbound) ([]byte, error) {
	switch frame.Type {
	case MessageTypeCallResult, MessageTypeCallError:
		if d.tracker == nil {
			return nil, fmt.Errorf("no tracker configured for %s frame %s", frame.Type, frame.ID)
		}
		return nil, d.tracker.Complete(frame)
	case MessageTypeCall:
	default:
		return nil, fmt.Errorf("unknown message type %d", int(frame.Type))
	}

	in.RequestID = frame.ID
	if in.Timestamp.IsZero() {
		in.Timestamp = d.now()
	}
	call := &Call{Action: frame.Action, Payload: frame.Payload, Inbound: in}

	outcome := d.handle(ctx, call)
	logger := d.logger.With("action", call.Action, "requestId", frame.ID.String())

	if !outcome.Result.IsOK() {
		logger.Info("call rejected", "result", outcome.Result.String())
		return EncodeCallError(frame.ID, outcome.Result)
	}

	payload := outcome.Payload
	if payload == nil {
		payload = contracts.NewJSONWriter()
	}
	reply, err := EncodeCallResult(frame.ID, payload)
	if err != nil {
		logger.Error("failed to encode response", "error", err)
		return EncodeCallError(frame.ID, contracts.FromException(err))
	}

	logger.Debug("call dispatched successfully")
	return reply, nil
}

func (d *Dispatcher) handle(ctx context.Context, call *Call) Outcome {
	d.mu.RLock()
	handler, exists := d.handlers[call.Action]
	d.mu.RUnlock()

	if !exists {
		d.logger.Warn("no handler registered for action", "action", call.Action)
		return Rejected(contracts.Result{
			Code:        contracts.ResultCodeNotImplemented,
			Description: contracts.Some(fmt.Sprintf("unknown action %q", call.Action)),
		})
	}

	return d.buildMiddlewareChain(handler).HandleCall(ctx, call)
}

// buildMiddlewareChain wraps handler so the first middleware runs first
func (d *Dispatcher) buildMiddlewareChain(handler CallHandler) CallHandler {
	result := handler
	for i := len(d.middleware) - 1; i >= 0; i-- {
		middleware := d.middleware[i]
		next := result
		result = CallHandlerFunc(func(ctx context.Context, call *Call) Outcome {
			return middleware(ctx, call, next)
		})
	}
	return result
}
