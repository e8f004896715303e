package interceptors

import (
	"context"
	"fmt"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/messaging"
)

// CallFilter decides whether a call is processed
type CallFilter interface {
	// ShouldProcess returns true if the call should be processed
	ShouldProcess(ctx context.Context, call *messaging.Call) (bool, error)
}

// CallFilterFunc is a function adapter for CallFilter
type CallFilterFunc func(ctx context.Context, call *messaging.Call) (bool, error)

// ShouldProcess implements CallFilter
func (f CallFilterFunc) ShouldProcess(ctx context.Context, call *messaging.Call) (bool, error) {
	return f(ctx, call)
}

// FilteringInterceptor answers calls the filter refuses with a fixed result code
type FilteringInterceptor struct {
	filter CallFilter
	code   contracts.ResultCode
}

// NewFilteringInterceptor creates a new filtering interceptor. Refused calls
// are answered with code, NotSupported when code is empty.
func NewFilteringInterceptor(filter CallFilter, code contracts.ResultCode) *FilteringInterceptor {
	if code == "" {
		code = contracts.ResultCodeNotSupported
	}
	return &FilteringInterceptor{
		filter: filter,
		code:   code,
	}
}

// Intercept implements Interceptor
func (i *FilteringInterceptor) Intercept(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome {
	shouldProcess, err := i.filter.ShouldProcess(ctx, call)
	if err != nil {
		return messaging.Rejected(contracts.FromException(fmt.Errorf("filter error: %w", err)))
	}

	if !shouldProcess {
		return messaging.Rejected(contracts.FromErrorResponse(i.code, fmt.Sprintf("call %s filtered", call.Action), nil))
	}

	return next.HandleCall(ctx, call)
}

// Name implements Interceptor
func (i *FilteringInterceptor) Name() string {
	return "FilteringInterceptor"
}

// CompositeFilter combines multiple filters with AND logic
type CompositeFilter struct {
	filters []CallFilter
}

// NewCompositeFilter creates a new composite filter
func NewCompositeFilter(filters ...CallFilter) *CompositeFilter {
	return &CompositeFilter{filters: filters}
}

// ShouldProcess implements CallFilter - all filters must return true
func (f *CompositeFilter) ShouldProcess(ctx context.Context, call *messaging.Call) (bool, error) {
	for _, filter := range f.filters {
		shouldProcess, err := filter.ShouldProcess(ctx, call)
		if err != nil {
			return false, err
		}
		if !shouldProcess {
			return false, nil
		}
	}
	return true, nil
}

// OrFilter combines multiple filters with OR logic
type OrFilter struct {
	filters []CallFilter
}

// NewOrFilter creates a new OR filter
func NewOrFilter(filters ...CallFilter) *OrFilter {
	return &OrFilter{filters: filters}
}

// ShouldProcess implements CallFilter - at least one filter must return true
func (f *OrFilter) ShouldProcess(ctx context.Context, call *messaging.Call) (bool, error) {
	for _, filter := range f.filters {
		shouldProcess, err := filter.ShouldProcess(ctx, call)
		if err != nil {
			return false, err
		}
		if shouldProcess {
			return true, nil
		}
	}
	return false, nil
}

// ActionFilter passes calls of the listed actions
type ActionFilter struct {
	actions map[string]bool
}

// NewActionFilter creates a filter that only allows specific actions
func NewActionFilter(actions ...string) *ActionFilter {
	actionMap := make(map[string]bool, len(actions))
	for _, a := range actions {
		actionMap[a] = true
	}
	return &ActionFilter{actions: actionMap}
}

// ShouldProcess implements CallFilter
func (f *ActionFilter) ShouldProcess(ctx context.Context, call *messaging.Call) (bool, error) {
	return f.actions[call.Action], nil
}

// SenderFilter passes calls handed over by the listed nodes
type SenderFilter struct {
	senders map[contracts.NetworkingNodeID]bool
}

func NewSenderFilter(senders ...contracts.NetworkingNodeID) *SenderFilter {
	senderMap := make(map[contracts.NetworkingNodeID]bool, len(senders))
	for _, s := range senders {
		senderMap[s] = true
	}
	return &SenderFilter{senders: senderMap}
}

// ShouldProcess implements CallFilter
func (f *SenderFilter) ShouldProcess(ctx context.Context, call *messaging.Call) (bool, error) {
	return f.senders[call.Inbound.Sender], nil
}

// ConditionalInterceptor executes an interceptor only if a condition is met
type ConditionalInterceptor struct {
	condition   CallFilter
	interceptor Interceptor
}

// NewConditionalInterceptor creates a new conditional interceptor
func NewConditionalInterceptor(condition CallFilter, interceptor Interceptor) *ConditionalInterceptor {
	return &ConditionalInterceptor{
		condition:   condition,
		interceptor: interceptor,
	}
}

// Intercept implements Interceptor
func (i *ConditionalInterceptor) Intercept(ctx context.Context, call *messaging.Call, next messaging.CallHandler) messaging.Outcome {
	shouldExecute, err := i.condition.ShouldProcess(ctx, call)
	if err != nil {
		return messaging.Rejected(contracts.FromException(err))
	}

	if shouldExecute {
		return i.interceptor.Intercept(ctx, call, next)
	}

	return next.HandleCall(ctx, call)
}

// Name implements Interceptor
func (i *ConditionalInterceptor) Name() string {
	return fmt.Sprintf("ConditionalInterceptor[%s]", i.interceptor.Name())
}
