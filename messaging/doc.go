// Package messaging provides the request and response envelopes every OCPP message embeds.
//
// This package implements:
//   - Request: the envelope embedded by value in concrete requests
//   - Response: the generic envelope embedded by value in concrete responses, keeping the answered request
//   - FailureFactory: type-safe construction of rejecting responses for a given result
//   - TryParse / Serialize: the parse and serialize pipelines with custom hooks and JSON-LD context
//   - Handle: the processing boundary that turns errors and panics into failed responses
//   - Frame: OCPP-J CALL, CALLRESULT and CALLERROR framing
//   - Dispatcher and RequestTracker: routing of inbound frames and correlation of responses
//
// Example usage:
//
//	dispatcher := messaging.NewDispatcher(
//		messaging.WithTracker(messaging.NewRequestTracker()),
//	)
//	err := dispatcher.Register(actions.ActionReset, actions.ResetRoute(handleReset))
//
//	reply, err := dispatcher.Dispatch(ctx, frame, messaging.Inbound{
//		Sender:      "CSMS",
//		NetworkPath: contracts.NewNetworkPath("CSMS", "CS01"),
//	})
package messaging
