// Package contracts provides the primitive value types shared by every OCPP message envelope.
//
// This package defines the building blocks that requests and responses are made of:
//   - RequestID, EventTrackingID, NetworkingNodeID: validated opaque identifiers
//   - Optional: explicit presence for optional wire fields
//   - NetworkPath, SourceRouting: multi-hop addressing and response route reversal
//   - Signature, CustomData, StatusInfo: structured entities attached to payloads
//   - Result: the outcome taxonomy carried by every response
//
// All values are immutable once constructed and safe to share between goroutines.
package contracts
