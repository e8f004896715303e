// Package actions holds concrete OCPP request and response payloads built on the
// messaging envelope: Reset, Heartbeat and DataTransfer.
//
// Every type follows the same pattern. A constructor fills the envelope and caches
// the hash code; ParseX reads a payload plus transport metadata and reports the
// offending field on failure; MustParseX panics instead; ToJSON accepts custom
// serializers; Equal and HashCode cover the declared fields and the envelope.
// Each response type has a failure factory that builds a rejecting payload.
package actions
