// Package signing attaches and verifies the cryptographic signatures an OCPP
// payload may carry under "signatures".
//
// Signatures cover the canonical form of the payload: the payload without its
// signatures field, with object keys sorted. Supported methods are ed25519,
// secp256r1 and secp256k1; key ids and values are encoded as base64 or hex.
package signing
