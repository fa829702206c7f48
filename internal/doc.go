// Package internal contains helper utilities that are intentionally private to credauth,
// chiefly secure random token generation and token fingerprinting.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: koanf-backed loader for the credauth command
//   - flows: pure-function flow orchestrators for every Engine operation
//   - hashpool: bounded worker pool for password hashing
//   - rate: Redis-backed login throttling
//
// # What this package must NOT do
//
//   - Export types that appear in the public credauth API.
//   - Be imported by any package outside the credauth module.
package internal
