// Package session provides the Redis-backed session table and the compact
// binary encoding of [Session] values.
//
// # Key layout
//
//	<prefix>:<sessionID>         encoded session, TTL = remaining lifetime
//	<prefix>:subject:<subjectID> set of live session IDs for logout-all
//
// # What this package must NOT do
//
//   - Import credauth (no upward imports).
//   - Store plaintext session tokens.
//   - Make authentication decisions; it only persists and expires records.
package session
