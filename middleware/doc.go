// Package middleware adapts credauth sessions to net/http.
//
// [RequireSession] reads the session token from a cookie or an
// Authorization bearer header, validates it with the engine, and stores
// the session in the request context for [SessionFromContext].
// [ClientContext] attaches the caller's address and user agent so the
// engine can throttle by IP and fill audit records.
//
// Authentication decisions stay in the engine; this package only maps its
// errors onto HTTP status codes.
package middleware
