// Package rate provides the Redis-backed failed-login throttle used by the
// credauth session manager.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys:
//   - <prefix>:rl:user:<username>  failed logins per normalized username
//   - <prefix>:rl:ip:<ip>              failed logins per client IP (optional)
//
// A key that has reached MaxLoginAttempts blocks further attempts until the
// window expires. A successful login clears the username counter.
//
// # What this package must NOT do
//
//   - Decide whether credentials are valid.
//   - Be imported outside the credauth module.
package rate
