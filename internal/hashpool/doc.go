// Package hashpool bounds how many password hash computations run at once.
//
// argon2id is deliberately memory and CPU hungry; an unbounded burst of logins
// would otherwise multiply its memory cost by the number of in-flight requests.
// Callers queue on a weighted semaphore and give up when their context ends.
//
// # What this package must NOT do
//
//   - Know anything about passwords or hash formats; it only runs closures.
//   - Spawn goroutines; work runs on the caller's goroutine.
package hashpool
