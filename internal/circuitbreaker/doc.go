// Package circuitbreaker stops the forwarder from repeatedly dialing a
// generator service that cannot be reached.
//
// Each generator base URL gets its own breaker:
//
//   - CLOSED: calls pass through
//   - OPEN: after threshold consecutive transport failures, calls fail fast
//     with ErrOpen until the reset timeout elapses
//   - HALF-OPEN: a single probe call decides whether to close or reopen
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(5, 30*time.Second)
//	cb := registry.Breaker("http://100.105.161.92:3001")
//	if !cb.Allow() {
//	    return circuitbreaker.ErrOpen
//	}
//	if err := call(); err != nil {
//	    cb.RecordFailure()
//	} else {
//	    cb.RecordSuccess()
//	}
package circuitbreaker
