package generator

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrResponseTooLarge is wrapped in an UnreachableError when the generator
// body exceeds the 10 MiB read cap.
var ErrResponseTooLarge = errors.New("generator response exceeds 10 MiB")

// RemoteError is returned when the generator answered with a non-2xx status.
// Body holds the parsed or raw-wrapped response.
type RemoteError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("generator responded with status %d", e.StatusCode)
}

// UnreachableError is returned when no response could be obtained: DNS or
// connection failures, timeouts, unusable URLs, an open circuit breaker or an
// oversized body.
type UnreachableError struct {
	URL string
	Err error
}

func (e *UnreachableError) Error() string {
	return e.Err.Error()
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}
