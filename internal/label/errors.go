package label

import (
	"encoding/json"
	"errors"
	"fmt"
)

// InvalidBodyError reports a request body that is not a JSON object or has a
// field of the wrong JSON type.
type InvalidBodyError struct {
	Reason string
	Err    error
}

func (e *InvalidBodyError) Error() string {
	return "invalid request body: " + e.Reason
}

func (e *InvalidBodyError) Unwrap() error {
	return e.Err
}

func newInvalidBodyError(err error) *InvalidBodyError {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &syntaxErr):
		return &InvalidBodyError{
			Reason: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset),
			Err:    err,
		}
	case errors.As(err, &typeErr) && typeErr.Field == "":
		return &InvalidBodyError{Reason: "body must be a JSON object", Err: err}
	case errors.As(err, &typeErr):
		return &InvalidBodyError{
			Reason: fmt.Sprintf("field %q must be %s, got %s", typeErr.Field, expectedKind(typeErr.Field), typeErr.Value),
			Err:    err,
		}
	default:
		return &InvalidBodyError{Reason: err.Error(), Err: err}
	}
}

func expectedKind(field string) string {
	if field == "data" {
		return "an object"
	}
	return "a string"
}
