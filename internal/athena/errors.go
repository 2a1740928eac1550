package athena

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse is returned when a 2xx response lacks the fields
	// the caller needs (patient id, appointment payload, access token).
	ErrMalformedResponse = errors.New("athena: malformed response")

	// ErrCacheMiss is returned by a TokenCache that holds no usable token.
	ErrCacheMiss = errors.New("athena: token cache miss")
)

// AuthError reports a failed client-credentials exchange.
type AuthError struct {
	StatusCode int // zero when the endpoint was unreachable
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("athena: authentication failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("athena: authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response from a resource endpoint.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("athena: %s: API error (status %d): %s", e.Op, e.StatusCode, e.Body)
}
