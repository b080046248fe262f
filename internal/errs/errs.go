// Package errs defines the error kinds shared across the registry and
// member: InvalidInput, NotFound, Gone, Transient and Fatal. Handlers
// translate these to HTTP status codes with HTTPStatus; callers classify
// errors with errors.Is against the sentinel values.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput marks a malformed request or config value. Never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a reference to an instance_id the registry has never seen.
	ErrNotFound = errors.New("not found")
	// ErrGone marks a reference to an instance_id that has been deregistered.
	ErrGone = errors.New("gone")
	// ErrTransient marks a network or store failure that is expected to clear
	// on the next scheduled retry.
	ErrTransient = errors.New("transient failure")
	// ErrFatal marks an unrecoverable startup condition; callers should exit
	// non-zero after logging it.
	ErrFatal = errors.New("fatal")
)

// Wrap annotates err with msg while preserving errors.Is matching against kind.
func Wrap(kind error, msg string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", msg, kind)
	}
	return fmt.Errorf("%s: %w: %w", msg, kind, err)
}

// HTTPStatus maps an error kind to the status code the HTTP surface returns.
// Errors that match none of the sentinels are treated as transient-on-write
// (500) since registry handlers only ever see store or validation failures.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrGone):
		return http.StatusGone
	case errors.Is(err, ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
