package apperr

import "errors"

// ErrInvalid is returned when the input or a precondition fails domain validation (HTTP 400).
var ErrInvalid = errors.New("invalid input")

// ErrConflict indicates that a job or courier was no longer eligible when the transaction
// committed (HTTP 409). Callers may retry against a different candidate.
var ErrConflict = errors.New("conflict")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")
