package marketplace

import "errors"

// ErrNotFound is returned when a job is missing or not visible to the caller.
var ErrNotFound = errors.New("service not found")

// ErrNotOpen is returned when a job no longer accepts the requested change,
// e.g. confirming a job that already has a provider.
var ErrNotOpen = errors.New("service is no longer open")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

var (
	errNoBid       = invalid("provider has no bid on this service")
	errBidMismatch = invalid("accepted bid does not match the provider's bid")
)
