package errs

import (
	"errors"
	"fmt"
)

var (
	InternalError = errors.New("internal error")

	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrProblemNotFound = errors.New("problem not found")
	ErrJobNotFound     = errors.New("submission not found")
	ErrExpired         = errors.New("run request not found or expired")
	ErrMalformedJobID  = errors.New("malformed job id")
	ErrUnknownVerdict  = errors.New("unknown verdict status")
	ErrNoWorker        = errors.New("no worker available")
	ErrWorkerFull      = errors.New("worker has no free slot")
)

var (
	ErrEventMismatch    = fmt.Errorf("%w: problem does not belong to your event", ErrForbidden)
	ErrEventNotStarted  = fmt.Errorf("%w: event has not started yet", ErrForbidden)
	ErrEventEnded       = fmt.Errorf("%w: event has already ended", ErrForbidden)
	ErrAdminOnly        = fmt.Errorf("%w: admin role required", ErrForbidden)
	ErrInvalidSignature = fmt.Errorf("%w: invalid webhook secret", ErrUnauthenticated)
)

// Validation wraps ErrValidation with a human readable reason.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err means the addressed entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrProblemNotFound) || errors.Is(err, ErrExpired)
}
