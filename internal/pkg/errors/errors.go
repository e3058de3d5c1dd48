package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
	// ErrUnavailable means an external model call kept failing after the
	// retry budget was spent. The caller should try again later.
	ErrUnavailable = errors.New("unavailable")
	// ErrDimensionMismatch means a vector's length disagrees with the
	// configured index dimension. Operator misconfiguration, never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
