package yale

import (
	"errors"
)

// Kind classifies vendor errors.
type Kind int

const (
	// KindUnknown is an unexpected API answer.
	KindUnknown Kind = iota
	// KindAuthentication means the credentials or token were refused.
	KindAuthentication
	// KindConnection means the API could not be reached.
	KindConnection
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// Error is returned by every Client call that fails.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsVendorError reports whether err is (or wraps) a vendor *Error.
func IsVendorError(err error) bool {
	var vendorErr *Error

	return errors.As(err, &vendorErr)
}

// KindOf returns the Kind of a vendor error and false for other errors.
func KindOf(err error) (Kind, bool) {
	var vendorErr *Error
	if !errors.As(err, &vendorErr) {
		return KindUnknown, false
	}

	return vendorErr.Kind, true
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
