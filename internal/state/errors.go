package state

import "errors"

// Domain errors for the state package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, state.ErrNotConvertible) {
//	    // fall back to a default
//	}
var (
	// ErrNotConvertible is returned when a value has no mapping to the
	// requested primitive form.
	ErrNotConvertible = errors.New("state: value not convertible")

	// ErrOutOfRange is returned when a numeric value does not fit the
	// requested integer width.
	ErrOutOfRange = errors.New("state: value out of range")

	// ErrNoStringConstructor is returned by Optional when the variant cannot
	// be rebuilt from text.
	ErrNoStringConstructor = errors.New("state: variant has no string constructor")

	// ErrInvalidKind is returned when a kind identifier is not recognised.
	ErrInvalidKind = errors.New("state: invalid kind")

	// ErrInvalidPayload is returned when text or bytes cannot be decoded
	// into the requested variant.
	ErrInvalidPayload = errors.New("state: invalid payload")
)
