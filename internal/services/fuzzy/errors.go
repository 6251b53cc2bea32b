package fuzzy

import "errors"

var (
	// ErrInvalidParameter reports a non-positive spread, window or an unknown label/column.
	ErrInvalidParameter = errors.New("fuzzy: invalid parameter")
	// ErrNumericDomain reports operands outside the domain of the natural log-ratio.
	ErrNumericDomain = errors.New("fuzzy: numeric domain error")
	// ErrMissingValue reports an attempt to fuzzify a value that could not be computed.
	ErrMissingValue = errors.New("fuzzy: missing value")
)
