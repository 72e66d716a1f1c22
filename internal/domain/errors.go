package domain

import "errors"

var (
	// ErrMalformed reports an upstream payload that does not have the expected shape.
	ErrMalformed = errors.New("malformed payload")
)
