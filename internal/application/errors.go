package application

import "errors"

// Error kinds surfaced by the pipeline. Each returned error wraps one of
// these together with the underlying cause.
var (
	ErrUpstream    = errors.New("upstream error")
	ErrPersistence = errors.New("persistence error")
	ErrCache       = errors.New("cache error")
	ErrPublish     = errors.New("publish error")
	ErrBadRequest  = errors.New("bad request")
)
