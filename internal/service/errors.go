package service

import "errors"

// ErrUpstream marks object-store failures. Handlers map it to a 500; it is
// logged and never retried automatically within a request.
var ErrUpstream = errors.New("object storage failure")

// ValidationError is bad caller input, surfaced as a 400 before any
// mutation happens.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(msg string) error { return &ValidationError{Msg: msg} }
