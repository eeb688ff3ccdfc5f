package subscription

import "errors"

// Registry errors.
var (
	ErrUnknownChannel      = errors.New("unknown channel")
	ErrDuplicateSubscriber = errors.New("subscription ID already registered")
	ErrNilCallback         = errors.New("nil callback")
)
