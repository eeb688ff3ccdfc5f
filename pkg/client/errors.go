package client

import (
	"errors"
	"fmt"
)

// Client errors.
var (
	ErrClientClosed    = errors.New("client closed")
	ErrInvalidChannel  = errors.New("invalid channel name")
	ErrReservedChannel = errors.New("channel name is reserved")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrCallbackPanic   = errors.New("callback panicked")

	errPollAborted = errors.New("poll aborted")
)

// CallbackError reports a callback that returned an error or panicked
// while a message was delivered to it.
type CallbackError struct {
	Channel        string
	SubscriptionID string
	Payload        []byte
	Err            error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback %s on channel %q: %v", e.SubscriptionID, e.Channel, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}
