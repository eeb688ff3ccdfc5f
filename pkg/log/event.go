package log

import (
	"time"
)

// MaxBodyCapture is the number of body bytes kept in an event.
const MaxBodyCapture = 1024

// Event represents a protocol log event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ClientID identifies the client connection.
	ClientID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Sequence numbers the poll exchange this event belongs to.
	Sequence uint64 `cbor:"6,keyasint,omitempty"`

	// Server is the base URL of the server.
	Server string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Poll        *PollEvent        `cbor:"10,keyasint,omitempty"`
	Publish     *PublishEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Delivery    *DeliveryEvent    `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection parses a direction name.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "IN", "in":
		return DirectionIn, true
	case "OUT", "out":
		return DirectionOut, true
	}
	return 0, false
}

// Layer indicates where the event was captured.
type Layer uint8

const (
	// LayerTransport is the HTTP exchange.
	LayerTransport Layer = 0
	// LayerWire is the decoded poll response.
	LayerWire Layer = 1
	// LayerClient is the poll loop and callback delivery.
	LayerClient Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryPoll indicates a poll request or response.
	CategoryPoll Category = 0
	// CategoryPublish indicates a publish request or response.
	CategoryPublish Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
	// CategoryDelivery indicates messages handed to callbacks.
	CategoryDelivery Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPoll:
		return "POLL"
	case CategoryPublish:
		return "PUBLISH"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	case CategoryDelivery:
		return "DELIVERY"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name.
func ParseCategory(s string) (Category, bool) {
	for c := CategoryPoll; c <= CategoryDelivery; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// Cursor is a channel and cache token pair sent in a poll.
type Cursor struct {
	Channel    string `cbor:"1,keyasint"`
	CacheToken string `cbor:"2,keyasint"`
}

// PollEvent captures one poll request (out) or its completion (in).
type PollEvent struct {
	// URL of the request (out only).
	URL string `cbor:"1,keyasint,omitempty"`

	// Cursors sent with the request (out only).
	Cursors []Cursor `cbor:"2,keyasint,omitempty"`

	// StatusCode of the response (in only, 0 if none was received).
	StatusCode int `cbor:"3,keyasint,omitempty"`

	// Size of the response body in bytes.
	Size int `cbor:"4,keyasint,omitempty"`

	// Duration of the exchange (in only). Stored as nanoseconds.
	Duration time.Duration `cbor:"5,keyasint,omitempty"`

	// Aborted is set when the client cancelled the request.
	Aborted bool `cbor:"6,keyasint,omitempty"`

	// Channels named by the response with their new cache tokens.
	Channels []Cursor `cbor:"7,keyasint,omitempty"`

	// Messages is the total number of payload items in the response.
	Messages int `cbor:"8,keyasint,omitempty"`
}

// PublishEvent captures a publish request (out) or its response (in).
type PublishEvent struct {
	Channel string `cbor:"1,keyasint"`

	// Size of the published body in bytes.
	Size int `cbor:"2,keyasint,omitempty"`

	// CacheToken assigned by the server (in only).
	CacheToken string `cbor:"3,keyasint,omitempty"`

	StatusCode int `cbor:"4,keyasint,omitempty"`
}

// DeliveryEvent captures the payload of one channel being handed to its callbacks.
type DeliveryEvent struct {
	Channel string `cbor:"1,keyasint"`

	// CacheToken is the token stored after delivery.
	CacheToken string `cbor:"2,keyasint"`

	// Messages is the number of payload items.
	Messages int `cbor:"3,keyasint"`

	// Callbacks is the number of callbacks registered when delivery started.
	Callbacks int `cbor:"4,keyasint"`

	// Failures is the number of callback invocations that failed.
	Failures int `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures poll loop state transitions.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorKind classifies errors.
type ErrorKind uint8

const (
	// ErrorKindTransport is a connectivity failure.
	ErrorKindTransport ErrorKind = 0
	// ErrorKindAbort is a request cancelled by the client.
	ErrorKindAbort ErrorKind = 1
	// ErrorKindParse is a malformed response body.
	ErrorKindParse ErrorKind = 2
	// ErrorKindServer is an error reported by the server.
	ErrorKindServer ErrorKind = 3
	// ErrorKindUnknownChannel is a response entry for an unknown channel.
	ErrorKindUnknownChannel ErrorKind = 4
	// ErrorKindCallback is a callback that failed or panicked.
	ErrorKindCallback ErrorKind = 5
)

// String returns the error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTransport:
		return "TRANSPORT"
	case ErrorKindAbort:
		return "ABORT"
	case ErrorKindParse:
		return "PARSE"
	case ErrorKindServer:
		return "SERVER"
	case ErrorKindUnknownChannel:
		return "UNKNOWN_CHANNEL"
	case ErrorKindCallback:
		return "CALLBACK"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	Kind ErrorKind `cbor:"2,keyasint"`

	// Message is the error message.
	Message string `cbor:"3,keyasint"`

	// Code is the HTTP status code (if applicable).
	Code *int `cbor:"4,keyasint,omitempty"`

	Channel        string `cbor:"5,keyasint,omitempty"`
	SubscriptionID string `cbor:"6,keyasint,omitempty"`

	// Body is the offending response body or payload item, truncated to
	// MaxBodyCapture bytes.
	Body []byte `cbor:"7,keyasint,omitempty"`

	// Truncated indicates if Body was truncated.
	Truncated bool `cbor:"8,keyasint,omitempty"`
}

// CaptureBody returns at most MaxBodyCapture bytes of b and whether it was cut.
func CaptureBody(b []byte) ([]byte, bool) {
	n, truncated := len(b), false
	if n > MaxBodyCapture {
		n, truncated = MaxBodyCapture, true
	}
	out := make([]byte, n)
	copy(out, b)
	return out, truncated
}
