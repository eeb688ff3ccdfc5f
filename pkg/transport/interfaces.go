package transport

import (
	"context"
	"net/http"
	"time"
)

// Transport issues single request/response exchanges.
type Transport interface {
	// Send starts the exchange described by req and returns immediately.
	// Cancelling ctx has the same effect as aborting the handle.
	Send(ctx context.Context, req *Request) Handle
}

// Handle is one outstanding exchange.
type Handle interface {
	// Done delivers exactly one Result once the exchange has finished.
	Done() <-chan Result

	// Abort cancels the exchange. The Result delivered on Done is flagged
	// as aborted unless the exchange had already completed.
	// Abort may be called more than once.
	Abort()
}

// Request describes one exchange.
type Request struct {
	// Method defaults to GET.
	Method string

	URL string

	// CacheToken, when set, is sent as an If-None-Match precondition.
	CacheToken string

	Header http.Header

	Body []byte
}

// Result is the outcome of one exchange.
type Result struct {
	// StatusCode is the HTTP status, 0 if no response was received.
	StatusCode int

	// Body is the full response body. It is empty for aborted exchanges
	// and connectivity failures.
	Body []byte

	// Aborted is set when the exchange was cancelled by Abort.
	Aborted bool

	// Err is set when no complete response was received.
	Err error

	// Duration is the time from Send to completion.
	Duration time.Duration
}

// Compile-time interface satisfaction checks.
var (
	_ Transport = (*HTTPTransport)(nil)
	_ Handle    = (*Pending)(nil)
)
