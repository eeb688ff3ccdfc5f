package wire

import (
	"errors"
	"fmt"
)

// Parse errors.
var (
	ErrEmptyBody    = errors.New("empty response body")
	ErrNotObject    = errors.New("expected a JSON object")
	ErrMissingToken = errors.New("missing etag")
	ErrInvalidToken = errors.New("invalid etag")
)

// maxErrorBody caps how much of an offending body is quoted in Error().
const maxErrorBody = 256

// ParseError reports a response body that is not valid JSON or does not
// have the expected shape.
type ParseError struct {
	// Body is the offending response body.
	Body []byte

	// Channel is set when a single channel entry was malformed.
	Channel string

	Cause error
}

func (e *ParseError) Error() string {
	body := e.Body
	suffix := ""
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
		suffix = "..."
	}
	if e.Channel != "" {
		return fmt.Sprintf("malformed entry for channel %q: %v (body: %q%s)", e.Channel, e.Cause, body, suffix)
	}
	return fmt.Sprintf("malformed response: %v (body: %q%s)", e.Cause, body, suffix)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ServerError is a rejection reported by the server in the error field.
type ServerError struct {
	Message    string
	StatusCode int
}

func (e *ServerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
	}
	return "server error: " + e.Message
}
