package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxBodySize caps the response body read by HTTPTransport.
const DefaultMaxBodySize = 4 << 20

// ErrBodyTooLarge is returned when a response exceeds MaxBodySize.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPConfig configures an HTTPTransport.
type HTTPConfig struct {
	// Client is the HTTP client to use (default: a new client without
	// a timeout, since long polls are held open by the server).
	Client *http.Client

	// RequestTimeout bounds a single exchange. Zero means no limit.
	RequestTimeout time.Duration

	// UserAgent is sent when non-empty.
	UserAgent string

	// MaxBodySize caps the response body (default: DefaultMaxBodySize).
	MaxBodySize int64
}

// HTTPTransport implements Transport over net/http.
type HTTPTransport struct {
	config HTTPConfig
	client *http.Client
}

// NewHTTPTransport creates an HTTP transport.
func NewHTTPTransport(config HTTPConfig) *HTTPTransport {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	client := config.Client
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{
		config: config,
		client: client,
	}
}

// Send implements Transport. The exchange runs on its own goroutine.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) Handle {
	ctx, cancel := context.WithCancel(ctx)
	p := NewPending(cancel)

	go func() {
		defer cancel()

		start := time.Now()
		status, body, err := t.Do(ctx, req)
		p.Complete(Result{
			StatusCode: status,
			Body:       body,
			Err:        err,
			Duration:   time.Since(start),
		})
	}()

	return p
}

// Do performs req synchronously and returns the status and body.
// Non-2xx responses are not errors; their body is returned as is.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (int, []byte, error) {
	if t.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.RequestTimeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.CacheToken != "" {
		httpReq.Header.Set("If-None-Match", req.CacheToken)
	}
	if t.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", t.config.UserAgent)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.config.MaxBodySize+1))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > t.config.MaxBodySize {
		return resp.StatusCode, nil, ErrBodyTooLarge
	}

	return resp.StatusCode, data, nil
}
