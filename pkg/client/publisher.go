package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/martd/martd-go/pkg/log"
	"github.com/martd/martd-go/pkg/transport"
	"github.com/martd/martd-go/pkg/wire"
)

// PublishOptions are the channel settings sent with a publish. The server
// applies them when the publish creates the channel.
type PublishOptions struct {
	// Size is the number of messages the channel retains (server default: 10).
	Size uint

	// Life is how long the channel is kept (server default: one hour).
	Life time.Duration

	// One2One marks the channel as point-to-point.
	One2One bool

	// Key is the channel's access key.
	Key string
}

// doer performs a single synchronous exchange.
type doer interface {
	Do(ctx context.Context, req *transport.Request) (int, []byte, error)
}

// Publisher posts messages to a martd server.
type Publisher struct {
	baseURL  string
	path     string
	clientID string
	doer     doer
	logger   *slog.Logger
	protoLog log.Logger
}

// NewPublisher creates a standalone publisher.
func NewPublisher(config Config) (*Publisher, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newPublisher(config, transport.NewHTTPTransport(config.httpConfig()), config.ClientID, log.OrNoop(config.ProtocolLogger)), nil
}

func newPublisher(config Config, d doer, clientID string, protoLog log.Logger) *Publisher {
	return &Publisher{
		baseURL:  config.BaseURL,
		path:     config.PubPath,
		clientID: clientID,
		doer:     d,
		logger:   config.Logger,
		protoLog: protoLog,
	}
}

// Publish posts body to channel and returns the cache token the server
// assigned to it. An empty body creates the channel without a message and
// returns token "0".
func (p *Publisher) Publish(ctx context.Context, channel string, body []byte, opts PublishOptions) (string, error) {
	if channel == "" {
		return "", ErrInvalidChannel
	}

	url := wire.BuildPublishURL(p.baseURL, p.path, channel, wire.PublishParams{
		Size:    opts.Size,
		Life:    opts.Life,
		One2One: opts.One2One,
		Key:     opts.Key,
	})

	p.emit(log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerTransport,
		Category:  log.CategoryPublish,
		Publish:   &log.PublishEvent{Channel: channel, Size: len(body)},
	})

	status, respBody, err := p.doer.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		URL:    url,
		Header: http.Header{wire.HeaderContentType: {wire.ContentTypeForm}},
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("publish to %q: %w", channel, err)
	}

	token, err := wire.ParsePublishResponse(respBody)
	if err != nil {
		var serverErr *wire.ServerError
		if errors.As(err, &serverErr) {
			serverErr.StatusCode = status
		}
		if p.logger != nil {
			p.logger.Warn("publish failed", "channel", channel, "status", status, "error", err)
		}
		return "", err
	}
	if status < 200 || status > 299 {
		return "", &wire.ServerError{Message: http.StatusText(status), StatusCode: status}
	}

	p.emit(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerTransport,
		Category:  log.CategoryPublish,
		Publish: &log.PublishEvent{
			Channel:    channel,
			Size:       len(body),
			CacheToken: token,
			StatusCode: status,
		},
	})
	return token, nil
}

func (p *Publisher) emit(ev log.Event) {
	ev.Timestamp = time.Now()
	ev.ClientID = p.clientID
	ev.Server = p.baseURL
	p.protoLog.Log(ev)
}
