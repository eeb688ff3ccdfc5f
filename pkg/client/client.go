package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/martd/martd-go/pkg/connection"
	"github.com/martd/martd-go/pkg/id"
	"github.com/martd/martd-go/pkg/log"
	"github.com/martd/martd-go/pkg/subscription"
	"github.com/martd/martd-go/pkg/transport"
	"github.com/martd/martd-go/pkg/wire"
)

// Stats are counters of a client's poll loop.
type Stats struct {
	Polls     uint64
	Failures  uint64
	Restarts  uint64
	Messages  uint64
	Callbacks uint64
}

// Client subscribes to channels of a martd server over one long poll.
type Client struct {
	config    Config
	clientID  string
	registry  *subscription.Registry
	transport transport.Transport
	publisher *Publisher
	backoff   *connection.Backoff
	logger    *slog.Logger
	protoLog  log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu             sync.Mutex
	state          connection.State
	outstanding    transport.Handle
	forcingRestart bool
	started        bool
	closed         bool
	seq            uint64
	onStateChange  []func(old, new connection.State)

	polls     atomic.Uint64
	failures  atomic.Uint64
	restarts  atomic.Uint64
	messages  atomic.Uint64
	callbacks atomic.Uint64
}

type stateChange struct {
	old, new connection.State
	reason   string
}

// New creates a client. The poll loop starts with the first Subscribe.
func New(config Config) (*Client, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clientID := config.ClientID
	if clientID == "" {
		clientID = id.NewClientID()
	}

	httpTransport := transport.NewHTTPTransport(config.httpConfig())
	tr := config.Transport
	if tr == nil {
		tr = httpTransport
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		config:    config,
		clientID:  clientID,
		registry:  subscription.NewRegistry(),
		transport: tr,
		backoff:   connection.NewBackoffWithConfig(config.Backoff),
		logger:    config.Logger,
		protoLog:  log.OrNoop(config.ProtocolLogger),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     connection.StateIdle,
	}
	c.publisher = newPublisher(config, httpTransport, clientID, c.protoLog)
	return c, nil
}

// ClientID returns the ID sent with every poll.
func (c *Client) ClientID() string {
	return c.clientID
}

// State returns the poll loop state.
func (c *Client) State() connection.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns the poll loop counters.
func (c *Client) Stats() Stats {
	return Stats{
		Polls:     c.polls.Load(),
		Failures:  c.failures.Load(),
		Restarts:  c.restarts.Load(),
		Messages:  c.messages.Load(),
		Callbacks: c.callbacks.Load(),
	}
}

// CacheToken returns the cache token held for a channel.
func (c *Client) CacheToken(channel string) (string, bool) {
	return c.registry.CacheToken(channel)
}

// Channels returns every channel the client knows, sorted by name.
func (c *Client) Channels() []subscription.ChannelInfo {
	return c.registry.Channels()
}

// OnStateChange registers fn to be called after every state change.
// fn runs without any client lock held.
func (c *Client) OnStateChange(fn func(old, new connection.State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = append(c.onStateChange, fn)
}

// Publish publishes body to channel and returns its cache token.
func (c *Client) Publish(ctx context.Context, channel string, body []byte, opts PublishOptions) (string, error) {
	return c.publisher.Publish(ctx, channel, body, opts)
}

// Subscribe registers cb for messages on channel.
//
// The first call starts the poll loop. A call while a poll is outstanding
// aborts that poll so the next one includes the channel.
func (c *Client) Subscribe(channel string, cb subscription.Callback, opts ...SubscribeOption) (*subscription.Handle, error) {
	if channel == "" {
		return nil, ErrInvalidChannel
	}
	if channel == wire.ClientIDParam {
		return nil, fmt.Errorf("%w: %q", ErrReservedChannel, channel)
	}
	if cb == nil {
		return nil, subscription.ErrNilCallback
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClientClosed
	}

	o := buildSubscribeOptions(opts)
	ch := c.registry.Ensure(channel, o.cacheToken)
	subID := id.NewSubscriptionID()
	if err := c.registry.AddCallback(ch, subID, cb); err != nil {
		return nil, err
	}
	handle := subscription.NewHandle(c.registry, ch, subID)

	c.debugLog("subscribed", "channel", channel, "subscription_id", subID)

	var (
		sc    stateChange
		start bool
		abort transport.Handle
	)

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		handle.Cancel()
		return nil, ErrClientClosed
	case !c.started:
		c.started = true
		start = true
	case c.outstanding != nil && !c.forcingRestart:
		c.forcingRestart = true
		abort = c.outstanding
		sc = c.transitionLocked(connection.StateRestartPending, "subscribe "+channel)
	}
	c.mu.Unlock()

	if abort != nil {
		c.restarts.Add(1)
		abort.Abort()
	}
	c.notify(sc)

	if start {
		go c.run()
	}
	return handle, nil
}

// Close stops the poll loop and aborts the outstanding poll.
// Close waits for the loop to exit, so it must not be called from a callback.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	h := c.outstanding
	c.outstanding = nil
	started := c.started
	sc := c.transitionLocked(connection.StateClosed, "close")
	c.mu.Unlock()

	c.cancel()
	if h != nil {
		h.Abort()
	}
	if started {
		<-c.done
	}
	c.notify(sc)
	return nil
}

// run is the poll loop. It owns dispatch, completion handling and delivery.
func (c *Client) run() {
	defer close(c.done)

	var delay time.Duration
	for {
		if delay > 0 && !c.wait(delay) {
			return
		}

		h, seq, ok := c.dispatch()
		if !ok {
			return
		}

		var res transport.Result
		select {
		case res = <-h.Done():
		case <-c.ctx.Done():
			h.Abort()
			return
		}

		delay, ok = c.complete(h, seq, res)
		if !ok {
			return
		}
	}
}

// wait sleeps for the backoff delay. It returns false if the client closed.
func (c *Client) wait(delay time.Duration) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	sc := c.transitionLocked(connection.StateBackoff, fmt.Sprintf("retry in %v", delay))
	c.mu.Unlock()
	c.notify(sc)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// dispatch builds the next poll from the registry and sends it.
// Snapshot and send happen under the lock so a concurrent Subscribe either
// lands in the snapshot or finds the outstanding handle and aborts it.
func (c *Client) dispatch() (transport.Handle, uint64, bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, 0, false
	}

	req := wire.PollRequest{
		ClientID: c.clientID,
		Cursors:  c.registry.SnapshotActive(),
	}
	tr := &transport.Request{
		Method: http.MethodGet,
		URL:    wire.BuildPollURL(c.config.BaseURL, c.config.SubPath, req),
		Header: c.pollHeader(),
	}
	if c.config.ConditionalFetch {
		tr.CacheToken = req.ConditionalToken()
	}

	c.seq++
	seq := c.seq
	h := c.transport.Send(c.ctx, tr)
	c.outstanding = h
	sc := c.transitionLocked(connection.StateInFlight, "")
	c.mu.Unlock()

	c.polls.Add(1)
	c.notify(sc)
	c.tracePoll(seq, tr.URL, req.Cursors)
	return h, seq, true
}

func (c *Client) pollHeader() http.Header {
	h := http.Header{}
	if c.config.MarkAJAX {
		h.Set(wire.HeaderRequestedWith, wire.RequestedWithAJAX)
	}
	h.Set(wire.HeaderContentType, wire.ContentTypeForm)
	return h
}

// complete handles the result of the poll h and returns the delay before
// the next poll. It returns false if the client closed.
func (c *Client) complete(h transport.Handle, seq uint64, res transport.Result) (time.Duration, bool) {
	c.mu.Lock()
	if c.outstanding == h {
		c.outstanding = nil
	}
	forced := c.forcingRestart
	c.forcingRestart = false
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return 0, false
	}

	var (
		resp *wire.PollResponse
		err  error
	)
	if !res.Aborted && res.Err == nil && res.StatusCode != http.StatusNotModified {
		resp, err = wire.ParseResponse(res.Body)
		if err == nil && (res.StatusCode < 200 || res.StatusCode > 299) {
			resp, err = nil, &wire.ServerError{Message: http.StatusText(res.StatusCode), StatusCode: res.StatusCode}
		}
	}
	c.traceResult(seq, res, resp)

	switch {
	case res.Aborted:
		// A forced restart is not a failure.
		c.traceError(seq, log.LayerTransport, log.ErrorKindAbort, errPollAborted, "", "", nil, 0)
		if !forced {
			c.debugLog("poll aborted", "seq", seq)
		}
		return 0, true

	case forced && (res.Err != nil || err != nil):
		return 0, true

	case res.Err != nil:
		c.debugLog("poll failed", "seq", seq, "error", res.Err)
		c.traceError(seq, log.LayerTransport, log.ErrorKindTransport, res.Err, "", "", nil, res.StatusCode)
		return c.retryDelay(), true

	case res.StatusCode == http.StatusNotModified:
		c.backoff.Reset()
		return 0, true

	case err != nil:
		c.reportPollError(seq, res, err)
		return c.retryDelay(), true
	}

	c.backoff.Reset()
	c.deliver(seq, resp)
	return 0, true
}

func (c *Client) retryDelay() time.Duration {
	c.failures.Add(1)
	return c.backoff.Next()
}

// reportPollError logs a poll that returned something other than a usable
// response. Only failures that came with a body are errors.
func (c *Client) reportPollError(seq uint64, res transport.Result, err error) {
	var serverErr *wire.ServerError
	kind := log.ErrorKindParse
	if errors.As(err, &serverErr) {
		if serverErr.StatusCode == 0 {
			serverErr.StatusCode = res.StatusCode
		}
		kind = log.ErrorKindServer
	}

	c.traceError(seq, log.LayerWire, kind, err, "", "", res.Body, res.StatusCode)

	if len(res.Body) == 0 {
		c.debugLog("empty poll response", "seq", seq, "status", res.StatusCode)
		return
	}
	if c.logger == nil {
		return
	}
	if serverErr != nil {
		c.logger.Error("server rejected poll",
			"seq", seq,
			"status", serverErr.StatusCode,
			"error", serverErr.Message)
		return
	}
	c.logger.Error("malformed poll response",
		"seq", seq,
		"status", res.StatusCode,
		"error", err,
		"body", string(res.Body))
}

// transitionLocked sets the state. c.mu must be held.
func (c *Client) transitionLocked(next connection.State, reason string) stateChange {
	old := c.state
	if old == next {
		return stateChange{}
	}
	if !old.CanTransition(next) {
		c.debugLog("unexpected state transition", "from", old, "to", next)
	}
	c.state = next
	return stateChange{old: old, new: next, reason: reason}
}

// notify reports a state change. It must be called without c.mu held.
func (c *Client) notify(sc stateChange) {
	if sc.old == sc.new {
		return
	}

	c.mu.Lock()
	listeners := make([]func(old, new connection.State), len(c.onStateChange))
	copy(listeners, c.onStateChange)
	c.mu.Unlock()

	c.traceState(sc)
	for _, fn := range listeners {
		fn(sc.old, sc.new)
	}
}

// debugLog logs a debug message if logging is enabled.
func (c *Client) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
