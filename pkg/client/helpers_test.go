package client

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/martd/martd-go/pkg/connection"
	"github.com/martd/martd-go/pkg/log"
	"github.com/martd/martd-go/pkg/transport"
	"github.com/martd/martd-go/pkg/wire"
)

// sentPoll is one request captured by fakeTransport.
type sentPoll struct {
	req     *transport.Request
	pending *transport.Pending
}

func (p *sentPoll) respond(body string) {
	p.pending.Complete(transport.Result{StatusCode: 200, Body: []byte(body)})
}

func (p *sentPoll) fail(err error) {
	p.pending.Complete(transport.Result{Err: err})
}

func transportResult(status int, body string) transport.Result {
	return transport.Result{StatusCode: status, Body: []byte(body)}
}

// fakeTransport hands every request to the test, which completes it.
type fakeTransport struct {
	polls chan *sentPoll
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{polls: make(chan *sentPoll, 64)}
}

func (f *fakeTransport) Send(ctx context.Context, req *transport.Request) transport.Handle {
	var p *transport.Pending
	p = transport.NewPending(func() {
		p.Complete(transport.Result{})
	})
	go func() {
		<-ctx.Done()
		p.Complete(transport.Result{Err: ctx.Err()})
	}()
	f.polls <- &sentPoll{req: req, pending: p}
	return p
}

func (f *fakeTransport) next(t *testing.T) *sentPoll {
	t.Helper()
	select {
	case p := <-f.polls:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for poll")
		return nil
	}
}

// live returns the next poll that was not aborted by a subscribe.
func (f *fakeTransport) live(t *testing.T) *sentPoll {
	t.Helper()
	for {
		if p := f.next(t); !p.pending.Aborted() {
			return p
		}
	}
}

func (f *fakeTransport) expectNone(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case p := <-f.polls:
		t.Fatalf("unexpected poll %s", p.req.URL)
	case <-time.After(within):
	}
}

// logRecord is one captured slog record.
type logRecord struct {
	level slog.Level
	msg   string
	attrs map[string]string
}

// recordHandler is an slog.Handler that keeps records in memory.
type recordHandler struct {
	mu      sync.Mutex
	records []logRecord
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	rec := logRecord{level: r.Level, msg: r.Message, attrs: map[string]string{}}
	r.Attrs(func(a slog.Attr) bool {
		rec.attrs[a.Key] = a.Value.String()
		return true
	})
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordHandler) atLeast(level slog.Level) []logRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []logRecord
	for _, r := range h.records {
		if r.level >= level {
			out = append(out, r)
		}
	}
	return out
}

func (h *recordHandler) at(level slog.Level) []logRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []logRecord
	for _, r := range h.records {
		if r.level == level {
			out = append(out, r)
		}
	}
	return out
}

// eventRecorder is a protocol logger that keeps events in memory.
type eventRecorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *eventRecorder) Log(ev log.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) errors(kind log.ErrorKind) []log.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []log.Event
	for _, ev := range r.events {
		if ev.Error != nil && ev.Error.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// collector records messages delivered to a callback.
type collector struct {
	mu   sync.Mutex
	msgs []string
	ch   chan string
}

func newCollector() *collector {
	return &collector{ch: make(chan string, 64)}
}

func (c *collector) callback(msg wire.Message) error {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg.Text())
	c.mu.Unlock()
	c.ch <- msg.Text()
	return nil
}

func (c *collector) got() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *collector) wait(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for len(c.got()) < n {
		select {
		case <-c.ch:
		case <-deadline:
			t.Fatalf("timeout: got %v, want %d messages", c.got(), n)
		}
	}
	return c.got()
}

type testEnv struct {
	client    *Client
	transport *fakeTransport
	logs      *recordHandler
	events    *eventRecorder
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	env := &testEnv{
		transport: newFakeTransport(),
		logs:      &recordHandler{},
		events:    &eventRecorder{},
	}

	cfg := DefaultConfig()
	cfg.BaseURL = "http://martd.test"
	cfg.ClientID = "test-client"
	cfg.Transport = env.transport
	cfg.Logger = slog.New(env.logs)
	cfg.ProtocolLogger = env.events
	cfg.Backoff.Initial = 50 * time.Millisecond
	cfg.Backoff.Max = 50 * time.Millisecond
	for _, m := range mutate {
		m(&cfg)
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	env.client = c
	return env
}

// query returns the poll's query string after the path.
func query(p *sentPoll) string {
	_, q, _ := strings.Cut(p.req.URL, "?")
	return q
}

// waitState waits until the client reaches want.
func waitState(t *testing.T, c *Client, want connection.State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", c.State(), want)
}
