// Package testserver provides an in-memory martd server for tests and local
// development.
//
// It implements the poll and publish endpoints with the same wire behavior
// as martd: a poll names channels with the last cache token the client
// holds, the server answers at once with retained messages newer than that
// token, and otherwise holds the request until a message is published to
// one of the channels or the client goes away. Token "0" asks for new
// messages only.
package testserver

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/martd/martd-go/pkg/wire"
)

// Channel defaults used by martd when a publish does not set them.
const (
	DefaultSize = 10
	DefaultLife = time.Hour
)

// Poll is a poll request received by the server.
type Poll struct {
	ClientID string
	Cursors  []wire.Cursor
	Header   http.Header
	Received time.Time
}

// Failure is a canned response for the next poll.
type Failure struct {
	Status int
	Body   string
}

// ChannelInfo describes a channel held by the server.
type ChannelInfo struct {
	Name     string `json:"name"`
	Size     uint   `json:"size"`
	Life     int64  `json:"life"`
	One2One  bool   `json:"one2one"`
	Messages int    `json:"messages"`
	Etag     string `json:"etag"`
}

type message struct {
	data []byte
	etag int64
}

type channel struct {
	name     string
	size     uint
	life     time.Duration
	one2one  bool
	key      string
	messages []message
	waiters  map[chan channelEvent]struct{}
}

type channelEvent struct {
	channel string
	msg     message
}

// Server is an in-memory martd server. It is safe for concurrent use.
type Server struct {
	router      *httprouter.Router
	holdTimeout time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	channels map[string]*channel
	lastEtag int64
	polls    []Poll
	pollSig  chan struct{}
	failures []Failure
}

// Option configures a Server.
type Option func(*Server)

// WithHoldTimeout makes the server answer a held poll after d with an empty
// payload for every requested channel. By default polls are held until a
// message arrives or the client goes away.
func WithHoldTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.holdTimeout = d
	}
}

// WithLogger sets the logger for request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server.
func New(opts ...Option) *Server {
	s := &Server{
		router:   httprouter.New(),
		channels: make(map[string]*channel),
		pollSig:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.GET(wire.DefaultSubPath, s.handleSub)
	s.router.POST(wire.DefaultSubPath, s.handleSub)
	s.router.POST(wire.DefaultPubPath, s.handlePub)
	s.router.GET("/list", s.handleList)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Publish appends data to channel, creating it with default settings,
// and returns the message's cache token.
func (s *Server) Publish(name string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.channelLocked(name, DefaultSize, DefaultLife, false, "")
	return strconv.FormatInt(s.pubLocked(ch, data), 10)
}

// FailNext makes the next poll receive f instead of being served.
// Calls queue up.
func (s *Server) FailNext(f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, f)
}

// Polls returns every poll received so far.
func (s *Server) Polls() []Poll {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Poll, len(s.polls))
	copy(out, s.polls)
	return out
}

// WaitForPolls waits until at least n polls have been received and returns
// the n-th one.
func (s *Server) WaitForPolls(n int, timeout time.Duration) (Poll, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		if len(s.polls) >= n {
			p := s.polls[n-1]
			s.mu.Unlock()
			return p, true
		}
		sig := s.pollSig
		s.mu.Unlock()

		select {
		case <-sig:
		case <-deadline.C:
			return Poll{}, false
		}
	}
}

// Channels returns the channels held by the server, sorted by name.
func (s *Server) Channels() []ChannelInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]ChannelInfo, 0, len(s.channels))
	for _, ch := range s.channels {
		info := ChannelInfo{
			Name:     ch.name,
			Size:     ch.size,
			Life:     int64(ch.life),
			One2One:  ch.one2one,
			Messages: len(ch.messages),
			Etag:     wire.InitialCacheToken,
		}
		if n := len(ch.messages); n > 0 {
			info.Etag = strconv.FormatInt(ch.messages[n-1].etag, 10)
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (s *Server) handleSub(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		reject(w, err.Error())
		return
	}
	req := wire.ParsePollQuery(r.Form)

	s.mu.Lock()
	s.polls = append(s.polls, Poll{
		ClientID: req.ClientID,
		Cursors:  req.Cursors,
		Header:   r.Header.Clone(),
		Received: time.Now(),
	})
	close(s.pollSig)
	s.pollSig = make(chan struct{})

	if len(s.failures) > 0 {
		f := s.failures[0]
		s.failures = s.failures[1:]
		s.mu.Unlock()
		s.debugLog("poll failed on request", "cid", req.ClientID, "status", f.Status)
		w.WriteHeader(f.Status)
		io.WriteString(w, f.Body)
		return
	}

	tokens := make(map[string]int64, len(req.Cursors))
	for _, c := range req.Cursors {
		if c.CacheToken == "" {
			s.mu.Unlock()
			reject(w, c.Channel+" has no etag")
			return
		}
		etag, err := strconv.ParseInt(c.CacheToken, 10, 64)
		if err != nil {
			s.mu.Unlock()
			reject(w, "invalid etag: "+err.Error())
			return
		}
		tokens[c.Channel] = etag
	}

	resp := &wire.PollResponse{Channels: make(map[string]wire.ChannelUpdate)}
	for name, etag := range tokens {
		ch := s.channelLocked(name, DefaultSize, DefaultLife, false, "")
		if update, ok := ch.since(etag); ok {
			resp.Channels[name] = update
		}
	}
	if len(resp.Channels) > 0 {
		s.mu.Unlock()
		respond(w, resp)
		return
	}

	evch := make(chan channelEvent, 1)
	for name := range tokens {
		s.channels[name].waiters[evch] = struct{}{}
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		for name := range tokens {
			delete(s.channels[name].waiters, evch)
		}
		s.mu.Unlock()
	}()

	var timeout <-chan time.Time
	if s.holdTimeout > 0 {
		timer := time.NewTimer(s.holdTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ev := <-evch:
		resp.Channels[ev.channel] = wire.ChannelUpdate{
			CacheToken: strconv.FormatInt(ev.msg.etag, 10),
			Payload:    []wire.Message{encodePayload(ev.msg.data)},
		}
		respond(w, resp)
	case <-timeout:
		for _, c := range req.Cursors {
			resp.Channels[c.Channel] = wire.ChannelUpdate{CacheToken: c.CacheToken, Payload: []wire.Message{}}
		}
		respond(w, resp)
	case <-r.Context().Done():
	}
}

func (s *Server) handlePub(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		reject(w, err.Error())
		return
	}

	q := r.URL.Query()
	name := q.Get("channel")
	if name == "" {
		reject(w, "channel is required")
		return
	}

	size := uint64(DefaultSize)
	if v := q.Get("size"); v != "" {
		if size, err = strconv.ParseUint(v, 10, 32); err != nil {
			reject(w, "invalid size: "+err.Error())
			return
		}
	}
	life := DefaultLife
	if v := q.Get("life"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			reject(w, "invalid life: "+err.Error())
			return
		}
		life = time.Duration(n)
	}

	s.mu.Lock()
	ch := s.channelLocked(name, uint(size), life, q.Get("one2one") == "true", q.Get("key"))
	etag := int64(0)
	if len(body) > 0 {
		etag = s.pubLocked(ch, body)
	}
	s.mu.Unlock()

	s.debugLog("published", "channel", name, "etag", etag, "size", len(body))
	writeJSON(w, http.StatusOK, map[string]string{"etag": strconv.FormatInt(etag, 10)})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.Channels())
}

// channelLocked returns the channel called name, creating it with the
// given settings. s.mu must be held.
func (s *Server) channelLocked(name string, size uint, life time.Duration, one2one bool, key string) *channel {
	ch, ok := s.channels[name]
	if !ok {
		if size == 0 {
			size = DefaultSize
		}
		ch = &channel{
			name:    name,
			size:    size,
			life:    life,
			one2one: one2one,
			key:     key,
			waiters: make(map[chan channelEvent]struct{}),
		}
		s.channels[name] = ch
	}
	return ch
}

// pubLocked stores data on ch and wakes its waiters. s.mu must be held.
func (s *Server) pubLocked(ch *channel, data []byte) int64 {
	etag := time.Now().UnixNano()
	if etag <= s.lastEtag {
		etag = s.lastEtag + 1
	}
	s.lastEtag = etag

	msg := message{data: append([]byte(nil), data...), etag: etag}
	ch.messages = append(ch.messages, msg)
	if over := len(ch.messages) - int(ch.size); over > 0 {
		ch.messages = ch.messages[over:]
	}

	for evch := range ch.waiters {
		select {
		case evch <- channelEvent{channel: ch.name, msg: msg}:
		default:
		}
	}
	ch.waiters = make(map[chan channelEvent]struct{})
	return etag
}

// since returns the retained messages newer than etag. Token 0 never
// matches, so a new subscriber only sees messages published later.
func (ch *channel) since(etag int64) (wire.ChannelUpdate, bool) {
	if etag == 0 || len(ch.messages) == 0 {
		return wire.ChannelUpdate{}, false
	}

	start := -1
	for i, m := range ch.messages {
		if m.etag > etag {
			start = i
			break
		}
	}
	if start < 0 {
		return wire.ChannelUpdate{}, false
	}

	update := wire.ChannelUpdate{Payload: make([]wire.Message, 0, len(ch.messages)-start)}
	for _, m := range ch.messages[start:] {
		update.Payload = append(update.Payload, encodePayload(m.data))
		update.CacheToken = strconv.FormatInt(m.etag, 10)
	}
	return update, true
}

// encodePayload encodes a published body as a JSON string, as martd does.
func encodePayload(data []byte) wire.Message {
	b, _ := json.Marshal(string(data))
	return wire.Message(b)
}

func respond(w http.ResponseWriter, resp *wire.PollResponse) {
	body, err := wire.EncodeResponse(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func reject(w http.ResponseWriter, reason string) {
	body, err := wire.EncodeError(reason)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("encode: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func (s *Server) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
