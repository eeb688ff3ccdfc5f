package wire

import (
	"encoding/json"
	"sort"
	"time"
)

// Protocol constants.
const (
	// InitialCacheToken is the token sent for a channel that has not yet
	// received any data. The server rejects empty tokens.
	InitialCacheToken = "0"

	// ClientIDParam is the query parameter carrying the client ID.
	// Channels may not use this name.
	ClientIDParam = "cid"

	// DefaultSubPath is the poll endpoint path.
	DefaultSubPath = "/sub"

	// DefaultPubPath is the publish endpoint path.
	DefaultPubPath = "/pub"
)

// HTTP header names and values used on poll requests.
const (
	HeaderRequestedWith = "X-Requested-With"
	HeaderIfNoneMatch   = "If-None-Match"
	HeaderContentType   = "Content-Type"

	RequestedWithAJAX = "XMLHttpRequest"
	ContentTypeForm   = "application/x-www-form-urlencoded"
)

// Message is a single payload item, kept as the raw JSON the server sent.
type Message json.RawMessage

// Bytes returns the raw JSON encoding of the message.
func (m Message) Bytes() []byte {
	return []byte(m)
}

// Text returns the message as text. JSON strings are unquoted; any other
// JSON value is returned in its encoded form.
func (m Message) Text() string {
	if len(m) > 0 && m[0] == '"' {
		var s string
		if err := json.Unmarshal(m, &s); err == nil {
			return s
		}
	}
	return string(m)
}

// MarshalJSON returns the message verbatim.
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return m, nil
}

// UnmarshalJSON stores a copy of data.
func (m *Message) UnmarshalJSON(data []byte) error {
	*m = append((*m)[0:0], data...)
	return nil
}

// Cursor pairs a channel with the last cache token the client holds for it.
type Cursor struct {
	Channel    string
	CacheToken string
}

// PollRequest is the state needed to build one poll.
// It is rebuilt from the channel registry before every dispatch.
type PollRequest struct {
	ClientID string
	Cursors  []Cursor
}

// ConditionalToken returns the token to send as If-None-Match.
// A single header can only describe one channel, so a token is returned
// only when exactly one channel is active.
func (r PollRequest) ConditionalToken() string {
	if len(r.Cursors) != 1 {
		return ""
	}
	return r.Cursors[0].CacheToken
}

// ChannelUpdate is the data returned for one channel.
type ChannelUpdate struct {
	CacheToken string    `json:"etag"`
	Payload    []Message `json:"payload"`
}

// PollResponse is a successfully parsed poll response.
type PollResponse struct {
	Channels map[string]ChannelUpdate `json:"channels,omitempty"`
}

// ChannelNames returns the channel names in the response, sorted.
func (r *PollResponse) ChannelNames() []string {
	names := make([]string, 0, len(r.Channels))
	for name := range r.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MessageCount returns the total number of payload items in the response.
func (r *PollResponse) MessageCount() int {
	n := 0
	for _, u := range r.Channels {
		n += len(u.Payload)
	}
	return n
}

// PublishParams are the retention settings sent with a publish.
// Zero values leave the server defaults in place.
type PublishParams struct {
	// Size is the number of messages the channel retains.
	Size uint

	// Life is how long the channel is kept. It is sent in nanoseconds.
	Life time.Duration

	// One2One marks the channel as point-to-point.
	One2One bool

	// Key is the channel's access key.
	Key string
}
