package subscription

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/martd/martd-go/pkg/wire"
)

// Callback receives one payload item for a channel. A returned error is
// reported by the caller and does not stop delivery to other callbacks.
type Callback func(msg wire.Message) error

// Entry is one registered callback.
type Entry struct {
	ID       string
	Callback Callback
}

// Channel is the client-side state of one named channel.
type Channel struct {
	name       string
	cacheToken string
	entries    []Entry
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return c.name
}

// ChannelInfo is a point-in-time view of a channel.
type ChannelInfo struct {
	Name          string
	CacheToken    string
	Subscriptions []string
}

// Active reports whether the channel has at least one callback.
func (i ChannelInfo) Active() bool {
	return len(i.Subscriptions) > 0
}

// Registry maps channel names to channel state.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]*Channel),
	}
}

// Ensure returns the channel called name, creating it with initialToken
// if it does not exist. An existing channel keeps its token.
func (r *Registry) Ensure(name, initialToken string) *Channel {
	if initialToken == "" {
		initialToken = wire.InitialCacheToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[name]
	if !ok {
		ch = &Channel{
			name:       name,
			cacheToken: initialToken,
		}
		r.channels[name] = ch
	}
	return ch
}

// Lookup returns the channel called name.
func (r *Registry) Lookup(name string) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[name]
	return ch, ok
}

// AddCallback registers cb on ch under id.
func (r *Registry) AddCallback(ch *Channel, id string, cb Callback) error {
	if cb == nil {
		return ErrNilCallback
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channels[ch.name] != ch {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, ch.name)
	}
	for _, e := range ch.entries {
		if e.ID == id {
			return ErrDuplicateSubscriber
		}
	}
	ch.entries = append(ch.entries, Entry{ID: id, Callback: cb})
	return nil
}

// RemoveCallback removes the callback registered under id.
// It reports whether a callback was removed.
func (r *Registry) RemoveCallback(ch *Channel, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range ch.entries {
		if e.ID == id {
			ch.entries = slices.Delete(ch.entries, i, i+1)
			return true
		}
	}
	return false
}

// Callbacks returns the callbacks of ch in registration order.
func (r *Registry) Callbacks(ch *Channel) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(ch.entries))
	copy(out, ch.entries)
	return out
}

// Registered reports whether id is still registered on ch.
func (r *Registry) Registered(ch *Channel, id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range ch.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// SnapshotActive returns a cursor for every channel with at least one
// callback, sorted by channel name.
func (r *Registry) SnapshotActive() []wire.Cursor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cursors := make([]wire.Cursor, 0, len(r.channels))
	for name, ch := range r.channels {
		if len(ch.entries) == 0 {
			continue
		}
		cursors = append(cursors, wire.Cursor{Channel: name, CacheToken: ch.cacheToken})
	}
	sort.Slice(cursors, func(i, j int) bool {
		return cursors[i].Channel < cursors[j].Channel
	})
	return cursors
}

// ApplyUpdate replaces the cache token of the channel called name.
func (r *Registry) ApplyUpdate(name, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	ch.cacheToken = token
	return nil
}

// CacheToken returns the token held for name.
func (r *Registry) CacheToken(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[name]
	if !ok {
		return "", false
	}
	return ch.cacheToken, true
}

// Channels returns every channel sorted by name.
func (r *Registry) Channels() []ChannelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ChannelInfo, 0, len(r.channels))
	for name, ch := range r.channels {
		ids := make([]string, len(ch.entries))
		for i, e := range ch.entries {
			ids[i] = e.ID
		}
		infos = append(infos, ChannelInfo{
			Name:          name,
			CacheToken:    ch.cacheToken,
			Subscriptions: ids,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Len returns the number of channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
