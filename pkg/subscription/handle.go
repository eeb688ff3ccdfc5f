package subscription

import "sync"

// Handle is returned for every subscription and cancels it.
type Handle struct {
	id       string
	channel  *Channel
	registry *Registry
	once     sync.Once
}

// NewHandle creates the handle for the callback registered under id on ch.
func NewHandle(r *Registry, ch *Channel, id string) *Handle {
	return &Handle{
		id:       id,
		channel:  ch,
		registry: r,
	}
}

// ID returns the subscription ID.
func (h *Handle) ID() string {
	return h.id
}

// Channel returns the channel name.
func (h *Handle) Channel() string {
	return h.channel.name
}

// Active reports whether the callback is still registered.
func (h *Handle) Active() bool {
	return h.registry.Registered(h.channel, h.id)
}

// Cancel removes this subscription's callback. Other callbacks on the
// channel are unaffected. Calling Cancel more than once is a no-op.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		h.registry.RemoveCallback(h.channel, h.id)
	})
}
