package transport

import (
	"sync"
	"sync/atomic"
)

// Pending is a Handle completed by the code that owns it.
// The zero value is not usable; use NewPending.
type Pending struct {
	cancel  func()
	done    chan Result
	once    sync.Once
	aborted atomic.Bool
}

// NewPending creates a handle. cancel, if non-nil, is called on Abort.
func NewPending(cancel func()) *Pending {
	return &Pending{
		cancel: cancel,
		done:   make(chan Result, 1),
	}
}

// Done implements Handle.
func (p *Pending) Done() <-chan Result {
	return p.done
}

// Abort implements Handle.
func (p *Pending) Abort() {
	p.aborted.Store(true)
	if p.cancel != nil {
		p.cancel()
	}
}

// Aborted reports whether Abort has been called.
func (p *Pending) Aborted() bool {
	return p.aborted.Load()
}

// Complete delivers r on Done. Only the first call has an effect; it
// reports whether r was delivered. If the handle was aborted the result is
// flagged and its body dropped.
func (p *Pending) Complete(r Result) bool {
	delivered := false
	p.once.Do(func() {
		if p.aborted.Load() {
			r.Aborted = true
			r.Body = nil
		}
		p.done <- r
		delivered = true
	})
	return delivered
}
