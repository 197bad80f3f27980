package app

import (
	"sync"

	"github.com/dkeye/zoomify/internal/core"
	"github.com/dkeye/zoomify/internal/domain"
)

// Relay is the event sink a controller keeps for its whole life. It forwards
// to whichever browser socket is attached and drops events while none is.
type Relay struct {
	mu   sync.Mutex
	sink core.EventSink
}

func NewRelay(sink core.EventSink) *Relay {
	return &Relay{sink: sink}
}

// Attach makes sink the current target.
func (r *Relay) Attach(sink core.EventSink) {
	r.mu.Lock()
	r.sink = sink
	r.mu.Unlock()
}

// Detach clears the target if it is still sink. It reports whether it did.
func (r *Relay) Detach(sink core.EventSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sink != sink {
		return false
	}
	r.sink = nil
	return true
}

func (r *Relay) current() core.EventSink {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sink
}

func (r *Relay) SessionChanged(view domain.SessionView) {
	if s := r.current(); s != nil {
		s.SessionChanged(view)
	}
}

func (r *Relay) Notify(n core.Notification) {
	if s := r.current(); s != nil {
		s.Notify(n)
	}
}
