package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/zoomify/internal/app/session"
	"github.com/dkeye/zoomify/internal/app/voice"
	"github.com/dkeye/zoomify/internal/core"
)

// Mounted is one live session view.
type Mounted struct {
	Controller *session.Controller
	Voice      *voice.Dispatcher
	Sink       *Relay

	mu      sync.Mutex
	cancel  context.CancelFunc
	linger  *time.Timer
	stopped bool
}

// SetCancel registers the cancel func of the view's start context. If the view
// is already stopped, cancel runs immediately.
func (m *Mounted) SetCancel(cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		cancel()
		return
	}
	m.cancel = cancel
}

// Stop cancels the start context and any pending Linger.
func (m *Mounted) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	if m.linger != nil {
		m.linger.Stop()
		m.linger = nil
	}
	if m.cancel != nil {
		m.cancel()
	}
}

// Detach drops sink if it is m's current socket and runs teardown after d
// unless Reattach comes first. It reports whether sink was current.
func (m *Mounted) Detach(sink core.EventSink, d time.Duration, teardown func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Sink.Detach(sink) {
		return false
	}
	if m.stopped {
		return true
	}
	if m.linger != nil {
		m.linger.Stop()
	}
	m.linger = time.AfterFunc(d, teardown)
	return true
}

// Reattach cancels a pending teardown and makes sink the current socket. It
// is false once the view is stopped or its teardown has already fired.
func (m *Mounted) Reattach(sink core.EventSink) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	if m.linger != nil {
		if !m.linger.Stop() {
			return false
		}
		m.linger = nil
	}
	m.Sink.Attach(sink)
	return true
}

type sessionEntry struct {
	mounted *Mounted
	handles *core.Handles
}

// Registry tracks mounted session views by client and doubles as the
// debugging handle registry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

// Bind stores m for sid and returns the view it replaced, if any.
func (r *Registry) Bind(sid core.SessionID, m *Mounted) (*Mounted, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var prev *Mounted
	if e, ok := r.sessions[sid]; ok {
		prev = e.mounted
	}
	r.sessions[sid] = &sessionEntry{mounted: m}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session view")
	return prev, prev != nil
}

func (r *Registry) Get(sid core.SessionID) (*Mounted, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok && e.mounted != nil {
		return e.mounted, true
	}
	return nil, false
}

// Unbind removes sid only while it still maps to m, so a late unmount of a
// replaced view cannot drop its successor.
func (r *Registry) Unbind(sid core.SessionID, m *Mounted) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.mounted != m {
		return false
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session view")
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Publish implements core.HandleRegistry.
func (r *Registry) Publish(sid core.SessionID, h core.Handles) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		e = &sessionEntry{}
		r.sessions[sid] = e
	}
	e.handles = &h
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Str("vendor_session", h.Info.SessionID).Msg("published handles")
}

// Withdraw implements core.HandleRegistry.
func (r *Registry) Withdraw(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return
	}
	e.handles = nil
	if e.mounted == nil {
		delete(r.sessions, sid)
	}
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Msg("withdrew handles")
}

func (r *Registry) Handles(sid core.SessionID) (core.Handles, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok && e.handles != nil {
		return *e.handles, true
	}
	return core.Handles{}, false
}

// HandleSnap is a read-only view of published handles.
type HandleSnap struct {
	SID  core.SessionID   `json:"sid"`
	Info core.SessionInfo `json:"info"`
}

func (r *Registry) HandlesSnapshot() []HandleSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]HandleSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if e.handles != nil {
			out = append(out, HandleSnap{SID: sid, Info: e.handles.Info})
		}
	}
	return out
}

// SIDs lists clients with a mounted session view.
func (r *Registry) SIDs() []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SessionID, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if e.mounted != nil {
			out = append(out, sid)
		}
	}
	return out
}
