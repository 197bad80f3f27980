package session

import (
	"context"
	"sync"

	"github.com/dkeye/zoomify/internal/core"
	"github.com/dkeye/zoomify/internal/domain"
)

type fakeStream struct {
	mu       sync.Mutex
	calls    []string
	err      error
	multiple bool
}

func (s *fakeStream) call(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	return s.err
}

func (s *fakeStream) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeStream) StartVideo(context.Context) error       { return s.call("StartVideo") }
func (s *fakeStream) StopVideo(context.Context) error        { return s.call("StopVideo") }
func (s *fakeStream) StartShareScreen(context.Context) error { return s.call("StartShareScreen") }
func (s *fakeStream) StopShareScreen(context.Context) error  { return s.call("StopShareScreen") }
func (s *fakeStream) MuteAudio(context.Context) error        { return s.call("MuteAudio") }
func (s *fakeStream) UnmuteAudio(context.Context) error      { return s.call("UnmuteAudio") }
func (s *fakeStream) Hangup(context.Context) error           { return s.call("Hangup") }
func (s *fakeStream) SupportsMultipleVideos() bool           { return s.multiple }

// fakeVendor is a scriptable core.VendorClient.
type fakeVendor struct {
	mu         sync.Mutex
	initErr    error
	joinErr    error
	leaveErr   error
	initOpts   core.InitOptions
	initCalls  int
	joinCalls  int
	leaveCalls int
	destroyed  bool
	stream     *fakeStream
	inited     bool

	// onJoin events are emitted from inside Join, before it returns.
	onJoin      []domain.ConnectionChange
	joinStarted chan struct{}
	joinGate    chan struct{}

	nextID int
	conn   map[int]func(domain.ConnectionChange)
	media  map[int]func(domain.MediaSDKChange)
}

func newFakeVendor() *fakeVendor {
	return &fakeVendor{
		stream: &fakeStream{multiple: true},
		conn:   make(map[int]func(domain.ConnectionChange)),
		media:  make(map[int]func(domain.MediaSDKChange)),
	}
}

func (v *fakeVendor) Init(_ context.Context, _, _ string, opts core.InitOptions) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.initCalls++
	v.initOpts = opts
	if v.initErr != nil {
		return v.initErr
	}
	v.inited = true
	return nil
}

func (v *fakeVendor) Join(context.Context, string, string, string, string) error {
	v.mu.Lock()
	v.joinCalls++
	started, gate, events, err := v.joinStarted, v.joinGate, v.onJoin, v.joinErr
	v.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}
	for _, ev := range events {
		v.EmitConnection(ev)
	}
	return nil
}

func (v *fakeVendor) Leave(context.Context) error {
	v.mu.Lock()
	v.leaveCalls++
	err := v.leaveErr
	v.mu.Unlock()
	return err
}

func (v *fakeVendor) MediaStream() core.MediaStream {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.inited {
		return nil
	}
	return v.stream
}

func (v *fakeVendor) SessionInfo() core.SessionInfo {
	return core.SessionInfo{Topic: "a", SessionID: "vendor-1", IsInMeeting: true}
}

func (v *fakeVendor) OnConnectionChange(fn func(domain.ConnectionChange)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID
	v.nextID++
	v.conn[id] = fn
	return func() {
		v.mu.Lock()
		delete(v.conn, id)
		v.mu.Unlock()
	}
}

func (v *fakeVendor) OnMediaSDKChange(fn func(domain.MediaSDKChange)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID
	v.nextID++
	v.media[id] = fn
	return func() {
		v.mu.Lock()
		delete(v.media, id)
		v.mu.Unlock()
	}
}

func (v *fakeVendor) Destroy() {
	v.mu.Lock()
	v.destroyed = true
	v.mu.Unlock()
}

func (v *fakeVendor) Listeners() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.conn) + len(v.media)
}

func (v *fakeVendor) EmitConnection(ev domain.ConnectionChange) {
	v.mu.Lock()
	fns := make([]func(domain.ConnectionChange), 0, len(v.conn))
	for _, fn := range v.conn {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (v *fakeVendor) EmitMedia(ev domain.MediaSDKChange) {
	v.mu.Lock()
	fns := make([]func(domain.MediaSDKChange), 0, len(v.media))
	for _, fn := range v.media {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

type fakeSink struct {
	mu    sync.Mutex
	views []domain.SessionView
	notes []core.Notification
}

func (s *fakeSink) SessionChanged(view domain.SessionView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = append(s.views, view)
}

func (s *fakeSink) Notify(n core.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
}

func (s *fakeSink) Views() []domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SessionView(nil), s.views...)
}

func (s *fakeSink) Notes() []core.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Notification(nil), s.notes...)
}

type fakeEnv struct {
	restricted bool
	isolated   bool
}

func (e fakeEnv) RestrictedMobileBrowser() bool { return e.restricted }
func (e fakeEnv) ExecutionIsolated() bool       { return e.isolated }
func (e fakeEnv) BrowserName() string           { return "Chrome" }

type fakeHandles struct {
	mu        sync.Mutex
	published []core.Handles
	withdrawn int
}

func (h *fakeHandles) Publish(_ core.SessionID, hs core.Handles) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.published = append(h.published, hs)
}

func (h *fakeHandles) Withdraw(core.SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.withdrawn++
}
