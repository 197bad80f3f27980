package orch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/zoomify/internal/app"
	"github.com/dkeye/zoomify/internal/app/voice"
	"github.com/dkeye/zoomify/internal/core"
	"github.com/dkeye/zoomify/internal/domain"
)

type stubStream struct {
	mu    sync.Mutex
	muted int
}

func (s *stubStream) StartVideo(context.Context) error       { return nil }
func (s *stubStream) StopVideo(context.Context) error        { return nil }
func (s *stubStream) StartShareScreen(context.Context) error { return nil }
func (s *stubStream) StopShareScreen(context.Context) error  { return nil }
func (s *stubStream) UnmuteAudio(context.Context) error      { return nil }
func (s *stubStream) Hangup(context.Context) error           { return nil }
func (s *stubStream) SupportsMultipleVideos() bool           { return true }

func (s *stubStream) MuteAudio(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted++
	return nil
}

type stubClient struct {
	mu        sync.Mutex
	stream    *stubStream
	joined    bool
	destroyed bool
}

func (c *stubClient) Init(context.Context, string, string, core.InitOptions) error { return nil }

func (c *stubClient) Join(context.Context, string, string, string, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined = true
	return nil
}

func (c *stubClient) Leave(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined = false
	return nil
}

func (c *stubClient) MediaStream() core.MediaStream { return c.stream }
func (c *stubClient) SessionInfo() core.SessionInfo { return core.SessionInfo{IsInMeeting: true} }

func (c *stubClient) OnConnectionChange(func(domain.ConnectionChange)) func() { return func() {} }
func (c *stubClient) OnMediaSDKChange(func(domain.MediaSDKChange)) func()     { return func() {} }

func (c *stubClient) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
}

func (c *stubClient) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

type stubFactory struct {
	mu      sync.Mutex
	clients []*stubClient
	err     error
}

func (f *stubFactory) NewClient(core.SessionID) (core.VendorClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c := &stubClient{stream: &stubStream{}}
	f.clients = append(f.clients, c)
	return c, nil
}

type stubSignatures struct {
	calls int
	sig   string
	err   error
}

func (s *stubSignatures) Signature(context.Context, string) (string, error) {
	s.calls++
	return s.sig, s.err
}

type nopSink struct {
	mu    sync.Mutex
	views []domain.SessionView
	notes []core.Notification
}

func (s *nopSink) SessionChanged(v domain.SessionView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = append(s.views, v)
}

func (s *nopSink) viewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

func (s *nopSink) lastView() (domain.SessionView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.views) == 0 {
		return domain.SessionView{}, false
	}
	return s.views[len(s.views)-1], true
}

func (s *nopSink) Notify(n core.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
}

type stubEnv struct{}

func (stubEnv) RestrictedMobileBrowser() bool { return false }
func (stubEnv) ExecutionIsolated() bool       { return false }
func (stubEnv) BrowserName() string           { return "Firefox" }

func newOrch() (*Orchestrator, *stubFactory, *stubSignatures) {
	f := &stubFactory{}
	s := &stubSignatures{sig: "fetched"}
	return &Orchestrator{
		Registry:   app.NewRegistry(),
		Vendors:    f,
		Signatures: s,
		Settings: Settings{
			Defaults: domain.MeetingArgs{Topic: "a", WebEndpoint: "zoom.us"},
			Locale:   "en-US",
		},
	}, f, s
}

func validArgs() domain.MeetingArgs {
	return domain.MeetingArgs{Topic: "a", Signature: "sig", UserName: "u"}
}

func TestResolveArgs_OverridesAndGuestName(t *testing.T) {
	o, _, sigs := newOrch()

	args, err := o.ResolveArgs(context.Background(), domain.MeetingArgs{Topic: "b", Signature: "given"}, stubEnv{})
	require.NoError(t, err)

	assert.Equal(t, "b", args.Topic)
	assert.Equal(t, "given", args.Signature)
	assert.Equal(t, "zoom.us", args.WebEndpoint)
	assert.True(t, strings.HasPrefix(args.UserName, "Firefox-"), args.UserName)
	assert.Equal(t, 0, sigs.calls)
}

func TestResolveArgs_FetchesSignature(t *testing.T) {
	o, _, sigs := newOrch()

	args, err := o.ResolveArgs(context.Background(), domain.MeetingArgs{UserName: "Ann"}, stubEnv{})
	require.NoError(t, err)
	assert.Equal(t, "fetched", args.Signature)
	assert.Equal(t, "Ann", args.UserName)
	assert.Equal(t, 1, sigs.calls)
}

func TestResolveArgs_SignatureFailure(t *testing.T) {
	o, _, sigs := newOrch()
	sigs.err = errors.New("503")

	_, err := o.ResolveArgs(context.Background(), domain.MeetingArgs{}, stubEnv{})
	assert.ErrorContains(t, err, "503")
}

func TestResolveArgs_Invalid(t *testing.T) {
	o, _, _ := newOrch()
	o.Settings.Defaults.Topic = ""
	o.Signatures = nil

	_, err := o.ResolveArgs(context.Background(), domain.MeetingArgs{}, stubEnv{})
	assert.ErrorIs(t, err, domain.ErrTopicEmpty)
}

func TestMountStartToggle(t *testing.T) {
	o, f, _ := newOrch()
	ctx := context.Background()

	m, err := o.Mount("sid", validArgs(), stubEnv{}, &nopSink{})
	require.NoError(t, err)
	require.NoError(t, o.Start(ctx, m))

	v, ok := o.View("sid")
	require.True(t, ok)
	assert.Equal(t, domain.StatusConnected, v.Status)

	require.NoError(t, o.Toggle(ctx, "sid"))
	v, _ = o.View("sid")
	assert.Equal(t, domain.StatusClosed, v.Status)
	assert.False(t, f.clients[0].joined)

	o.Unmount("sid", m)
	_, ok = o.View("sid")
	assert.False(t, ok)
	assert.True(t, f.clients[0].Destroyed())
}

func TestPhrase(t *testing.T) {
	o, f, _ := newOrch()
	ctx := context.Background()
	m, err := o.Mount("sid", validArgs(), stubEnv{}, &nopSink{})
	require.NoError(t, err)
	require.NoError(t, o.Start(ctx, m))

	action, matched, err := o.Phrase(ctx, "sid", "Mute.")
	require.NoError(t, err)
	m.Voice.Wait()

	assert.True(t, matched)
	assert.Equal(t, voice.ActionMute, action)
	assert.Equal(t, 1, f.clients[0].stream.muted)

	_, matched, err = o.Phrase(ctx, "sid", "what time is it")
	require.NoError(t, err)
	assert.False(t, matched)

	o.Shutdown()
}

func TestNotMounted(t *testing.T) {
	o, _, _ := newOrch()
	ctx := context.Background()

	assert.ErrorIs(t, o.Toggle(ctx, "nobody"), ErrNotMounted)
	_, _, err := o.Phrase(ctx, "nobody", "mute")
	assert.ErrorIs(t, err, ErrNotMounted)
	_, ok := o.View("nobody")
	assert.False(t, ok)
}

func TestMount_ReplacesPreviousView(t *testing.T) {
	o, f, _ := newOrch()

	first, err := o.Mount("sid", validArgs(), stubEnv{}, &nopSink{})
	require.NoError(t, err)
	second, err := o.Mount("sid", validArgs(), stubEnv{}, &nopSink{})
	require.NoError(t, err)

	assert.True(t, f.clients[0].Destroyed())
	assert.False(t, f.clients[1].Destroyed())

	// a late unmount of the replaced view keeps its successor
	o.Unmount("sid", first)
	got, ok := o.Registry.Get("sid")
	require.True(t, ok)
	assert.Same(t, second, got)

	o.Shutdown()
	assert.Equal(t, 0, o.Registry.Len())
	assert.True(t, f.clients[1].Destroyed())
}

func TestMount_FactoryFailureNotifies(t *testing.T) {
	o, f, _ := newOrch()
	f.err = errors.New("sdk unavailable")
	sink := &nopSink{}

	_, err := o.Mount("sid", validArgs(), stubEnv{}, sink)
	require.Error(t, err)
	require.Len(t, sink.notes, 1)
	assert.Equal(t, core.SurfaceModal, sink.notes[0].Surface)
	assert.Equal(t, 0, o.Registry.Len())
}

func TestStart_AfterUnmountIsCancelled(t *testing.T) {
	o, _, _ := newOrch()
	m, err := o.Mount("sid", validArgs(), stubEnv{}, &nopSink{})
	require.NoError(t, err)

	o.Unmount("sid", m)
	assert.Error(t, o.Start(context.Background(), m))
}

func TestRelease_WithoutGraceUnmounts(t *testing.T) {
	o, f, _ := newOrch()
	sink := &nopSink{}
	m, err := o.Mount("sid", validArgs(), stubEnv{}, sink)
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background(), m))

	o.Release("sid", m, sink)
	_, ok := o.View("sid")
	assert.False(t, ok)
	assert.True(t, f.clients[0].Destroyed())
}

func TestRelease_GraceKeepsViewForReattach(t *testing.T) {
	o, f, _ := newOrch()
	o.Settings.Grace = time.Minute
	first := &nopSink{}
	m, err := o.Mount("sid", validArgs(), stubEnv{}, first)
	require.NoError(t, err)
	require.NoError(t, o.Start(context.Background(), m))

	o.Release("sid", m, first)
	v, ok := o.View("sid")
	require.True(t, ok)
	assert.Equal(t, domain.StatusConnected, v.Status)
	assert.False(t, f.clients[0].Destroyed())

	second := &nopSink{}
	got, ok := o.Attach("sid", domain.MeetingArgs{}, second)
	require.True(t, ok)
	assert.Same(t, m, got)
	pushed, ok := second.lastView()
	require.True(t, ok)
	assert.Equal(t, domain.StatusConnected, pushed.Status)

	// events now reach the new socket only
	seen := first.viewCount()
	require.NoError(t, o.Toggle(context.Background(), "sid"))
	assert.Equal(t, seen, first.viewCount())
	pushed, _ = second.lastView()
	assert.Equal(t, domain.StatusClosed, pushed.Status)

	o.Shutdown()
	assert.True(t, f.clients[0].Destroyed())
}

func TestRelease_GraceExpiryUnmounts(t *testing.T) {
	o, f, _ := newOrch()
	o.Settings.Grace = 20 * time.Millisecond
	sink := &nopSink{}
	m, err := o.Mount("sid", validArgs(), stubEnv{}, sink)
	require.NoError(t, err)

	o.Release("sid", m, sink)
	assert.Eventually(t, func() bool {
		_, ok := o.View("sid")
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.True(t, f.clients[0].Destroyed())

	_, ok := o.Attach("sid", domain.MeetingArgs{}, &nopSink{})
	assert.False(t, ok)
}

func TestAttach_DifferentTopicDoesNotReattach(t *testing.T) {
	o, _, _ := newOrch()
	o.Settings.Grace = time.Minute
	sink := &nopSink{}
	m, err := o.Mount("sid", validArgs(), stubEnv{}, sink)
	require.NoError(t, err)
	o.Release("sid", m, sink)

	_, ok := o.Attach("sid", domain.MeetingArgs{Topic: "other"}, &nopSink{})
	assert.False(t, ok)
	_, ok = o.Attach("sid", domain.MeetingArgs{Topic: "a"}, &nopSink{})
	assert.True(t, ok)

	o.Shutdown()
}

func TestRelease_StaleSocketKeepsView(t *testing.T) {
	o, f, _ := newOrch()
	o.Settings.Grace = time.Minute
	first := &nopSink{}
	m, err := o.Mount("sid", validArgs(), stubEnv{}, first)
	require.NoError(t, err)

	second := &nopSink{}
	_, ok := o.Attach("sid", domain.MeetingArgs{}, second)
	require.True(t, ok)

	// the first socket closes after the second took over
	o.Release("sid", m, first)
	got, ok := o.Registry.Get("sid")
	require.True(t, ok)
	assert.Same(t, m, got)
	assert.True(t, m.Reattach(second))
	assert.False(t, f.clients[0].Destroyed())

	o.Shutdown()
}
