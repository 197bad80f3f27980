package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/zoomify/internal/app/media"
	"github.com/dkeye/zoomify/internal/core"
	"github.com/dkeye/zoomify/internal/domain"
	"github.com/dkeye/zoomify/internal/metrics"
)

var (
	ErrNoMediaStream = errors.New("no media stream")
	ErrUnmounted     = errors.New("session view unmounted")
)

const (
	TextJoining       = "Joining the session..."
	TextFailover      = "Session disconnected, trying to reconnect"
	TextBackToMain    = "Returning to main session..."
	TextLeft          = "You have left the session."
	TextEndedByHost   = "This meeting has been ended by host"
	TitleMeetingEnded = "Meeting ended"
)

type initPhase int

const (
	initPending initPhase = iota
	initReady
	initFailed
)

// Config is what a controller needs to init the vendor client and join.
type Config struct {
	Args      domain.MeetingArgs
	Locale    string
	AssetBase string
}

// Controller mirrors vendor connection and media events into a SessionView
// for one mounted session view, and owns the join/leave actions.
type Controller struct {
	sid     core.SessionID
	client  core.VendorClient
	env     core.Environment
	sink    core.EventSink
	handles core.HandleRegistry
	media   *media.Store
	cfg     Config
	logger  zerolog.Logger

	mu          sync.Mutex
	status      domain.SessionStatus
	failover    bool
	loading     bool
	loadingText string
	pending     bool // join or leave in flight
	initState   initPhase
	stream      core.MediaStream
	capability  domain.ViewCapability
	version     uint64
	detach      []func()
	unmounted   bool
}

func NewController(
	sid core.SessionID,
	client core.VendorClient,
	env core.Environment,
	sink core.EventSink,
	handles core.HandleRegistry,
	cfg Config,
) *Controller {
	return &Controller{
		sid:     sid,
		client:  client,
		env:     env,
		sink:    sink,
		handles: handles,
		media:   media.NewStore(),
		cfg:     cfg,
		logger:  log.With().Str("module", "app.session").Str("sid", string(sid)).Logger(),
		status:  domain.StatusClosed,
		loading: true,
		capability: domain.ViewCapability{
			SupportsGalleryView:          true,
			GalleryViewRequiresIsolation: galleryRequiresIsolation(cfg.Args.EnforceGalleryView, env),
		},
	}
}

// DeriveCapability computes the view flags once the media stream is known.
func DeriveCapability(multipleVideos bool, enforceGalleryView bool, env core.Environment) domain.ViewCapability {
	return domain.ViewCapability{
		SupportsGalleryView:          multipleVideos && !env.RestrictedMobileBrowser(),
		GalleryViewRequiresIsolation: galleryRequiresIsolation(enforceGalleryView, env),
	}
}

func galleryRequiresIsolation(enforce bool, env core.Environment) bool {
	return enforce && !env.ExecutionIsolated()
}

// Start mounts the session view: it attaches the vendor listeners, initialises
// the client and performs the first join.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	c.detach = append(c.detach,
		c.client.OnConnectionChange(c.HandleConnectionChange),
		c.client.OnMediaSDKChange(c.HandleMediaChange),
	)
	requiresIsolation := c.capability.GalleryViewRequiresIsolation
	c.mu.Unlock()

	err := c.client.Init(ctx, c.cfg.Locale, c.cfg.AssetBase, core.InitOptions{
		WebEndpoint:           c.cfg.Args.WebEndpoint,
		EnforceMultipleVideos: requiresIsolation,
		StayAwake:             true,
	})
	if err != nil {
		metrics.InitFailuresTotal.Inc()
		c.logger.Error().Err(err).Msg("vendor init failed")
		c.mu.Lock()
		c.initState = initFailed
		c.loading = false
		c.loadingText = ""
		c.version++
		view, live := c.viewLocked(), !c.unmounted
		c.mu.Unlock()
		if live {
			c.sink.SessionChanged(view)
			c.sink.Notify(core.Notification{
				Level:   core.NoticeError,
				Surface: core.SurfaceModal,
				Title:   "Unable to start the session",
				Message: reasonOf(err),
			})
		}
		return fmt.Errorf("init vendor client: %w", err)
	}

	c.mu.Lock()
	c.initState = initReady
	if !c.beginJoinLocked() {
		c.mu.Unlock()
		return nil
	}
	view := c.viewLocked()
	c.mu.Unlock()
	c.sink.SessionChanged(view)
	return c.join(ctx)
}

// Close unmounts the session view. Events that arrive afterwards are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.unmounted = true
	detach := c.detach
	c.detach = nil
	c.stream = nil
	c.mu.Unlock()

	for _, d := range detach {
		d()
	}
	if c.handles != nil {
		c.handles.Withdraw(c.sid)
	}
	c.client.Destroy()
	c.logger.Info().Msg("session view unmounted")
}

// LeaveOrJoin joins when closed and leaves when connected. While a join or
// leave is in flight, or the session is connecting, it does nothing. Before
// Init has succeeded, and for good once it has failed, it does nothing either.
func (c *Controller) LeaveOrJoin(ctx context.Context) error {
	c.mu.Lock()
	if c.initState != initReady {
		c.mu.Unlock()
		c.logger.Debug().Msg("leaveOrJoin ignored, client not initialised")
		return nil
	}
	if c.unmounted || c.pending {
		c.mu.Unlock()
		return nil
	}
	switch c.status {
	case domain.StatusClosed:
		c.beginJoinLocked()
		view := c.viewLocked()
		c.mu.Unlock()
		c.sink.SessionChanged(view)
		return c.join(ctx)
	case domain.StatusConnected:
		c.pending = true
		c.mu.Unlock()
		return c.leave(ctx)
	default:
		c.mu.Unlock()
		return nil
	}
}

func (c *Controller) beginJoinLocked() bool {
	if c.unmounted || c.pending || c.status != domain.StatusClosed {
		return false
	}
	c.status = domain.StatusConnecting
	c.pending = true
	c.loading = true
	c.loadingText = TextJoining
	c.version++
	return true
}

func (c *Controller) join(ctx context.Context) error {
	args := c.cfg.Args
	err := c.client.Join(ctx, args.Topic, args.Signature, args.UserName, args.Password)
	if err != nil {
		metrics.JoinAttemptsTotal.WithLabelValues("rejected").Inc()
		c.logger.Warn().Err(err).Str("topic", args.Topic).Msg("join rejected")
		c.mu.Lock()
		c.pending = false
		c.status = domain.StatusClosed
		c.failover = false
		c.loading = false
		c.loadingText = ""
		c.version++
		view, live := c.viewLocked(), !c.unmounted
		c.mu.Unlock()
		if live {
			c.sink.SessionChanged(view)
			c.sink.Notify(core.Notification{
				Level:   core.NoticeError,
				Surface: core.SurfaceToast,
				Message: reasonOf(err),
			})
		}
		return fmt.Errorf("join %q: %w", args.Topic, err)
	}
	metrics.JoinAttemptsTotal.WithLabelValues("ok").Inc()

	stream := c.client.MediaStream()
	multiple := stream != nil && stream.SupportsMultipleVideos()

	c.mu.Lock()
	c.pending = false
	if c.unmounted {
		c.mu.Unlock()
		return nil
	}
	c.stream = stream
	c.capability = DeriveCapability(multiple, args.EnforceGalleryView, c.env)
	if c.status == domain.StatusConnecting && !c.failover {
		c.status = domain.StatusConnected
	}
	if !c.failover {
		c.loading = false
		c.loadingText = ""
	}
	c.version++
	view := c.viewLocked()
	c.mu.Unlock()

	c.logger.Info().
		Str("topic", args.Topic).
		Bool("gallery", view.Capability.SupportsGalleryView).
		Bool("needs_isolation", view.Capability.GalleryViewRequiresIsolation).
		Msg("joined")
	c.publishHandles()
	c.sink.SessionChanged(view)
	return nil
}

func (c *Controller) leave(ctx context.Context) error {
	err := c.client.Leave(ctx)

	c.mu.Lock()
	c.pending = false
	if err != nil {
		live := !c.unmounted
		c.mu.Unlock()
		c.logger.Error().Err(err).Msg("leave failed")
		if live {
			c.sink.Notify(core.Notification{
				Level:   core.NoticeError,
				Surface: core.SurfaceToast,
				Message: reasonOf(err),
			})
		}
		return fmt.Errorf("leave: %w", err)
	}
	c.closeLocked()
	view, live := c.viewLocked(), !c.unmounted
	c.mu.Unlock()

	if live {
		c.sink.SessionChanged(view)
		c.sink.Notify(core.Notification{
			Level:   core.NoticeWarning,
			Surface: core.SurfaceToast,
			Message: TextLeft,
		})
	}
	return nil
}

func (c *Controller) closeLocked() {
	c.status = domain.StatusClosed
	c.failover = false
	c.loading = false
	c.loadingText = ""
	c.stream = nil
	c.media.Reset()
	c.version++
}

// HandleConnectionChange is the vendor connection-change listener.
func (c *Controller) HandleConnectionChange(ev domain.ConnectionChange) {
	metrics.ConnectionEventsTotal.WithLabelValues(string(ev.State)).Inc()

	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	var (
		notes   []core.Notification
		publish bool
	)
	switch ev.State {
	case domain.ConnectionReconnecting:
		c.status = domain.StatusConnecting
		c.failover = true
		c.loading = true
		c.loadingText = Announcement(ev)
	case domain.ConnectionConnected:
		c.status = domain.StatusConnected
		if c.failover {
			c.loading = false
			c.loadingText = ""
			c.failover = false
		}
		publish = true
	case domain.ConnectionClosed:
		c.closeLocked()
		if ev.Reason == domain.ReasonEndedByHost {
			notes = append(notes, core.Notification{
				Level:   core.NoticeWarning,
				Surface: core.SurfaceModal,
				Title:   TitleMeetingEnded,
				Message: TextEndedByHost,
			})
		}
	default:
		c.mu.Unlock()
		c.logger.Warn().Str("state", string(ev.State)).Msg("unknown connection state")
		return
	}
	c.version++
	view := c.viewLocked()
	c.mu.Unlock()

	c.logger.Info().
		Str("state", string(ev.State)).
		Str("reason", ev.Reason).
		Str("status", string(view.Status)).
		Msg("connection change")

	if publish {
		c.publishHandles()
	}
	c.sink.SessionChanged(view)
	for _, n := range notes {
		c.sink.Notify(n)
	}
}

// Announcement is the loading text shown while reconnecting for ev's reason.
// Unknown reasons give an empty announcement.
func Announcement(ev domain.ConnectionChange) string {
	switch ev.Reason {
	case domain.ReasonFailover:
		return TextFailover
	case domain.ReasonJoinSubsession, domain.ReasonMoveToSubsession:
		return fmt.Sprintf("Joining %s...", ev.SubsessionName)
	case domain.ReasonBackToMainSession:
		return TextBackToMain
	default:
		return ""
	}
}

// HandleMediaChange is the vendor media-sdk-change listener.
func (c *Controller) HandleMediaChange(ev domain.MediaSDKChange) {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.media.Dispatch(ev.MediaAction())
	c.version++
	view := c.viewLocked()
	c.mu.Unlock()
	c.sink.SessionChanged(view)
}

func (c *Controller) publishHandles() {
	if c.handles == nil {
		return
	}
	stream := c.client.MediaStream()
	info := c.client.SessionInfo()

	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	if stream != nil {
		c.stream = stream
	}
	c.mu.Unlock()

	c.handles.Publish(c.sid, core.Handles{Client: c.client, Stream: stream, Info: info})
	c.logger.Debug().Str("vendor_session", info.SessionID).Bool("in_meeting", info.IsInMeeting).Msg("session info")
}

// Args are the meeting arguments the view was mounted with.
func (c *Controller) Args() domain.MeetingArgs {
	return c.cfg.Args
}

// View returns the current snapshot.
func (c *Controller) View() domain.SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() domain.SessionView {
	return domain.SessionView{
		Version:     c.version,
		Status:      c.status,
		Failover:    c.failover,
		Loading:     c.loading,
		LoadingText: c.loadingText,
		Media:       c.media.Snapshot(),
		Capability:  c.capability,
	}
}

func (c *Controller) StartVideo(ctx context.Context) error {
	return c.withStream(ctx, "start video", core.MediaStream.StartVideo)
}

func (c *Controller) StopVideo(ctx context.Context) error {
	return c.withStream(ctx, "stop video", core.MediaStream.StopVideo)
}

func (c *Controller) Mute(ctx context.Context) error {
	return c.withStream(ctx, "mute", core.MediaStream.MuteAudio)
}

func (c *Controller) Unmute(ctx context.Context) error {
	return c.withStream(ctx, "unmute", core.MediaStream.UnmuteAudio)
}

func (c *Controller) EndCall(ctx context.Context) error {
	return c.withStream(ctx, "hang up", core.MediaStream.Hangup)
}

func (c *Controller) StopShare(ctx context.Context) error {
	return c.withStream(ctx, "stop share", core.MediaStream.StopShareScreen)
}

// ToggleScreenShare stops sharing when the vendor reports share encoding as
// active and starts it otherwise.
func (c *Controller) ToggleScreenShare(ctx context.Context) error {
	if c.media.Snapshot().Share.Encode {
		return c.StopShare(ctx)
	}
	return c.withStream(ctx, "start share", core.MediaStream.StartShareScreen)
}

func (c *Controller) withStream(ctx context.Context, op string, call func(core.MediaStream, context.Context) error) error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	stream := c.stream
	c.mu.Unlock()
	if stream == nil {
		return fmt.Errorf("%s: %w", op, ErrNoMediaStream)
	}
	if err := call(stream, ctx); err != nil {
		c.logger.Warn().Err(err).Str("op", op).Msg("media call failed")
		c.sink.Notify(core.Notification{
			Level:   core.NoticeError,
			Surface: core.SurfaceToast,
			Message: reasonOf(err),
		})
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func reasonOf(err error) string {
	var sdkErr *domain.SDKError
	if errors.As(err, &sdkErr) && sdkErr.Reason != "" {
		return sdkErr.Reason
	}
	return err.Error()
}
