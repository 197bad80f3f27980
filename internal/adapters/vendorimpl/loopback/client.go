// Package loopback is an in-process stand-in for the vendor video SDK.
// It keeps local tracks on a pion peer connection and emits the same
// connection-change and media-sdk-change events the real client does.
package loopback

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/zoomify/internal/adapters/rtc"
	"github.com/dkeye/zoomify/internal/core"
	"github.com/dkeye/zoomify/internal/domain"
)

// Error types reported by the loopback client.
const (
	ErrTypeInvalidOperation  = "INVALID_OPERATION"
	ErrTypeInvalidParameters = "INVALID_PARAMETERS"
)

type Options struct {
	// MultipleVideos is what the stream reports for SupportsMultipleVideos
	// unless Init asks to enforce it.
	MultipleVideos bool
	RTC            webrtc.Configuration
}

// Factory implements core.VendorFactory.
type Factory struct {
	Opts Options
}

func (f Factory) NewClient(sid core.SessionID) (core.VendorClient, error) {
	return NewClient(sid, f.Opts), nil
}

type Client struct {
	sid    core.SessionID
	opts   Options
	logger zerolog.Logger

	mu        sync.Mutex
	inited    bool
	destroyed bool
	joined    bool
	multiple  bool
	info      core.SessionInfo
	peer      *rtc.LocalPeer
	stream    *Stream

	nextID    int
	onConn    map[int]func(domain.ConnectionChange)
	onMediaCh map[int]func(domain.MediaSDKChange)
}

func NewClient(sid core.SessionID, opts Options) *Client {
	c := &Client{
		sid:       sid,
		opts:      opts,
		logger:    log.With().Str("module", "vendor.loopback").Str("sid", string(sid)).Logger(),
		onConn:    make(map[int]func(domain.ConnectionChange)),
		onMediaCh: make(map[int]func(domain.MediaSDKChange)),
	}
	c.stream = &Stream{c: c}
	return c
}

func (c *Client) Init(ctx context.Context, locale, assetBase string, opts core.InitOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return &domain.SDKError{Type: ErrTypeInvalidOperation, Reason: "client has been destroyed"}
	}
	if c.inited {
		return nil
	}
	peer, err := rtc.NewLocalPeer(c.opts.RTC, c.sid)
	if err != nil {
		return &domain.SDKError{Type: ErrTypeInvalidOperation, Reason: err.Error()}
	}
	c.peer = peer
	c.multiple = c.opts.MultipleVideos || opts.EnforceMultipleVideos
	c.inited = true
	c.logger.Info().
		Str("locale", locale).
		Str("asset_base", assetBase).
		Str("web_endpoint", opts.WebEndpoint).
		Bool("multiple_videos", c.multiple).
		Msg("init")
	return nil
}

func (c *Client) Join(ctx context.Context, topic, signature, userName, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	switch {
	case !c.inited || c.destroyed:
		c.mu.Unlock()
		return &domain.SDKError{Type: ErrTypeInvalidOperation, Reason: "client is not initialised"}
	case signature == "":
		c.mu.Unlock()
		return &domain.SDKError{Type: ErrTypeInvalidParameters, Reason: "Invalid signature"}
	case c.joined:
		c.mu.Unlock()
		return &domain.SDKError{Type: ErrTypeInvalidOperation, Reason: "already in a session"}
	}
	c.joined = true
	c.info = core.SessionInfo{
		Topic:       topic,
		UserName:    userName,
		SessionID:   uuid.NewString(),
		IsInMeeting: true,
	}
	c.mu.Unlock()

	c.logger.Info().Str("topic", topic).Str("user", userName).Msg("join")
	c.emitConnection(domain.ConnectionChange{State: domain.ConnectionConnected})
	c.emitMedia(domain.MediaSDKChange{Type: domain.ChannelAudio, Action: domain.DirectionDecode, Result: domain.ResultSuccess})
	c.emitMedia(domain.MediaSDKChange{Type: domain.ChannelVideo, Action: domain.DirectionDecode, Result: domain.ResultSuccess})
	c.emitMedia(domain.MediaSDKChange{Type: domain.ChannelShare, Action: domain.DirectionDecode, Result: domain.ResultSuccess})
	return nil
}

func (c *Client) Leave(ctx context.Context) error {
	return c.end(ctx, "")
}

func (c *Client) end(ctx context.Context, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return &domain.SDKError{Type: ErrTypeInvalidOperation, Reason: "not in a session"}
	}
	c.joined = false
	c.info.IsInMeeting = false
	peer := c.peer
	c.mu.Unlock()

	if peer != nil {
		peer.UnpublishAll()
	}
	c.logger.Info().Str("reason", reason).Msg("session closed")
	c.emitConnection(domain.ConnectionChange{State: domain.ConnectionClosed, Reason: reason})
	return nil
}

// MediaStream is nil until Init has succeeded.
func (c *Client) MediaStream() core.MediaStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inited || c.destroyed {
		return nil
	}
	return c.stream
}

func (c *Client) SessionInfo() core.SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

func (c *Client) OnConnectionChange(fn func(domain.ConnectionChange)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.onConn[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.onConn, id)
		c.mu.Unlock()
	}
}

func (c *Client) OnMediaSDKChange(fn func(domain.MediaSDKChange)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.onMediaCh[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.onMediaCh, id)
		c.mu.Unlock()
	}
}

func (c *Client) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.joined = false
	peer := c.peer
	c.peer = nil
	clear(c.onConn)
	clear(c.onMediaCh)
	c.mu.Unlock()

	if peer != nil {
		peer.Close()
	}
	c.logger.Info().Msg("destroyed")
}

// Simulate injects a connection-change event as if the network or the host
// caused it. Reconnected and ended sessions update the joined flag.
func (c *Client) Simulate(ev domain.ConnectionChange) {
	if ev.State == domain.ConnectionClosed {
		if err := c.end(context.Background(), ev.Reason); err != nil {
			c.logger.Warn().Err(err).Msg("simulate close")
		}
		return
	}
	c.emitConnection(ev)
}

func (c *Client) emitConnection(ev domain.ConnectionChange) {
	c.mu.Lock()
	fns := make([]func(domain.ConnectionChange), 0, len(c.onConn))
	for _, fn := range c.onConn {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (c *Client) emitMedia(ev domain.MediaSDKChange) {
	c.mu.Lock()
	fns := make([]func(domain.MediaSDKChange), 0, len(c.onMediaCh))
	for _, fn := range c.onMediaCh {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (c *Client) activePeer() (*rtc.LocalPeer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.joined || c.peer == nil {
		return nil, &domain.SDKError{Type: ErrTypeInvalidOperation, Reason: "not in a session"}
	}
	return c.peer, nil
}
