package core

import (
	"context"

	"github.com/dkeye/zoomify/internal/domain"
)

// InitOptions is passed to VendorClient.Init.
type InitOptions struct {
	WebEndpoint           string
	EnforceMultipleVideos bool
	StayAwake             bool
}

// SessionInfo is what the vendor reports about the joined session.
type SessionInfo struct {
	Topic       string `json:"topic"`
	UserName    string `json:"userName"`
	SessionID   string `json:"sessionId"`
	IsInMeeting bool   `json:"isInMeeting"`
}

// VendorClient is the video SDK client. All calls may block on the network.
// Listener registration returns a func that detaches the listener.
type VendorClient interface {
	Init(ctx context.Context, locale, assetBase string, opts InitOptions) error
	Join(ctx context.Context, topic, signature, userName, password string) error
	Leave(ctx context.Context) error
	MediaStream() MediaStream
	SessionInfo() SessionInfo

	OnConnectionChange(func(domain.ConnectionChange)) (detach func())
	OnMediaSDKChange(func(domain.MediaSDKChange)) (detach func())

	// Destroy releases the client. It must be the last call.
	Destroy()
}

// MediaStream controls local media of a joined session.
type MediaStream interface {
	StartVideo(ctx context.Context) error
	StopVideo(ctx context.Context) error
	StartShareScreen(ctx context.Context) error
	StopShareScreen(ctx context.Context) error
	MuteAudio(ctx context.Context) error
	UnmuteAudio(ctx context.Context) error
	Hangup(ctx context.Context) error
	SupportsMultipleVideos() bool
}

// VendorFactory creates one client per mounted session view.
type VendorFactory interface {
	NewClient(sid SessionID) (VendorClient, error)
}
