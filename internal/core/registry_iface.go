package core

import "context"

// Handles are the live vendor objects of a connected session, kept for inspection.
type Handles struct {
	Client VendorClient
	Stream MediaStream
	Info   SessionInfo
}

// HandleRegistry exposes session handles for debugging without a global.
type HandleRegistry interface {
	Publish(sid SessionID, h Handles)
	Withdraw(sid SessionID)
}

// Environment describes the browser the session view runs in.
type Environment interface {
	RestrictedMobileBrowser() bool
	ExecutionIsolated() bool
	BrowserName() string
}

// SignatureSource issues join signatures for a topic.
type SignatureSource interface {
	Signature(ctx context.Context, topic string) (string, error)
}
