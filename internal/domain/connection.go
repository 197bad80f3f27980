package domain

import "fmt"

// SessionStatus is the UI-facing lifecycle of a session view.
type SessionStatus string

const (
	StatusClosed     SessionStatus = "closed"
	StatusConnecting SessionStatus = "connecting"
	StatusConnected  SessionStatus = "connected"
)

// ConnectionState mirrors the vendor's connection-change states.
type ConnectionState string

const (
	ConnectionReconnecting ConnectionState = "Reconnecting"
	ConnectionConnected    ConnectionState = "Connected"
	ConnectionClosed       ConnectionState = "Closed"
)

// Reconnect reasons reported with ConnectionReconnecting.
const (
	ReasonFailover          = "failover"
	ReasonJoinSubsession    = "join subsession"
	ReasonMoveToSubsession  = "move to subsession"
	ReasonBackToMainSession = "back to main session"
)

// ReasonEndedByHost is the Closed reason used when the host ends the meeting.
const ReasonEndedByHost = "ended by host"

// ConnectionChange is the payload of a vendor connection-change event.
type ConnectionChange struct {
	State          ConnectionState `json:"state"`
	Reason         string          `json:"reason,omitempty"`
	SubsessionName string          `json:"subsessionName,omitempty"`
}

// Media SDK results.
const (
	ResultSuccess = "success"
	ResultFail    = "fail"
)

// MediaSDKChange is the payload of a vendor media-sdk-change event.
type MediaSDKChange struct {
	Type   Channel   `json:"type"`
	Action Direction `json:"action"`
	Result string    `json:"result"`
}

func (e MediaSDKChange) MediaAction() MediaAction {
	return MediaActionFor(e.Type, e.Action, e.Result == ResultSuccess)
}

// SDKError is a failure reported by the vendor SDK. Reason is meant for users.
type SDKError struct {
	Type   string
	Reason string
}

func (e *SDKError) Error() string {
	if e.Type == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Reason)
}

// ViewCapability decides which /video variant is mounted.
type ViewCapability struct {
	SupportsGalleryView          bool `json:"supportsGalleryView"`
	GalleryViewRequiresIsolation bool `json:"galleryViewRequiresIsolation"`
}
