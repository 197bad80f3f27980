package core

import "github.com/dkeye/zoomify/internal/domain"

// SessionID identifies a browser client and its session view.
type SessionID string

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// NoticeSurface distinguishes a transient toast from a blocking modal.
type NoticeSurface string

const (
	SurfaceToast NoticeSurface = "toast"
	SurfaceModal NoticeSurface = "modal"
)

type Notification struct {
	Level   NoticeLevel   `json:"level"`
	Surface NoticeSurface `json:"surface"`
	Title   string        `json:"title,omitempty"`
	Message string        `json:"message"`
}

// EventSink receives everything the UI has to render.
// Implementations must not call back into the controller synchronously.
type EventSink interface {
	SessionChanged(view domain.SessionView)
	Notify(n Notification)
}
