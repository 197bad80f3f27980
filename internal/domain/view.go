package domain

// SessionView is a snapshot of everything the session UI renders.
// Version grows with every change so clients can drop stale snapshots.
type SessionView struct {
	Version     uint64         `json:"version"`
	Status      SessionStatus  `json:"status"`
	Failover    bool           `json:"failover"`
	Loading     bool           `json:"loading"`
	LoadingText string         `json:"loadingText,omitempty"`
	Media       MediaState     `json:"media"`
	Capability  ViewCapability `json:"capability"`
}
