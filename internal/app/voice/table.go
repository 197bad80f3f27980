package voice

// Action is a session command a phrase can trigger.
type Action string

const (
	ActionStartVideo        Action = "start-video"
	ActionStopVideo         Action = "stop-video"
	ActionToggleScreenShare Action = "toggle-screen-share"
	ActionStopShare         Action = "stop-share"
	ActionEndCall           Action = "end-call"
	ActionMute              Action = "mute"
	ActionUnmute            Action = "unmute"
)

// Entry binds one phrasing to an action. Several entries may share an action.
type Entry struct {
	Phrase string
	Action Action
}

// DefaultTable is the built-in phrase table.
var DefaultTable = []Entry{
	{"turn on my video", ActionStartVideo},
	{"turn on video", ActionStartVideo},
	{"screen on", ActionStartVideo},
	{"turn off my video", ActionStopVideo},
	{"turn off video", ActionStopVideo},
	{"screen off", ActionStopVideo},
	{"share screen", ActionToggleScreenShare},
	{"share my screen", ActionToggleScreenShare},
	{"stop sharing", ActionStopShare},
	{"hang up", ActionEndCall},
	{"leave call", ActionEndCall},
	{"log off", ActionEndCall},
	{"mute", ActionMute},
	{"unmute", ActionUnmute},
}
