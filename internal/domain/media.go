package domain

// Channel is a media kind reported by the vendor SDK.
type Channel string

const (
	ChannelAudio Channel = "audio"
	ChannelVideo Channel = "video"
	ChannelShare Channel = "share"
)

// Direction tells whether a capability concerns sending or receiving.
type Direction string

const (
	DirectionEncode Direction = "encode"
	DirectionDecode Direction = "decode"
)

// ActionResetMedia restores MediaState to its zero value.
const ActionResetMedia = "reset-media"

// Capability is the encode/decode pair of a single channel.
type Capability struct {
	Encode bool `json:"encode"`
	Decode bool `json:"decode"`
}

// MediaState is what the UI knows about local media readiness.
// The zero value is the canonical initial and reset shape.
type MediaState struct {
	Audio Capability `json:"audio"`
	Video Capability `json:"video"`
	Share Capability `json:"share"`
}

// MediaAction is tagged "<channel>-<direction>" or ActionResetMedia.
type MediaAction struct {
	Type    string
	Payload bool
}

func MediaActionFor(ch Channel, dir Direction, active bool) MediaAction {
	return MediaAction{Type: string(ch) + "-" + string(dir), Payload: active}
}

// ApplyMedia returns the state that results from applying a to s.
// Unknown action types return s unchanged.
func ApplyMedia(s MediaState, a MediaAction) MediaState {
	switch a.Type {
	case "audio-encode":
		s.Audio.Encode = a.Payload
	case "audio-decode":
		s.Audio.Decode = a.Payload
	case "video-encode":
		s.Video.Encode = a.Payload
	case "video-decode":
		s.Video.Decode = a.Payload
	case "share-encode":
		s.Share.Encode = a.Payload
	case "share-decode":
		s.Share.Decode = a.Payload
	case ActionResetMedia:
		return MediaState{}
	}
	return s
}
