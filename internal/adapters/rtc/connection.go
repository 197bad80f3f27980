package rtc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/zoomify/internal/core"
	"github.com/dkeye/zoomify/internal/domain"
)

var ErrPeerClosed = errors.New("peer connection closed")

// Config builds a pion configuration from STUN/TURN urls.
func Config(iceServers []string) webrtc.Configuration {
	if len(iceServers) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: iceServers}},
	}
}

// LocalPeer owns the local audio, video and share tracks of one session.
type LocalPeer struct {
	pc  *webrtc.PeerConnection
	sid core.SessionID

	mu      sync.Mutex
	senders map[domain.Channel]*webrtc.RTPSender
	closed  bool
}

func NewLocalPeer(cfg webrtc.Configuration, sid core.SessionID) (*LocalPeer, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "webrtc").Str("sid", string(sid)).Str("peer_connection_state", s.String()).Msg("Peer state")
	})
	return &LocalPeer{
		pc:      pc,
		sid:     sid,
		senders: make(map[domain.Channel]*webrtc.RTPSender),
	}, nil
}

func codecFor(ch domain.Channel) webrtc.RTPCodecCapability {
	if ch == domain.ChannelAudio {
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
	}
	return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
}

// Publish attaches a local track for ch. Publishing twice is a no-op.
func (p *LocalPeer) Publish(ch domain.Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPeerClosed
	}
	if _, ok := p.senders[ch]; ok {
		return nil
	}
	track, err := webrtc.NewTrackLocalStaticSample(codecFor(ch), string(ch), "zoomify-"+string(p.sid))
	if err != nil {
		return fmt.Errorf("new %s track: %w", ch, err)
	}
	sender, err := p.pc.AddTrack(track)
	if err != nil {
		return fmt.Errorf("add %s track: %w", ch, err)
	}
	p.senders[ch] = sender
	log.Info().Str("module", "webrtc").Str("sid", string(p.sid)).Str("kind", string(ch)).Msg("local track published")
	return nil
}

// Unpublish detaches the local track for ch, if any.
func (p *LocalPeer) Unpublish(ch domain.Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPeerClosed
	}
	sender, ok := p.senders[ch]
	if !ok {
		return nil
	}
	delete(p.senders, ch)
	if err := p.pc.RemoveTrack(sender); err != nil {
		return fmt.Errorf("remove %s track: %w", ch, err)
	}
	log.Info().Str("module", "webrtc").Str("sid", string(p.sid)).Str("kind", string(ch)).Msg("local track unpublished")
	return nil
}

func (p *LocalPeer) Published(ch domain.Channel) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.senders[ch]
	return ok
}

// UnpublishAll drops every local track.
func (p *LocalPeer) UnpublishAll() {
	for _, ch := range []domain.Channel{domain.ChannelAudio, domain.ChannelVideo, domain.ChannelShare} {
		if err := p.Unpublish(ch); err != nil && !errors.Is(err, ErrPeerClosed) {
			log.Error().Err(err).Str("module", "webrtc").Str("sid", string(p.sid)).Msg("unpublish")
		}
	}
}

func (p *LocalPeer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.senders = map[domain.Channel]*webrtc.RTPSender{}
	p.mu.Unlock()

	if err := p.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "webrtc").Str("sid", string(p.sid)).Msg("close error")
	} else {
		log.Info().Str("module", "webrtc").Str("sid", string(p.sid)).Msg("closed")
	}
}
