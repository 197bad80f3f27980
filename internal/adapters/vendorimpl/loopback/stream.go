package loopback

import (
	"context"

	"github.com/dkeye/zoomify/internal/domain"
)

// Stream implements core.MediaStream on the client's local peer.
type Stream struct {
	c *Client
}

func (s *Stream) StartVideo(ctx context.Context) error {
	return s.publish(ctx, domain.ChannelVideo, true)
}

func (s *Stream) StopVideo(ctx context.Context) error {
	return s.publish(ctx, domain.ChannelVideo, false)
}

func (s *Stream) StartShareScreen(ctx context.Context) error {
	return s.publish(ctx, domain.ChannelShare, true)
}

func (s *Stream) StopShareScreen(ctx context.Context) error {
	return s.publish(ctx, domain.ChannelShare, false)
}

func (s *Stream) MuteAudio(ctx context.Context) error {
	return s.publish(ctx, domain.ChannelAudio, false)
}

func (s *Stream) UnmuteAudio(ctx context.Context) error {
	return s.publish(ctx, domain.ChannelAudio, true)
}

// Hangup leaves the session.
func (s *Stream) Hangup(ctx context.Context) error {
	return s.c.Leave(ctx)
}

func (s *Stream) SupportsMultipleVideos() bool {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return s.c.multiple
}

func (s *Stream) publish(ctx context.Context, ch domain.Channel, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	peer, err := s.c.activePeer()
	if err != nil {
		return err
	}
	result := domain.ResultSuccess
	if on {
		err = peer.Publish(ch)
	} else {
		err = peer.Unpublish(ch)
		result = domain.ResultFail
	}
	if err != nil {
		return &domain.SDKError{Type: ErrTypeInvalidOperation, Reason: err.Error()}
	}
	s.c.emitMedia(domain.MediaSDKChange{Type: ch, Action: domain.DirectionEncode, Result: result})
	return nil
}
