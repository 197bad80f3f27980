package media

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkeye/zoomify/internal/domain"
)

func TestStore_DispatchAndReset(t *testing.T) {
	s := NewStore()
	assert.Equal(t, domain.MediaState{}, s.Snapshot())

	got := s.Dispatch(domain.MediaActionFor(domain.ChannelAudio, domain.DirectionEncode, true))
	assert.True(t, got.Audio.Encode)
	assert.Equal(t, got, s.Snapshot())

	assert.Equal(t, domain.MediaState{}, s.Reset())
	assert.Equal(t, domain.MediaState{}, s.Snapshot())
}

func TestStore_ConcurrentDispatchKeepsEveryField(t *testing.T) {
	s := NewStore()
	channels := []domain.Channel{domain.ChannelAudio, domain.ChannelVideo, domain.ChannelShare}
	dirs := []domain.Direction{domain.DirectionEncode, domain.DirectionDecode}

	var wg sync.WaitGroup
	for _, ch := range channels {
		for _, dir := range dirs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					s.Dispatch(domain.MediaActionFor(ch, dir, i%2 == 0))
				}
				s.Dispatch(domain.MediaActionFor(ch, dir, true))
			}()
		}
	}
	wg.Wait()

	all := domain.Capability{Encode: true, Decode: true}
	assert.Equal(t, domain.MediaState{Audio: all, Video: all, Share: all}, s.Snapshot())
}
