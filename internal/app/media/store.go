package media

import (
	"sync/atomic"

	"github.com/dkeye/zoomify/internal/domain"
)

// Store holds the media capability state of one session view.
// Every dispatch publishes a whole new value; readers never see a partial update.
type Store struct {
	state atomic.Pointer[domain.MediaState]
}

func NewStore() *Store {
	s := &Store{}
	s.state.Store(&domain.MediaState{})
	return s
}

// Dispatch applies a and returns the resulting state.
func (s *Store) Dispatch(a domain.MediaAction) domain.MediaState {
	for {
		old := s.state.Load()
		next := domain.ApplyMedia(*old, a)
		if s.state.CompareAndSwap(old, &next) {
			return next
		}
	}
}

func (s *Store) Reset() domain.MediaState {
	return s.Dispatch(domain.MediaAction{Type: domain.ActionResetMedia})
}

func (s *Store) Snapshot() domain.MediaState {
	return *s.state.Load()
}
