package voice

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/zoomify/internal/metrics"
)

// Commander receives the commands a phrase can trigger.
type Commander interface {
	StartVideo(ctx context.Context) error
	StopVideo(ctx context.Context) error
	ToggleScreenShare(ctx context.Context) error
	StopShare(ctx context.Context) error
	EndCall(ctx context.Context) error
	Mute(ctx context.Context) error
	Unmute(ctx context.Context) error
}

// Dispatcher maps recognized phrases to Commander calls.
// Commands are fire-and-forget: outcomes come back through media events.
type Dispatcher struct {
	target Commander
	table  map[string]Action
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher builds the lookup table. When a phrase appears more than once
// the first binding wins.
func NewDispatcher(target Commander, entries []Entry) *Dispatcher {
	d := &Dispatcher{
		target: target,
		table:  make(map[string]Action, len(entries)),
		logger: log.With().Str("module", "app.voice").Logger(),
	}
	for _, e := range entries {
		key := Normalize(e.Phrase)
		if key == "" {
			continue
		}
		if prev, ok := d.table[key]; ok {
			if prev != e.Action {
				d.logger.Warn().
					Str("phrase", key).
					Str("kept", string(prev)).
					Str("dropped", string(e.Action)).
					Msg("conflicting phrase binding")
			}
			continue
		}
		d.table[key] = e.Action
	}
	return d
}

// Lookup returns the action bound to phrase after normalization.
func (d *Dispatcher) Lookup(phrase string) (Action, bool) {
	a, ok := d.table[Normalize(phrase)]
	return a, ok
}

// Dispatch issues the command bound to phrase, if any, and returns at once.
// Unmatched phrases, and every phrase once Wait has been called, are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, phrase string) (Action, bool) {
	action, ok := d.Lookup(phrase)
	if !ok {
		d.logger.Debug().Str("phrase", phrase).Msg("no command")
		return "", false
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Debug().Str("phrase", phrase).Msg("dispatcher closed")
		return "", false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	metrics.VoiceCommandsTotal.WithLabelValues(string(action)).Inc()
	d.logger.Info().Str("phrase", phrase).Str("action", string(action)).Msg("voice command")

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		if err := d.invoke(ctx, action); err != nil {
			d.logger.Warn().Err(err).Str("action", string(action)).Msg("voice command failed")
		}
	}()
	return action, true
}

// Wait stops accepting phrases and blocks until every dispatched command
// has returned.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) invoke(ctx context.Context, action Action) error {
	switch action {
	case ActionStartVideo:
		return d.target.StartVideo(ctx)
	case ActionStopVideo:
		return d.target.StopVideo(ctx)
	case ActionToggleScreenShare:
		return d.target.ToggleScreenShare(ctx)
	case ActionStopShare:
		return d.target.StopShare(ctx)
	case ActionEndCall:
		return d.target.EndCall(ctx)
	case ActionMute:
		return d.target.Mute(ctx)
	case ActionUnmute:
		return d.target.Unmute(ctx)
	}
	return nil
}
