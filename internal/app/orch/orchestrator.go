package orch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/zoomify/internal/app"
	"github.com/dkeye/zoomify/internal/app/session"
	"github.com/dkeye/zoomify/internal/app/voice"
	"github.com/dkeye/zoomify/internal/core"
	"github.com/dkeye/zoomify/internal/domain"
	"github.com/dkeye/zoomify/internal/metrics"
)

var ErrNotMounted = errors.New("no session view mounted")

// Settings are the process-wide values every session view starts from.
type Settings struct {
	Defaults  domain.MeetingArgs
	Locale    string
	AssetBase string
	Phrases   []voice.Entry
	// Grace keeps a view mounted after its last socket closes so that page
	// navigation can reattach to it. Zero unmounts at once.
	Grace time.Duration
}

// Orchestrator mounts and unmounts session views and routes client actions
// to the right controller.
type Orchestrator struct {
	Registry   *app.Registry
	Vendors    core.VendorFactory
	Signatures core.SignatureSource
	Settings   Settings
}

// ResolveArgs fills overrides from the defaults, generates a guest name and
// fetches a signature when none is known.
func (o *Orchestrator) ResolveArgs(ctx context.Context, overrides domain.MeetingArgs, env core.Environment) (domain.MeetingArgs, error) {
	args := o.Settings.Defaults
	if overrides.Topic != "" {
		args.Topic = overrides.Topic
	}
	if overrides.Signature != "" {
		args.Signature = overrides.Signature
	}
	if overrides.UserName != "" {
		args.UserName = overrides.UserName
	}
	if overrides.Password != "" {
		args.Password = overrides.Password
	}
	if overrides.WebEndpoint != "" {
		args.WebEndpoint = overrides.WebEndpoint
	}
	args.EnforceGalleryView = args.EnforceGalleryView || overrides.EnforceGalleryView
	if args.UserName == "" {
		args.UserName = domain.GuestName(env.BrowserName())
	}
	if args.Signature == "" && o.Signatures != nil && args.Topic != "" {
		sig, err := o.Signatures.Signature(ctx, args.Topic)
		if err != nil {
			return args, fmt.Errorf("fetch signature: %w", err)
		}
		args.Signature = sig
	}
	return args, args.Validate()
}

// Mount creates the session view for sid and binds it, replacing any
// previous view of the same client. The caller runs Controller.Start.
func (o *Orchestrator) Mount(sid core.SessionID, args domain.MeetingArgs, env core.Environment, sink core.EventSink) (*app.Mounted, error) {
	client, err := o.Vendors.NewClient(sid)
	if err != nil {
		sink.Notify(core.Notification{
			Level:   core.NoticeError,
			Surface: core.SurfaceModal,
			Title:   "Unable to start the session",
			Message: err.Error(),
		})
		return nil, fmt.Errorf("new vendor client: %w", err)
	}

	relay := app.NewRelay(sink)
	ctrl := session.NewController(sid, client, env, relay, o.Registry, session.Config{
		Args:      args,
		Locale:    o.Settings.Locale,
		AssetBase: o.Settings.AssetBase,
	})
	phrases := o.Settings.Phrases
	if len(phrases) == 0 {
		phrases = voice.DefaultTable
	}
	m := &app.Mounted{
		Controller: ctrl,
		Voice:      voice.NewDispatcher(ctrl, phrases),
		Sink:       relay,
	}

	if prev, ok := o.Registry.Bind(sid, m); ok {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("replacing mounted session view")
		o.teardown(prev)
	} else {
		metrics.MountedSessions.Inc()
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("topic", args.Topic).Msg("mount")
	return m, nil
}

// Attach hands sid's mounted view to sink, e.g. after the browser moved
// between pages. A topic override that differs from the mounted topic does
// not attach; the caller mounts a fresh view instead.
func (o *Orchestrator) Attach(sid core.SessionID, overrides domain.MeetingArgs, sink core.EventSink) (*app.Mounted, bool) {
	m, ok := o.Registry.Get(sid)
	if !ok {
		return nil, false
	}
	if overrides.Topic != "" && overrides.Topic != m.Controller.Args().Topic {
		return nil, false
	}
	if !m.Reattach(sink) {
		return nil, false
	}
	sink.SessionChanged(m.Controller.View())
	log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("reattached session view")
	return m, true
}

// Release detaches sink from m. When sink was m's current socket, m is
// unmounted once Grace has passed without an Attach.
func (o *Orchestrator) Release(sid core.SessionID, m *app.Mounted, sink core.EventSink) {
	cur, ok := o.Registry.Get(sid)
	if !ok || cur != m || o.Settings.Grace <= 0 {
		if m.Sink.Detach(sink) {
			o.Unmount(sid, m)
		}
		return
	}
	if m.Detach(sink, o.Settings.Grace, func() { o.Unmount(sid, m) }) {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Dur("grace", o.Settings.Grace).Msg("session view detached")
	}
}

// Start runs the initial join of m with a context that unmounting cancels.
func (o *Orchestrator) Start(ctx context.Context, m *app.Mounted) error {
	ctx, cancel := context.WithCancel(ctx)
	m.SetCancel(cancel)
	defer cancel()
	return m.Controller.Start(ctx)
}

// Unmount tears down m and unbinds it if it is still sid's current view.
func (o *Orchestrator) Unmount(sid core.SessionID, m *app.Mounted) {
	o.teardown(m)
	if o.Registry.Unbind(sid, m) {
		metrics.MountedSessions.Dec()
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("unmount")
}

func (o *Orchestrator) teardown(m *app.Mounted) {
	m.Stop()
	m.Controller.Close()
	m.Voice.Wait()
}

// Toggle runs leaveOrJoin on the mounted session view.
func (o *Orchestrator) Toggle(ctx context.Context, sid core.SessionID) error {
	m, ok := o.Registry.Get(sid)
	if !ok {
		return ErrNotMounted
	}
	return m.Controller.LeaveOrJoin(ctx)
}

// Phrase hands a recognized phrase to the session view's dispatcher.
func (o *Orchestrator) Phrase(ctx context.Context, sid core.SessionID, phrase string) (voice.Action, bool, error) {
	m, ok := o.Registry.Get(sid)
	if !ok {
		return "", false, ErrNotMounted
	}
	action, matched := m.Voice.Dispatch(ctx, phrase)
	return action, matched, nil
}

func (o *Orchestrator) View(sid core.SessionID) (domain.SessionView, bool) {
	m, ok := o.Registry.Get(sid)
	if !ok {
		return domain.SessionView{}, false
	}
	return m.Controller.View(), true
}

// Shutdown unmounts every session view.
func (o *Orchestrator) Shutdown() {
	for _, sid := range o.Registry.SIDs() {
		if m, ok := o.Registry.Get(sid); ok {
			o.Unmount(sid, m)
		}
	}
}
