// Package metrics provides Prometheus metrics for session views.
// Labels never carry client tokens or topics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionEventsTotal counts vendor connection-change events by state.
	ConnectionEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zoomify_connection_events_total",
		Help: "Total number of vendor connection-change events, by state.",
	}, []string{"state"})

	// JoinAttemptsTotal counts joins by outcome (ok/rejected).
	JoinAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zoomify_join_attempts_total",
		Help: "Total number of session join attempts, by outcome.",
	}, []string{"outcome"})

	// InitFailuresTotal counts vendor client initialisation failures.
	InitFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zoomify_init_failures_total",
		Help: "Total number of vendor client initialisation failures.",
	})

	// VoiceCommandsTotal counts dispatched voice commands by action.
	VoiceCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zoomify_voice_commands_total",
		Help: "Total number of voice commands dispatched, by action.",
	}, []string{"action"})

	// MountedSessions is the number of session views currently mounted.
	MountedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zoomify_mounted_sessions",
		Help: "Number of session views currently mounted.",
	})
)
