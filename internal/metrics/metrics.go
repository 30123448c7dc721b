// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the robot control core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// No high-cardinality labels: command and reason are bounded enums.
var (
	// CommandsEmitted counts commands put on the bus, by command tag.
	CommandsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teletable_commands_emitted_total",
		Help: "Total number of robot commands emitted on the command bus, by command.",
	}, []string{"command"})

	// DispatchTotal counts queue dispatcher outcomes.
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teletable_dispatch_total",
		Help: "Total number of dispatcher invocations, by outcome (dispatched/blocked/empty/failed).",
	}, []string{"outcome"})

	// PreemptTotal counts admin preemptions.
	PreemptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teletable_preempt_total",
		Help: "Total number of admin preemptions of the active route.",
	})

	// LockAcquisitions counts manual lock acquisitions and renewals.
	LockAcquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teletable_lock_acquisitions_total",
		Help: "Total number of manual-drive lock acquisitions, by kind (new/renew/revoke).",
	}, []string{"kind"})

	// LockExpiries counts locks cleared by the background sweeper.
	LockExpiries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teletable_lock_expiries_total",
		Help: "Total number of manual-drive locks cleared after expiry.",
	})

	// TelemetryPosts counts accepted robot telemetry posts.
	TelemetryPosts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teletable_telemetry_posts_total",
		Help: "Total number of accepted robot state posts.",
	})

	// BusSubscribers tracks currently connected command-bus subscribers.
	BusSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "teletable_bus_subscribers",
		Help: "Current number of command-bus subscribers (robot and operator sockets).",
	})

	// BusDropped counts subscribers dropped for falling behind.
	BusDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teletable_bus_dropped_subscribers_total",
		Help: "Total number of subscribers dropped because their buffer overflowed.",
	})

	// DriveFrames counts operator frames accepted on the manual drive
	// socket, by command tag.
	DriveFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teletable_drive_frames_total",
		Help: "Total number of accepted manual-drive WebSocket frames, by command.",
	}, []string{"command"})

	// QueueLength tracks the current pending route queue length.
	QueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "teletable_queue_length",
		Help: "Current number of pending routes in the queue (excluding the active route).",
	})
)
