// SPDX-License-Identifier: MIT

package robot

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/teletable/backend/internal/auth"
	"github.com/teletable/backend/internal/log"
	"github.com/teletable/backend/internal/metrics"
)

// Controller couples the state store with the command bus and implements
// the control decisions: queue dispatch, admin preemption, the lock
// protocol and telemetry intake. It is safe for concurrent use.
type Controller struct {
	store   *Store
	sink    CommandSink
	lockTTL time.Duration
	logger  zerolog.Logger
}

// NewController wires a controller over the given store and sink. lockTTL
// is the lifetime granted on every lock acquire or renewal.
func NewController(store *Store, sink CommandSink, lockTTL time.Duration) *Controller {
	return &Controller{
		store:   store,
		sink:    sink,
		lockTTL: lockTTL,
		logger:  log.WithComponent("control"),
	}
}

// Store exposes the underlying state store for read-only consumers.
func (c *Controller) Store() *Store { return c.store }

// Dispatch attempts to move the queue head into the active-route slot and
// emit the corresponding NAVIGATE. It is idempotent and reentrant-safe;
// concurrent invocations elect a single winner because the active-route
// write lock is held across the pop-and-emit section.
//
// Preconditions checked in order: no effective manual lock, robot not
// stale, telemetry present and IDLE, no active route, queue non-empty.
func (c *Controller) Dispatch() {
	s := c.store

	if _, held := s.EffectiveLock(); held {
		metrics.DispatchTotal.WithLabelValues("blocked").Inc()
		return
	}
	if !s.RobotConnected() {
		metrics.DispatchTotal.WithLabelValues("blocked").Inc()
		return
	}
	if t, _, ok := s.Telemetry(); !ok || t.DriveMode != DriveModeIdle {
		metrics.DispatchTotal.WithLabelValues("blocked").Inc()
		return
	}

	// Single-winner section: activeRoute then queue, per the fixed order.
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	if s.active != nil {
		metrics.DispatchTotal.WithLabelValues("blocked").Inc()
		return
	}

	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue) == 0 {
		metrics.DispatchTotal.WithLabelValues("empty").Inc()
		return
	}

	next := s.queue[0]
	s.queue = s.queue[1:]

	if err := c.sink.Publish(Navigate(next.Start, next.Destination)); err != nil {
		// Non-transient emission failure: retain the route at the head so
		// the next trigger retries it.
		s.queue = append([]QueuedRoute{next}, s.queue...)
		metrics.DispatchTotal.WithLabelValues("failed").Inc()
		c.logger.Error().Err(err).
			Str(log.FieldEvent, "dispatch.emit_failed").
			Str(log.FieldRouteID, next.ID.String()).
			Msg("failed to emit navigate, route reinserted at queue head")
		return
	}

	routeCopy := next
	s.active = &routeCopy
	metrics.QueueLength.Set(float64(len(s.queue)))
	metrics.DispatchTotal.WithLabelValues("dispatched").Inc()
	c.logger.Info().
		Str(log.FieldEvent, "dispatch.route_started").
		Str(log.FieldRouteID, next.ID.String()).
		Str(log.FieldStart, next.Start).
		Str(log.FieldDest, next.Destination).
		Msg("dispatched route from queue")
}

// Preempt executes the admin override protocol as one critical section in
// the fixed lock order: revoke any foreign lock, cancel and reinsert the
// active route at the queue head, install the admin's navigation as the
// new active route, and emit CANCEL then NAVIGATE in that order.
func (c *Controller) Preempt(claims auth.Claims, start, destination string) {
	s := c.store

	s.lockMu.Lock()
	if s.lock != nil && s.lock.Effective(s.now()) && s.lock.HolderID.String() != claims.Sub {
		c.logger.Warn().
			Str(log.FieldEvent, "lock.revoked").
			Str(log.FieldHolder, s.lock.HolderName).
			Str(log.FieldUserName, claims.Name).
			Msg("admin preemption revoked manual lock")
		metrics.LockAcquisitions.WithLabelValues("revoke").Inc()
		s.lock = nil
	}
	s.lockMu.Unlock()

	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	if s.active != nil {
		prior := *s.active
		_ = c.sink.Publish(Cancel())
		s.queue = append([]QueuedRoute{prior}, s.queue...)
		c.logger.Info().
			Str(log.FieldEvent, "dispatch.route_preempted").
			Str(log.FieldRouteID, prior.ID.String()).
			Msg("active route cancelled and reinserted at queue head")
	}

	installed := NewQueuedRoute(start, destination, claims.Name)
	s.active = &installed
	_ = c.sink.Publish(Navigate(start, destination))

	metrics.QueueLength.Set(float64(len(s.queue)))
	metrics.PreemptTotal.Inc()
	c.logger.Info().
		Str(log.FieldEvent, "dispatch.preempt_navigate").
		Str(log.FieldStart, start).
		Str(log.FieldDest, destination).
		Str(log.FieldUserName, claims.Name).
		Msg("admin navigation installed as active route")
}

// UpdateTelemetry ingests a robot state post: the snapshot is replaced
// wholesale, the receive time stamped, and a transition to IDLE while a
// route is active marks that route complete. Finally the dispatcher runs.
func (c *Controller) UpdateTelemetry(t Telemetry) {
	s := c.store

	s.telemetryMu.Lock()
	snapshot := t
	s.telemetry = &snapshot
	s.lastUpdate = s.now()
	s.telemetryMu.Unlock()

	if t.DriveMode == DriveModeIdle {
		s.activeMu.Lock()
		if s.active != nil {
			c.logger.Info().
				Str(log.FieldEvent, "dispatch.route_completed").
				Str(log.FieldRouteID, s.active.ID.String()).
				Str(log.FieldDest, s.active.Destination).
				Msg("robot reported IDLE, active route completed")
			s.active = nil
		}
		s.activeMu.Unlock()
	}

	metrics.TelemetryPosts.Inc()
	c.Dispatch()
}
