// SPDX-License-Identifier: MIT

package robot

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teletable/backend/internal/metrics"
)

// Store is the process-wide record of robot control state. Each slot is
// guarded by its own readers-writer mutex; multi-slot critical sections
// acquire them in the fixed order
//
//	lock -> telemetry -> activeRoute -> queue -> robotURL -> cachedNodes
//
// and never hold any of them across external I/O. All read accessors
// return copies that do not alias internal memory.
type Store struct {
	lockMu sync.RWMutex
	lock   *LockInfo

	telemetryMu sync.RWMutex
	telemetry   *Telemetry
	lastUpdate  time.Time // zero: no telemetry received yet

	activeMu sync.RWMutex
	active   *QueuedRoute

	queueMu sync.RWMutex
	queue   []QueuedRoute

	urlMu    sync.RWMutex
	robotURL string

	nodesMu sync.RWMutex
	nodes   []string // nil: not cached

	staleTimeout time.Duration
	now          func() time.Time
}

// NewStore creates an empty store. staleTimeout bounds how old the last
// telemetry may be before the robot counts as disconnected.
func NewStore(staleTimeout time.Duration) *Store {
	return &Store{
		staleTimeout: staleTimeout,
		now:          time.Now,
	}
}

// --- telemetry ---

// Telemetry returns the latest snapshot, its receive time, and whether one
// exists at all.
func (s *Store) Telemetry() (Telemetry, time.Time, bool) {
	s.telemetryMu.RLock()
	defer s.telemetryMu.RUnlock()
	if s.telemetry == nil {
		return Telemetry{}, time.Time{}, false
	}
	return *s.telemetry, s.lastUpdate, true
}

// RobotConnected reports whether telemetry has been received within the
// staleness threshold.
func (s *Store) RobotConnected() bool {
	s.telemetryMu.RLock()
	defer s.telemetryMu.RUnlock()
	if s.lastUpdate.IsZero() {
		return false
	}
	return s.now().Sub(s.lastUpdate) < s.staleTimeout
}

// --- manual lock ---

// EffectiveLock returns the lock only if it has not expired. It never
// mutates the stored slot.
func (s *Store) EffectiveLock() (LockInfo, bool) {
	s.lockMu.RLock()
	defer s.lockMu.RUnlock()
	if s.lock == nil || !s.lock.Effective(s.now()) {
		return LockInfo{}, false
	}
	return *s.lock, true
}

// ClearExpiredLock clears the stored lock if it is no longer effective and
// reports whether a clear happened.
func (s *Store) ClearExpiredLock() bool {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.lock != nil && !s.lock.Effective(s.now()) {
		s.lock = nil
		return true
	}
	return false
}

// --- active route ---

// ActiveRoute returns a copy of the route currently being executed.
func (s *Store) ActiveRoute() (QueuedRoute, bool) {
	s.activeMu.RLock()
	defer s.activeMu.RUnlock()
	if s.active == nil {
		return QueuedRoute{}, false
	}
	return *s.active, true
}

// --- queue ---

// Queue returns a copy of the pending queue in FIFO order.
func (s *Store) Queue() []QueuedRoute {
	s.queueMu.RLock()
	defer s.queueMu.RUnlock()
	out := make([]QueuedRoute, len(s.queue))
	copy(out, s.queue)
	return out
}

// Enqueue appends a route to the back of the queue.
func (s *Store) Enqueue(r QueuedRoute) {
	s.queueMu.Lock()
	s.queue = append(s.queue, r)
	metrics.QueueLength.Set(float64(len(s.queue)))
	s.queueMu.Unlock()
}

// RemoveQueued removes the queued route with the given id. It does not
// touch the active route. Returns false if no such id is pending.
func (s *Store) RemoveQueued(id uuid.UUID) bool {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	for i, r := range s.queue {
		if r.ID == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			metrics.QueueLength.Set(float64(len(s.queue)))
			return true
		}
	}
	return false
}

// ReplaceQueue swaps the pending queue wholesale.
func (s *Store) ReplaceQueue(routes []QueuedRoute) {
	s.queueMu.Lock()
	s.queue = append([]QueuedRoute(nil), routes...)
	metrics.QueueLength.Set(float64(len(s.queue)))
	s.queueMu.Unlock()
}

// TransformQueue replaces the pending queue with fn applied to a copy of
// it, all under the queue lock, so no concurrent enqueue can slip between
// the read and the write. fn must not block on I/O. Returns a copy of the
// new queue.
func (s *Store) TransformQueue(fn func([]QueuedRoute) []QueuedRoute) []QueuedRoute {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	snapshot := make([]QueuedRoute, len(s.queue))
	copy(snapshot, s.queue)
	s.queue = fn(snapshot)
	metrics.QueueLength.Set(float64(len(s.queue)))

	out := make([]QueuedRoute, len(s.queue))
	copy(out, s.queue)
	return out
}

// --- robot URL ---

// RobotURL returns the last-known robot base URL, or "" if none.
func (s *Store) RobotURL() string {
	s.urlMu.RLock()
	defer s.urlMu.RUnlock()
	return s.robotURL
}

// SetRobotURL records the robot base URL. Returns true when the value
// changed.
func (s *Store) SetRobotURL(url string) bool {
	s.urlMu.Lock()
	defer s.urlMu.Unlock()
	if s.robotURL == url {
		return false
	}
	s.robotURL = url
	return true
}

// --- cached nodes ---

// CachedNodes returns the in-memory node list tier, if populated.
func (s *Store) CachedNodes() ([]string, bool) {
	s.nodesMu.RLock()
	defer s.nodesMu.RUnlock()
	if s.nodes == nil {
		return nil, false
	}
	out := make([]string, len(s.nodes))
	copy(out, s.nodes)
	return out, true
}

// SetCachedNodes populates the in-memory node list tier. An empty list
// is a valid cached value, distinct from not-cached.
func (s *Store) SetCachedNodes(nodes []string) {
	s.nodesMu.Lock()
	s.nodes = make([]string, len(nodes))
	copy(s.nodes, nodes)
	s.nodesMu.Unlock()
}
