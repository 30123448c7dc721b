// SPDX-License-Identifier: MIT

// Package robot implements the robot control core: the shared state store,
// the command bus, the queue dispatcher, the manual-drive lock and the
// supporting robot-facing plumbing (node cache, UDP discovery, optimizer).
package robot

import (
	"time"

	"github.com/google/uuid"
)

// DriveModeIdle is the telemetry drive mode that marks the robot as ready
// for (or finished with) a navigation.
const DriveModeIdle = "IDLE"

// Telemetry is the robot's self-reported state. Unknown wire fields are
// tolerated on decode.
type Telemetry struct {
	SystemHealth    string  `json:"systemHealth"`
	BatteryLevel    uint8   `json:"batteryLevel"`
	DriveMode       string  `json:"driveMode"`
	CargoStatus     string  `json:"cargoStatus"`
	CurrentPosition string  `json:"currentPosition"`
	LastNode        *string `json:"lastNode,omitempty"`
	TargetNode      *string `json:"targetNode,omitempty"`
}

// Event is a free-form notification posted by the robot.
type Event struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// LockInfo describes the holder of the manual-drive lock. The lock is
// effective only while ExpiresAt is strictly in the future; an expired
// lock is equivalent to no lock for every authorization decision.
type LockInfo struct {
	HolderID   uuid.UUID `json:"holderId"`
	HolderName string    `json:"holderName"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Effective reports whether the lock is still in force at the given time.
func (l LockInfo) Effective(now time.Time) bool {
	return l.ExpiresAt.After(now)
}

// QueuedRoute is one pending navigation in the route queue.
type QueuedRoute struct {
	ID          uuid.UUID `json:"id"`
	Start       string    `json:"start"`
	Destination string    `json:"destination"`
	AddedAt     time.Time `json:"added_at"`
	AddedBy     string    `json:"added_by"`
}

// NewQueuedRoute stamps a fresh queue entry.
func NewQueuedRoute(start, destination, addedBy string) QueuedRoute {
	return QueuedRoute{
		ID:          uuid.New(),
		Start:       start,
		Destination: destination,
		AddedAt:     time.Now().UTC(),
		AddedBy:     addedBy,
	}
}
