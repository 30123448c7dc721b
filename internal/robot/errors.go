// SPDX-License-Identifier: MIT

package robot

import (
	"errors"
	"fmt"
)

// Domain conflicts. These surface to clients as 200 {status:"error"}
// responses per the existing wire contract, never as HTTP errors.
var (
	// ErrNotHolder is returned when a caller releases a lock they do not hold.
	ErrNotHolder = errors.New("you do not hold the lock")
	// ErrRouteActive is returned when a non-admin acquires the lock while an
	// automated route is executing.
	ErrRouteActive = errors.New("cannot acquire while automated route active")
	// ErrRobotUnavailable is returned when no robot URL is known or the
	// robot cannot be reached.
	ErrRobotUnavailable = errors.New("robot unavailable")
)

// LockHeldError names the current holder when an acquire is refused.
type LockHeldError struct {
	Holder string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("Lock held by %s", e.Holder)
}
