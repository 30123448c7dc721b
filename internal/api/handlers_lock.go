// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"

	"github.com/teletable/backend/internal/auth"
	"github.com/teletable/backend/internal/robot"
)

// handleAcquireLock (Operator+) takes or renews the manual-drive lock.
// Domain refusals (held by someone else, automated route active) come
// back as 200 {status:"error"} per the wire contract.
func (s *Server) handleAcquireLock(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	err := s.controller.AcquireLock(claims)
	if err == nil {
		writeSuccess(w, "Lock acquired")
		return
	}

	var held *robot.LockHeldError
	switch {
	case errors.As(err, &held):
		writeDomainError(w, held.Error())
	case errors.Is(err, robot.ErrRouteActive):
		writeDomainError(w, "Cannot acquire lock while automated route is active")
	default:
		writeError(w, err)
	}
}

// handleReleaseLock (Operator+) releases the caller's lock.
func (s *Server) handleReleaseLock(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	if err := s.controller.ReleaseLock(claims); err != nil {
		writeDomainError(w, "You do not hold the lock")
		return
	}
	writeSuccess(w, "Lock released")
}
