// SPDX-License-Identifier: MIT

package robot

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/teletable/backend/internal/auth"
	"github.com/teletable/backend/internal/log"
	"github.com/teletable/backend/internal/metrics"
)

// AcquireLock takes or renews the manual-drive lock for the caller.
//
// Role gating (Operator+) is enforced at the HTTP handler; this method
// implements the domain rules: a non-admin cannot acquire while an
// automated route is active, an admin acquire revokes a foreign lock, and
// re-acquisition by the current holder extends the expiry (renewal).
func (c *Controller) AcquireLock(claims auth.Claims) error {
	holderID, err := uuid.Parse(claims.Sub)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", claims.Sub, err)
	}

	s := c.store
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	now := s.now()

	// The route gate is checked before the holder so a caller facing both
	// refusals hears about the active route. Lock order: activeRoute is
	// inspected while holding the lock slot.
	if !claims.Role.IsAdmin() {
		s.activeMu.RLock()
		routeActive := s.active != nil
		s.activeMu.RUnlock()
		if routeActive {
			return ErrRouteActive
		}
	}

	if s.lock != nil && s.lock.Effective(now) && s.lock.HolderID != holderID {
		if !claims.Role.IsAdmin() {
			return &LockHeldError{Holder: s.lock.HolderName}
		}
		c.logger.Warn().
			Str(log.FieldEvent, "lock.revoked").
			Str(log.FieldHolder, s.lock.HolderName).
			Str(log.FieldUserName, claims.Name).
			Msg("admin revoked manual lock on acquire")
		metrics.LockAcquisitions.WithLabelValues("revoke").Inc()
		s.lock = nil
	}

	kind := "new"
	if s.lock != nil && s.lock.HolderID == holderID {
		kind = "renew"
	}
	s.lock = &LockInfo{
		HolderID:   holderID,
		HolderName: claims.Name,
		ExpiresAt:  now.Add(c.lockTTL),
	}
	metrics.LockAcquisitions.WithLabelValues(kind).Inc()
	c.logger.Info().
		Str(log.FieldEvent, "lock.acquired").
		Str(log.FieldHolder, claims.Name).
		Str("kind", kind).
		Time("expires_at", s.lock.ExpiresAt).
		Msg("manual lock acquired")
	return nil
}

// ReleaseLock clears the lock if the caller holds it. Expired locks count
// as absent, so releasing one reports ErrNotHolder.
func (c *Controller) ReleaseLock(claims auth.Claims) error {
	s := c.store
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	if s.lock == nil || !s.lock.Effective(s.now()) || s.lock.HolderID.String() != claims.Sub {
		return ErrNotHolder
	}
	c.logger.Info().
		Str(log.FieldEvent, "lock.released").
		Str(log.FieldHolder, s.lock.HolderName).
		Msg("manual lock released")
	s.lock = nil
	return nil
}

// IsLockHolder reports whether the given user currently holds an
// effective lock.
func (c *Controller) IsLockHolder(userID string) bool {
	lock, ok := c.store.EffectiveLock()
	return ok && lock.HolderID.String() == userID
}
