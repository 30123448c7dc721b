// SPDX-License-Identifier: MIT

package robot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teletable/backend/internal/auth"
)

func TestController_AcquireAndReleaseLock(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c, _ := newTestController(clock)
	alice := operatorClaims("alice")

	require.NoError(t, c.AcquireLock(alice))

	lock, held := c.Store().EffectiveLock()
	require.True(t, held)
	assert.Equal(t, "alice", lock.HolderName)
	assert.Equal(t, clock.Now().Add(30*time.Second), lock.ExpiresAt)
	assert.True(t, c.IsLockHolder(alice.Sub))

	require.NoError(t, c.ReleaseLock(alice))
	_, held = c.Store().EffectiveLock()
	assert.False(t, held)
}

func TestController_AcquireRenewalExtendsExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c, _ := newTestController(clock)
	alice := operatorClaims("alice")

	require.NoError(t, c.AcquireLock(alice))
	first, _ := c.Store().EffectiveLock()

	clock.Advance(20 * time.Second)
	require.NoError(t, c.AcquireLock(alice))
	renewed, _ := c.Store().EffectiveLock()

	assert.True(t, renewed.ExpiresAt.After(first.ExpiresAt), "renewal must push the expiry out")
}

func TestController_AcquireHeldByOther(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c, _ := newTestController(clock)

	require.NoError(t, c.AcquireLock(operatorClaims("alice")))

	err := c.AcquireLock(operatorClaims("bob"))
	var held *LockHeldError
	require.ErrorAs(t, err, &held)
	assert.Equal(t, "alice", held.Holder)
}

func TestController_AcquireAfterExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c, _ := newTestController(clock)

	require.NoError(t, c.AcquireLock(operatorClaims("alice")))
	clock.Advance(31 * time.Second)

	// The expired lock no longer blocks a different operator.
	bob := operatorClaims("bob")
	require.NoError(t, c.AcquireLock(bob))
	lock, held := c.Store().EffectiveLock()
	require.True(t, held)
	assert.Equal(t, "bob", lock.HolderName)
}

func TestController_AdminAcquireRevokesForeignLock(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c, _ := newTestController(clock)

	require.NoError(t, c.AcquireLock(operatorClaims("alice")))

	root := adminClaims("root")
	require.NoError(t, c.AcquireLock(root))
	lock, held := c.Store().EffectiveLock()
	require.True(t, held)
	assert.Equal(t, "root", lock.HolderName)
}

func TestController_AcquireBlockedByActiveRoute(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c, _ := newTestController(clock)

	c.Store().Enqueue(NewQueuedRoute("a", "b", "alice"))
	c.UpdateTelemetry(idleTelemetry())
	_, ok := c.Store().ActiveRoute()
	require.True(t, ok)

	err := c.AcquireLock(operatorClaims("bob"))
	assert.ErrorIs(t, err, ErrRouteActive)

	// Admins bypass the route gate.
	assert.NoError(t, c.AcquireLock(adminClaims("root")))
}

func TestController_AcquireRouteGateWinsOverHolderCheck(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c, _ := newTestController(clock)

	// Active route first, then an admin takes the lock (admins bypass the
	// route gate), so a non-admin acquire now faces both refusals.
	c.Store().Enqueue(NewQueuedRoute("a", "b", "alice"))
	c.UpdateTelemetry(idleTelemetry())
	_, ok := c.Store().ActiveRoute()
	require.True(t, ok)
	require.NoError(t, c.AcquireLock(adminClaims("root")))

	err := c.AcquireLock(operatorClaims("bob"))
	assert.ErrorIs(t, err, ErrRouteActive, "the route refusal takes precedence")
}

func TestController_ReleaseNotHolder(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c, _ := newTestController(clock)
	alice := operatorClaims("alice")

	// No lock at all.
	assert.ErrorIs(t, c.ReleaseLock(alice), ErrNotHolder)

	// Someone else holds it.
	require.NoError(t, c.AcquireLock(operatorClaims("bob")))
	assert.ErrorIs(t, c.ReleaseLock(alice), ErrNotHolder)
}

func TestController_ReleaseExpiredLock(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c, _ := newTestController(clock)
	alice := operatorClaims("alice")

	require.NoError(t, c.AcquireLock(alice))
	clock.Advance(31 * time.Second)

	// An expired lock counts as absent even for its former holder.
	assert.ErrorIs(t, c.ReleaseLock(alice), ErrNotHolder)
}

func TestController_AcquireRejectsBadSubject(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c, _ := newTestController(clock)

	err := c.AcquireLock(auth.Claims{Sub: "not-a-uuid", Name: "x", Role: auth.RoleOperator})
	assert.Error(t, err)
}
