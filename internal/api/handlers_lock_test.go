// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_AcquireAndRelease(t *testing.T) {
	env := newTestEnv(t)
	operator := env.token(t, "Operator")

	rec := env.request(t, http.MethodPost, "/drive/lock", operator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "success", body["status"])

	_, held := env.controller.Store().EffectiveLock()
	assert.True(t, held)

	rec = env.request(t, http.MethodDelete, "/drive/lock", operator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody[map[string]string](t, rec)
	assert.Equal(t, "success", body["status"])

	_, held = env.controller.Store().EffectiveLock()
	assert.False(t, held)
}

func TestLock_ConflictIsDomainError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/drive/lock", env.token(t, "Operator"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodPost, "/drive/lock", env.token(t, "Operator"), nil)
	require.Equal(t, http.StatusOK, rec.Code, "lock conflicts use HTTP 200")
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "Lock held by")
}

func TestLock_ReleaseWithoutHolding(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodDelete, "/drive/lock", env.token(t, "Operator"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "error", body["status"])
}

func TestLock_BlockedWhileRouteActive(t *testing.T) {
	env := newTestEnv(t)
	env.postIdleTelemetry(t)

	rec := env.request(t, http.MethodPost, "/routes", env.token(t, "Admin"),
		map[string]string{"start": "a", "destination": "b"})
	require.Equal(t, http.StatusCreated, rec.Code)
	_, active := env.controller.Store().ActiveRoute()
	require.True(t, active)

	rec = env.request(t, http.MethodPost, "/drive/lock", env.token(t, "Operator"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Cannot acquire lock while automated route is active", body["message"])

	// Admins may still take the lock.
	rec = env.request(t, http.MethodPost, "/drive/lock", env.token(t, "Admin"), nil)
	body = decodeBody[map[string]string](t, rec)
	assert.Equal(t, "success", body["status"])
}

func TestLock_RequiresOperatorRole(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/drive/lock", env.token(t, "Viewer"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(t, http.MethodPost, "/drive/lock", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
