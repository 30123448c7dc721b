// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teletable/backend/internal/robot"
)

func TestRoutes_RoleEnforcement(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]string{"start": "a", "destination": "b"}

	rec := env.request(t, http.MethodPost, "/routes", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodPost, "/routes", env.token(t, "Viewer"), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(t, http.MethodPost, "/routes", env.token(t, "Operator"), body)
	assert.Equal(t, http.StatusForbidden, rec.Code, "queue mutation is admin-only")

	rec = env.request(t, http.MethodPost, "/routes", env.token(t, "Admin"), body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSelectRoute_RoleEnforcement(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]string{"start": "a", "destination": "b"}

	rec := env.request(t, http.MethodPost, "/routes/select", env.token(t, "Viewer"), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAddRoute_Validation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, "Admin")

	rec := env.request(t, http.MethodPost, "/routes", admin, map[string]string{"start": "a"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodPost, "/routes", admin, map[string]string{"start": "", "destination": "b"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRoutes_ActiveFirst(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, "Admin")
	env.postIdleTelemetry(t)

	// First route dispatches immediately, second stays queued.
	rec := env.request(t, http.MethodPost, "/routes", admin, map[string]string{"start": "a", "destination": "b"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.request(t, http.MethodPost, "/routes", admin, map[string]string{"start": "b", "destination": "c"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, http.MethodGet, "/routes", env.token(t, "Viewer"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	routes := decodeBody[[]robot.QueuedRoute](t, rec)
	require.Len(t, routes, 2)
	assert.Equal(t, "a", routes[0].Start, "active route listed first")
	assert.Equal(t, "b", routes[1].Start)

	active, ok := env.controller.Store().ActiveRoute()
	require.True(t, ok)
	assert.Equal(t, routes[0].ID, active.ID)
}

func TestDeleteRoute(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, "Admin")

	// Robot disconnected, so the route stays queued.
	rec := env.request(t, http.MethodPost, "/routes", admin, map[string]string{"start": "a", "destination": "b"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[robot.QueuedRoute](t, rec)

	rec = env.request(t, http.MethodDelete, "/routes/"+created.ID.String(), admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.request(t, http.MethodDelete, "/routes/"+created.ID.String(), admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(t, http.MethodDelete, "/routes/not-a-uuid", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelectRoute_OperatorDispatches(t *testing.T) {
	env := newTestEnv(t)
	env.postIdleTelemetry(t)

	commands, cancel := env.bus.Subscribe()
	defer cancel()

	rec := env.request(t, http.MethodPost, "/routes/select", env.token(t, "Operator"),
		map[string]string{"start": "dock", "destination": "table_2"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "success", body["status"])

	cmd := <-commands
	assert.Equal(t, robot.Navigate("dock", "table_2"), cmd)
}

func TestSelectRoute_BlockedByForeignLock(t *testing.T) {
	env := newTestEnv(t)
	env.postIdleTelemetry(t)

	rec := env.request(t, http.MethodPost, "/drive/lock", env.token(t, "Operator"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodPost, "/routes/select", env.token(t, "Operator"),
		map[string]string{"start": "a", "destination": "b"})
	require.Equal(t, http.StatusOK, rec.Code, "domain conflicts use HTTP 200")
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Robot is manually locked", body["message"])
}

func TestSelectRoute_AdminPreemptsLock(t *testing.T) {
	env := newTestEnv(t)
	env.postIdleTelemetry(t)

	rec := env.request(t, http.MethodPost, "/drive/lock", env.token(t, "Operator"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	commands, cancel := env.bus.Subscribe()
	defer cancel()

	rec = env.request(t, http.MethodPost, "/routes/select", env.token(t, "Admin"),
		map[string]string{"start": "a", "destination": "b"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "success", body["status"])

	// The foreign lock is gone and the navigation went out.
	_, held := env.controller.Store().EffectiveLock()
	assert.False(t, held)
	assert.Equal(t, robot.Navigate("a", "b"), <-commands)
}

func TestOptimizeRoutes_AdminOnly(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/routes/optimize", env.token(t, "Operator"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := env.token(t, "Admin")
	for _, r := range [][2]string{{"b", "c"}, {"a", "b"}, {"c", "d"}} {
		rec = env.request(t, http.MethodPost, "/routes", admin, map[string]string{"start": r[0], "destination": r[1]})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = env.request(t, http.MethodPost, "/routes/optimize", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[struct {
		Status string              `json:"status"`
		Routes []robot.QueuedRoute `json:"routes"`
	}](t, rec)
	assert.Equal(t, "success", resp.Status)
	require.Len(t, resp.Routes, 3)
	// The earliest-added route (b->c) seeds the path; c->d chains onto it.
	assert.Equal(t, "b", resp.Routes[0].Start)
	assert.Equal(t, "c", resp.Routes[1].Start)
}
