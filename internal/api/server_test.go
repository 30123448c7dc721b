// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/teletable/backend/internal/auth"
	"github.com/teletable/backend/internal/cache"
	"github.com/teletable/backend/internal/config"
	"github.com/teletable/backend/internal/robot"
)

const (
	testJWTSecret   = "test-secret"
	testRobotAPIKey = "test-robot-key"
)

type testEnv struct {
	server     *Server
	router     http.Handler
	controller *robot.Controller
	bus        *robot.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		JWTSecret:      testJWTSecret,
		JWTExpiryHours: 1,
		RobotAPIKey:    testRobotAPIKey,
	}

	store := robot.NewStore(config.StaleTimeout)
	bus := robot.NewBus()
	t.Cleanup(bus.Close)
	controller := robot.NewController(store, bus, config.LockTTL)
	nodes := robot.NewNodeFetcher(store, cache.NewNoopCache(), &http.Client{Timeout: time.Second}, time.Minute)

	srv := New(Deps{
		Config:     cfg,
		Controller: controller,
		Bus:        bus,
		Nodes:      nodes,
	})
	return &testEnv{
		server:     srv,
		router:     srv.Router(),
		controller: controller,
		bus:        bus,
	}
}

func (e *testEnv) token(t *testing.T, role auth.Role) string {
	t.Helper()
	token, err := auth.CreateToken(uuid.NewString(), "test-"+string(role), role, testJWTSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) robotPost(t *testing.T, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("X-Api-Key", key)

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// postIdleTelemetry marks the robot connected and IDLE through the real
// ingestion path.
func (e *testEnv) postIdleTelemetry(t *testing.T) {
	t.Helper()
	rec := e.robotPost(t, "/table/state", testRobotAPIKey, map[string]any{
		"systemHealth":    "OK",
		"batteryLevel":    90,
		"driveMode":       "IDLE",
		"cargoStatus":     "EMPTY",
		"currentPosition": "dock",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}
