// SPDX-License-Identifier: MIT

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bearerRequest(t *testing.T, role Role) *http.Request {
	t.Helper()
	token, err := CreateToken(uuid.NewString(), "test", role, testSecret, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestMiddleware_ValidToken(t *testing.T) {
	var got Claims
	handler := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		got = claims
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, bearerRequest(t, RoleOperator))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", got.Name)
	assert.Equal(t, RoleOperator, got.Role)
}

func TestMiddleware_MissingHeader(t *testing.T) {
	handler := Middleware(testSecret)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_BadToken(t *testing.T) {
	handler := Middleware(testSecret)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	chain := Middleware(testSecret)(RequireRole(RoleOperator)(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })))

	cases := []struct {
		role Role
		want int
	}{
		{RoleViewer, http.StatusForbidden},
		{RoleOperator, http.StatusNoContent},
		{RoleAdmin, http.StatusNoContent},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, bearerRequest(t, tc.role))
		assert.Equal(t, tc.want, rec.Code, "role %s", tc.role)
	}
}

func TestRequireRole_WithoutMiddleware(t *testing.T) {
	handler := RequireRole(RoleViewer)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExtractBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", ExtractBearer(req))

	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Equal(t, "", ExtractBearer(req))

	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", ExtractBearer(req))
}
