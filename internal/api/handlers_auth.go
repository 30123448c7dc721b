// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/teletable/backend/internal/auth"
	"github.com/teletable/backend/internal/log"
	"github.com/teletable/backend/internal/users"
)

// requireUsers answers 503 when the service runs without a database.
func (s *Server) requireUsers(w http.ResponseWriter) bool {
	if s.users == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "user management unavailable: no database configured",
		})
		return false
	}
	return true
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates a new account. Every self-registered account
// starts as Viewer; role upgrades go through the admin user endpoints.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.requireUsers(w) {
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New("invalid registration payload"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
		writeError(w, errors.New("name, email and a password of at least 8 characters are required"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeInternal(w, err)
		return
	}

	u, err := s.users.Create(r.Context(), req.Name, req.Email, hash, auth.RoleViewer)
	if errors.Is(err, users.ErrEmailTaken) {
		writeDomainError(w, "User with this email already exists")
		return
	}
	if err != nil {
		writeInternal(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, u.Public())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin verifies credentials and mints a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.requireUsers(w) {
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New("invalid login payload"))
		return
	}

	u, err := s.users.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, users.ErrNotFound) || (err == nil && !auth.VerifyPassword(req.Password, u.PasswordHash)) {
		// One message for both failure modes; never reveal which.
		writeUnauthorized(w, "Invalid email or password")
		return
	}
	if err != nil {
		writeInternal(w, err)
		return
	}

	token, err := auth.CreateToken(u.ID.String(), u.Name, u.Role, s.cfg.JWTSecret, s.cfg.JWTExpiry())
	if err != nil {
		writeInternal(w, err)
		return
	}

	log.FromContext(r.Context()).Info().
		Str(log.FieldEvent, "auth.login").
		Str(log.FieldUserID, u.ID.String()).
		Str(log.FieldRole, string(u.Role)).
		Msg("user logged in")
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  u.Public(),
	})
}

// handleMe echoes the caller's token claims.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"id":   claims.Sub,
		"name": claims.Name,
		"role": claims.Role,
	})
}

// handleListUsers (Admin) returns all accounts, redacted.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !s.requireUsers(w) {
		return
	}

	list, err := s.users.List(r.Context())
	if err != nil {
		writeInternal(w, err)
		return
	}

	out := make([]users.Public, 0, len(list))
	for _, u := range list {
		out = append(out, u.Public())
	}
	writeJSON(w, http.StatusOK, out)
}

type updateUserRequest struct {
	ID   uuid.UUID `json:"id"`
	Role auth.Role `json:"role"`
}

// handleUpdateUser (Admin) changes a user's role.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireUsers(w) {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == uuid.Nil {
		writeError(w, errors.New("invalid user payload"))
		return
	}
	if !req.Role.Valid() {
		writeError(w, errors.New("unknown role"))
		return
	}

	u, err := s.users.UpdateRole(r.Context(), req.ID, req.Role)
	if errors.Is(err, users.ErrNotFound) {
		writeNotFound(w, "user not found")
		return
	}
	if err != nil {
		writeInternal(w, err)
		return
	}

	log.FromContext(r.Context()).Info().
		Str(log.FieldEvent, "users.role_changed").
		Str(log.FieldUserID, u.ID.String()).
		Str(log.FieldRole, string(u.Role)).
		Msg("user role updated")
	writeJSON(w, http.StatusOK, u.Public())
}

type deleteUserRequest struct {
	ID uuid.UUID `json:"id"`
}

// handleDeleteUser (Admin) removes an account.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireUsers(w) {
		return
	}

	var req deleteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == uuid.Nil {
		writeError(w, errors.New("invalid user payload"))
		return
	}

	err := s.users.Delete(r.Context(), req.ID)
	if errors.Is(err, users.ErrNotFound) {
		writeNotFound(w, "user not found")
		return
	}
	if err != nil {
		writeInternal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
