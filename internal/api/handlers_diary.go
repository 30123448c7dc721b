// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/teletable/backend/internal/auth"
	"github.com/teletable/backend/internal/diary"
)

func (s *Server) requireDiaries(w http.ResponseWriter) bool {
	if s.diaries == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "diary unavailable: no database configured",
		})
		return false
	}
	return true
}

func callerID(r *http.Request) (uuid.UUID, error) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return uuid.Nil, errors.New("missing claims")
	}
	return uuid.Parse(claims.Sub)
}

type diaryCreateRequest struct {
	WorkingMinutes int32  `json:"working_minutes"`
	Text           string `json:"text"`
}

// handleDiaryCreate (Operator+) records a new work-diary entry for the
// caller.
func (s *Server) handleDiaryCreate(w http.ResponseWriter, r *http.Request) {
	if !s.requireDiaries(w) {
		return
	}
	owner, err := callerID(r)
	if err != nil {
		writeUnauthorized(w, "Invalid token subject")
		return
	}

	var req diaryCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WorkingMinutes < 0 {
		writeError(w, errors.New("invalid diary payload"))
		return
	}

	entry, err := s.diaries.Create(r.Context(), owner, req.WorkingMinutes, req.Text)
	if err != nil {
		writeInternal(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// handleDiaryGet returns the caller's entries; with ?id= it returns a
// single owned entry instead.
func (s *Server) handleDiaryGet(w http.ResponseWriter, r *http.Request) {
	if !s.requireDiaries(w) {
		return
	}
	owner, err := callerID(r)
	if err != nil {
		writeUnauthorized(w, "Invalid token subject")
		return
	}

	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, errors.New("invalid entry id"))
			return
		}
		entry, err := s.diaries.GetByID(r.Context(), owner, id)
		if errors.Is(err, diary.ErrNotFound) {
			writeNotFound(w, "diary entry not found")
			return
		}
		if err != nil {
			writeInternal(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
		return
	}

	entries, err := s.diaries.ListByOwner(r.Context(), owner)
	if err != nil {
		writeInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type diaryDeleteRequest struct {
	ID uuid.UUID `json:"id"`
}

// handleDiaryDelete removes one of the caller's entries.
func (s *Server) handleDiaryDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requireDiaries(w) {
		return
	}
	owner, err := callerID(r)
	if err != nil {
		writeUnauthorized(w, "Invalid token subject")
		return
	}

	var req diaryDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == uuid.Nil {
		writeError(w, errors.New("invalid diary payload"))
		return
	}

	err = s.diaries.Delete(r.Context(), owner, req.ID)
	if errors.Is(err, diary.ErrNotFound) {
		writeNotFound(w, "diary entry not found")
		return
	}
	if err != nil {
		writeInternal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDiaryAll is a public listing of every entry, used by the kiosk
// display.
func (s *Server) handleDiaryAll(w http.ResponseWriter, r *http.Request) {
	if !s.requireDiaries(w) {
		return
	}
	entries, err := s.diaries.ListAll(r.Context())
	if err != nil {
		writeInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
