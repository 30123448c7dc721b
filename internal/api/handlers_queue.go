// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/teletable/backend/internal/auth"
	"github.com/teletable/backend/internal/log"
	"github.com/teletable/backend/internal/robot"
)

type routeRequest struct {
	Start       string `json:"start"`
	Destination string `json:"destination"`
}

func decodeRouteRequest(r *http.Request) (routeRequest, error) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return routeRequest{}, errors.New("invalid route payload")
	}
	if req.Start == "" || req.Destination == "" {
		return routeRequest{}, errors.New("start and destination are required")
	}
	return req, nil
}

// handleGetRoutes returns the active route (if any) followed by the
// pending queue in FIFO order.
func (s *Server) handleGetRoutes(w http.ResponseWriter, _ *http.Request) {
	store := s.controller.Store()

	out := []robot.QueuedRoute{}
	if active, ok := store.ActiveRoute(); ok {
		out = append(out, active)
	}
	out = append(out, store.Queue()...)
	writeJSON(w, http.StatusOK, out)
}

// handleAddRoute (Admin) appends a route to the queue and lets the
// dispatcher run.
func (s *Server) handleAddRoute(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	req, err := decodeRouteRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	route := robot.NewQueuedRoute(req.Start, req.Destination, claims.Name)
	s.controller.Store().Enqueue(route)
	s.controller.Dispatch()

	writeJSON(w, http.StatusCreated, route)
}

// handleDeleteRoute (Admin) removes a pending route by id. The active
// route is not cancellable through this endpoint.
func (s *Server) handleDeleteRoute(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.New("invalid route id"))
		return
	}

	if !s.controller.Store().RemoveQueued(id) {
		writeNotFound(w, "route not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSelectRoute (Operator+) enqueues a navigation on behalf of the
// caller. An admin selection runs the preemption protocol instead: any
// foreign lock is revoked and the active route is cancelled back to the
// queue head.
func (s *Server) handleSelectRoute(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	req, err := decodeRouteRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if claims.Role.IsAdmin() {
		s.controller.Preempt(claims, req.Start, req.Destination)
		writeSuccess(w, "Route selected")
		return
	}

	// Holding the lock yourself still blocks automated navigation; the
	// operator has to release it first.
	if _, held := s.controller.Store().EffectiveLock(); held {
		writeDomainError(w, "Robot is manually locked")
		return
	}

	route := robot.NewQueuedRoute(req.Start, req.Destination, claims.Name)
	s.controller.Store().Enqueue(route)
	s.controller.Dispatch()

	log.FromContext(r.Context()).Info().
		Str(log.FieldEvent, "queue.route_selected").
		Str(log.FieldRouteID, route.ID.String()).
		Str(log.FieldUserName, claims.Name).
		Msg("route enqueued")
	writeSuccess(w, "Route selected")
}

// handleOptimizeRoutes (Admin) reorders the pending queue to minimize
// transition cost between consecutive routes.
func (s *Server) handleOptimizeRoutes(w http.ResponseWriter, r *http.Request) {
	// The reorder runs under the queue lock so a route enqueued
	// concurrently cannot be lost between read and write.
	optimized := s.controller.Store().TransformQueue(func(q []robot.QueuedRoute) []robot.QueuedRoute {
		return robot.OptimizeQueue(q, robot.DefaultCost)
	})

	log.FromContext(r.Context()).Info().
		Str(log.FieldEvent, "queue.optimized").
		Int("routes", len(optimized)).
		Msg("route queue reordered")
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"routes": optimized,
	})
}
