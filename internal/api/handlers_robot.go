// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/teletable/backend/internal/auth"
	"github.com/teletable/backend/internal/log"
	"github.com/teletable/backend/internal/robot"
)

// lastRoute mirrors the robot's last/target node pair on /status.
type lastRoute struct {
	StartNode string `json:"start_node"`
	EndNode   string `json:"end_node"`
}

type statusResponse struct {
	SystemHealth         string     `json:"systemHealth"`
	BatteryLevel         uint8      `json:"batteryLevel"`
	DriveMode            string     `json:"driveMode"`
	CargoStatus          string     `json:"cargoStatus"`
	LastRoute            *lastRoute `json:"lastRoute"`
	Position             string     `json:"position"`
	ManualLockHolderName *string    `json:"manualLockHolderName"`
	RobotConnected       bool       `json:"robotConnected"`
}

// handleStatus is public: it reports the latest telemetry, the effective
// lock holder and connectivity. Before the first telemetry post every
// field reads UNKNOWN.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	store := s.controller.Store()

	resp := statusResponse{
		SystemHealth:   "UNKNOWN",
		DriveMode:      "UNKNOWN",
		CargoStatus:    "UNKNOWN",
		Position:       "UNKNOWN",
		RobotConnected: store.RobotConnected(),
	}

	if t, _, ok := store.Telemetry(); ok {
		resp.SystemHealth = t.SystemHealth
		resp.BatteryLevel = t.BatteryLevel
		resp.DriveMode = t.DriveMode
		resp.CargoStatus = t.CargoStatus
		resp.Position = t.CurrentPosition
		if t.LastNode != nil && t.TargetNode != nil {
			resp.LastRoute = &lastRoute{StartNode: *t.LastNode, EndNode: *t.TargetNode}
		}
	}

	if lock, ok := store.EffectiveLock(); ok {
		name := lock.HolderName
		resp.ManualLockHolderName = &name
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleNodes serves the cached node list; 503 with an empty list when the
// robot is unknown or unreachable.
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.nodes.GetNodes(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, robot.NodesResponse{Nodes: []string{}})
		return
	}
	writeJSON(w, http.StatusOK, robot.NodesResponse{Nodes: nodes})
}

// handleRobotCheck probes {robotUrl}/health and reports reachability plus
// telemetry freshness.
func (s *Server) handleRobotCheck(w http.ResponseWriter, r *http.Request) {
	store := s.controller.Store()
	url := store.RobotURL()
	if url == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "error",
			"message": "No robot URL registered",
		})
		return
	}

	connected := store.RobotConnected()
	_, lastUpdate, hasTelemetry := store.Telemetry()

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url+"/health", nil)
	if err != nil {
		writeInternal(w, err)
		return
	}
	resp, err := s.robotHTTP.Do(req)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "error",
			"message":        fmt.Sprintf("Failed to reach robot: %v", err),
			"url":            url,
			"robotConnected": connected,
		})
		return
	}
	defer func() { _ = resp.Body.Close() }()

	out := map[string]any{
		"status":         "success",
		"robot_status":   resp.StatusCode,
		"url":            url,
		"robotConnected": connected,
	}
	if hasTelemetry {
		out["lastUpdate"] = lastUpdate.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) authorizeRobot(w http.ResponseWriter, r *http.Request) bool {
	if !auth.AuthorizeAPIKey(r.Header.Get("X-Api-Key"), s.cfg.RobotAPIKey) {
		writeUnauthorized(w, "Invalid API Key")
		return false
	}
	return true
}

// handleTableState ingests a telemetry post from the robot. The state
// snapshot is replaced wholesale; completion detection and dispatch run
// inside the controller.
func (s *Server) handleTableState(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeRobot(w, r) {
		return
	}

	var t robot.Telemetry
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, errors.New("invalid telemetry payload"))
		return
	}

	s.controller.UpdateTelemetry(t)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleTableEvent accepts a free-form robot event. Events are currently
// only logged.
func (s *Server) handleTableEvent(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeRobot(w, r) {
		return
	}

	var ev robot.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, errors.New("invalid event payload"))
		return
	}

	log.FromContext(r.Context()).Info().
		Str(log.FieldEvent, "robot.event").
		Str("robot_event", ev.Event).
		Time("robot_timestamp", ev.Timestamp).
		Msg("received robot event")
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type registerTableRequest struct {
	Port uint16 `json:"port"`
}

// handleTableRegister records the robot base URL from an authenticated
// HTTP registration; the address comes from forwarded headers, falling
// back to the peer.
func (s *Server) handleTableRegister(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeRobot(w, r) {
		return
	}

	var req registerTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Port == 0 {
		writeError(w, errors.New("invalid registration payload"))
		return
	}

	url := "http://" + clientIP(r) + ":" + strconv.Itoa(int(req.Port))
	if s.controller.Store().SetRobotURL(url) {
		log.FromContext(r.Context()).Info().
			Str(log.FieldEvent, "discovery.registered").
			Str(log.FieldRobotURL, url).
			Msg("registered robot via HTTP")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "url": url})
}
