// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/teletable/backend/internal/auth"
	"github.com/teletable/backend/internal/log"
	"github.com/teletable/backend/internal/metrics"
	"github.com/teletable/backend/internal/robot"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is handled by the CORS middleware on the HTTP
	// surface; the sockets accept any origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleRobotControlWS is the robot's command downlink: every command
// published on the bus is written to the socket as one JSON frame.
//
// The API key header is optional here. Deployed firmware connects
// without it, so a missing or wrong key is logged but tolerated.
func (s *Server) handleRobotControlWS(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	if key := r.Header.Get("X-Api-Key"); key != "" && !auth.AuthorizeAPIKey(key, s.cfg.RobotAPIKey) {
		logger.Warn().
			Str(log.FieldEvent, "ws.bad_api_key").
			Str(log.FieldRemoteAddr, clientIP(r)).
			Msg("robot control socket presented an invalid API key")
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	commands, cancel := s.bus.Subscribe()
	defer cancel()
	defer func() { _ = conn.Close() }()

	logger.Info().
		Str(log.FieldEvent, "ws.robot_connected").
		Str(log.FieldRemoteAddr, clientIP(r)).
		Msg("robot control socket connected")

	// Reader goroutine: the robot sends nothing meaningful on this
	// socket, but reading is required to observe close frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case cmd, ok := <-commands:
			if !ok {
				// Dropped for falling behind, or bus shut down.
				logger.Warn().
					Str(log.FieldEvent, "ws.robot_dropped").
					Msg("robot control socket dropped from bus")
				return
			}
			if err := conn.WriteJSON(cmd); err != nil {
				logger.Info().
					Str(log.FieldEvent, "ws.robot_disconnected").
					Err(err).
					Msg("robot control socket write failed")
				return
			}
		case <-done:
			logger.Info().
				Str(log.FieldEvent, "ws.robot_disconnected").
				Msg("robot control socket closed")
			return
		}
	}
}

// handleManualDriveWS is the operator uplink: authenticated clients
// stream command frames that are filtered per role and forwarded onto
// the bus. Frames the caller is not entitled to send are dropped
// silently so a stale client cannot tear down the stream.
func (s *Server) handleManualDriveWS(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.DecodeToken(r.URL.Query().Get("token"), s.cfg.JWTSecret)
	if err != nil {
		writeUnauthorized(w, "Invalid or missing token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	logger := log.FromContext(r.Context()).With().
		Str(log.FieldUserName, claims.Name).
		Str(log.FieldRole, string(claims.Role)).
		Logger()
	logger.Info().
		Str(log.FieldEvent, "ws.drive_connected").
		Msg("manual drive socket connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.Info().
				Str(log.FieldEvent, "ws.drive_disconnected").
				Msg("manual drive socket closed")
			return
		}

		var cmd robot.Command
		if err := cmd.UnmarshalJSON(raw); err != nil {
			// Malformed frames are dropped, not fatal.
			logger.Debug().Err(err).Msg("dropping malformed drive frame")
			continue
		}

		if !s.allowFrame(claims, cmd) {
			logger.Debug().
				Str(log.FieldCommand, string(cmd.Type)).
				Msg("dropping drive frame not permitted for role")
			continue
		}

		if claims.Role.IsAdmin() && cmd.Type == robot.CommandNavigate {
			// Admin navigation over the socket follows the same preemption
			// protocol as the HTTP route selection.
			s.controller.Preempt(claims, cmd.Start, cmd.Destination)
			continue
		}

		metrics.DriveFrames.WithLabelValues(string(cmd.Type)).Inc()
		_ = s.bus.Publish(cmd)
	}
}

// allowFrame applies the per-frame permission matrix: viewers send
// nothing, operators may drive only while holding the manual lock, and
// admins may send anything.
func (s *Server) allowFrame(claims auth.Claims, cmd robot.Command) bool {
	switch {
	case claims.Role.IsAdmin():
		return true
	case claims.Role.AtLeast(auth.RoleOperator):
		return cmd.Type == robot.CommandDrive && s.controller.IsLockHolder(claims.Sub)
	default:
		return false
	}
}
