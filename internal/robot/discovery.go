// SPDX-License-Identifier: MIT

package robot

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/teletable/backend/internal/log"
)

// announcement is the UDP discovery datagram sent by the robot.
type announcement struct {
	Type string `json:"type"`
	Port uint16 `json:"port"`
}

// RunDiscovery listens for UDP announce datagrams and records the sender
// as the robot base URL. Decode failures are logged and discarded; the
// loop never crashes the process and returns only when ctx is cancelled.
func RunDiscovery(ctx context.Context, store *Store, port int) error {
	logger := log.WithComponent("discovery")

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return fmt.Errorf("bind udp discovery socket: %w", err)
	}

	// Unblock the read loop on shutdown.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	logger.Info().Int("port", port).Msg("UDP discovery service listening")

	buf := make([]byte, 1024)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("UDP discovery service stopped")
				return nil
			}
			logger.Error().Err(err).Msg("error receiving UDP packet")
			continue
		}

		var ann announcement
		if err := json.Unmarshal(buf[:n], &ann); err != nil {
			logger.Warn().
				Str(log.FieldRemoteAddr, addr.String()).
				Msg("discarding undecodable discovery datagram")
			continue
		}
		if ann.Type != "announce" || ann.Port == 0 {
			continue
		}

		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			host = addr.String()
		}
		url := fmt.Sprintf("http://%s:%d", host, ann.Port)
		if store.SetRobotURL(url) {
			logger.Info().
				Str(log.FieldEvent, "discovery.registered").
				Str(log.FieldRobotURL, url).
				Msg("registered robot")
		}
	}
}
