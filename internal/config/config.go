// SPDX-License-Identifier: MIT

// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"time"
)

// Fixed control-plane timing. These are deliberately not configurable: the
// robot firmware and the web clients hard-code matching values.
const (
	// LockTTL is how long a manual-drive lock stays effective after acquire/renew.
	LockTTL = 30 * time.Second
	// StaleTimeout is how long without a telemetry post before the robot
	// counts as disconnected.
	StaleTimeout = 30 * time.Second
	// SweepInterval is the period of the background lock-expiry sweeper.
	SweepInterval = 5 * time.Second
	// NodeCacheTTL bounds the KV-tier cache of the robot's node list.
	NodeCacheTTL = 600 * time.Second
	// UserCacheTTL bounds the KV-tier cache of user records.
	UserCacheTTL = 300 * time.Second
	// DiaryCacheTTL bounds the KV-tier cache of diary entries.
	DiaryCacheTTL = 60 * time.Second
	// DiscoveryPort is the well-known UDP port for robot announcements.
	DiscoveryPort = 3001
	// RobotHTTPTimeout bounds every outbound HTTP call to the robot.
	RobotHTTPTimeout = 10 * time.Second
)

// Config holds all environment-derived settings.
type Config struct {
	DatabaseURL    string
	RedisURL       string
	JWTSecret      string
	JWTExpiryHours int
	ServerAddress  string
	RobotAPIKey    string
	LogLevel       string
}

// ErrMissingSecret is returned when JWT_SECRET is not set.
var ErrMissingSecret = errors.New("JWT_SECRET must be set")

// FromEnv builds a Config from environment variables, applying documented
// defaults. DATABASE_URL and REDIS_URL may be empty; the daemon then runs
// without the user store or KV cache tier respectively.
func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL:    ParseString("DATABASE_URL", ""),
		RedisURL:       ParseString("REDIS_URL", ""),
		JWTSecret:      ParseString("JWT_SECRET", ""),
		JWTExpiryHours: ParseInt("JWT_EXPIRY_HOURS", 24),
		ServerAddress:  ParseString("SERVER_ADDRESS", "0.0.0.0:3003"),
		RobotAPIKey:    ParseString("ROBOT_API_KEY", "secret-robot-key"),
		LogLevel:       ParseString("LOG_LEVEL", "info"),
	}
	if cfg.JWTSecret == "" {
		return Config{}, ErrMissingSecret
	}
	return cfg, nil
}

// JWTExpiry returns the configured token lifetime.
func (c Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}
