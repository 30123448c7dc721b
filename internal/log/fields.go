// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldUserName  = "user_name"
	FieldRole      = "role"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Robot control fields
	FieldRouteID   = "route_id"
	FieldStart     = "start"
	FieldDest      = "destination"
	FieldCommand   = "command"
	FieldDriveMode = "drive_mode"
	FieldHolder    = "holder"
	FieldRobotURL  = "robot_url"

	// Network fields
	FieldRemoteAddr = "remote_addr"
	FieldPath       = "path"
)
