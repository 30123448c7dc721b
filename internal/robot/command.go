// SPDX-License-Identifier: MIT

package robot

import (
	"encoding/json"
	"fmt"
)

// CommandType discriminates Command variants. The literal values are
// wire-stable; the robot firmware matches on them.
type CommandType string

const (
	CommandNavigate    CommandType = "NAVIGATE"
	CommandCancel      CommandType = "CANCEL"
	CommandDrive       CommandType = "DRIVE_COMMAND"
	CommandLed         CommandType = "LED"
	CommandAudioBeep   CommandType = "AUDIO_BEEP"
	CommandAudioVolume CommandType = "AUDIO_VOLUME"
)

// Command is a tagged union sent to the robot as a flat JSON object with a
// "command" discriminator. Only the fields of the active variant are
// serialized.
type Command struct {
	Type CommandType

	// NAVIGATE
	Start       string
	Destination string

	// DRIVE_COMMAND
	LinearVelocity  float64
	AngularVelocity float64

	// LED
	Enabled    bool
	R, G, B    uint8
	Brightness uint8

	// AUDIO_BEEP
	Hz uint32
	Ms uint32

	// AUDIO_VOLUME
	Value float32
}

// Navigate builds a NAVIGATE command.
func Navigate(start, destination string) Command {
	return Command{Type: CommandNavigate, Start: start, Destination: destination}
}

// Cancel builds a CANCEL command.
func Cancel() Command {
	return Command{Type: CommandCancel}
}

type commandWire struct {
	Command         CommandType `json:"command"`
	Start           *string     `json:"start,omitempty"`
	Destination     *string     `json:"destination,omitempty"`
	LinearVelocity  *float64    `json:"linear_velocity,omitempty"`
	AngularVelocity *float64    `json:"angular_velocity,omitempty"`
	Enabled         *bool       `json:"enabled,omitempty"`
	R               *uint8      `json:"r,omitempty"`
	G               *uint8      `json:"g,omitempty"`
	B               *uint8      `json:"b,omitempty"`
	Brightness      *uint8      `json:"brightness,omitempty"`
	Hz              *uint32     `json:"hz,omitempty"`
	Ms              *uint32     `json:"ms,omitempty"`
	Value           *float32    `json:"value,omitempty"`
}

// MarshalJSON serializes only the fields belonging to the active variant,
// so that zero values (velocity 0.0, LED off) survive the round trip.
func (c Command) MarshalJSON() ([]byte, error) {
	w := commandWire{Command: c.Type}
	switch c.Type {
	case CommandNavigate:
		w.Start, w.Destination = &c.Start, &c.Destination
	case CommandCancel:
		// no payload
	case CommandDrive:
		w.LinearVelocity, w.AngularVelocity = &c.LinearVelocity, &c.AngularVelocity
	case CommandLed:
		w.Enabled = &c.Enabled
		w.R, w.G, w.B = &c.R, &c.G, &c.B
		w.Brightness = &c.Brightness
	case CommandAudioBeep:
		w.Hz, w.Ms = &c.Hz, &c.Ms
	case CommandAudioVolume:
		w.Value = &c.Value
	default:
		return nil, fmt.Errorf("unknown command type %q", c.Type)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a flat command object, rejecting unknown
// discriminator values.
func (c *Command) UnmarshalJSON(data []byte) error {
	var w commandWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := Command{Type: w.Command}
	switch w.Command {
	case CommandNavigate:
		if w.Start == nil || w.Destination == nil {
			return fmt.Errorf("NAVIGATE requires start and destination")
		}
		out.Start, out.Destination = *w.Start, *w.Destination
	case CommandCancel:
	case CommandDrive:
		if w.LinearVelocity == nil || w.AngularVelocity == nil {
			return fmt.Errorf("DRIVE_COMMAND requires linear_velocity and angular_velocity")
		}
		out.LinearVelocity, out.AngularVelocity = *w.LinearVelocity, *w.AngularVelocity
	case CommandLed:
		if w.Enabled == nil || w.R == nil || w.G == nil || w.B == nil || w.Brightness == nil {
			return fmt.Errorf("LED requires enabled, r, g, b and brightness")
		}
		out.Enabled = *w.Enabled
		out.R, out.G, out.B = *w.R, *w.G, *w.B
		out.Brightness = *w.Brightness
	case CommandAudioBeep:
		if w.Hz == nil || w.Ms == nil {
			return fmt.Errorf("AUDIO_BEEP requires hz and ms")
		}
		out.Hz, out.Ms = *w.Hz, *w.Ms
	case CommandAudioVolume:
		if w.Value == nil {
			return fmt.Errorf("AUDIO_VOLUME requires value")
		}
		out.Value = *w.Value
	default:
		return fmt.Errorf("unknown command type %q", w.Command)
	}

	*c = out
	return nil
}
