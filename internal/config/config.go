// Package config defines the plain, JSON-tagged configuration shapes that
// describe a creature and the controller process driving it. File loading
// and module/plugin registration stay out of scope; the struct shapes and
// their Validate methods follow SoArm101Config.Validate's convention —
// returning implied dependencies and suggested optionals alongside an
// error, rather than a bare error.
package config

import (
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/opsnlops/creature-controller-go/internal/errkind"
)

// ServoConfig describes one servo's PWM bounds, smoothing, and output
// location, mirroring internal/servo.Servo's construction arguments.
type ServoConfig struct {
	ID        string  `json:"id"`
	Board     string  `json:"board,omitempty"`
	Header    int     `json:"header,omitempty"`
	Pin       int     `json:"pin,omitempty"`
	Dynamixel bool    `json:"dynamixel,omitempty"`
	BusID     int     `json:"bus_id,omitempty"`
	MinUS     int     `json:"min_us"`
	MaxUS     int     `json:"max_us"`
	// Default is the symbolic default position this servo boots to:
	// "min", "max", or "center" (the default when empty).
	Default   string  `json:"default,omitempty"`
	Smoothing float64 `json:"smoothing,omitempty"`
	Inverted  bool    `json:"inverted,omitempty"`
	UpdateHz  int     `json:"update_hz,omitempty"`
}

// Validate checks the bounds invariants internal/servo.New enforces,
// returning a human-readable error without constructing a Servo.
func (c ServoConfig) Validate() error {
	if c.ID == "" {
		return errkind.New(errkind.InvalidConfiguration, "servo config missing id")
	}
	if c.MinUS >= c.MaxUS {
		return errkind.Errorf(errkind.InvalidConfiguration, "servo %q: min_us (%d) must be less than max_us (%d)", c.ID, c.MinUS, c.MaxUS)
	}
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		return errkind.Errorf(errkind.InvalidConfiguration, "servo %q: smoothing %f must be in [0, 1)", c.ID, c.Smoothing)
	}
	switch c.Default {
	case "", "min", "max", "center":
	default:
		return errkind.Errorf(errkind.InvalidConfiguration, "servo %q: default %q must be one of min, max, center", c.ID, c.Default)
	}
	return nil
}

// CreatureConfig describes one creature: its DMX channel mapping and the
// servos driving its rig.
type CreatureConfig struct {
	Name          string        `json:"name"`
	RigVariant    string        `json:"rig_variant"`
	ChannelOffset int           `json:"channel_offset"`
	Universe      int           `json:"universe,omitempty"`
	Servos        []ServoConfig `json:"servos"`
}

// Validate checks required fields and delegates to each ServoConfig.
// It returns (impliedServoIDs, suggestedOptionalFields, error), the same
// shape as ControllerConfig.Validate — here impliedServoIDs lists the ID of
// every configured servo, in configuration order, and
// suggestedOptionalFields names each servo's unset update_hz.
func (c CreatureConfig) Validate() ([]string, []string, error) {
	if c.Name == "" {
		return nil, nil, errkind.New(errkind.InvalidConfiguration, "creature config missing name")
	}
	if c.RigVariant == "" {
		return nil, nil, errkind.New(errkind.InvalidConfiguration, "creature config missing rig_variant")
	}
	if len(c.Servos) == 0 {
		return nil, nil, errkind.Errorf(errkind.InvalidConfiguration, "creature %q: no servos configured", c.Name)
	}

	implied := make([]string, 0, len(c.Servos))
	var optional []string
	seen := make(map[string]bool, len(c.Servos))
	for _, s := range c.Servos {
		if err := s.Validate(); err != nil {
			return nil, nil, errors.Wrapf(err, "creature %q", c.Name)
		}
		if seen[s.ID] {
			return nil, nil, errkind.Errorf(errkind.InvalidConfiguration, "creature %q: duplicate servo id %q", c.Name, s.ID)
		}
		seen[s.ID] = true
		implied = append(implied, s.ID)
		if s.UpdateHz == 0 {
			optional = append(optional, s.ID+".update_hz")
		}
	}
	return implied, optional, nil
}

// ControllerConfig describes the host-side process: where the link to the
// firmware lives, where inputs come from, and where telemetry/events go.
type ControllerConfig struct {
	LinkAddr       string        `json:"link_addr"`
	InputAddr      string        `json:"input_addr,omitempty"`
	OutboundURL    string        `json:"outbound_url,omitempty"`
	UpdateHz       int           `json:"update_hz,omitempty"`
	WatchdogGrace  time.Duration `json:"watchdog_grace,omitempty"`
	MaxPowerWatts  float64       `json:"max_power_watts,omitempty"`
	MaxTempCelsius float64       `json:"max_temp_celsius,omitempty"`
}

// Validate checks that LinkAddr parses as a scheme the transport layer
// understands ("serial://" or "tcp://") and that update_hz is not negative.
func (c ControllerConfig) Validate() ([]string, []string, error) {
	if c.LinkAddr == "" {
		return nil, nil, errkind.New(errkind.InvalidConfiguration, "controller config missing link_addr")
	}
	u, err := url.Parse(c.LinkAddr)
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.InvalidConfiguration, err, "malformed link_addr")
	}
	switch u.Scheme {
	case "serial", "tcp":
	default:
		return nil, nil, errkind.Errorf(errkind.InvalidConfiguration, "link_addr scheme %q must be serial:// or tcp://", u.Scheme)
	}
	if c.UpdateHz < 0 {
		return nil, nil, errkind.Errorf(errkind.InvalidConfiguration, "update_hz %d must not be negative", c.UpdateHz)
	}

	var optional []string
	if c.OutboundURL == "" {
		optional = append(optional, "outbound_url")
	}
	if c.MaxPowerWatts == 0 {
		optional = append(optional, "max_power_watts")
	}
	if c.MaxTempCelsius == 0 {
		optional = append(optional, "max_temp_celsius")
	}
	return nil, optional, nil
}
