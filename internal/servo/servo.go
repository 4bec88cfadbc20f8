// Package servo implements the Servo entity and ServoBank from the core
// data model: per-servo microsecond range, inversion, smoothing, and the
// exponential filter that converts target positions into per-frame
// commands. Adapted from CalibratedServo (calibrated_servo.go), which wraps
// a raw Feetech servo with a calibration-driven Normalize/Denormalize pair
// — here the "calibration" is the fixed min_us/max_us/inverted contract,
// and Normalize/Denormalize become the position<->microsecond lerp in
// package units.
package servo

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/opsnlops/creature-controller-go/internal/errkind"
	"github.com/opsnlops/creature-controller-go/internal/units"
)

// Location identifies where a servo's commands ultimately land: a PWM
// module/header/pin, or a Dynamixel bus id. Exactly one of the two is set.
type Location struct {
	ModuleTag string
	Header    int
	Pin       int

	DynamixelBusID int
	IsDynamixel    bool
}

// Servo is one joint's full runtime state, identified by a stable string id.
type Servo struct {
	ID       string
	Location Location

	MinUS      units.Microseconds
	MaxUS      units.Microseconds
	Smoothing  float64 // alpha in [0, 1)
	Inverted   bool
	UpdateHz   int
	DefaultUS  units.Microseconds

	mu              sync.RWMutex
	desiredUS       units.Microseconds
	currentUS       units.Microseconds
	currentPosition units.Position
}

// New constructs a Servo, validating: min_us < max_us, min_us <= default_us
// <= max_us, and smoothing strictly < 1 — a smoothing_value of exactly 1.0
// would freeze motion entirely, so it's rejected rather than silently
// accepted.
func New(id string, loc Location, minUS, maxUS units.Microseconds, defaultChoice units.DefaultChoice, smoothing float64, inverted bool, updateHz int) (*Servo, error) {
	if id == "" {
		return nil, errkind.New(errkind.InvalidConfiguration, "servo id must not be empty")
	}
	defaultUS := units.ResolveDefault(defaultChoice, minUS, maxUS)
	if err := units.ValidateRange(minUS, maxUS, defaultUS); err != nil {
		return nil, errkind.Wrapf(errkind.InvalidConfiguration, err, "servo %q", id)
	}
	if smoothing < 0 || smoothing >= 1 {
		return nil, errkind.Errorf(errkind.InvalidConfiguration, "servo %q: smoothing_value %v must be in [0, 1)", id, smoothing)
	}
	if updateHz <= 0 {
		updateHz = 50
	}
	return &Servo{
		ID:              id,
		Location:        loc,
		MinUS:           minUS,
		MaxUS:           maxUS,
		Smoothing:       smoothing,
		Inverted:        inverted,
		UpdateHz:        updateHz,
		DefaultUS:       defaultUS,
		desiredUS:       defaultUS,
		currentUS:       defaultUS,
		currentPosition: units.MicrosecondsToPosition(defaultUS, minUS, maxUS),
	}, nil
}

// Request validates and stages a target position in position units. It does
// not mutate CurrentUS — only the scheduler's Tick does that.
func (s *Servo) Request(p units.Position) error {
	if !p.Valid() {
		return errkind.Errorf(errkind.InvalidData, "servo %q: position %d out of range [0, %d]", s.ID, p, units.MaxPosition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	effective := p
	if s.Inverted {
		effective = units.Invert(p)
	}
	s.desiredUS = units.PositionToMicroseconds(effective, s.MinUS, s.MaxUS)
	s.currentPosition = effective
	return nil
}

// Tick runs one smoothing step: current_us := round(desired_us*(1-a) +
// current_us*a). Idempotent once current_us == desired_us. Convergence is
// asymptotic in the continuous form of this filter, but integer rounding of
// a near-converged value can land on a fixed point short of the target (a
// remaining fractional step that always rounds back to zero); when that
// happens the step is forced to the smallest nonzero move toward desired_us
// so the servo always eventually reaches it.
func (s *Servo) Tick() units.Microseconds {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentUS == s.desiredUS {
		return s.currentUS
	}
	diff := int(s.desiredUS) - int(s.currentUS)
	step := roundHalfAwayFromZero(float64(diff) * (1 - s.Smoothing))
	if step == 0 {
		if diff > 0 {
			step = 1
		} else {
			step = -1
		}
	}
	s.currentUS = s.currentUS + units.Microseconds(step)
	return s.currentUS
}

func roundHalfAwayFromZero(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return int(v - 0.5)
}

// CurrentUS returns the last smoothed pulse width.
func (s *Servo) CurrentUS() units.Microseconds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentUS
}

// DesiredUS returns the most recently requested (unsmoothed) pulse width.
func (s *Servo) DesiredUS() units.Microseconds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.desiredUS
}

// Position returns the inversion-adjusted position of the last request:
// p for a normal servo, 1023-p for an inverted one.
func (s *Servo) Position() units.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPosition
}

// Converged reports whether the servo has reached its desired pulse width.
func (s *Servo) Converged() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentUS == s.desiredUS
}

var errNilServo = errors.New("nil servo")
