package rig

import (
	"go.viam.com/rdk/utils"

	"github.com/opsnlops/creature-controller-go/internal/errkind"
	"github.com/opsnlops/creature-controller-go/internal/servo"
	"github.com/opsnlops/creature-controller-go/internal/units"
)

// Inputs is one tick's worth of DMX-derived input bytes, keyed by channel
// name.
type Inputs map[string]units.InputByte

// MapFunc is a rig's per-tick transform from inputs to servo requests. It
// is given the raw inputs and the servo bank to request positions on. Rig
// variants are a closed set, so a single Rig struct carrying a mapping
// function is used here instead of an open interface hierarchy.
type MapFunc func(inputs Inputs, bank *servo.Bank, warn func(missing string))

// Rig is a closed, compile-time-configured creature definition: required
// input channels, required servo ids, and the mapping function between
// them.
type Rig struct {
	Name            string
	RequiredInputs  []string
	RequiredServos  []string
	HeadOffsetMax   float64
	ChannelOffset   int
	Universe        int
	PositionMin     units.Position
	PositionMax     units.Position

	mapFn MapFunc
}

// Preflight is called once at startup: every required servo must be present
// in bank, else construction fails with InvalidConfiguration. Missing
// required inputs are not checked here — those only produce a per-tick
// warning.
func (r *Rig) Preflight(bank *servo.Bank) error {
	for _, id := range r.RequiredServos {
		if !bank.Has(id) {
			return errkind.Errorf(errkind.InvalidConfiguration, "rig %q: required servo %q missing from bank", r.Name, id)
		}
	}
	return nil
}

// Map runs the rig's per-tick input-to-servo transform. Missing required
// inputs are reported through warn rather than failing the tick.
func (r *Rig) Map(inputs Inputs, bank *servo.Bank) []string {
	var missing []string
	for _, name := range r.RequiredInputs {
		if _, ok := inputs[name]; !ok {
			missing = append(missing, name)
		}
	}
	warn := func(name string) { missing = append(missing, name) }
	if r.mapFn != nil {
		r.mapFn(inputs, bank, warn)
	}
	return missing
}

// InputToPosition is the channel-level helper rig variants use to convert a
// raw DMX byte for a named channel into a Position, defaulting to the
// midpoint of the full position range (MaxPosition/2 = 511) when the
// channel is absent for this tick; the rig's own PositionMin/PositionMax
// bracket is not consulted.
func InputToPosition(inputs Inputs, name string) units.Position {
	b, ok := inputs[name]
	if !ok {
		return units.MaxPosition / 2
	}
	return units.InputToPosition(b)
}

// AngleInput reads a channel as a -180..180 degree angle rather than a raw
// 0..1023 position, for rig variants whose input is naturally an angle
// (e.g. a rotate channel). Grounded on manager.go's use of
// go.viam.com/rdk/utils.RadToDeg/DegToRad to move between radians and
// degrees at an API boundary; here the boundary is DMX-byte to signed
// degrees.
func AngleInput(inputs Inputs, name string) float64 {
	pos := InputToPosition(inputs, name)
	// 0..1023 maps onto -pi..pi radians, center at 511.5, then back to
	// degrees for callers that want a human-scale angle.
	radians := (float64(pos)/float64(units.MaxPosition))*2*3.141592653589793 - 3.141592653589793
	return utils.RadToDeg(radians)
}
