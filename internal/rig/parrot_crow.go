package rig

import (
	"github.com/opsnlops/creature-controller-go/internal/servo"
	"github.com/opsnlops/creature-controller-go/internal/units"
)

// ParrotCrowConfig carries the per-creature numbers NewParrotCrow needs:
// the position bracket and differential-head percentage, both of which
// come from creature configuration (out of scope to parse, but the values
// themselves are required by the rig).
type ParrotCrowConfig struct {
	PositionMin         units.Position
	PositionMax         units.Position
	HeadOffsetMaxPercent float64
	ChannelOffset       int
	Universe            int
}

// NewParrotCrow builds the representative rig: required inputs
// head_height, head_tilt, neck_rotate, body_lean, beak, chest, stand_rotate;
// required servos neck_left, neck_right, neck_rotate, body_lean, beak. Crow
// is the same shape as Parrot, so a single constructor serves both; the
// name just labels which creature instance it is.
func NewParrotCrow(name string, cfg ParrotCrowConfig) (*Rig, error) {
	head, err := NewDifferentialHead(cfg.PositionMin, cfg.PositionMax, cfg.HeadOffsetMaxPercent)
	if err != nil {
		return nil, err
	}

	r := &Rig{
		Name: name,
		RequiredInputs: []string{
			"head_height", "head_tilt", "neck_rotate", "body_lean", "beak", "chest", "stand_rotate",
		},
		RequiredServos: []string{
			"neck_left", "neck_right", "neck_rotate", "body_lean", "beak",
		},
		HeadOffsetMax: cfg.HeadOffsetMaxPercent,
		ChannelOffset: cfg.ChannelOffset,
		Universe:      cfg.Universe,
		PositionMin:   cfg.PositionMin,
		PositionMax:   cfg.PositionMax,
	}
	r.mapFn = func(inputs Inputs, bank *servo.Bank, warn func(string)) {
		heightPos := InputToPosition(inputs, "head_height")
		tiltPos := InputToPosition(inputs, "head_tilt")

		h := head.ToHeadHeight(heightPos)
		tl := head.ToHeadTilt(tiltPos)
		pose := head.Position(h, tl)

		requestOrWarn(bank, warn, "neck_left", pose.Left)
		requestOrWarn(bank, warn, "neck_right", pose.Right)
		requestOrWarn(bank, warn, "neck_rotate", InputToPosition(inputs, "neck_rotate"))
		requestOrWarn(bank, warn, "body_lean", InputToPosition(inputs, "body_lean"))
		requestOrWarn(bank, warn, "beak", InputToPosition(inputs, "beak"))
	}
	return r, nil
}

func requestOrWarn(bank *servo.Bank, warn func(string), id string, p units.Position) {
	if err := bank.Request(id, p); err != nil {
		warn(id)
	}
}
