// Package rig implements the Rig contract and its variants — the mapping
// from abstract 8-bit input channels to per-servo positions. DifferentialHead
// is the paired-neck-servo transform used by the Parrot/Crow rigs; it is
// grounded on CalibratedServo's normalization math (calibrated_servo.go's
// range-remapping arithmetic), generalized from a single-axis normalized
// value to a two-axis height/tilt transform.
package rig

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/opsnlops/creature-controller-go/internal/units"
)

// DifferentialHead computes the left/right neck servo positions for a
// 2-axis (height, tilt) head input, derived from head_offset_max_percent
// and the creature's position bracket.
type DifferentialHead struct {
	PositionMin units.Position
	PositionMax units.Position
	OffsetMax   units.Position
}

// NewDifferentialHead validates percent in [0, 0.5] and computes
// offset_max = round((pos_max - pos_min) * percent).
func NewDifferentialHead(posMin, posMax units.Position, percent float64) (*DifferentialHead, error) {
	if posMin >= posMax {
		return nil, errors.Errorf("position_min (%d) must be less than position_max (%d)", posMin, posMax)
	}
	if percent < 0 || percent > 0.5 {
		return nil, errors.Errorf("head_offset_max_percent %v must be in [0, 0.5]", percent)
	}
	offset := units.Position(math.Round(float64(posMax-posMin) * percent))
	return &DifferentialHead{PositionMin: posMin, PositionMax: posMax, OffsetMax: offset}, nil
}

// ToHeadHeight remaps y from [pos_min, pos_max] onto
// [pos_min + offset_max/2, pos_max - offset_max/2].
func (h *DifferentialHead) ToHeadHeight(y units.Position) units.Position {
	half := int(h.OffsetMax) / 2
	lo := int(h.PositionMin) + half
	hi := int(h.PositionMax) - half
	return units.Position(units.Lerp(int(y), int(h.PositionMin), int(h.PositionMax), lo, hi))
}

// ToHeadTilt remaps x from [pos_min, pos_max] onto a signed range
// [1 - offset_max/2, offset_max/2] (the result may be negative).
func (h *DifferentialHead) ToHeadTilt(x units.Position) int {
	half := int(h.OffsetMax) / 2
	lo := 1 - half
	hi := half
	return units.Lerp(int(x), int(h.PositionMin), int(h.PositionMax), lo, hi)
}

// HeadPose is the resolved left/right servo positions for a head pose.
type HeadPose struct {
	Left  units.Position
	Right units.Position
}

// Position computes {left: height - tilt, right: height + tilt}, clamped
// into [position_min, position_max] even if upstream rounding pushes a
// value a unit outside the bracket.
//
// The (left, right) pair is carried as an r3.Vector (z unused) so future
// 3-axis rig variants (e.g. a head that also leans forward/back) can extend
// this into a full r3.Vector transform without changing the public shape of
// HeadPose.
func (h *DifferentialHead) Position(height units.Position, tilt int) HeadPose {
	v := r3.Vector{X: float64(int(height) - tilt), Y: float64(int(height) + tilt), Z: 0}
	return HeadPose{
		Left:  h.clamp(units.Position(v.X)),
		Right: h.clamp(units.Position(v.Y)),
	}
}

func (h *DifferentialHead) clamp(p units.Position) units.Position {
	if p < h.PositionMin {
		return h.PositionMin
	}
	if p > h.PositionMax {
		return h.PositionMax
	}
	return p
}
