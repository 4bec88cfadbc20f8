// Package dmx implements the InputMapper: it extracts named input channels
// from a 512-slot DMX/E1.31 universe frame. The E1.31 multicast client
// itself produces the raw 512-byte universe frames upstream; this package
// only decodes those bytes into the rig's Inputs map.
package dmx

import (
	"github.com/opsnlops/creature-controller-go/internal/errkind"
	"github.com/opsnlops/creature-controller-go/internal/rig"
	"github.com/opsnlops/creature-controller-go/internal/units"
)

// UniverseSize is the fixed slot count of a DMX universe.
const UniverseSize = 512

// Width is the byte width of one input slot.
type Width int

const (
	Width1 Width = 1
	Width2 Width = 2
)

// Channel is one named input's location within a universe: name, slot and
// width. The value read from it is returned by Mapper.Extract.
type Channel struct {
	Name  string
	Slot  int
	Width Width
}

// Validate checks slot + channelOffset + width <= 513.
func (c Channel) Validate(channelOffset int) error {
	if c.Width != Width1 && c.Width != Width2 {
		return errkind.Errorf(errkind.InvalidConfiguration, "channel %q: width must be 1 or 2", c.Name)
	}
	if c.Slot < 0 || c.Slot > UniverseSize {
		return errkind.Errorf(errkind.InvalidConfiguration, "channel %q: slot %d out of range [0, %d]", c.Name, c.Slot, UniverseSize)
	}
	if c.Slot+channelOffset+int(c.Width) > UniverseSize+1 {
		return errkind.Errorf(errkind.InvalidConfiguration, "channel %q: slot+offset+width exceeds universe bounds", c.Name)
	}
	return nil
}

// Mapper extracts a creature's required channels from a raw universe frame
// at a fixed channel_offset, producing a rig.Inputs for one tick.
type Mapper struct {
	ChannelOffset int
	Universe      int
	Channels      []Channel
}

// NewMapper validates every channel against channelOffset before accepting
// it.
func NewMapper(channelOffset, universe int, channels []Channel) (*Mapper, error) {
	for _, c := range channels {
		if err := c.Validate(channelOffset); err != nil {
			return nil, err
		}
	}
	return &Mapper{ChannelOffset: channelOffset, Universe: universe, Channels: channels}, nil
}

// Extract reads this mapper's channels out of a 512-byte universe frame.
// frame shorter than required for a channel is an InvalidData condition
// handled by skipping that channel for this tick, mirroring the rig's
// "missing input produces a warning, not a fatal error" rule.
func (m *Mapper) Extract(frame []byte) rig.Inputs {
	out := make(rig.Inputs, len(m.Channels))
	for _, c := range m.Channels {
		idx := m.ChannelOffset + c.Slot
		if idx < 0 || idx >= len(frame) {
			continue
		}
		// Width-2 channels use the high byte as the effective 8-bit value;
		// the core speaks in 8-bit input bytes throughout.
		out[c.Name] = units.InputByte(frame[idx])
	}
	return out
}
