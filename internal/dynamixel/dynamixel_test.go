package dynamixel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildThenParseRoundTrips(t *testing.T) {
	pkt := Packet{ID: 3, Instruction: InstWrite, Params: []byte{0x74, 0x00, 0x10, 0x00, 0x00, 0x00}}
	wire := Build(pkt)

	parsed, n, err := Parse(wire)
	require.NoError(t, err)
	assert.Equal(t, len(wire), n)
	assert.Equal(t, pkt.ID, parsed.ID)
	assert.Equal(t, pkt.Instruction, parsed.Instruction)
	assert.Equal(t, pkt.Params, parsed.Params)
}

func TestGoalPositionPacketClampsToRange(t *testing.T) {
	under := GoalPositionPacket(1, -500)
	over := GoalPositionPacket(1, 99999)

	parsedUnder, _, err := Parse(under)
	require.NoError(t, err)
	parsedOver, _, err := Parse(over)
	require.NoError(t, err)

	assert.Equal(t, uint16(RegGoalPosition), leUint16(parsedUnder.Params[0:2]))
	assert.Equal(t, uint32(0), leUint32(parsedUnder.Params[2:6]))
	assert.Equal(t, uint32(PositionMax), leUint32(parsedOver.Params[2:6]))
}

func TestParseRejectsBadHeader(t *testing.T) {
	bad := []byte{0x00, 0x00, 0x00, 0x00, 0, 0, 0, 0, 0, 0}
	_, _, err := Parse(bad)
	assert.ErrorIs(t, err, errBadHeader)
}

func TestParseRejectsCorruptedCRC(t *testing.T) {
	wire := Build(Packet{ID: 2, Instruction: InstPing})
	wire[len(wire)-1] ^= 0xFF

	_, _, err := Parse(wire)
	assert.ErrorIs(t, err, errCRCMismatch)
}

func TestByteStuffingRoundTripsThroughHeaderLikeSequence(t *testing.T) {
	// A parameter payload that itself contains FF FF FD must be stuffed on
	// the wire and destuffed back to the original bytes on parse.
	pkt := Packet{ID: 5, Instruction: InstWrite, Params: []byte{0xFF, 0xFF, 0xFD, 0x01, 0x02}}
	wire := Build(pkt)

	parsed, _, err := Parse(wire)
	require.NoError(t, err)
	assert.Equal(t, pkt.Params, parsed.Params)
}

func TestReadPacketEncodesAddrAndLength(t *testing.T) {
	wire := ReadPacket(4, RegPresentPosition, 4)
	parsed, _, err := Parse(wire)
	require.NoError(t, err)
	assert.Equal(t, InstRead, parsed.Instruction)
	assert.Equal(t, RegPresentPosition, leUint16(parsed.Params[0:2]))
	assert.Equal(t, uint16(4), leUint16(parsed.Params[2:4]))
}

func leUint16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
