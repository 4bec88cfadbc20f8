// Package dynamixel implements the wire framing for the Dynamixel Protocol
// 2.0 bus, the second servo.Backend alongside direct PWM. It follows
// the original firmware's dynamixel_protocol.c/dynamixel_registers.h: a
// fixed four-byte header, little-endian length field, CRC16 trailer, and
// byte stuffing for any FF FF FD sequence that appears in the parameter
// payload. Grounded, at the register/high-level-API layer, on the
// control-table-cache shape of github.com/haguro/dynamixel's DynamixelServo
// (getRegister/setRegister over a cached control table) — adapted here from
// Protocol 1.0's single-byte checksum to this bus's Protocol 2.0 CRC16 framing
// and XC430 register map.
package dynamixel

import (
	"bytes"
	"encoding/binary"

	"github.com/opsnlops/creature-controller-go/internal/errkind"
)

const (
	header0   byte = 0xFF
	header1   byte = 0xFF
	header2   byte = 0xFD
	reserved  byte = 0x00
	minLength      = 10 // header(4) + id(1) + length(2) + instruction(1) + crc(2)

	BroadcastID byte = 0xFE
	MaxID       byte = 0xFD

	// Position range for XC430-series servos (DXL_POSITION_MIN/MAX).
	PositionMin = 0
	PositionMax = 4095
)

// Instruction byte values, from dynamixel_registers.h.
const (
	InstPing   byte = 0x01
	InstRead   byte = 0x02
	InstWrite  byte = 0x03
	InstStatus byte = 0x55
)

// Control table addresses used by this core (XC430 RAM area).
const (
	RegTorqueEnable       uint16 = 64
	RegGoalPosition       uint16 = 116
	RegPresentVelocity    uint16 = 128
	RegPresentPosition    uint16 = 132
	RegPresentVoltage     uint16 = 144
	RegPresentTemperature uint16 = 146
)

var crcTable = [256]uint16{
	0x0000, 0x8005, 0x800F, 0x000A, 0x801B, 0x001E, 0x0014, 0x8011, 0x8033, 0x0036, 0x003C, 0x8039, 0x0028, 0x802D,
	0x8027, 0x0022, 0x8063, 0x0066, 0x006C, 0x8069, 0x0078, 0x807D, 0x8077, 0x0072, 0x0050, 0x8055, 0x805F, 0x005A,
	0x804B, 0x004E, 0x0044, 0x8041, 0x80C3, 0x00C6, 0x00CC, 0x80C9, 0x00D8, 0x80DD, 0x80D7, 0x00D2, 0x00F0, 0x80F5,
	0x80FF, 0x00FA, 0x80EB, 0x00EE, 0x00E4, 0x80E1, 0x00A0, 0x80A5, 0x80AF, 0x00AA, 0x80BB, 0x00BE, 0x00B4, 0x80B1,
	0x8093, 0x0096, 0x009C, 0x8099, 0x0088, 0x808D, 0x8087, 0x0082, 0x8183, 0x0186, 0x018C, 0x8189, 0x0198, 0x819D,
	0x8197, 0x0192, 0x01B0, 0x81B5, 0x81BF, 0x01BA, 0x81AB, 0x01AE, 0x01A4, 0x81A1, 0x01E0, 0x81E5, 0x81EF, 0x01EA,
	0x81FB, 0x01FE, 0x01F4, 0x81F1, 0x81D3, 0x01D6, 0x01DC, 0x81D9, 0x01C8, 0x81CD, 0x81C7, 0x01C2, 0x0140, 0x8145,
	0x814F, 0x014A, 0x815B, 0x015E, 0x0154, 0x8151, 0x8173, 0x0176, 0x017C, 0x8179, 0x0168, 0x816D, 0x8167, 0x0162,
	0x8123, 0x0126, 0x012C, 0x8129, 0x0138, 0x813D, 0x8137, 0x0132, 0x0110, 0x8115, 0x811F, 0x011A, 0x810B, 0x010E,
	0x0104, 0x8101, 0x8303, 0x0306, 0x030C, 0x8309, 0x0318, 0x831D, 0x8317, 0x0312, 0x0330, 0x8335, 0x833F, 0x033A,
	0x832B, 0x032E, 0x0324, 0x8321, 0x0360, 0x8365, 0x836F, 0x036A, 0x837B, 0x037E, 0x0374, 0x8371, 0x8353, 0x0356,
	0x035C, 0x8359, 0x0348, 0x834D, 0x8347, 0x0342, 0x03C0, 0x83C5, 0x83CF, 0x03CA, 0x83DB, 0x03DE, 0x03D4, 0x83D1,
	0x83F3, 0x03F6, 0x03FC, 0x83F9, 0x03E8, 0x83ED, 0x83E7, 0x03E2, 0x83A3, 0x03A6, 0x03AC, 0x83A9, 0x03B8, 0x83BD,
	0x83B7, 0x03B2, 0x0390, 0x8395, 0x839F, 0x039A, 0x838B, 0x038E, 0x0384, 0x8381, 0x0280, 0x8285, 0x828F, 0x028A,
	0x829B, 0x029E, 0x0294, 0x8291, 0x82B3, 0x02B6, 0x02BC, 0x82B9, 0x02A8, 0x82AD, 0x82A7, 0x02A2, 0x82E3, 0x02E6,
	0x02EC, 0x82E9, 0x02F8, 0x82FD, 0x82F7, 0x02F2, 0x02D0, 0x82D5, 0x82DF, 0x02DA, 0x82CB, 0x02CE, 0x02C4, 0x82C1,
	0x8243, 0x0246, 0x024C, 0x8249, 0x0258, 0x825D, 0x8257, 0x0252, 0x0270, 0x8275, 0x827F, 0x027A, 0x826B, 0x026E,
	0x0264, 0x8261, 0x0220, 0x8225, 0x822F, 0x022A, 0x823B, 0x023E, 0x0234, 0x8231, 0x8213, 0x0216, 0x021C, 0x8219,
	0x0208, 0x820D, 0x8207, 0x0202,
}

// CRC16 computes the Dynamixel Protocol 2.0 CRC over data.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		idx := ((crc >> 8) ^ uint16(b)) & 0xFF
		crc = (crc << 8) ^ crcTable[idx]
	}
	return crc
}

// Packet is one Dynamixel Protocol 2.0 instruction or status packet.
type Packet struct {
	ID          byte
	Instruction byte
	Error       byte // populated on parse when Instruction == InstStatus
	Params      []byte
}

// Build serializes a packet to wire bytes: header, ID, length, instruction,
// byte-stuffed parameters, CRC16.
func Build(pkt Packet) []byte {
	stuffed := stuff(pkt.Params)
	wireLength := 1 + len(stuffed) + 2 // instruction + stuffed params + CRC

	buf := make([]byte, 0, 7+wireLength)
	buf = append(buf, header0, header1, header2, reserved, pkt.ID)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(wireLength))
	buf = append(buf, pkt.Instruction)
	buf = append(buf, stuffed...)

	crc := CRC16(buf)
	buf = binary.LittleEndian.AppendUint16(buf, crc)
	return buf
}

// stuff inserts a 0xFD after any FF FF FD sequence in params, so that a
// sequence matching the packet header can never appear in the payload.
func stuff(params []byte) []byte {
	out := make([]byte, 0, len(params))
	for i, b := range params {
		out = append(out, b)
		if i >= 2 && params[i-2] == 0xFF && params[i-1] == 0xFF && b == 0xFD {
			out = append(out, 0xFD)
		}
	}
	return out
}

// unstuff removes the 0xFD bytes stuff inserted.
func unstuff(params []byte) []byte {
	out := make([]byte, 0, len(params))
	for i := 0; i < len(params); i++ {
		out = append(out, params[i])
		if len(out) >= 3 &&
			out[len(out)-3] == 0xFF && out[len(out)-2] == 0xFF && out[len(out)-1] == 0xFD &&
			i+1 < len(params) && params[i+1] == 0xFD {
			i++
		}
	}
	return out
}

var (
	errShortPacket = errkind.New(errkind.InvalidData, "dynamixel packet shorter than minimum length")
	errBadHeader   = errkind.New(errkind.InvalidData, "dynamixel packet has invalid header")
	errTruncated   = errkind.New(errkind.InvalidData, "dynamixel packet truncated before declared length")
	errCRCMismatch = errkind.New(errkind.InvalidData, "dynamixel packet CRC mismatch")
)

// Parse validates header and CRC and extracts a Packet from wire bytes.
// It returns the packet and the number of bytes consumed.
func Parse(data []byte) (Packet, int, error) {
	if len(data) < minLength {
		return Packet{}, 0, errShortPacket
	}
	if data[0] != header0 || data[1] != header1 || data[2] != header2 || data[3] != reserved {
		return Packet{}, 0, errBadHeader
	}

	id := data[4]
	wireLength := binary.LittleEndian.Uint16(data[5:7])
	total := 7 + int(wireLength)
	if total > len(data) {
		return Packet{}, 0, errTruncated
	}

	crcOffset := total - 2
	wantCRC := binary.LittleEndian.Uint16(data[crcOffset : crcOffset+2])
	gotCRC := CRC16(data[:crcOffset])
	if wantCRC != gotCRC {
		return Packet{}, 0, errCRCMismatch
	}

	instruction := data[7]
	paramsStart := 8
	pkt := Packet{ID: id, Instruction: instruction}
	if instruction == InstStatus {
		pkt.Error = data[8]
		paramsStart = 9
	}
	pkt.Params = unstuff(data[paramsStart:crcOffset])
	return pkt, total, nil
}

// WritePacket builds an instruction packet writing value (little-endian,
// width bytes wide) to a control-table register on servo id.
func WritePacket(id byte, addr uint16, value uint32, width int) []byte {
	params := make([]byte, 2+width)
	binary.LittleEndian.PutUint16(params[0:2], addr)
	switch width {
	case 1:
		params[2] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(params[2:4], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(params[2:6], value)
	}
	return Build(Packet{ID: id, Instruction: InstWrite, Params: params})
}

// GoalPositionPacket builds a WRITE packet setting the goal position
// register (4 bytes) on servo id, clamped to [PositionMin, PositionMax].
func GoalPositionPacket(id byte, position int) []byte {
	if position < PositionMin {
		position = PositionMin
	}
	if position > PositionMax {
		position = PositionMax
	}
	return WritePacket(id, RegGoalPosition, uint32(position), 4)
}

// ReadPacket builds an instruction packet requesting length bytes starting
// at addr from servo id.
func ReadPacket(id byte, addr uint16, length uint16) []byte {
	params := make([]byte, 4)
	binary.LittleEndian.PutUint16(params[0:2], addr)
	binary.LittleEndian.PutUint16(params[2:4], length)
	return Build(Packet{ID: id, Instruction: InstRead, Params: params})
}

// Split returns the offset of the first packet header in buf, or -1 if
// there is none. It does not modify buf; a bus reader resynchronizing after
// a framing error discards the bytes before that offset itself.
func Split(buf []byte) int {
	return bytes.Index(buf, []byte{header0, header1, header2, reserved})
}
