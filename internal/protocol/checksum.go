// Package protocol implements the line-oriented, checksum-guarded wire
// protocol between host and firmware: message rendering/parsing and the
// checksum scheme. Framing is grounded on SO101Controller.sendPacket
// (controller.go), which builds a length-prefixed binary packet and appends
// a computed checksum byte; here the wire format is text, tab-separated,
// newline-terminated, and the checksum is a 16-bit sum rather than a
// one's-complement byte, but the "accumulate over the rendered bytes,
// append, and have the receiver recompute and compare" shape is the same.
package protocol

import "strconv"

// checksumModulus is 2^16: the sum is accumulated into a 16-bit integer
// but transmitted as a decimal string of the raw sum, which can exceed
// 65535 for long messages — so both sides must apply the same mod-2^16
// reduction and compare textually after normalization.
const checksumModulus = 1 << 16

// Checksum sums every byte of s (which must include the trailing tab before
// "CS") mod 2^16.
func Checksum(s []byte) uint32 {
	var sum uint32
	for _, b := range s {
		sum += uint32(b)
	}
	return sum % checksumModulus
}

// FormatChecksum renders a checksum value as the decimal text used on the
// wire ("CS <n>").
func FormatChecksum(sum uint32) string {
	return "CS " + strconv.FormatUint(uint64(sum), 10)
}
