// Package transport models the physical byte stream beneath the framed
// text protocol as an io.ReadWriteCloser: frames are never persisted, and
// the only suspension points are socket/serial I/O. Two concrete
// transports are wired: a serial port (go.bug.st/serial, repurposed here
// as the host<->module UART link rather than a Feetech register bus) and
// a bare TCP connection for bench/simulation use when no physical module
// is attached.
package transport

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// OpenSerial opens a serial connection to a creature module at the given
// baud rate, matching controller.go's connect()-style serial.OpenOptions
// connect but using go.bug.st/serial's mode struct instead of the jacobsa
// client the original robot-arm code used.
func OpenSerial(port string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	conn, err := serial.Open(port, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", port)
	}
	// Readers block on Read() for framing purposes; a short timeout lets
	// the reader goroutine notice a canceled context promptly instead of
	// blocking forever on a module that has gone silent.
	if err := conn.SetReadTimeout(250 * time.Millisecond); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to set serial read timeout")
	}
	return conn, nil
}

// DialTCP opens a TCP connection standing in for a serial link, used for
// bench/simulation when the firmware side is another process on the same
// host rather than real UART hardware.
func DialTCP(addr string) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", addr)
	}
	return conn, nil
}
