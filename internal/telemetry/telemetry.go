// Package telemetry gives the free-form STATS/MSENSE/BSENSE wire messages
// typed shapes, grounded on the original firmware's actual field lists
// (stats_reporter.c's STATS line and sensor_reporter.c's MSENSE line). No
// third-party library parses arbitrary key/value counter lines better than
// strconv, so this package is stdlib — see DESIGN.md.
package telemetry

import (
	"strconv"

	"github.com/opsnlops/creature-controller-go/internal/protocol"
)

// Counters is the STATS message's known fields, named after the original
// firmware's stats_reporter.c line. Unknown keys are preserved in Extra so
// a newer firmware build doesn't lose data round-tripping through here.
type Counters struct {
	HeapFree                        uint64
	USBCharsReceived                uint64
	USBMessagesReceived             uint64
	USBMessagesSent                 uint64
	UARTCharsReceived               uint64
	UARTMessagesReceived            uint64
	UARTMessagesSent                uint64
	MessageProcessorRecv            uint64
	MessageProcessorSent            uint64
	SuccessfullyParsed              uint64
	FailedToParse                   uint64
	ChecksumFailures                uint64
	PositionMessagesProc            uint64
	PWMWraps                        uint64
	BoardTemperatureCelsiusTimes100 int64
	Extra                           map[string]string
}

// ParseCounters turns a STATS message's key/value pairs into Counters,
// matching the key names the original stats_reporter.c emits
// (HEAP_FREE, USB_CRECV, USB_MRECV, USB_SENT, UART_CRECV, UART_MRECV,
// UART_SENT, MP_RECV, MP_SENT, S_PARSE, F_PARSE, CHKFAIL, POS_PROC,
// PWM_WRAPS, TEMP).
func ParseCounters(m protocol.Stats) Counters {
	c := Counters{Extra: map[string]string{}}
	for _, kv := range m.Pairs {
		switch kv.Key {
		case "HEAP_FREE":
			c.HeapFree = parseUint(kv.Value)
		case "USB_CRECV":
			c.USBCharsReceived = parseUint(kv.Value)
		case "USB_MRECV":
			c.USBMessagesReceived = parseUint(kv.Value)
		case "USB_SENT":
			c.USBMessagesSent = parseUint(kv.Value)
		case "UART_CRECV":
			c.UARTCharsReceived = parseUint(kv.Value)
		case "UART_MRECV":
			c.UARTMessagesReceived = parseUint(kv.Value)
		case "UART_SENT":
			c.UARTMessagesSent = parseUint(kv.Value)
		case "MP_RECV":
			c.MessageProcessorRecv = parseUint(kv.Value)
		case "MP_SENT":
			c.MessageProcessorSent = parseUint(kv.Value)
		case "S_PARSE":
			c.SuccessfullyParsed = parseUint(kv.Value)
		case "F_PARSE":
			c.FailedToParse = parseUint(kv.Value)
		case "CHKFAIL":
			c.ChecksumFailures = parseUint(kv.Value)
		case "POS_PROC":
			c.PositionMessagesProc = parseUint(kv.Value)
		case "PWM_WRAPS":
			c.PWMWraps = parseUint(kv.Value)
		case "TEMP":
			if f, err := strconv.ParseFloat(kv.Value, 64); err == nil {
				c.BoardTemperatureCelsiusTimes100 = int64(f * 100)
			}
		default:
			c.Extra[kv.Key] = kv.Value
		}
	}
	return c
}

// MotorReading is one motor's sensed position and power draw, matching
// firmware/src/debug/sensor_reporter.c's MSENSE line (analog-filtered
// position, rail voltage, current, and instantaneous power).
type MotorReading struct {
	Motor    string
	Position float64
	Voltage  float64
	Current  float64
	Power    float64
}

// ParseMotorReadings adapts protocol.MSense's generic (motor, a, b, c, d)
// shape into the original firmware's (position, voltage, current, power)
// semantics. The abstract wire protocol names the fourth field angular
// velocity, but the original firmware's actual field there is instantaneous
// power draw, which is what WatchdogMonitor's power threshold needs — so
// ParseMotorReadings carries that field name instead while keeping the wire
// shape identical to protocol.MotorSense.
func ParseMotorReadings(m protocol.MSense) []MotorReading {
	out := make([]MotorReading, 0, len(m.Motors))
	for _, ms := range m.Motors {
		out = append(out, MotorReading{
			Motor:    ms.Motor,
			Position: ms.Position,
			Voltage:  ms.Voltage,
			Current:  ms.Amperage,
			Power:    ms.Velocity,
		})
	}
	return out
}

// BoardReading is the board/rail telemetry WatchdogMonitor consumes:
// temperature in Celsius and a named set of rail voltages/currents.
type BoardReading struct {
	TemperatureCelsius float64
	Rails              map[string]float64
}

// ParseBoardReading turns a BSENSE message's key/value pairs into a
// BoardReading. TEMP is treated specially (temperature); every other key
// is assumed to be a rail voltage or current reading in volts/amps.
func ParseBoardReading(m protocol.BSense) BoardReading {
	r := BoardReading{Rails: map[string]float64{}}
	for _, kv := range m.Pairs {
		v, err := strconv.ParseFloat(kv.Value, 64)
		if err != nil {
			continue
		}
		if kv.Key == "TEMP" {
			r.TemperatureCelsius = v
			continue
		}
		r.Rails[kv.Key] = v
	}
	return r
}

func parseUint(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}
