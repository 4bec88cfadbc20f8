package pwm

import (
	"sync/atomic"

	"periph.io/x/periph/conn/gpio"
)

// SimPin is a bench/simulation stand-in for a real periph.io GPIO pin: it
// has no physical backing, but records the last duty cycle written to it
// so a test or a debug endpoint can observe what the wrap handler did.
// cmd/firmware wires one of these to every motor slot.
type SimPin struct {
	name string
	duty atomic.Int64
}

// NewSimPin returns a named simulated PWM-capable output pin.
func NewSimPin(name string) *SimPin {
	return &SimPin{name: name}
}

func (p *SimPin) String() string   { return p.name }
func (p *SimPin) Name() string     { return p.name }
func (p *SimPin) Number() int      { return -1 }
func (p *SimPin) Function() string { return "PWM" }

func (p *SimPin) Out(l gpio.Level) error {
	if l {
		p.duty.Store(int64(gpio.Max))
	} else {
		p.duty.Store(0)
	}
	return nil
}

// PWM records duty as the pin's current output; it never fails, since
// there is no hardware that can reject it.
func (p *SimPin) PWM(duty int) error {
	p.duty.Store(int64(duty))
	return nil
}

// Duty returns the last value written by PWM or Out, in [0, gpio.Max].
func (p *SimPin) Duty() int {
	return int(p.duty.Load())
}

var _ gpio.PinOut = (*SimPin)(nil)
