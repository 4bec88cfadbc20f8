// Package pwm is the Go-idiomatic stand-in for the original firmware's
// direct Pico SDK PWM register writes: a Controller maps each motor slot id
// to a periph.io/x/periph/conn/gpio.PinOut and writes the slot's duty cycle
// through the pin's PWM(duty int) method, where duty is in [0, gpio.Max]. A
// time.Ticker firing at update_hz stands in for the PWM-wrap hardware
// interrupt, since Go has no ISR; the ticker's callback is the only place
// that calls firmware.State.OnPWMWrap, keeping the simulated "ISR" on its
// own goroutine and off any path that blocks or allocates.
package pwm

import (
	"context"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"

	"github.com/opsnlops/creature-controller-go/internal/firmware"
)

// Resolution is the simulated PWM counter's wrap value — the analogue of
// the original firmware's pwm_resolution, used to turn a requested duty
// fraction into a tick count. gpio.Max (65536) is used directly since
// periph's PinIO.PWM already speaks in that resolution.
const Resolution uint32 = uint32(gpio.Max)

// Controller drives one creature's worth of motor-slot PWM pins at a fixed
// frame rate, invoking firmware.State.OnPWMWrap once per frame.
type Controller struct {
	state    *firmware.State
	pins     map[string]gpio.PinOut
	freq     physic.Frequency
	interval time.Duration
}

// NewController binds a firmware.State to a set of GPIO pins keyed by
// motor slot id. updateHz is normally 50, matching the creature's frame
// rate.
func NewController(state *firmware.State, pins map[string]gpio.PinOut, updateHz int) *Controller {
	if updateHz <= 0 {
		updateHz = 50
	}
	return &Controller{
		state:    state,
		pins:     pins,
		freq:     physic.Frequency(updateHz) * physic.Hertz,
		interval: time.Second / time.Duration(updateHz),
	}
}

// Run drives the wrap ticker until ctx is canceled. Each tick calls
// firmware.State.OnPWMWrap with a write callback that maps a motor slot's
// requested tick count onto [0, gpio.Max] and writes it to the pin; slots
// with no bound pin are silently skipped (a simulation missing a GPIO is
// not a contract violation the core needs to surface).
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.state.OnPWMWrap(c.writeSlot)
		}
	}
}

func (c *Controller) writeSlot(slot firmware.MotorSlot) {
	pin, ok := c.pins[slot.ID]
	if !ok {
		return
	}
	duty := int(slot.RequestedCounterTicks)
	if duty < 0 {
		duty = 0
	}
	if duty > int(Resolution) {
		duty = int(Resolution)
	}
	// A torn duty cycle for one frame is acceptable; the pin write itself
	// isn't retried on error since the next frame corrects it and the
	// wrap handler must never block.
	_ = pin.PWM(duty)
}
