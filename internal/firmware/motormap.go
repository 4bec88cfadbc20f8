// Package firmware models the embedded half of the core: the motor map,
// the safety gate, the simulated PWM wrap "interrupt", and the emergency
// stop latch. Go has no ISR, so the wrap handler is a ticker-driven
// goroutine — the idiomatic stand-in for timed, repeating hardware-adjacent
// work (controller.go's protocol timeout via time.Sleep, generalized here
// into a fixed-period ticker) — kept allocation-free and lock-scoped to
// microseconds, grounded on the original firmware's controller.c
// (on_pwm_wrap_handler/requestServoPosition/configureServoMinMax).
package firmware

import (
	"sync"

	"github.com/opsnlops/creature-controller-go/internal/errkind"
)

// MotorMapSize is the fixed slot count (a fixed array of 8 slots),
// matching the original firmware's MOTOR_MAP_SIZE.
const MotorMapSize = 8

// MotorSlot is one fixed-size entry of the motor map: an id, its
// PWM-channel-derived tick count, its configured microsecond range, and
// whether it has been configured yet. Unconfigured slots never have their
// requested tick count written by a CONFIG-less POS per the safety gate.
type MotorSlot struct {
	ID                    string
	MinUS                 int
	MaxUS                 int
	CurrentUS             int
	RequestedCounterTicks uint32
	IsConfigured          bool
}

// MotorMap is the fixed array of MotorSlots, guarded by a single mutex held
// only for the duration of a lookup/update — never across I/O.
type MotorMap struct {
	mu    sync.Mutex
	slots [MotorMapSize]MotorSlot
}

// NewMotorMap returns a motor map with slot ids "0".."7", matching the
// original firmware's motor_map initializer (one id per physical GPIO/PWM
// channel, compile-time bound).
func NewMotorMap() *MotorMap {
	mm := &MotorMap{}
	for i := range mm.slots {
		mm.slots[i].ID = string(rune('0' + i))
	}
	return mm
}

func (mm *MotorMap) indexOf(id string) int {
	for i := range mm.slots {
		if mm.slots[i].ID == id {
			return i
		}
	}
	return -1
}

// Configure applies a CONFIG record's per-servo PWM bounds to its slot,
// marking it configured. Unknown ids return InvalidData — a malformed
// CONFIG is rejected, and the servo simply never moves.
func (mm *MotorMap) Configure(id string, minUS, maxUS int) error {
	if minUS >= maxUS {
		return errkind.Errorf(errkind.InvalidData, "motor %q: min_us (%d) must be less than max_us (%d)", id, minUS, maxUS)
	}
	mm.mu.Lock()
	defer mm.mu.Unlock()

	idx := mm.indexOf(id)
	if idx < 0 {
		return errkind.Errorf(errkind.InvalidData, "unknown motor id %q", id)
	}
	mm.slots[idx].MinUS = minUS
	mm.slots[idx].MaxUS = maxUS
	mm.slots[idx].IsConfigured = true
	return nil
}

// RequestPosition is the firmware's write path (request_servo_position):
// look up the slot, reject unknown ids, and
// reject (without mutating) any request outside the configured range.
// pwmResolution/frameLengthUS come from the PWM hardware setup (here, the
// simulated pwm.Controller) and are used to derive the tick count the wrap
// handler will later write verbatim.
func (mm *MotorMap) RequestPosition(id string, us int, pwmResolution uint32, frameLengthUS uint64) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	idx := mm.indexOf(id)
	if idx < 0 {
		return errkind.Errorf(errkind.InvalidData, "unknown motor id %q", id)
	}
	slot := &mm.slots[idx]
	if !slot.IsConfigured {
		return errkind.Errorf(errkind.InvalidData, "motor %q: not configured", id)
	}
	if us < slot.MinUS || us > slot.MaxUS {
		return errkind.Errorf(errkind.InvalidData, "motor %q: requested %dus outside configured range [%d, %d]", id, us, slot.MinUS, slot.MaxUS)
	}

	slot.CurrentUS = us
	if frameLengthUS > 0 {
		slot.RequestedCounterTicks = uint32(float64(pwmResolution) * float64(us) / float64(frameLengthUS))
	}
	return nil
}

// Snapshot returns a copy of every slot, used by the PWM wrap goroutine to
// read duty cycles without holding the mutex across a hardware write (a
// torn read across the 50Hz frame boundary is acceptable; the next frame
// corrects it).
func (mm *MotorMap) Snapshot() [MotorMapSize]MotorSlot {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.slots
}

// Slot returns a copy of one slot's state, or ok=false if id is unknown.
func (mm *MotorMap) Slot(id string) (MotorSlot, bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	idx := mm.indexOf(id)
	if idx < 0 {
		return MotorSlot{}, false
	}
	return mm.slots[idx], true
}
