package firmware

import (
	"sync/atomic"

	"github.com/opsnlops/creature-controller-go/internal/protocol"
)

// State is a single owned struct modeling the firmware's runtime: atomic
// fields for the ISR-visible flags and a mutex-guarded motor map.
// safeToRun and pwmWraps are single-writer/single-reader atomics (session
// state machine writes safeToRun, the wrap goroutine reads it and writes
// pwmWraps); MotorMap owns its own mutex, never taken by the wrap
// goroutine across I/O.
type State struct {
	Motors *MotorMap
	Stop   EmergencyStop

	safeToRun       atomic.Bool
	pwmWraps        atomic.Uint64
	hasConfig       atomic.Bool
	hasFirstFrame   atomic.Bool
	checksumErrors  atomic.Uint64
	watchdogKickPer uint64 // PWM wraps per hardware watchdog kick
}

// New constructs a firmware State with a fresh motor map, not yet safe to
// run. watchdogKickEvery is how many PWM wraps elapse between hardware
// watchdog kicks; the original firmware uses its own compile-time constant
// for this, so any positive value is accepted here.
func New(watchdogKickEvery uint64) *State {
	if watchdogKickEvery == 0 {
		watchdogKickEvery = 50
	}
	return &State{Motors: NewMotorMap(), watchdogKickPer: watchdogKickEvery}
}

// HandleConfig applies a CONFIG message's SERVO records to the motor map.
// A malformed CONFIG record is rejected with a logged warning and no slot
// is marked configured for the offending record, but valid records in the
// same message still apply.
func (s *State) HandleConfig(cfg protocol.Config) (applied int, errs []error) {
	for _, rec := range cfg.Servos {
		if err := s.Motors.Configure(rec.ID, rec.MinUS, rec.MaxUS); err != nil {
			errs = append(errs, err)
			continue
		}
		applied++
	}
	if applied > 0 {
		s.hasConfig.Store(true)
	}
	s.recomputeSafety()
	return applied, errs
}

// HandlePosition applies one POS entry's microsecond request to the motor
// map's write path. RequestPosition rejects unknown ids, unconfigured
// slots and out-of-range values; an accepted request counts as the first
// POS frame for the safety gate. The gate itself is enforced by OnPWMWrap,
// which writes no duty cycle while Safe() is false.
func (s *State) HandlePosition(id string, us int, pwmResolution uint32, frameLengthUS uint64) error {
	if err := s.Motors.RequestPosition(id, us, pwmResolution, frameLengthUS); err != nil {
		return err
	}
	s.hasFirstFrame.Store(true)
	s.recomputeSafety()
	return nil
}

// HandleEstop trips the emergency stop latch and clears the safety gate.
// Absorbing: once tripped, recomputeSafety always keeps Safe() false.
func (s *State) HandleEstop() {
	s.Stop.Trip()
	s.safeToRun.Store(false)
}

// Disconnected clears the safety gate on transport loss: it becomes false
// on disconnect and on ESTOP. A subsequent reconnect+CONFIG+POS sequence
// is required before PWM writes resume, unless ESTOP has latched, in
// which case nothing can re-arm it.
func (s *State) Disconnected() {
	s.safeToRun.Store(false)
	s.hasConfig.Store(false)
	s.hasFirstFrame.Store(false)
}

// recomputeSafety applies the safety gate: safe_to_run becomes true only
// after a valid CONFIG has been received AND the first POS frame has
// arrived, and can never become true again once ESTOP has tripped.
func (s *State) recomputeSafety() {
	if s.Stop.Tripped() {
		s.safeToRun.Store(false)
		return
	}
	s.safeToRun.Store(s.hasConfig.Load() && s.hasFirstFrame.Load())
}

// Safe reports the current value of the safe_to_run flag the PWM wrap
// handler consults before writing any duty cycle.
func (s *State) Safe() bool {
	return s.safeToRun.Load()
}

// IncrementChecksumErrors bumps the link's checksum-error counter,
// reported back to the host via STATS.
func (s *State) IncrementChecksumErrors() {
	s.checksumErrors.Add(1)
}

// ChecksumErrors returns the running checksum-error count.
func (s *State) ChecksumErrors() uint64 {
	return s.checksumErrors.Load()
}

// OnPWMWrap is the simulated IRQ handler, run once per PWM wrap (once per
// frame) by the pwm package's ticker goroutine. When unsafe, it does
// nothing but return. Otherwise it takes the motor-map mutex once, for the
// duration of MotorMap.Snapshot's copy, so it is not lock-free; the duty
// cycles are then written from that copy, so the mutex is never held
// across the hardware write.
func (s *State) OnPWMWrap(write func(slot MotorSlot)) {
	if !s.Safe() {
		return
	}
	snapshot := s.Motors.Snapshot()
	for _, slot := range snapshot {
		if !slot.IsConfigured {
			continue
		}
		write(slot)
	}
	wraps := s.pwmWraps.Add(1)
	if wraps%s.watchdogKickPer == 0 {
		kickWatchdog()
	}
}

// PWMWraps returns the running count of PWM wrap events.
func (s *State) PWMWraps() uint64 {
	return s.pwmWraps.Load()
}

// kickWatchdog is the hook the real firmware uses to pet the Pico's
// hardware watchdog timer; in this host-simulated firmware there is no
// hardware watchdog to kick, so this is a no-op seam tests can't observe
// any differently than the real thing — intentionally left empty rather
// than logging on every wrap, which would flood the log at 50Hz/N.
func kickWatchdog() {}
