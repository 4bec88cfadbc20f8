package firmware

import "sync/atomic"

// EmergencyStop is the one-way absorbing latch: once tripped, no
// subsequent command exits it — only a power cycle (a fresh process in
// this simulation) clears it. Grounded on the original firmware's
// emergency_stop_message.c, which sets a single
// "static volatile bool emergency_stop_active" flag and never clears it.
type EmergencyStop struct {
	active atomic.Bool
}

// Trip latches the emergency stop. Idempotent: tripping an already-tripped
// latch is a no-op other than re-reporting true.
func (e *EmergencyStop) Trip() {
	e.active.Store(true)
}

// Tripped reports whether the latch has ever been tripped.
func (e *EmergencyStop) Tripped() bool {
	return e.active.Load()
}
