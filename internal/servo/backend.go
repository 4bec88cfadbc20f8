package servo

// Backend distinguishes what a servo's output location ultimately speaks:
// PWM microseconds, or a Dynamixel bus position. The original firmware
// overloads the same struct fields for both; Backend factors that apart:
// the Servo's fields stay in microsecond units always (so ServoBank/
// FrameScheduler never branch on backend). Backend only classifies a
// Location: no code translates samples into Dynamixel 0-4095 position
// units, so every servo's POS entry carries microseconds.
type Backend int

const (
	// BackendPWM drives a microcontroller PWM channel directly.
	BackendPWM Backend = iota
	// BackendDynamixel drives a Dynamixel smart servo over its bus, using
	// 0-4095 position units in place of microseconds at the wire.
	BackendDynamixel
)

func (b Backend) String() string {
	if b == BackendDynamixel {
		return "dynamixel"
	}
	return "pwm"
}

// BackendOf inspects a Location and reports which backend it addresses.
func BackendOf(loc Location) Backend {
	if loc.IsDynamixel {
		return BackendDynamixel
	}
	return BackendPWM
}
