package servo

import (
	"sync"

	"github.com/opsnlops/creature-controller-go/internal/errkind"
	"github.com/opsnlops/creature-controller-go/internal/units"
)

// Bank owns a creature's Servo entities by id. The FrameScheduler is its
// sole writer during a tick (request + Tick); reads are safe from any
// goroutine. Adapted from SafeSoArmController, which owns a map of
// CalibratedServo keyed by integer id behind a single RWMutex — here the
// key is a stable string id and the map is built once at creature load,
// never reparented.
type Bank struct {
	mu     sync.RWMutex
	servos map[string]*Servo
}

// NewBank constructs an empty Bank.
func NewBank() *Bank {
	return &Bank{servos: make(map[string]*Servo)}
}

// Add registers a servo. Returns InvalidConfiguration if the id is already
// present — servos are never reparented once added to a Bank.
func (b *Bank) Add(s *Servo) error {
	if s == nil {
		return errNilServo
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.servos[s.ID]; exists {
		return errkind.Errorf(errkind.InvalidConfiguration, "duplicate servo id %q", s.ID)
	}
	b.servos[s.ID] = s
	return nil
}

// Get returns the servo with the given id, or nil if absent.
func (b *Bank) Get(id string) *Servo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.servos[id]
}

// Has reports whether a servo id is present.
func (b *Bank) Has(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.servos[id]
	return ok
}

// Request stages a position for the named servo. Unknown ids return
// InvalidConfiguration since a rig should only ever request servos it
// declared as required.
func (b *Bank) Request(id string, p units.Position) error {
	s := b.Get(id)
	if s == nil {
		return errkind.Errorf(errkind.InvalidConfiguration, "no such servo %q", id)
	}
	return s.Request(p)
}

// Tick runs the smoothing step for every servo and returns the resulting
// position batch (servo_id, current_us) — the payload a Frame carries
// downstream to the Link.
func (b *Bank) Tick() []PositionSample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]PositionSample, 0, len(b.servos))
	for id, s := range b.servos {
		out = append(out, PositionSample{ServoID: id, CurrentUS: s.Tick()})
	}
	return out
}

// PositionSample is one (servo_id, current_us) pair of a Frame.
type PositionSample struct {
	ServoID   string
	CurrentUS units.Microseconds
}

// IDs returns every registered servo id, in no particular order.
func (b *Bank) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.servos))
	for id := range b.servos {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of registered servos.
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.servos)
}
