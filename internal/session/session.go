// Package session implements the protocol state machine:
// Idle -> Configuring -> Running -> (terminal) Errored/Stopped. The same
// state shape describes both sides of the link — the host tracks it from
// incoming messages (its POS sending does not consult it: the scheduler
// sends POS frames in every state), and the firmware's
// simulation in internal/firmware tracks its own equivalent state to drive
// the safety gate. Grounded on module.go's resource lifecycle states
// (construct/validate/close phases), generalized into an explicit
// transition table instead of implicit constructor/close ordering.
package session

import (
	"sync"

	"github.com/opsnlops/creature-controller-go/internal/errkind"
	"github.com/opsnlops/creature-controller-go/internal/protocol"
)

// State is one of the session's five phases.
type State int

const (
	Idle State = iota
	Configuring
	Running
	Errored
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Configuring:
		return "Configuring"
	case Running:
		return "Running"
	case Errored:
		return "Errored"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Machine tracks the current state and applies the transition rules. It is
// safe for concurrent use: the host's Link reader advances it on incoming
// messages and on transport loss. Neither the scheduler nor the Link
// writer reads it.
type Machine struct {
	mu    sync.RWMutex
	state State
}

// New returns a Machine starting in Idle, matching the firmware's
// "Boot -> Idle" transition.
func New() *Machine {
	return &Machine{state: Idle}
}

// State returns the current phase.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Handle applies one incoming message to the transition table, returning the
// resulting state. ESTOP is absorbing from any state: once Stopped, every
// subsequent Handle call is a no-op that stays Stopped.
func (m *Machine) Handle(msg protocol.Message) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Stopped {
		return m.state
	}

	switch msg.(type) {
	case protocol.Estop:
		m.state = Stopped
	case protocol.Init:
		if m.state == Idle {
			m.state = Configuring
		}
	case protocol.Ready:
		if m.state == Configuring {
			m.state = Running
		}
	}
	return m.state
}

// TransportLost returns the session to Idle on a transport disconnect; the
// Link calls it when it drops a failed transport. ESTOP's Stopped
// state is not affected — it is absorbing even across reconnects, since
// only a power cycle (a fresh process) can clear it in a real deployment,
// and this Machine's lifetime models one firmware session.
func (m *Machine) TransportLost() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Stopped {
		m.state = Idle
	}
}

// Fault moves the machine to Errored, for an InternalError or
// SafetyViolation detected outside the normal message flow. Stopped is
// left as it is.
func (m *Machine) Fault() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Stopped {
		m.state = Errored
	}
}

// AllowPosition reports whether POS frames may be acted on: only in
// Running. Position commands arriving before Running are silently dropped
// by the firmware, and ESTOP blocks them permanently.
func (m *Machine) AllowPosition() bool {
	return m.State() == Running
}

// ErrNotRunning is an InvalidData error describing a POS frame rejected
// because the session has not reached Running (or has left it). No code
// in this module returns it.
var ErrNotRunning = errkind.New(errkind.InvalidData, "session not in Running state")
