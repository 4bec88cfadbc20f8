package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsnlops/creature-controller-go/internal/protocol"
)

func TestMachineStartsIdle(t *testing.T) {
	m := New()
	assert.Equal(t, Idle, m.State())
	assert.False(t, m.AllowPosition())
}

func TestMachineAdvancesInitReadyToRunning(t *testing.T) {
	m := New()
	assert.Equal(t, Configuring, m.Handle(protocol.Init{ProtocolVersion: 1}))
	assert.Equal(t, Running, m.Handle(protocol.Ready{Version: 1}))
	assert.True(t, m.AllowPosition())
}

func TestMachineIgnoresReadyBeforeInit(t *testing.T) {
	m := New()
	assert.Equal(t, Idle, m.Handle(protocol.Ready{Version: 1}))
}

func TestMachineEstopIsAbsorbingFromAnyState(t *testing.T) {
	m := New()
	m.Handle(protocol.Init{ProtocolVersion: 1})
	m.Handle(protocol.Ready{Version: 1})
	assert.Equal(t, Stopped, m.Handle(protocol.Estop{}))

	assert.Equal(t, Stopped, m.Handle(protocol.Init{ProtocolVersion: 1}))
	assert.Equal(t, Stopped, m.Handle(protocol.Ready{Version: 1}))
	assert.False(t, m.AllowPosition())
}

func TestMachineTransportLostReturnsToIdleUnlessStopped(t *testing.T) {
	m := New()
	m.Handle(protocol.Init{ProtocolVersion: 1})
	m.Handle(protocol.Ready{Version: 1})

	m.TransportLost()
	assert.Equal(t, Idle, m.State())
}

func TestMachineTransportLostDoesNotClearEstop(t *testing.T) {
	m := New()
	m.Handle(protocol.Estop{})
	m.TransportLost()
	assert.Equal(t, Stopped, m.State())
}

func TestMachineFaultMovesToErroredUnlessStopped(t *testing.T) {
	m := New()
	m.Fault()
	assert.Equal(t, Errored, m.State())
}

func TestMachineFaultDoesNotOverrideStopped(t *testing.T) {
	m := New()
	m.Handle(protocol.Estop{})
	m.Fault()
	assert.Equal(t, Stopped, m.State())
}

func TestStateStringer(t *testing.T) {
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "Configuring", Configuring.String())
	assert.Equal(t, "Running", Running.String())
	assert.Equal(t, "Errored", Errored.String())
	assert.Equal(t, "Stopped", Stopped.String())
}
