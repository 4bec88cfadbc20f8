package main

import (
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/logging"

	"github.com/opsnlops/creature-controller-go/internal/firmware"
	"github.com/opsnlops/creature-controller-go/internal/protocol"
)

// asLine renders m the way the wire protocol does and strips the trailing
// newline Frame adds, matching what bufio.Scanner would hand dispatch.
func asLine(m protocol.Message) []byte {
	return []byte(strings.TrimSuffix(protocol.Frame(m), "\n"))
}

func TestDispatchConfigThenPositionArmsAndMovesMotor(t *testing.T) {
	logger := logging.NewTestLogger(t)
	state := firmware.New(50)
	var configured atomic.Bool
	var sent []protocol.Message
	write := func(m protocol.Message) { sent = append(sent, m) }

	dispatch(logger, state, &configured, asLine(protocol.Config{
		Servos: []protocol.ServoRange{{ID: "0", MinUS: 1000, MaxUS: 2000}},
	}), write)

	require.True(t, configured.Load())
	require.Len(t, sent, 1)
	_, ok := sent[0].(protocol.Ready)
	assert.True(t, ok)
	assert.False(t, state.Safe())

	dispatch(logger, state, &configured, asLine(protocol.Pos{
		Entries: []protocol.PosEntry{{ID: "0", Value: 1500}},
	}), write)

	assert.True(t, state.Safe())
	slot, ok := state.Motors.Slot("0")
	require.True(t, ok)
	assert.Equal(t, 1500, slot.CurrentUS)
}

func TestDispatchPingRepliesWithPong(t *testing.T) {
	logger := logging.NewTestLogger(t)
	state := firmware.New(50)
	var configured atomic.Bool
	var sent []protocol.Message
	write := func(m protocol.Message) { sent = append(sent, m) }

	dispatch(logger, state, &configured, asLine(protocol.Ping{Ms: 42}), write)

	require.Len(t, sent, 1)
	pong, ok := sent[0].(protocol.Pong)
	require.True(t, ok)
	assert.Equal(t, int64(42), pong.Ms)
}

func TestDispatchEstopTripsState(t *testing.T) {
	logger := logging.NewTestLogger(t)
	state := firmware.New(50)
	var configured atomic.Bool
	write := func(protocol.Message) {}

	dispatch(logger, state, &configured, asLine(protocol.Estop{}), write)

	assert.True(t, state.Stop.Tripped())
	assert.False(t, state.Safe())
}

func TestDispatchMalformedLineIncrementsChecksumErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	state := firmware.New(50)
	var configured atomic.Bool
	write := func(protocol.Message) {}

	dispatch(logger, state, &configured, []byte("garbage not a real line"), write)

	assert.Equal(t, uint64(1), state.ChecksumErrors())
}

func TestStatsMessageReportsPWMWraps(t *testing.T) {
	state := firmware.New(50)
	msg := statsMessage(state)
	found := false
	for _, kv := range msg.Pairs {
		if kv.Key == "PWM_WRAPS" {
			found = true
		}
	}
	assert.True(t, found)
}
