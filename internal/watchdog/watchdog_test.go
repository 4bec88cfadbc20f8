package watchdog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/logging"

	"github.com/opsnlops/creature-controller-go/internal/outbound"
	"github.com/opsnlops/creature-controller-go/internal/protocol"
	"github.com/opsnlops/creature-controller-go/internal/telemetry"
)

type fakeStopper struct{ sent []protocol.Message }

func (f *fakeStopper) Send(m protocol.Message) { f.sent = append(f.sent, m) }

type fakeSink struct{ events []outbound.Event }

func (f *fakeSink) Publish(_ context.Context, e outbound.Event) error {
	f.events = append(f.events, e)
	return nil
}

func TestTemperatureWithinGracePeriodDoesNotTrip(t *testing.T) {
	stopper := &fakeStopper{}
	m := New(logging.NewTestLogger(t), stopper, nil, Limits{
		MaxTemperatureCelsius: 60, GracePeriod: time.Second,
	})

	t0 := time.Now()
	m.observeTemperature(context.Background(), 75, t0)
	m.observeTemperature(context.Background(), 75, t0.Add(500*time.Millisecond))

	assert.False(t, m.Tripped())
	assert.Empty(t, stopper.sent)
}

func TestTemperatureBeyondGracePeriodTripsEstop(t *testing.T) {
	stopper := &fakeStopper{}
	sink := &fakeSink{}
	m := New(logging.NewTestLogger(t), stopper, sink, Limits{
		MaxTemperatureCelsius: 60, GracePeriod: time.Second,
	})

	t0 := time.Now()
	m.observeTemperature(context.Background(), 75, t0)
	m.observeTemperature(context.Background(), 75, t0.Add(2*time.Second))

	require.True(t, m.Tripped())
	require.Len(t, stopper.sent, 1)
	assert.Equal(t, protocol.Estop{}, stopper.sent[0])
	require.Len(t, sink.events, 1)
	assert.Equal(t, "safety_violation", sink.events[0].Kind)
}

func TestValueDroppingBackInRangeResetsTimerImmediately(t *testing.T) {
	stopper := &fakeStopper{}
	m := New(logging.NewTestLogger(t), stopper, nil, Limits{
		MaxPowerWatts: 100, GracePeriod: time.Second,
	})

	t0 := time.Now()
	m.observePower(context.Background(), 150, t0)
	m.observePower(context.Background(), 50, t0.Add(500*time.Millisecond))
	m.observePower(context.Background(), 150, t0.Add(900*time.Millisecond))

	assert.False(t, m.Tripped())
	assert.Empty(t, stopper.sent)
}

func TestObserveMotorPowerSumsAcrossMotors(t *testing.T) {
	stopper := &fakeStopper{}
	m := New(logging.NewTestLogger(t), stopper, nil, Limits{
		MaxPowerWatts: 10, GracePeriod: time.Second,
	})

	readings := []telemetry.MotorReading{
		{Motor: "0", Power: 6}, {Motor: "1", Power: 6},
	}
	t0 := time.Now()
	m.ObserveMotorPower(context.Background(), readings, t0)
	m.ObserveMotorPower(context.Background(), readings, t0.Add(2*time.Second))

	assert.True(t, m.Tripped())
}

func TestZeroLimitDisablesThatCheck(t *testing.T) {
	stopper := &fakeStopper{}
	m := New(logging.NewTestLogger(t), stopper, nil, Limits{GracePeriod: time.Second})

	t0 := time.Now()
	m.observeTemperature(context.Background(), 1000, t0)
	m.observeTemperature(context.Background(), 1000, t0.Add(2*time.Second))
	m.observePower(context.Background(), 1000, t0.Add(2*time.Second))

	assert.False(t, m.Tripped())
}
