// Package watchdog monitors board telemetry for sustained over-threshold
// power draw or temperature and trips the emergency stop when either
// condition outlasts a grace period, grounded on the original controller's
// WatchdogThread (controller/src/watchdog/WatchdogThread.h): two threshold
// timers, no hysteresis, and a warning published to the outbound channel
// before the stop is triggered.
package watchdog

import (
	"context"
	"time"

	"go.viam.com/rdk/logging"

	"github.com/opsnlops/creature-controller-go/internal/outbound"
	"github.com/opsnlops/creature-controller-go/internal/protocol"
	"github.com/opsnlops/creature-controller-go/internal/telemetry"
)

// Stopper is the subset of internal/link.Link the monitor needs to trigger
// an emergency stop.
type Stopper interface {
	Send(protocol.Message)
}

// Limits are the thresholds a Monitor enforces and the grace period either
// may be exceeded before it trips the stop.
type Limits struct {
	MaxPowerWatts         float64
	MaxTemperatureCelsius float64
	GracePeriod           time.Duration
}

// Monitor tracks how long power draw or temperature have been over their
// limits. Thresholds enter the "un-exceeded" state immediately when the
// reading drops back into range; no hysteresis is applied.
type Monitor struct {
	logger logging.Logger
	link   Stopper
	sink   outbound.EventSink
	limits Limits

	powerOverLimitSince       time.Time
	temperatureOverLimitSince time.Time
	tripped                   bool
}

// New constructs a Monitor. A zero GracePeriod defaults to 3 seconds.
func New(logger logging.Logger, link Stopper, sink outbound.EventSink, limits Limits) *Monitor {
	if limits.GracePeriod <= 0 {
		limits.GracePeriod = 3 * time.Second
	}
	if sink == nil {
		sink = outbound.NopSink{}
	}
	return &Monitor{logger: logger, link: link, sink: sink, limits: limits}
}

// ObserveBoard feeds a BSENSE-derived board reading into the threshold
// timers: the reading's temperature always, and the caller-supplied
// totalPowerWatts only when it is positive, so a caller with no power
// figure (0) leaves the power timer to ObserveMotorPower. The reading's
// rail entries are not inspected.
func (m *Monitor) ObserveBoard(ctx context.Context, reading telemetry.BoardReading, totalPowerWatts float64, now time.Time) {
	m.observeTemperature(ctx, reading.TemperatureCelsius, now)
	if totalPowerWatts > 0 {
		m.observePower(ctx, totalPowerWatts, now)
	}
}

// ObserveMotorPower feeds the sum of per-motor instantaneous power draw
// (from MSENSE readings) into the power threshold timer.
func (m *Monitor) ObserveMotorPower(ctx context.Context, readings []telemetry.MotorReading, now time.Time) {
	var total float64
	for _, r := range readings {
		total += r.Power
	}
	m.observePower(ctx, total, now)
}

func (m *Monitor) observePower(ctx context.Context, watts float64, now time.Time) {
	if m.limits.MaxPowerWatts <= 0 {
		return
	}
	if watts <= m.limits.MaxPowerWatts {
		m.powerOverLimitSince = time.Time{}
		return
	}
	if m.powerOverLimitSince.IsZero() {
		m.powerOverLimitSince = now
	}
	if exceeded := now.Sub(m.powerOverLimitSince); exceeded > m.limits.GracePeriod {
		m.trip(ctx, "power", watts, m.limits.MaxPowerWatts)
	}
}

func (m *Monitor) observeTemperature(ctx context.Context, celsius float64, now time.Time) {
	if m.limits.MaxTemperatureCelsius <= 0 {
		return
	}
	if celsius <= m.limits.MaxTemperatureCelsius {
		m.temperatureOverLimitSince = time.Time{}
		return
	}
	if m.temperatureOverLimitSince.IsZero() {
		m.temperatureOverLimitSince = now
	}
	if exceeded := now.Sub(m.temperatureOverLimitSince); exceeded > m.limits.GracePeriod {
		m.trip(ctx, "temperature", celsius, m.limits.MaxTemperatureCelsius)
	}
}

func (m *Monitor) trip(ctx context.Context, kind string, value, threshold float64) {
	m.logger.Errorw("watchdog threshold exceeded beyond grace period, triggering emergency stop",
		"kind", kind, "value", value, "threshold", threshold)

	if err := m.sink.Publish(ctx, outbound.Event{
		Kind:    "safety_violation",
		Message: kind + " exceeded limit beyond grace period",
		Fields: map[string]interface{}{
			"value":     value,
			"threshold": threshold,
		},
		Timestamp: timeNow(),
	}); err != nil {
		m.logger.Warnw("failed to publish watchdog warning", "error", err)
	}

	m.link.Send(protocol.Estop{})
	m.tripped = true
}

// Tripped reports whether this monitor has triggered an emergency stop.
func (m *Monitor) Tripped() bool { return m.tripped }

func timeNow() time.Time { return time.Now() }
