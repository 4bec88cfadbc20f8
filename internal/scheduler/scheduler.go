// Package scheduler implements the FrameScheduler: a single-threaded
// cooperative clock that, every frame, reads the latest input frame, maps
// it through the rig, ticks the servo bank, and enqueues a position batch
// on the Link. Grounded on the original source's Controller::worker
// (controller/src/controller/Controller.cpp): a fixed target_delta, a
// next_target_time that accumulates rather than resets, and a
// sleep-for-the-remainder loop — generalized here to also implement a
// death-spiral guard the original's simple "sleep_for(remaining_time)"
// does not need because it never checks for a negative remainder.
package scheduler

import (
	"context"
	"time"

	"go.viam.com/rdk/logging"

	"github.com/opsnlops/creature-controller-go/internal/protocol"
	"github.com/opsnlops/creature-controller-go/internal/rig"
	"github.com/opsnlops/creature-controller-go/internal/servo"
)

// InputSource supplies the most recent InputFrame without blocking: pull
// the most recent frame from the input channel, reusing the previous one
// if none arrived. A nil/false return means "nothing new this tick" and
// the scheduler reuses whatever inputs it built last time.
type InputSource interface {
	Latest() (rig.Inputs, bool)
}

// Sender is the subset of internal/link.Link the scheduler needs: enqueue
// a command, subject to Link's own drop-oldest backpressure policy.
type Sender interface {
	Send(protocol.Message)
}

// Scheduler is the fixed-period clock driving one FrameScheduler tick per
// servo frame.
type Scheduler struct {
	Rig      *rig.Rig
	Bank     *servo.Bank
	Input    InputSource
	Link     Sender
	Logger   logging.Logger
	UpdateHz int

	lastInputs rig.Inputs
	tick       uint64
}

// New constructs a Scheduler. updateHz defaults to 50 if <= 0.
func New(r *rig.Rig, bank *servo.Bank, input InputSource, link Sender, logger logging.Logger, updateHz int) *Scheduler {
	if updateHz <= 0 {
		updateHz = 50
	}
	return &Scheduler{
		Rig: r, Bank: bank, Input: input, Link: link, Logger: logger, UpdateHz: updateHz,
		lastInputs: make(rig.Inputs),
	}
}

// Run executes the frame loop until ctx is canceled, driving the six-step
// per-tick algorithm: pull input, map through the rig, tick the servo
// bank, send positions, sleep for the remainder, repeat.
func (s *Scheduler) Run(ctx context.Context) {
	period := time.Second / time.Duration(s.UpdateHz)
	t0 := time.Now()
	deadline := t0.Add(period)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.runOneTick()

		deadline = s.sleepUntil(ctx, deadline, period)
		if deadline.IsZero() {
			return
		}
	}
}

func (s *Scheduler) runOneTick() {
	s.tick++

	if in, ok := s.Input.Latest(); ok {
		s.lastInputs = in
	}

	missing := s.Rig.Map(s.lastInputs, s.Bank)
	for _, name := range missing {
		s.Logger.Warnf("rig %q: missing input channel %q this tick", s.Rig.Name, name)
	}

	samples := s.Bank.Tick()
	entries := make([]protocol.PosEntry, 0, len(samples))
	for _, sample := range samples {
		entries = append(entries, protocol.PosEntry{ID: sample.ServoID, Value: int(sample.CurrentUS)})
	}
	s.Link.Send(protocol.Pos{Entries: entries})
}

// sleepUntil blocks until deadline (or ctx is canceled, returning a zero
// time to signal shutdown), then computes the next deadline. If the
// current deadline has already passed, it advances by the smallest integer
// number of periods that puts it back in the future — a "do not try to
// catch up" death-spiral guard — rather than scheduling a burst of
// back-to-back ticks to make up lost time.
func (s *Scheduler) sleepUntil(ctx context.Context, deadline time.Time, period time.Duration) time.Time {
	now := time.Now()
	if remaining := deadline.Sub(now); remaining > 0 {
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return time.Time{}
		case <-timer.C:
		}
		return deadline.Add(period)
	}

	// We're already past the deadline: skip forward by whole periods
	// instead of trying to catch up tick-for-tick.
	overdue := now.Sub(deadline)
	periodsLate := overdue/period + 1
	return deadline.Add(periodsLate * period)
}

// Tick returns the number of frames run so far.
func (s *Scheduler) Tick() uint64 { return s.tick }
