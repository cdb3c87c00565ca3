// Package dda implements the joint-segment stepper engine: a single DDA
// (digital differential analyzer) that drives every configured motor from
// one shared per-segment time base, as opposed to the teacher's
// core.Stepper, which runs each axis's own interval/accumulator queue
// independently. The HI-tier pulse loop and the PREP/EXEC handoff are
// modeled directly on core.Stepper's queue-and-timer pattern
// (core/stepper.go) and reuse core.Timer/core.ScheduleTimer/core.SF_*
// verbatim; the substep accumulator and ownership-flip buffer pair are new,
// grounded in the vocabulary the spec uses for Klipper-style DDA engines.
package dda

import (
	"errors"
	"sync/atomic"

	"motioncore/core"
)

// Substeps is the fixed-point resolution each motor's DDA accumulator
// tracks a fractional step in, matching the spec's joint-DDA model.
const Substeps = 100000

// AccumulatorResetFactor bounds how much per-segment phase drift is
// tolerated before an accumulator is resynced to the nearest integer step
// rather than carried forward; carrying phase across segments keeps motors
// from drifting out of sync with each other over a long toolpath.
const AccumulatorResetFactor = 4

// MotorPowerPolicy controls when a motor's driver stays energized.
type MotorPowerPolicy uint8

const (
	PowerAlways MotorPowerPolicy = iota
	PowerInCycle
	PowerOnlyWhileMoving
)

// MotorChannel is one motor's pulse-generation state: step/dir pins via
// the teacher's StepperBackend, plus the DDA accumulator that carries
// sub-step phase between segments.
type MotorChannel struct {
	OID     uint8
	Backend core.StepperBackend

	Policy MotorPowerPolicy
	Powered bool

	position   int64 // whole steps taken
	accumulator int64 // fractional-step phase, range (-Substeps, Substeps)
}

// Segment is one joint motion slice: every motor moves DeltaSteps[i] over
// exactly DurationTicks. StartInterval and IntervalAdd (same encoding as
// core.StepperMove) are not read by Prep: each motor's pulses are spread
// evenly across the segment, with no acceleration inside it.
type Segment struct {
	DeltaSteps     []int64
	DurationTicks  uint32
	StartInterval  uint32 // ticks between the segment's first two pulses, for the fastest-moving motor
	IntervalAdd    int32  // per-pulse interval delta for the fastest-moving motor
}

// PrepBuffer and RuntimeBuffer form an ownership-flip pair: the LO tier
// (Engine.Prep) fills a PrepBuffer from planner output while the HI tier
// (Engine's timer handler) drains the current RuntimeBuffer at interrupt
// priority. Swap() hands a filled PrepBuffer to the runtime side in O(1)
// without the HI tier ever observing a half-written buffer.
type PrepBuffer struct {
	steps   [][]int64 // per-motor step times, in DDA sub-step ticks from segment start
	ready   bool
}

type RuntimeBuffer struct {
	steps []stepEvent
	pos   int
}

type stepEvent struct {
	tick  uint32
	motor int
	dir   int8
}

// Engine owns the HI-tier timer and the double buffer. It is intentionally
// narrower than core.Stepper: it has no notion of a per-axis move queue,
// because every motor in a segment shares one clock.
type Engine struct {
	Motors []*MotorChannel

	timer core.Timer

	prep    PrepBuffer
	runtime RuntimeBuffer
	swapPending uint32 // atomic bool

	segmentStart uint32
	active       bool

	// MinStepInterval floors the generated pulse interval the same way
	// core.Stepper.MinStopInterval does, preventing a runaway segment
	// from commanding a pulse rate the driver can't sustain.
	MinStepInterval uint32
}

// NewEngine builds a DDA engine for the given motor set. oids/backends are
// paired by index.
func NewEngine(motors []*MotorChannel) *Engine {
	e := &Engine{Motors: motors, MinStepInterval: 12} // 12 ticks @ 12MHz = 1us floor
	e.timer.Handler = e.hiTierHandler
	return e
}

var errNoMotors = errors.New("dda: segment motor count mismatch")

// Prep is the LO-tier half of the PREP/EXEC split: it expands a Segment
// (whole steps per motor over a duration) into per-motor step-event
// timestamps using Bresenham-style DDA accumulation, and writes the result
// into the currently-idle PrepBuffer slot. It never touches RuntimeBuffer.
func (e *Engine) Prep(seg Segment) error {
	if len(seg.DeltaSteps) != len(e.Motors) {
		return errNoMotors
	}

	steps := make([][]int64, len(e.Motors))
	for i, delta := range seg.DeltaSteps {
		if delta == 0 {
			steps[i] = nil
			continue
		}
		steps[i] = bresenhamTimes(delta, seg.DurationTicks, &e.Motors[i].accumulator)
	}

	e.prep.steps = steps
	e.prep.ready = true
	return nil
}

// bresenhamTimes distributes |count| pulses evenly across durationTicks,
// carrying the fractional remainder in *accum across calls so consecutive
// segments for the same motor stay in phase rather than re-rounding from
// zero every time. When the carried phase exceeds AccumulatorResetFactor
// whole steps (AccumulatorResetFactor*Substeps sub-step units) it is
// clamped back to zero: a segment boundary large
// enough to have drifted that far has already desynced visually, so further
// carry would only extend the error.
func bresenhamTimes(count int64, durationTicks uint32, accum *int64) []int64 {
	n := count
	if n < 0 {
		n = -n
	}
	times := make([]int64, 0, n)
	step := int64(durationTicks) * Substeps / n
	phase := *accum
	var t int64
	for i := int64(0); i < n; i++ {
		phase += step
		whole := phase / Substeps
		phase -= whole * Substeps
		t += whole
		times = append(times, t)
	}
	if phase > AccumulatorResetFactor*Substeps || phase < -AccumulatorResetFactor*Substeps {
		phase = 0
	}
	*accum = phase
	return times
}

// Swap is called by the LO tier once Prep has produced a full segment and
// the HI tier has finished the previous one; it flattens the prepared
// per-motor timestamps into one time-ordered event list and flips buffer
// ownership. This is the only place RuntimeBuffer is written from outside
// the HI handler, and it only happens when the HI tier is idle (active ==
// false) or between segments.
func (e *Engine) Swap() bool {
	if !e.prep.ready {
		return false
	}
	events := make([]stepEvent, 0)
	for m, times := range e.prep.steps {
		dir := int8(1)
		for _, t := range times {
			events = append(events, stepEvent{tick: uint32(t), motor: m, dir: dir})
		}
	}
	sortEvents(events)

	e.runtime = RuntimeBuffer{steps: events, pos: 0}
	e.prep = PrepBuffer{}
	atomic.StoreUint32(&e.swapPending, 0)
	return true
}

func sortEvents(e []stepEvent) {
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && e[j].tick < e[j-1].tick; j-- {
			e[j], e[j-1] = e[j-1], e[j]
		}
	}
}

// Start arms the HI tier against the segment start time and the already
// swapped-in RuntimeBuffer.
func (e *Engine) Start(segmentStartTicks uint32) {
	e.segmentStart = segmentStartTicks
	e.active = true
	if len(e.runtime.steps) == 0 {
		e.active = false
		return
	}
	e.timer.WakeTime = segmentStartTicks + e.runtime.steps[0].tick
	core.ScheduleTimer(&e.timer)
}

// hiTierHandler is the HI tier: it fires one pulse per due event, drawn
// only from RuntimeBuffer, and never allocates.
func (e *Engine) hiTierHandler(t *core.Timer) uint8 {
	ev := e.runtime.steps[e.runtime.pos]
	motor := e.Motors[ev.motor]

	if motor.Policy != PowerAlways && !motor.Powered {
		motor.Backend.SetDirection(ev.dir < 0)
		motor.Powered = true
	}
	motor.Backend.Step()
	if ev.dir > 0 {
		motor.position++
	} else {
		motor.position--
	}

	e.runtime.pos++
	if e.runtime.pos >= len(e.runtime.steps) {
		e.active = false
		for _, m := range e.Motors {
			if m.Policy == PowerOnlyWhileMoving {
				m.Powered = false
			}
		}
		return core.SF_DONE
	}

	next := e.segmentStart + e.runtime.steps[e.runtime.pos].tick
	if next-t.WakeTime < e.MinStepInterval {
		next = t.WakeTime + e.MinStepInterval
	}
	t.WakeTime = next
	return core.SF_RESCHEDULE
}

// Active reports whether the HI tier still has pulses queued.
func (e *Engine) Active() bool { return e.active }

// Position returns the current whole-step position for each motor,
// including steps already issued mid-segment.
func (e *Engine) Position() []int64 {
	pos := make([]int64, len(e.Motors))
	for i, m := range e.Motors {
		pos[i] = m.position
	}
	return pos
}

// SyncPosition forcibly sets a motor's whole-step position (used by
// kinematics.SyncEncoders after homing) without affecting its phase
// accumulator.
func (e *Engine) SyncPosition(motor int, steps int64) {
	e.Motors[motor].position = steps
}
