// Package motion is the LO-tier glue the spec describes but leaves
// unowned by any one of planner/kinematics/dda: it is the "exec asks the
// planner's runtime routine to compute the next segment, then calls PREP
// on the stepper" loop, grounded on the teacher's core/stepper.go
// st_request_exec_move interplay between the move queue and the HI/LO
// timer tiers, generalized from a per-axis queue to the joint planner +
// kinematics + dda pipeline this spec describes.
package motion

import (
	"errors"

	"motioncore/core"
	"motioncore/dda"
	"motioncore/kinematics"
	"motioncore/planner"
)

// Coordinator owns the running block and the per-axis position cursor
// between planner, kinematics and the DDA engine. One Coordinator exists
// per canonical context (cm1/cm2 each get their own, sharing the single
// physical Engine only while active).
type Coordinator struct {
	Planner    *planner.Planner
	Kinematics kinematics.Kinematics
	Engine     *dda.Engine

	running  *planner.Block
	consumed float64 // mm into the running block
	position kinematics.Vector
}

// NewCoordinator wires a planner, kinematics and DDA engine together.
func NewCoordinator(p *planner.Planner, k kinematics.Kinematics, e *dda.Engine) *Coordinator {
	return &Coordinator{Planner: p, Kinematics: k, Engine: e}
}

var errNothingToDo = errors.New("motion: nothing to prep")

// Exec is the LO-tier EXEC step: it advances the running block by one
// MinSegmentTime slice (pulling a new block from the planner, or an
// idle-task correction, when none is running), turns that slice into
// motor steps via inverse kinematics, and hands the result to the DDA
// engine's PREP. Returns false with no error when nothing was prepped:
// after dispatching a command block with more blocks still queued, or when
// queue and idle task are both empty.
func (c *Coordinator) Exec() (bool, error) {
	if c.running == nil {
		if ok, err := c.startNextBlock(); err != nil {
			return false, err
		} else if !ok {
			if !c.Planner.Empty() {
				return false, nil
			}
			return c.runIdleTask()
		}
	}

	seg, ok := planner.NextSegment(c.running, c.consumed)
	if !ok {
		c.position = c.running.End
		c.running = nil
		return true, nil
	}

	target := pointAt(c.running, seg.End)
	steps, err := c.Kinematics.InverseKinematics(
		c.running.MotionState, target, c.position, seg.StartVel, seg.EndVel, seg.DurationMin)
	if err != nil {
		return false, err
	}

	if err := c.prepSteps(steps, seg.DurationMin); err != nil {
		return false, err
	}
	c.consumed = seg.End
	c.position = target
	return true, nil
}

// startNextBlock dequeues the next planner block. Command blocks (dwell,
// M-code callback, coordinate change, spindle engage) are dispatched
// immediately and consume no step time, per the spec's queued-command
// model; motion blocks become the new running block.
func (c *Coordinator) startNextBlock() (bool, error) {
	block, err := c.Planner.Dequeue()
	if err != nil {
		return false, nil
	}
	if block.Type == planner.MoveCommand {
		if block.Command != nil {
			block.Command()
		}
		return false, nil
	}
	b := block
	c.running = &b
	c.consumed = 0
	return true, nil
}

// runIdleTask asks the active kinematics for a corrective sub-segment
// when the planner queue is empty, per "idle_task() is invoked when the
// planner buffer empties; non-cartesian kinematics may return true and
// inject a corrective sub-segment." IdleTask returns per-motor step
// deltas; they are added to the engine's current position to form the
// absolute target prepSteps expects.
func (c *Coordinator) runIdleTask() (bool, error) {
	deltas, hasCorrection := c.Kinematics.IdleTask()
	if !hasCorrection {
		return false, nil
	}
	steps := make([]int64, len(deltas))
	prior := c.Engine.Position()
	for i := range deltas {
		steps[i] = deltas[i]
		if i < len(prior) {
			steps[i] += prior[i]
		}
	}
	if err := c.prepSteps(steps, planner.MinSegmentTime); err != nil {
		return false, err
	}
	return true, nil
}

// prepSteps turns an absolute motor-step target into a DDA segment
// relative to the engine's current position and hands it to Prep.
func (c *Coordinator) prepSteps(steps []int64, durationMin float64) error {
	if len(steps) != len(c.Engine.Motors) {
		return errNothingToDo
	}
	prior := c.Engine.Position()
	delta := make([]int64, len(steps))
	for i := range steps {
		delta[i] = steps[i] - prior[i]
	}
	durationTicks := uint32(durationMin * 60 * core.TimerFreq)
	if durationTicks == 0 {
		durationTicks = 1
	}
	return c.Engine.Prep(dda.Segment{DeltaSteps: delta, DurationTicks: durationTicks})
}

// pointAt linearly interpolates the axis-space point at distance d into
// block b's path.
func pointAt(b *planner.Block, d float64) kinematics.Vector {
	if b.Distance <= 0 {
		return b.Start
	}
	t := d / b.Distance
	var out kinematics.Vector
	for i := range out {
		out[i] = b.Start[i] + (b.End[i]-b.Start[i])*t
	}
	return out
}

// RequestExecMove is the coordinator's st_request_exec_move: it schedules
// EXEC via the LO software interrupt semantics by running Exec and, once a
// segment is prepped, swapping it into the DDA engine and starting the HI
// tier if it was idle. If steppers are idle this is how planning starts
// moving; while the engine is still active the call returns at once
// without running Exec.
func (c *Coordinator) RequestExecMove(now uint32) error {
	if c.Engine.Active() {
		return nil
	}
	ok, err := c.Exec()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if c.Engine.Swap() {
		c.Engine.Start(now)
	}
	return nil
}

// Idle reports whether the coordinator has no running block and the
// planner queue is empty.
func (c *Coordinator) Idle() bool {
	return c.running == nil && c.Planner.Empty()
}
