package canonical

import (
	"motioncore/gcode"
	"motioncore/kinematics"
	"motioncore/planner"
)

// feedAccelJerk is the per-axis-limited motion envelope the settings layer
// keeps current on the active Context's kinematics; canonical only needs
// the scalar ceiling for the block currently being planned.
type FeedAccelJerk struct {
	MaxFeed float64
	Accel   float64
	Jerk    float64
}

// AxisEnvelope supplies the current machine-wide feed/accel/jerk ceiling.
// Set by settings.Registry side effects when motor or axis tokens change.
var AxisEnvelope = FeedAccelJerk{MaxFeed: 3000, Accel: 1000, Jerk: 5000}

func (m *Machine) planMoveFromWords(c *Context, cmd *gcode.Command) error {
	target := m.target(c, cmd)
	if f, ok := feedWord(cmd); ok {
		c.GM.FeedRate = f
	}
	moveType := planner.MoveLinear
	isRapid := c.GM.MotionMode == MotionRapid
	return m.enqueueMove(c, target, isRapid, moveType)
}

func feedWord(cmd *gcode.Command) (float64, bool) {
	if cmd.HasWord('F') {
		return cmd.Word('F', 0), true
	}
	return 0, false
}

func (m *Machine) planMoveTo(c *Context, target kinematics.Vector, rapid bool) error {
	return m.enqueueMove(c, target, rapid, planner.MoveLinear)
}

func (m *Machine) enqueueMove(c *Context, target kinematics.Vector, rapid bool, moveType planner.MoveType) error {
	if !m.canStartMotion() {
		return ErrMotionBlocked
	}
	if m.SoftLimitEnable {
		if err := m.Kinematics.CheckLimits(target); err != nil {
			if m.Safety != nil {
				m.Safety.TriggerEStop()
			} else {
				m.MachineState = MachineAlarm
				m.FlushAlarm()
			}
			return err
		}
	}

	feed := c.GM.FeedRate
	if rapid {
		feed = AxisEnvelope.MaxFeed
	}
	if c.MFOEnable && c.M48Enable {
		feed *= c.MFOFactor
	}
	if rapid && c.MTOEnable && c.M48Enable {
		feed *= c.MTOFactor
	}
	if feed > AxisEnvelope.MaxFeed {
		feed = AxisEnvelope.MaxFeed
	}

	block := planner.Block{
		Type:          moveType,
		Start:         c.Position,
		End:           target,
		RequestedFeed: feed,
		MaxFeed:       AxisEnvelope.MaxFeed,
		Accel:         AxisEnvelope.Accel,
		MaxJerk:       AxisEnvelope.Jerk,
		MotionState:   c.GM.ToMotionState(c.MFOFactor, c.MTOFactor),
	}
	if err := c.Planner.Enqueue(block); err != nil {
		return err
	}
	c.Position = target
	return nil
}

func (m *Machine) enqueueDwell(c *Context, seconds float64) error {
	block := planner.Block{
		Type:  planner.MoveCommand,
		Start: c.Position,
		End:   c.Position,
		Command: func() {
			// No-op. The block carries no duration: the coordinator
			// dispatches command blocks with no step time, so `seconds`
			// is not used and the dwell does not delay following motion.
		},
	}
	return c.Planner.Enqueue(block)
}

// enqueueCallback wraps an arbitrary side effect (M-code action,
// coordinate-system-change effect, spindle engage) as a command block so
// it takes effect in queue order relative to motion, per the spec's
// queued-command model.
func (m *Machine) enqueueCallback(c *Context, fn func()) error {
	block := planner.Block{
		Type:    planner.MoveCommand,
		Start:   c.Position,
		End:     c.Position,
		Command: fn,
	}
	return c.Planner.Enqueue(block)
}
