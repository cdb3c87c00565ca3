package canonical

import (
	"errors"

	"motioncore/gcode"
	"motioncore/kinematics"
	"motioncore/planner"
	"motioncore/safety"
)

// Context is one of the two coexisting machine contexts (primary /
// secondary) the spec requires so that a feedhold can activate the
// secondary for probing/jogging while the primary's move stack is
// preserved underneath it.
type Context struct {
	GM GCodeState

	Position      kinematics.Vector
	G28Position   kinematics.Vector
	G30Position   kinematics.Vector
	G92Offset     kinematics.Vector
	G92OffsetOn   bool

	CoordOffset [CoordSystems]kinematics.Vector
	ToolOffset  kinematics.Vector

	RotationMatrix  [3][3]float64
	RotationZOffset float64

	LastLineNumber int
	M48Enable      bool
	MFOFactor      float64
	MFOEnable      bool
	MTOFactor      float64
	MTOEnable      bool

	HomingState HomingState
	CycleType   CycleType

	Planner *planner.Planner
}

func newContext(kin kinematics.Kinematics, junctionDeviation float64) *Context {
	c := &Context{
		GM:        DefaultGCodeState(),
		MFOFactor: 1.0,
		MTOFactor: 1.0,
		M48Enable: true,
		Planner:   planner.New(junctionDeviation),
	}
	c.RotationMatrix = identity3x3()
	for i := range c.CoordOffset {
		c.CoordOffset[i] = kinematics.Vector{}
	}
	return c
}

func identity3x3() [3][3]float64 {
	return [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Machine is the CanonicalMachine: two contexts (cm1 primary, cm2
// secondary) and a selector, plus the global hold/limit/safety flags the
// spec attaches to the machine rather than to either context.
type Machine struct {
	cm1, cm2 *Context
	active   *Context // == cm1 or cm2

	Kinematics kinematics.Kinematics
	Tool       Toolhead
	Safety     *safety.Manager

	hold HoldState

	SoftLimitEnable bool
	LimitEnable     bool

	MachineState MachineRunState

	ChordalTolerance      float64
	JunctionIntegrationTime float64

	defaults GCodeState // snapshot restored on program end

	ProbeResults []kinematics.Vector // successful probe hits, for Tram

	// OnFinalStatusReport is invoked once M2/M30's queued reset actually
	// runs, wired to the status package's force-next-report hook.
	OnFinalStatusReport func()
}

// New builds a canonical machine over the given kinematics.
func New(kin kinematics.Kinematics, junctionDeviation float64) *Machine {
	cm1 := newContext(kin, junctionDeviation)
	cm2 := newContext(kin, junctionDeviation)
	m := &Machine{
		cm1: cm1, cm2: cm2, active: cm1,
		Kinematics:       kin,
		SoftLimitEnable:  true,
		ChordalTolerance: 0.01,
		defaults:         DefaultGCodeState(),
		MachineState:     MachineInit,
	}
	return m
}

// ActivateSecondary switches the active context to cm2, preserving cm1's
// queued planner state untouched underneath. Used when a feedhold opens a
// probing/jogging window.
func (m *Machine) ActivateSecondary() { m.active = m.cm2 }

// ActivatePrimary restores cm1 as the active context.
func (m *Machine) ActivatePrimary() { m.active = m.cm1 }

// Active returns the currently selected context.
func (m *Machine) Active() *Context { return m.active }

var (
	ErrUnknownMotionMode = errors.New("canonical: unsupported motion mode")
	ErrQueueFlushBlocked = errors.New("canonical: queue flush blocked by safety manager")
	ErrMotionBlocked     = errors.New("canonical: motion blocked by safety manager")
)

// Execute consumes one parsed G-code block, updates modal state, and
// enqueues any resulting motion or queued command into the active
// context's planner. It is the single entry point the spec's external
// collaborator (text parser / JSON dispatcher) calls after turning raw
// text into a gcode.Command.
func (m *Machine) Execute(cmd *gcode.Command) error {
	c := m.active
	c.LastLineNumber = cmd.Line

	switch cmd.Letter {
	case 'G':
		return m.executeG(c, cmd)
	case 'M':
		return m.executeM(c, cmd)
	}
	return nil
}

func (m *Machine) executeG(c *Context, cmd *gcode.Command) error {
	switch {
	case cmd.Is('G', 20):
		c.GM.UnitsMM = false
		return nil
	case cmd.Is('G', 21):
		c.GM.UnitsMM = true
		return nil
	case cmd.Is('G', 90):
		c.GM.DistanceMode = DistanceAbsolute
		return nil
	case cmd.Is('G', 91):
		c.GM.DistanceMode = DistanceIncremental
		return nil
	case cmd.Is('G', 90, 1):
		c.GM.ArcIncremental = false
		return nil
	case cmd.Is('G', 91, 1):
		c.GM.ArcIncremental = true
		return nil
	case cmd.Is('G', 17):
		c.GM.SelectPlane = PlaneXY
		return nil
	case cmd.Is('G', 18):
		c.GM.SelectPlane = PlaneXZ
		return nil
	case cmd.Is('G', 19):
		c.GM.SelectPlane = PlaneYZ
		return nil
	case cmd.Is('G', 61):
		c.GM.PathControl = PathExactPath
		return nil
	case cmd.Is('G', 61, 1):
		c.GM.PathControl = PathExactStop
		return nil
	case cmd.Is('G', 64):
		c.GM.PathControl = PathContinuous
		return nil
	case cmd.Is('G', 93):
		c.GM.FeedRateMode = FeedInverseTime
		return nil
	case cmd.Is('G', 94):
		c.GM.FeedRateMode = FeedUnitsPerMinute
		return nil
	case cmd.Is('G', 95):
		c.GM.FeedRateMode = FeedUnitsPerRev
		return nil
	case cmd.Is('G', 53):
		c.GM.AbsoluteOverride = true
		err := m.planMoveFromWords(c, cmd)
		c.GM.AbsoluteOverride = false
		return err
	case cmd.Letter == 'G' && int(cmd.Number) >= 54 && int(cmd.Number) <= 59:
		c.GM.CoordSystem = int(cmd.Number) - 53
		return nil
	case cmd.Is('G', 92):
		return m.setG92(c, cmd)
	case cmd.Is('G', 92, 1):
		c.G92Offset = kinematics.Vector{}
		c.G92OffsetOn = false
		return nil
	case cmd.Is('G', 92, 2):
		c.G92OffsetOn = false
		return nil
	case cmd.Is('G', 92, 3):
		c.G92OffsetOn = true
		return nil
	case cmd.Is('G', 28):
		return m.planMoveTo(c, c.G28Position, true)
	case cmd.Is('G', 30):
		return m.planMoveTo(c, c.G30Position, true)
	case cmd.Is('G', 28, 1):
		c.G28Position = c.Position
		return nil
	case cmd.Is('G', 30, 1):
		c.G30Position = c.Position
		return nil
	case cmd.Is('G', 4):
		return m.enqueueDwell(c, cmd.Word('P', 0))
	case cmd.Is('G', 43):
		c.ToolOffset = toolOffsetFor(cmd)
		return nil
	case cmd.Is('G', 49):
		c.ToolOffset = kinematics.Vector{}
		return nil
	case cmd.Is('G', 10):
		return m.setCoordOffset(c, cmd)
	}

	mode, ok := ParseMotionMode(cmd)
	if !ok {
		return ErrUnknownMotionMode
	}
	c.GM.MotionMode = mode
	if mode == MotionCancel {
		return nil
	}
	return m.planMoveFromWords(c, cmd)
}

func toolOffsetFor(cmd *gcode.Command) kinematics.Vector {
	var v kinematics.Vector
	v[kinematics.AxisZ] = cmd.Word('H', 0)
	return v
}

func (m *Machine) setG92(c *Context, cmd *gcode.Command) error {
	target := m.target(c, cmd)
	for i := range c.Position {
		if axisWordPresent(cmd, i) {
			c.G92Offset[i] = c.Position[i] - target[i]
		}
	}
	c.G92OffsetOn = true
	return nil
}

func (m *Machine) setCoordOffset(c *Context, cmd *gcode.Command) error {
	p := int(cmd.Word('P', 0))
	if p < 0 || p >= CoordSystems {
		return errors.New("canonical: coordinate system index out of range")
	}
	target := m.target(c, cmd)
	c.CoordOffset[p] = target
	return nil
}

func axisLetters() []byte { return []byte{'X', 'Y', 'Z', 'U', 'V', 'W', 'A', 'B', 'C'} }

func axisWordPresent(cmd *gcode.Command, axis int) bool {
	letters := axisLetters()
	if axis < 0 || axis >= len(letters) {
		return false
	}
	return cmd.HasWord(letters[axis])
}

// target computes the absolute axis-space target implied by cmd's axis
// words, applying distance mode, active coordinate offset, G92 offset,
// tool offset and tram rotation, per the spec's "rotation matrix applied
// to target coordinates as they enter the planner" rule.
func (m *Machine) target(c *Context, cmd *gcode.Command) kinematics.Vector {
	letters := axisLetters()
	target := c.Position
	for i, letter := range letters {
		if !cmd.HasWord(letter) {
			continue
		}
		v := cmd.Word(letter, 0)
		if !c.GM.UnitsMM {
			v *= 25.4
		}
		if c.GM.DistanceMode == DistanceIncremental {
			target[i] = c.Position[i] + v
		} else {
			target[i] = v
		}
	}

	if !c.GM.AbsoluteOverride {
		offset := c.CoordOffset[c.GM.CoordSystem]
		for i := range target {
			target[i] += offset[i] + c.ToolOffset[i]
			if c.G92OffsetOn {
				target[i] += c.G92Offset[i]
			}
		}
		target = applyRotation(c.RotationMatrix, target)
	}
	return target
}

func applyRotation(r [3][3]float64, v kinematics.Vector) kinematics.Vector {
	out := v
	out[0] = r[0][0]*v[0] + r[0][1]*v[1] + r[0][2]*v[2]
	out[1] = r[1][0]*v[0] + r[1][1]*v[1] + r[1][2]*v[2]
	out[2] = r[2][0]*v[0] + r[2][1]*v[1] + r[2][2]*v[2]
	return out
}
