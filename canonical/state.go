// Package canonical implements the G-code-semantic layer sitting above the
// planner: coordinate systems, offsets, tool table, overrides, and the
// feedhold/hold state machine, matching the spec's CanonicalMachine and
// GCodeState data model. It replaces the teacher's
// standalone/gcode/interpreter.go and standalone/manager.go, which only
// tracked a flat Position/AbsoluteMode pair with no coordinate-system
// stack, offsets, or hold state machine; the new state model is built from
// the spec directly, while the call/dispatch shape (one Execute(cmd) entry
// point per parsed block) follows the teacher's Manager.ProcessCommand.
package canonical

import (
	"motioncore/gcode"
	"motioncore/kinematics"
)

// MotionMode mirrors the G-code modal motion group (G0/G1/G2/G3/G80/...).
type MotionMode int

const (
	MotionNone MotionMode = iota
	MotionRapid
	MotionLinear
	MotionArcCW
	MotionArcCCW
	MotionCancel
)

type SpindleDirection int

const (
	SpindleOff SpindleDirection = iota
	SpindleCW
	SpindleCCW
)

type FeedRateMode int

const (
	FeedInverseTime FeedRateMode = iota
	FeedUnitsPerMinute
	FeedUnitsPerRev
)

type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

type DistanceMode int

const (
	DistanceAbsolute DistanceMode = iota
	DistanceIncremental
)

type PathControl int

const (
	PathExactPath PathControl = iota
	PathExactStop
	PathContinuous
)

// CoordSystems is the count of work offset slots (G54..G59 plus G59.1-3
// folded into one extended bank for simplicity, matching COORDS+1 from the
// spec's coord_offset sizing).
const CoordSystems = 9

// GCodeState is the per-block semantic snapshot threaded through planning.
type GCodeState struct {
	LineNumber int

	MotionMode   MotionMode
	CoordSystem  int // index into coord_offset, 0 = machine/G53
	UnitsMM      bool
	SelectPlane  Plane
	PathControl  PathControl
	DistanceMode DistanceMode
	ArcIncremental bool

	FeedRateMode FeedRateMode
	FeedRate     float64

	Tool       int
	ToolSelect int

	SpindleDirection SpindleDirection
	SpindleSpeed     float64

	P, H float64

	AbsoluteOverride bool

	Target        kinematics.Vector
	DisplayOffset kinematics.Vector
}

// DefaultGCodeState returns the reset state used at program start and
// after M2/M30.
func DefaultGCodeState() GCodeState {
	return GCodeState{
		MotionMode:   MotionNone,
		CoordSystem:  1,
		UnitsMM:      true,
		SelectPlane:  PlaneXY,
		PathControl:  PathContinuous,
		DistanceMode: DistanceAbsolute,
		FeedRateMode: FeedUnitsPerMinute,
	}
}

// HomingState, CycleType, MotionState, MachineState are small status enums
// surfaced in status reports.
type HomingState int

const (
	NotHomed HomingState = iota
	Homing
	Homed
)

type CycleType int

const (
	CycleOff CycleType = iota
	CycleMachining
	CycleHoming
	CycleProbing
	CycleJog
)

type MachineRunState int

const (
	MachineInit MachineRunState = iota
	MachineReady
	MachineAlarm
	MachineProgramStop
	MachineProgramEnd
	MachineCycle
	MachineInterlock
	MachineShutdown
	MachinePanic
)

// ToMotionState projects the parts of GCodeState a Kinematics
// implementation is allowed to see, without creating an import cycle back
// from kinematics to canonical.
func (gm GCodeState) ToMotionState(mfo, mto float64) kinematics.MotionState {
	return kinematics.MotionState{
		MotionMode:       int(gm.MotionMode),
		SpindleCW:        gm.SpindleDirection == SpindleCW,
		SpindleSpeed:     gm.SpindleSpeed,
		FeedOverride:     mfo,
		TraverseOverride: mto,
	}
}

// ParseMotionMode maps a parsed G-word number to a MotionMode, per the
// G-code subset the spec documents (G0/G1/G2/G3/G80).
func ParseMotionMode(cmd *gcode.Command) (MotionMode, bool) {
	if cmd.Letter != 'G' {
		return MotionNone, false
	}
	switch int(cmd.Number) {
	case 0:
		return MotionRapid, true
	case 1:
		return MotionLinear, true
	case 2:
		return MotionArcCW, true
	case 3:
		return MotionArcCCW, true
	case 80:
		return MotionCancel, true
	}
	return MotionNone, false
}
