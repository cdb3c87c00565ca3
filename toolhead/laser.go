package toolhead

import (
	"github.com/orsinium-labs/tinymath"

	"motioncore/canonical"
	"motioncore/core"
	"motioncore/kinematics"
)

// LaserTool wraps a parent kinematics.Kinematics and takes over one motor
// slot as a pseudo-stepper that fires a laser pulse per DDA step instead
// of driving a physical axis. It is itself a Kinematics so the motion
// coordinator can use it as a drop-in replacement for the parent.
type LaserTool struct {
	Parent kinematics.Kinematics

	MotorIndex      int                  // index into the steps[] slice this tool owns
	PulsesPerMM     func(s float64) float64 // maps the current S word to pulses/mm
	PulseDurationUS float64
	MinS            float64

	FirePin func(on bool) error

	currentS float64
	ticksPerPulse uint32
}

// NewLaserTool wraps parent; TicksPerPulse() becomes valid once
// PulseDurationUS is set.
func NewLaserTool(parent kinematics.Kinematics, motorIndex int) *LaserTool {
	return &LaserTool{Parent: parent, MotorIndex: motorIndex}
}

func (l *LaserTool) Name() string     { return "laser/" + l.Parent.Name() }
func (l *LaserTool) AxisNames() []int { return l.Parent.AxisNames() }

// SetSpeed scales an S word by override and stores the result as the
// value the pulse rate is derived from on the next inverse-kinematics call.
func (l *LaserTool) SetSpeed(s, override float64) {
	l.currentS = s * override
}

// fires reports whether the laser should emit pulses for this motion
// state, per "fires only when motion is G1/G2/G3, direction is CW ...,
// and S exceeds min_s". CCW gives the constant-on variant instead.
func (l *LaserTool) fires(ms kinematics.MotionState) (fire bool, constantOn bool) {
	switch canonical.MotionMode(ms.MotionMode) {
	case canonical.MotionLinear, canonical.MotionArcCW, canonical.MotionArcCCW:
	default:
		return false, false
	}
	if l.currentS <= l.MinS {
		return false, false
	}
	if !ms.SpindleCW {
		return true, true
	}
	return true, false
}

// InverseKinematics delegates to the parent kinematics for every axis,
// then overrides this tool's motor slot with a pulse count derived from
// the segment's length and the current S-mapped pulse rate.
func (l *LaserTool) InverseKinematics(ms kinematics.MotionState, target, position kinematics.Vector, startV, endV, segmentTime float64) ([]int64, error) {
	steps, err := l.Parent.InverseKinematics(ms, target, position, startV, endV, segmentTime)
	if err != nil {
		return nil, err
	}
	if l.MotorIndex < 0 || l.MotorIndex >= len(steps) {
		return steps, nil
	}

	fire, constantOn := l.fires(ms)
	if !fire {
		steps[l.MotorIndex] = 0
		return steps, nil
	}

	length := segmentLength(target, position)
	var rate float64
	if l.PulsesPerMM != nil {
		rate = l.PulsesPerMM(l.currentS)
	}
	pulses := int64(length * rate)
	if constantOn {
		// Constant-on variant still needs at least one pulse per segment to
		// drive the fire-pin handler; a single wide pulse covers the slice.
		if pulses == 0 {
			pulses = 1
		}
	}
	steps[l.MotorIndex] = pulses

	l.ticksPerPulse = core.TimerFromUS(uint32(l.PulseDurationUS))
	return steps, nil
}

// TicksPerPulse returns the fire-pulse width in timer ticks, precomputed
// on the last InverseKinematics call.
func (l *LaserTool) TicksPerPulse() uint32 { return l.ticksPerPulse }

// Fire drives the fire pin on and then straight off. It does not time the
// pulse (TicksPerPulse is not applied here), and nothing in the module
// calls it: the DDA engine steps this tool's motor slot like any other.
func (l *LaserTool) Fire() {
	if l.FirePin == nil {
		return
	}
	l.FirePin(true)
	l.FirePin(false)
}

func (l *LaserTool) ForwardKinematics(steps []int64) (kinematics.Vector, error) {
	return l.Parent.ForwardKinematics(steps)
}
func (l *LaserTool) CheckLimits(target kinematics.Vector) error { return l.Parent.CheckLimits(target) }
func (l *LaserTool) Configure(stepsPerUnit []float64, motorMap []int, currentSteps []int64, currentPosition kinematics.Vector) error {
	return l.Parent.Configure(stepsPerUnit, motorMap, currentSteps, currentPosition)
}
func (l *LaserTool) SyncEncoders(stepPosition []int64, position kinematics.Vector) error {
	return l.Parent.SyncEncoders(stepPosition, position)
}
func (l *LaserTool) IdleTask() ([]int64, bool) { return l.Parent.IdleTask() }

func segmentLength(a, b kinematics.Vector) float64 {
	sumSq := 0.0
	for i := range a {
		d := a[i] - b[i]
		sumSq += d * d
	}
	return float64(tinymath.Sqrt(float32(sumSq)))
}
