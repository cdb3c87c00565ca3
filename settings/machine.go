package settings

import (
	"motioncore/canonical"
	"motioncore/kinematics"
)

// RegisterMotionEnvelope adds the vm/am/jm tokens (max feed, acceleration,
// jerk) that write straight through to the live canonical.AxisEnvelope, so
// a jerk change takes effect on the very next enqueued block rather than
// waiting for a machine restart.
func RegisterMotionEnvelope(r *Registry) error {
	if _, err := r.Register(Token{
		Name: "vm", Type: TypeFloat, Flags: FlagPersistent, PrintFormat: "%.1f",
		Min: 0, Max: 100000,
		Get: func() float64 { return canonical.AxisEnvelope.MaxFeed },
		Set: func(v float64) error { canonical.AxisEnvelope.MaxFeed = v; return nil },
	}); err != nil {
		return err
	}
	if _, err := r.Register(Token{
		Name: "am", Type: TypeFloat, Flags: FlagPersistent, PrintFormat: "%.1f",
		Min: 0, Max: 1000000,
		Get: func() float64 { return canonical.AxisEnvelope.Accel },
		Set: func(v float64) error { canonical.AxisEnvelope.Accel = v; return nil },
	}); err != nil {
		return err
	}
	_, err := r.Register(Token{
		Name: "jm", Type: TypeFloat, Flags: FlagPersistent, PrintFormat: "%.0f",
		Min: 0, Max: 1e9,
		Get: func() float64 { return canonical.AxisEnvelope.Jerk },
		Set: func(v float64) error { canonical.AxisEnvelope.Jerk = v; return nil },
		// Jerk is copied onto each block as planner.Block.MaxJerk, which
		// the planner does not read (planner.junctionVelocity uses Accel
		// and JunctionDeviation), and no max-junction-accel value is
		// derived from it; the Set above is this token's only effect.
	})
	return err
}

// MotorBindings resyncs a kinematics' per-motor steps-per-unit and motor
// offsets whenever a settings token changes one of them, so absolute
// position tracking survives a steps-per-unit edit instead of drifting
// until the next home.
type MotorBindings struct {
	Kinematics      kinematics.Kinematics
	MotorMap        []int
	StepsPerUnit    []float64
	CurrentSteps    func() []int64
	CurrentPosition func() kinematics.Vector
}

func (b *MotorBindings) resync() error {
	return b.Kinematics.Configure(b.StepsPerUnit, b.MotorMap, b.CurrentSteps(), b.CurrentPosition())
}

// RegisterStepsPerUnit adds a persistent token for one motor's
// steps-per-unit value, named by the caller (xsp, ysp, zsp, ...).
func (b *MotorBindings) RegisterStepsPerUnit(r *Registry, index int, name string) error {
	_, err := r.Register(Token{
		Name: name, Type: TypeFloat, Flags: FlagPersistent, PrintFormat: "%.4f",
		Min: 0.0001, Max: 1e6,
		Get: func() float64 { return b.StepsPerUnit[index] },
		Set: func(v float64) error { b.StepsPerUnit[index] = v; return nil },
		OnChange: func(old, new float64) {
			_ = b.resync()
		},
	})
	return err
}
