package settings

import (
	"testing"

	"motioncore/canonical"
	"motioncore/kinematics"
)

func TestRegisterMotionEnvelopeWritesThroughToAxisEnvelope(t *testing.T) {
	r := NewRegistry()
	if err := RegisterMotionEnvelope(r); err != nil {
		t.Fatalf("RegisterMotionEnvelope: %v", err)
	}
	if err := r.Set("jm", 7000); err != nil {
		t.Fatalf("Set jm: %v", err)
	}
	if canonical.AxisEnvelope.Jerk != 7000 {
		t.Fatalf("AxisEnvelope.Jerk = %v, want 7000", canonical.AxisEnvelope.Jerk)
	}
}

func TestRegisterStepsPerUnitResyncsKinematics(t *testing.T) {
	kin := kinematics.NewCartesian([]int{kinematics.AxisX}, []float64{80})
	spu := []float64{80}
	b := &MotorBindings{
		Kinematics:      kin,
		MotorMap:        []int{kinematics.AxisX},
		StepsPerUnit:    spu,
		CurrentSteps:    func() []int64 { return []int64{800} },
		CurrentPosition: func() kinematics.Vector { return kinematics.Vector{10, 0, 0} },
	}
	r := NewRegistry()
	if err := b.RegisterStepsPerUnit(r, 0, "xsp"); err != nil {
		t.Fatalf("RegisterStepsPerUnit: %v", err)
	}
	if err := r.Set("xsp", 160); err != nil {
		t.Fatalf("Set xsp: %v", err)
	}
	if spu[0] != 160 {
		t.Fatalf("StepsPerUnit not updated, got %v", spu[0])
	}

	// Position at 800 steps / 160 steps-per-unit should resolve back to the
	// 10mm position Configure was told the motor is currently sitting at.
	pos, err := kin.ForwardKinematics([]int64{800})
	if err != nil {
		t.Fatalf("ForwardKinematics: %v", err)
	}
	if pos[kinematics.AxisX] < 9.999 || pos[kinematics.AxisX] > 10.001 {
		t.Fatalf("position after resync = %v, want ~10", pos[kinematics.AxisX])
	}
}
