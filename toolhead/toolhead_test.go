package toolhead

import (
	"testing"

	"motioncore/canonical"
	"motioncore/kinematics"
	"motioncore/pinio"
)

func TestESCSpindleNoOpWhenUnchanged(t *testing.T) {
	s := NewESCSpindle()
	s.MaxSpeed = 10000
	calls := 0
	s.SetPWM = func(d float64) error { calls++; return nil }

	s.Engage(canonical.SpindleCW, 5000)
	first := calls
	s.Engage(canonical.SpindleCW, 5000)
	if calls != first {
		t.Fatalf("expected no-op re-engage to not recompute PWM, calls went %d -> %d", first, calls)
	}
}

func TestESCSpindleReversalSnapsToZero(t *testing.T) {
	s := NewESCSpindle()
	s.MaxSpeed = 10000
	s.CWMap = SpeedMap{SpeedLo: 0, SpeedHi: 10000, PhaseLo: 0, PhaseHi: 1}
	s.CCWMap = s.CWMap
	s.SetPWM = func(float64) error { return nil }

	s.Engage(canonical.SpindleCW, 5000)
	s.speedActual = 5000 // simulate ramp having completed
	s.Engage(canonical.SpindleCCW, 3000)
	if s.speedActual != 0 {
		t.Fatalf("expected reversal to snap speed_actual to 0, got %v", s.speedActual)
	}
}

func TestESCSpindlePauseRetainsTargetSpeed(t *testing.T) {
	s := NewESCSpindle()
	s.MaxSpeed = 10000
	s.SetPWM = func(float64) error { return nil }
	s.Engage(canonical.SpindleCW, 4000)
	s.Pause()
	if s.speedActual != 0 {
		t.Fatalf("expected pause to zero speed_actual, got %v", s.speedActual)
	}
	if !s.IsOn() {
		t.Fatalf("expected IsOn to remain true while paused (direction unchanged)")
	}
}

func TestLaserSkipsFireBelowMinS(t *testing.T) {
	kin := kinematics.NewCartesian([]int{kinematics.AxisX, kinematics.AxisY, kinematics.AxisZ}, []float64{100, 100, 100})
	laser := NewLaserTool(kin, 2)
	laser.MinS = 5
	laser.PulsesPerMM = func(s float64) float64 { return 10 }
	laser.SetSpeed(1, 1) // below MinS

	ms := kinematics.MotionState{MotionMode: int(canonical.MotionLinear), SpindleCW: true}
	steps, err := laser.InverseKinematics(ms, kinematics.Vector{10, 0, 0}, kinematics.Vector{0, 0, 0}, 0, 0, 1)
	if err != nil {
		t.Fatalf("InverseKinematics: %v", err)
	}
	if steps[2] != 0 {
		t.Fatalf("expected laser motor slot to be zero below MinS, got %d", steps[2])
	}
}

func TestLaserFiresAboveMinSOnCW(t *testing.T) {
	kin := kinematics.NewCartesian([]int{kinematics.AxisX, kinematics.AxisY, kinematics.AxisZ}, []float64{100, 100, 100})
	laser := NewLaserTool(kin, 2)
	laser.MinS = 1
	laser.PulsesPerMM = func(s float64) float64 { return 10 }
	laser.SetSpeed(50, 1)

	ms := kinematics.MotionState{MotionMode: int(canonical.MotionLinear), SpindleCW: true}
	steps, err := laser.InverseKinematics(ms, kinematics.Vector{10, 0, 0}, kinematics.Vector{0, 0, 0}, 0, 0, 1)
	if err != nil {
		t.Fatalf("InverseKinematics: %v", err)
	}
	if steps[2] != 100 { // 10mm * 10 pulses/mm
		t.Fatalf("expected 100 pulses, got %d", steps[2])
	}
}

func TestCoolantSetMistFlood(t *testing.T) {
	var mistWire, floodWire bool
	c := &Coolant{
		Mist:  pinio.NewDigitalOutput(func(v bool) error { mistWire = v; return nil }, nil),
		Flood: pinio.NewDigitalOutput(func(v bool) error { floodWire = v; return nil }, nil),
	}
	c.SetMist(true)
	c.SetFlood(true)
	if !mistWire || !floodWire {
		t.Fatalf("expected both mist and flood wires driven high")
	}
	c.SetMist(false)
	if mistWire {
		t.Fatalf("expected mist wire low after SetMist(false)")
	}
}
