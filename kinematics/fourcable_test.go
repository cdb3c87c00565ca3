package kinematics

import "testing"

func newTestFourCable() *FourCable {
	body := [4]Anchor{
		{X: -100, Y: -100}, {X: -100, Y: 100}, {X: 100, Y: 100}, {X: 100, Y: -100},
	}
	frame := [4]Anchor{
		{X: -1000, Y: -1000}, {X: -1000, Y: 1000}, {X: 1000, Y: 1000}, {X: 1000, Y: -1000},
	}
	return NewFourCable([]int{AxisX, AxisY, AxisZ}, body, frame, []float64{80, 80, 80, 80, 400})
}

func TestFourCableInverseForwardRoundTrip(t *testing.T) {
	f := newTestFourCable()
	var target Vector
	target[AxisX] = 50
	target[AxisY] = -30
	target[AxisZ] = 12

	steps, err := f.InverseKinematics(MotionState{}, target, Vector{}, 0, 0, 0)
	if err != nil {
		t.Fatalf("InverseKinematics: %v", err)
	}
	if len(steps) != 5 {
		t.Fatalf("expected 5 motor steps (4 cables + Z), got %d", len(steps))
	}

	got, err := f.ForwardKinematics(steps)
	if err != nil {
		t.Fatalf("ForwardKinematics: %v", err)
	}
	if diff := got[AxisX] - target[AxisX]; diff > 0.01 || diff < -0.01 {
		t.Fatalf("X round trip: got %v want %v", got[AxisX], target[AxisX])
	}
	if diff := got[AxisY] - target[AxisY]; diff > 0.01 || diff < -0.01 {
		t.Fatalf("Y round trip: got %v want %v", got[AxisY], target[AxisY])
	}
	if diff := got[AxisZ] - target[AxisZ]; diff > 0.01 || diff < -0.01 {
		t.Fatalf("Z round trip: got %v want %v", got[AxisZ], target[AxisZ])
	}
}

func TestFourCableCenterIsSymmetric(t *testing.T) {
	f := newTestFourCable()
	steps, _ := f.InverseKinematics(MotionState{}, Vector{}, Vector{}, 0, 0, 0)
	for i := 1; i < 4; i++ {
		if steps[i] != steps[0] {
			t.Fatalf("expected symmetric geometry to give equal cable lengths at center, cable %d = %d want %d", i, steps[i], steps[0])
		}
	}
}

func TestFourCableEncoderSyncsOnLoadThenCorrects(t *testing.T) {
	f := newTestFourCable()
	f.EncoderCorrection = true
	f.SetEncoderMMPerRev(0, 1.0)

	var target Vector
	target[AxisX] = 10
	f.InverseKinematics(MotionState{}, target, Vector{}, 0, 0, 0)

	f.ObserveTension(0, 2)
	if st := f.ObserveEncoderReading(0, 0.1, true); st != nil {
		t.Fatalf("unexpected fault on first reading: %v", st)
	}
	if !f.encoders[0].synced {
		t.Fatalf("expected cable 0 to sync once tension exceeds the load threshold")
	}
}

func TestFourCableEncoderFaultsAfterSustainedDropout(t *testing.T) {
	f := newTestFourCable()
	f.EncoderCorrection = true

	var lastErr error
	for i := 0; i < encoderAlarmAfterFailures+1; i++ {
		if s := f.ObserveEncoderReading(0, 0, false); s != nil {
			lastErr = s
		}
	}
	if lastErr == nil {
		t.Fatalf("expected a fault after %d consecutive dropped reads", encoderAlarmAfterFailures+1)
	}
}

func TestFourCableIdleTaskTakesUpSlack(t *testing.T) {
	f := newTestFourCable()
	f.TensionFloor = 5
	f.ObserveTension(1, 1)
	f.ObserveTension(0, 10)

	steps, ok := f.IdleTask()
	if !ok {
		t.Fatalf("expected a corrective move for a slack cable")
	}
	if steps[1] == 0 {
		t.Fatalf("expected non-zero correction for cable 1")
	}
	if steps[0] != 0 {
		t.Fatalf("expected no correction for cable 0 (tension above floor)")
	}
}
