package canonical

import (
	"testing"

	"motioncore/gcode"
	"motioncore/kinematics"
	"motioncore/mcode"
)

func newTestMachine() *Machine {
	kin := kinematics.NewCartesian([]int{kinematics.AxisX, kinematics.AxisY, kinematics.AxisZ}, []float64{80, 80, 400})
	return New(kin, 0.05)
}

func exec(t *testing.T, m *Machine, line string) *gcode.Command {
	t.Helper()
	p := gcode.NewParser()
	cmd, err := p.ParseLine(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	if err := m.Execute(cmd); err != nil {
		t.Fatalf("execute %q: %v", line, err)
	}
	return cmd
}

func TestFeedholdIdempotence(t *testing.T) {
	m := newTestMachine()
	m.RequestFeedhold()
	first := m.HoldState()
	m.RequestFeedhold()
	if m.HoldState() != first {
		t.Fatalf("second feedhold request changed state from %v to %v", first, m.HoldState())
	}
	if first != HoldRequested {
		t.Fatalf("expected HoldRequested, got %v", first)
	}
}

func TestTramIdentityAfterClear(t *testing.T) {
	m := newTestMachine()
	m.RecordProbeResult(kinematics.Vector{0, 0, 1})
	m.RecordProbeResult(kinematics.Vector{10, 0, 1.5})
	m.RecordProbeResult(kinematics.Vector{0, 10, 0.5})
	if err := m.SetTram(true); err != nil {
		t.Fatalf("SetTram(true): %v", err)
	}
	if err := m.SetTram(false); err != nil {
		t.Fatalf("SetTram(false): %v", err)
	}
	want := identity3x3()
	if m.cm1.RotationMatrix != want {
		t.Fatalf("expected identity matrix, got %+v", m.cm1.RotationMatrix)
	}
	if m.cm1.RotationZOffset != 0 {
		t.Fatalf("expected zero z offset, got %v", m.cm1.RotationZOffset)
	}
}

func TestSoftLimitRejectsOutOfRangeTarget(t *testing.T) {
	m := newTestMachine()
	cart := m.Kinematics.(*kinematics.Cartesian)
	cart.SetAxisLimits(kinematics.AxisX, kinematics.AxisGeometry{TravelMin: 0, TravelMax: 200, Homed: true})

	exec(t, m, "G21")
	exec(t, m, "G90")
	if err := m.Execute(mustParse(t, "G1 X50 F1000")); err != nil {
		t.Fatalf("expected in-range move to succeed: %v", err)
	}
	if err := m.Execute(mustParse(t, "G1 X500 F1000")); err == nil {
		t.Fatalf("expected out-of-range move to be rejected")
	}
}

func TestSoftLimitViolationCarriesAxisStatusAndTriggersAlarm(t *testing.T) {
	m := newTestMachine()
	cart := m.Kinematics.(*kinematics.Cartesian)
	cart.SetAxisLimits(kinematics.AxisX, kinematics.AxisGeometry{TravelMin: 0, TravelMax: 200, Homed: true})

	exec(t, m, "G21")
	exec(t, m, "G90")
	err := m.Execute(mustParse(t, "G1 X500 F1000"))
	status, ok := err.(*mcode.Status)
	if !ok {
		t.Fatalf("expected *mcode.Status, got %T (%v)", err, err)
	}
	if status.Code != mcode.SoftLimitExceeded || status.Detail != "x" {
		t.Fatalf("expected SoftLimitExceeded on axis x, got %+v", status)
	}
	if m.MachineState != MachineAlarm {
		t.Fatalf("expected MachineAlarm after soft limit violation, got %v", m.MachineState)
	}
}

func mustParse(t *testing.T, line string) *gcode.Command {
	t.Helper()
	cmd, err := gcode.NewParser().ParseLine(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	return cmd
}

func TestProgramEndQueuesResetAsCommand(t *testing.T) {
	m := newTestMachine()
	exec(t, m, "G20") // inch mode, should be reset by program end
	exec(t, m, "M2")

	if m.cm1.GM.UnitsMM {
		t.Fatalf("expected reset to be queued, not applied immediately")
	}

	block, err := m.cm1.Planner.Dequeue()
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if block.Command == nil {
		t.Fatalf("expected program-end block to carry a callback")
	}
	block.Command()
	if m.cm1.GM.UnitsMM != DefaultGCodeState().UnitsMM {
		t.Fatalf("program end callback did not restore default units mode")
	}
}
