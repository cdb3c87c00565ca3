package canonical

import (
	"testing"

	"motioncore/safety"
)

func TestInterlockBlocksMotionAndRaisesFeedhold(t *testing.T) {
	m := newTestMachine()
	sm := safety.NewManager()
	m.AttachSafety(sm)

	sm.SetInterlock(true)
	if m.HoldState() != HoldRequested {
		t.Fatalf("expected interlock to raise a feedhold request, got %v", m.HoldState())
	}
	if m.MachineState != MachineInterlock {
		t.Fatalf("expected MachineInterlock state, got %v", m.MachineState)
	}

	exec := mustParse(t, "G1 X10 F1000")
	if err := m.Execute(exec); err != ErrMotionBlocked {
		t.Fatalf("expected ErrMotionBlocked while interlock open, got %v", err)
	}
}

func TestEStopFlushesBothContextsUnconditionally(t *testing.T) {
	m := newTestMachine()
	sm := safety.NewManager()
	m.AttachSafety(sm)

	exec(t, m, "G1 X10 F1000")
	if _, ok := m.cm1.Planner.Peek(); !ok {
		t.Fatalf("expected a queued block before e-stop")
	}
	m.ActivateSecondary()
	exec(t, m, "G1 X10 F1000")
	m.ActivatePrimary()
	if _, ok := m.cm2.Planner.Peek(); !ok {
		t.Fatalf("expected a queued secondary block before e-stop")
	}

	sm.TriggerEStop()
	if _, ok := m.cm1.Planner.Peek(); ok {
		t.Fatalf("expected e-stop to flush the primary queue")
	}
	if _, ok := m.cm2.Planner.Peek(); ok {
		t.Fatalf("expected e-stop to flush the secondary queue")
	}
	if m.MachineState != MachineAlarm {
		t.Fatalf("expected MachineAlarm after e-stop, got %v", m.MachineState)
	}
}

func TestUserQueueFlushBlockedDuringPanicOnly(t *testing.T) {
	m := newTestMachine()
	sm := safety.NewManager()
	m.AttachSafety(sm)

	sm.TriggerEStop()
	if err := m.RequestQueueFlush(); err != nil {
		t.Fatalf("expected user flush permitted during alarm, got %v", err)
	}

	sm.TriggerPanic()
	if err := m.RequestQueueFlush(); err != ErrQueueFlushBlocked {
		t.Fatalf("expected user flush blocked during panic, got %v", err)
	}
}
