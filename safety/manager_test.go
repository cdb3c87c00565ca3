package safety

import "testing"

func TestInterlockOpenRaisesFeedholdOnce(t *testing.T) {
	m := NewManager()
	calls := 0
	m.OnInterlock = func() { calls++ }

	m.SetInterlock(true)
	m.SetInterlock(true) // still disengaging, must not refire
	if calls != 1 {
		t.Fatalf("expected OnInterlock to fire once, got %d", calls)
	}
	if m.CanStartMotion() {
		t.Fatalf("expected motion blocked while interlock open")
	}
	if m.InterlockState() != InterlockDisengaging {
		t.Fatalf("expected InterlockDisengaging immediately after open, got %v", m.InterlockState())
	}
}

func TestInterlockReengageRequiresFullyStoppedAndIdle(t *testing.T) {
	m := NewManager()
	m.SetInterlock(true)

	// Closing the switch mid-unwind (still DISENGAGING) must not resume.
	m.SetInterlock(false)
	if m.InterlockState() != InterlockDisengaging {
		t.Fatalf("expected closing the switch mid-unwind to have no effect, got %v", m.InterlockState())
	}
	if m.CanStartMotion() {
		t.Fatalf("expected motion still blocked mid-unwind")
	}

	// The motion runtime reports the feedhold has fully completed.
	m.StartInterlockAfterFeedhold()
	if m.InterlockState() != InterlockDisengaged {
		t.Fatalf("expected InterlockDisengaged once feedhold completes, got %v", m.InterlockState())
	}

	restored := 0
	m.OnInterlockRestored = func() { restored++ }
	m.RuntimeIdle = func() bool { return false }
	m.SetInterlock(false)
	if restored != 0 || m.InterlockState() != InterlockDisengaged {
		t.Fatalf("expected reengage to wait for the runtime to report idle")
	}

	m.RuntimeIdle = func() bool { return true }
	m.SetInterlock(false)
	if restored != 1 || m.InterlockState() != InterlockEngaging {
		t.Fatalf("expected reengage once idle and disengaged, got restored=%d state=%v", restored, m.InterlockState())
	}
	if m.CanStartMotion() {
		t.Fatalf("expected motion still blocked until the cycle restart completes")
	}

	m.EndInterlockAfterFeedhold()
	if m.InterlockState() != InterlockEngaged || !m.CanStartMotion() {
		t.Fatalf("expected InterlockEngaged and motion permitted once cycle restart completes")
	}
}

func TestEStopLatchesAndBlocksEnergize(t *testing.T) {
	m := NewManager()
	m.TriggerEStop()
	if m.CanEnergize() {
		t.Fatalf("expected energize blocked after e-stop")
	}
	if err := m.ClearAlarm(); err != nil {
		t.Fatalf("ClearAlarm: %v", err)
	}
	if !m.CanEnergize() {
		t.Fatalf("expected energize permitted after alarm clear")
	}
}

func TestPanicCannotBeClearedByClearAlarm(t *testing.T) {
	m := NewManager()
	m.TriggerPanic()
	if err := m.ClearAlarm(); err != ErrPanicRequiresReset {
		t.Fatalf("expected ErrPanicRequiresReset, got %v", err)
	}
	if m.CanQueueFlush() {
		t.Fatalf("expected user-initiated queue flush blocked during panic")
	}
	m.Reset()
	if !m.CanQueueFlush() || m.Panicked() {
		t.Fatalf("expected full reset to clear panic")
	}
}

func TestChatterTripsAfterConsecutiveSamples(t *testing.T) {
	m := NewManager()
	m.ChatterThreshold = 10
	m.ChatterSamples = 3
	tripped := 0
	m.OnChatter = func() { tripped++ }

	m.ObserveVibration(20, 0, 0)
	m.ObserveVibration(20, 0, 0)
	if tripped != 0 {
		t.Fatalf("expected no trip before reaching ChatterSamples")
	}
	m.ObserveVibration(20, 0, 0)
	if tripped != 1 {
		t.Fatalf("expected exactly one trip, got %d", tripped)
	}
}

func TestChatterResetsOnQuietSample(t *testing.T) {
	m := NewManager()
	m.ChatterThreshold = 10
	m.ChatterSamples = 2
	tripped := 0
	m.OnChatter = func() { tripped++ }

	m.ObserveVibration(20, 0, 0)
	m.ObserveVibration(0, 0, 0) // quiet sample resets the run
	m.ObserveVibration(20, 0, 0)
	if tripped != 0 {
		t.Fatalf("expected quiet sample to reset consecutive count, got %d trips", tripped)
	}
}
