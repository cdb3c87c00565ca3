package dda

import "testing"

func TestBresenhamTimesMonotonic(t *testing.T) {
	var accum int64
	times := bresenhamTimes(10, 1000, &accum)
	if len(times) != 10 {
		t.Fatalf("expected 10 events, got %d", len(times))
	}
	for i := 1; i < len(times); i++ {
		if times[i] < times[i-1] {
			t.Fatalf("times not monotonic at %d: %v", i, times)
		}
	}
	if times[len(times)-1] > 1000 {
		t.Fatalf("last event %d exceeds duration 1000", times[len(times)-1])
	}
}

func TestBresenhamPhaseCarriesAcrossSegments(t *testing.T) {
	var accum int64
	// 3 steps over 1000 ticks doesn't divide evenly; phase should carry
	// rather than reset to zero each call.
	bresenhamTimes(3, 1000, &accum)
	if accum == 0 {
		t.Fatalf("expected nonzero carried phase after uneven division")
	}
}

type fakeBackend struct {
	steps int
	dir   bool
}

func (f *fakeBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error { return nil }
func (f *fakeBackend) Step()                                                       { f.steps++ }
func (f *fakeBackend) SetDirection(dir bool)                                       { f.dir = dir }
func (f *fakeBackend) Stop()                                                       {}
func (f *fakeBackend) GetName() string                                             { return "fake" }

func TestEnginePrepAndSwap(t *testing.T) {
	backend := &fakeBackend{}
	motors := []*MotorChannel{{OID: 0, Backend: backend}}
	e := NewEngine(motors)

	seg := Segment{DeltaSteps: []int64{4}, DurationTicks: 400}
	if err := e.Prep(seg); err != nil {
		t.Fatalf("Prep: %v", err)
	}
	if !e.Swap() {
		t.Fatalf("Swap should succeed after Prep")
	}
	if len(e.runtime.steps) != 4 {
		t.Fatalf("expected 4 runtime events, got %d", len(e.runtime.steps))
	}
}

func TestEngineRunsSegmentToCompletion(t *testing.T) {
	backend := &fakeBackend{}
	motors := []*MotorChannel{{OID: 0, Backend: backend}}
	e := NewEngine(motors)

	seg := Segment{DeltaSteps: []int64{5}, DurationTicks: 500}
	e.Prep(seg)
	e.Swap()
	e.Start(0)

	for e.Active() {
		e.hiTierHandler(&e.timer)
	}
	if backend.steps != 5 {
		t.Fatalf("expected 5 step pulses, got %d", backend.steps)
	}
	if e.Position()[0] != 5 {
		t.Fatalf("expected position 5, got %d", e.Position()[0])
	}
}
