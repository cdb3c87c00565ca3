package motion

import (
	"testing"

	"motioncore/dda"
	"motioncore/kinematics"
	"motioncore/planner"
)

type fakeBackend struct {
	steps int
	dir   bool
}

func (f *fakeBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error { return nil }
func (f *fakeBackend) Step()                                                       { f.steps++ }
func (f *fakeBackend) SetDirection(dir bool)                                       { f.dir = dir }
func (f *fakeBackend) Stop()                                                       {}
func (f *fakeBackend) GetName() string                                             { return "fake" }

func newTestCoordinator() (*Coordinator, *planner.Planner) {
	kin := kinematics.NewCartesian([]int{kinematics.AxisX, kinematics.AxisY}, []float64{100, 100})
	p := planner.New(0.05)
	backends := []*dda.MotorChannel{
		{OID: 0, Backend: &fakeBackend{}},
		{OID: 1, Backend: &fakeBackend{}},
	}
	engine := dda.NewEngine(backends)
	return NewCoordinator(p, kin, engine), p
}

func TestExecDispatchesCommandBlockImmediately(t *testing.T) {
	c, p := newTestCoordinator()
	called := false
	p.Enqueue(planner.Block{Type: planner.MoveCommand, Command: func() { called = true }})

	ok, err := c.Exec()
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if ok {
		t.Fatalf("command block should report nothing prepped")
	}
	if !called {
		t.Fatalf("expected command callback to run")
	}
	if !c.Idle() {
		t.Fatalf("expected coordinator idle after a command-only block with empty queue")
	}
}

func TestExecPrepsStepsForLinearBlock(t *testing.T) {
	c, p := newTestCoordinator()
	p.Enqueue(planner.Block{
		Type: planner.MoveLinear,
		Start: kinematics.Vector{0, 0},
		End:   kinematics.Vector{10, 0},
		RequestedFeed: 600, MaxFeed: 600, Accel: 1000, MaxJerk: 500,
	})

	ok, err := c.Exec()
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if !ok {
		t.Fatalf("expected a segment to be prepped")
	}
	if !c.Engine.Swap() {
		t.Fatalf("expected a segment ready to swap into the engine")
	}
}

func TestRequestExecMoveStartsIdleEngine(t *testing.T) {
	c, p := newTestCoordinator()
	p.Enqueue(planner.Block{
		Type: planner.MoveLinear,
		Start: kinematics.Vector{0, 0},
		End:   kinematics.Vector{5, 0},
		RequestedFeed: 300, MaxFeed: 300, Accel: 500, MaxJerk: 300,
	})

	if err := c.RequestExecMove(0); err != nil {
		t.Fatalf("RequestExecMove: %v", err)
	}
	if !c.Engine.Active() {
		t.Fatalf("expected engine to be active after RequestExecMove on an idle engine")
	}
}

func TestRequestExecMoveAbsorbedWhileEngineActive(t *testing.T) {
	c, p := newTestCoordinator()
	p.Enqueue(planner.Block{
		Type: planner.MoveLinear,
		Start: kinematics.Vector{0, 0},
		End:   kinematics.Vector{5, 0},
		RequestedFeed: 300, MaxFeed: 300, Accel: 500, MaxJerk: 300,
	})
	c.RequestExecMove(0)

	// A second call while the engine is already running a segment must be
	// a no-op rather than double-prepping.
	if err := c.RequestExecMove(0); err != nil {
		t.Fatalf("RequestExecMove (second call): %v", err)
	}
}
