package pinio

import (
	"testing"

	"motioncore/dispatch"
)

func TestDigitalInputPolarityAndDispatch(t *testing.T) {
	reg := dispatch.NewRegistry()
	var gotKind dispatch.EdgeKind
	var fired bool
	reg.Register(dispatch.ActionLimit, 0, func(kind dispatch.EdgeKind, source int) bool {
		fired = true
		gotKind = kind
		return true
	})

	in := NewDigitalInput(reg)
	in.Enable()
	in.Polarity = ActiveLow
	in.Action = dispatch.ActionLimit

	// Raw high with active-low polarity is logically inactive (trailing).
	handled := in.HandleEdge(true, 0)
	if !handled || !fired {
		t.Fatalf("expected handler to fire and report handled")
	}
	if gotKind != dispatch.EdgeTrailing {
		t.Fatalf("expected trailing edge for active-low raw-high, got %v", gotKind)
	}
}

func TestDigitalInputLockoutSuppressesEdge(t *testing.T) {
	reg := dispatch.NewRegistry()
	calls := 0
	reg.Register(dispatch.ActionStop, 0, func(kind dispatch.EdgeKind, source int) bool {
		calls++
		return true
	})

	in := NewDigitalInput(reg)
	in.Enable()
	in.Action = dispatch.ActionStop
	in.LockoutTicks = 100

	in.HandleEdge(true, 0)
	in.HandleEdge(false, 50) // within lockout, must be ignored
	if calls != 1 {
		t.Fatalf("expected 1 dispatched edge during lockout, got %d", calls)
	}
	in.HandleEdge(false, 150) // past lockout
	if calls != 2 {
		t.Fatalf("expected edge past lockout to dispatch, got %d calls", calls)
	}
}

func TestDigitalInputDisabledIgnoresEdges(t *testing.T) {
	reg := dispatch.NewRegistry()
	reg.Register(dispatch.ActionHalt, 0, func(kind dispatch.EdgeKind, source int) bool {
		t.Fatalf("handler should not fire while pin disabled")
		return true
	})
	in := NewDigitalInput(reg)
	in.Action = dispatch.ActionHalt
	in.HandleEdge(true, 0)
}

func TestDigitalOutputPolarityInversion(t *testing.T) {
	var lastWire bool
	out := NewDigitalOutput(func(v bool) error {
		lastWire = v
		return nil
	}, nil)
	out.Polarity = ActiveLow

	if err := out.SetBool(true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if lastWire != false {
		t.Fatalf("expected wire inverted to false for active-low true, got %v", lastWire)
	}
	if out.Value() != 1 {
		t.Fatalf("expected logical value 1, got %v", out.Value())
	}
}

func TestDigitalOutputPWMRejectsNonCapable(t *testing.T) {
	out := NewDigitalOutput(func(bool) error { return nil }, nil)
	if err := out.SetAnalog(0.5); err == nil {
		t.Fatalf("expected error setting analog value on non-PWM pin")
	}
}

func TestAnalogInputTrimmedMean(t *testing.T) {
	a := NewAnalogInput(8, CircuitExternal, [6]float64{1, 0, 0, 0, 0, 0}, 3.3)
	for _, v := range []float64{1.0, 1.01, 0.99, 1.02, 0.98, 5.0} {
		a.AddSample(v)
	}
	a.VarianceMax = 1.0
	mean, err := a.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if mean > 1.2 {
		t.Fatalf("expected outlier 5.0 trimmed from mean, got %v", mean)
	}
}

func TestAnalogInputResistancePullUp(t *testing.T) {
	a := NewAnalogInput(4, CircuitPullUp, [6]float64{10000, 0, 0, 0, 0, 0}, 5.0)
	r, err := a.Resistance(2.5)
	if err != nil {
		t.Fatalf("Resistance: %v", err)
	}
	if absf(r-10000) > 1 {
		t.Fatalf("expected ~10k ohms at half reference voltage, got %v", r)
	}
}
