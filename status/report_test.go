package status

import "testing"

type fakeSink struct {
	samples []Sample
}

func (f *fakeSink) Publish(s Sample) { f.samples = append(f.samples, s) }

func TestSilentVerbosityNeverEmits(t *testing.T) {
	r := NewReporter([]Field{{Token: "posx", Get: func() float64 { return 1 }}}, Silent, 0)
	if s := r.Sample(); s != nil {
		t.Fatalf("expected Silent to emit nothing, got %+v", s)
	}
}

func TestVerboseEmitsEveryFieldEveryTime(t *testing.T) {
	x := 0.0
	r := NewReporter([]Field{{Token: "posx", Get: func() float64 { return x }}}, Verbose, 0)
	r.Sample()
	s := r.Sample() // unchanged value, still verbose
	if s == nil || len(s.Tokens) != 1 {
		t.Fatalf("expected verbose to re-emit unchanged field, got %+v", s)
	}
}

func TestFilteredOnlyEmitsChangedFields(t *testing.T) {
	x, y := 0.0, 0.0
	r := NewReporter([]Field{
		{Token: "posx", Get: func() float64 { return x }},
		{Token: "posy", Get: func() float64 { return y }},
	}, Filtered, 0)
	r.Sample() // establishes baseline

	x = 5
	s := r.Sample()
	if s == nil || len(s.Tokens) != 1 || s.Tokens[0] != "posx" {
		t.Fatalf("expected only posx in filtered sample, got %+v", s)
	}
}

func TestFilteredEmitsNothingWhenNoFieldChanged(t *testing.T) {
	r := NewReporter([]Field{{Token: "posx", Get: func() float64 { return 3 }}}, Filtered, 0)
	r.Sample()
	if s := r.Sample(); s != nil {
		t.Fatalf("expected no sample when nothing changed, got %+v", s)
	}
}

func TestForceNextProducesVerboseSampleEvenWhenSilent(t *testing.T) {
	r := NewReporter([]Field{{Token: "posx", Get: func() float64 { return 9 }}}, Silent, 0)
	r.ForceNext()
	s := r.Sample()
	if s == nil || len(s.Tokens) != 1 {
		t.Fatalf("expected forced sample despite Silent verbosity, got %+v", s)
	}
	// forced flag should be consumed by the one Sample call.
	if s2 := r.Sample(); s2 != nil {
		t.Fatalf("expected forced flag to be one-shot, got %+v", s2)
	}
}

func TestRequestImmediateFansOutToAllSinks(t *testing.T) {
	r := NewReporter([]Field{{Token: "posx", Get: func() float64 { return 1 }}}, Verbose, 0)
	a, b := &fakeSink{}, &fakeSink{}
	r.Sinks = []Sink{a, b}
	r.RequestImmediate()
	if len(a.samples) != 1 || len(b.samples) != 1 {
		t.Fatalf("expected both sinks to receive the sample, got %d and %d", len(a.samples), len(b.samples))
	}
}

func TestFormatSampleProducesOrderedTokenValuePairs(t *testing.T) {
	s := Sample{Tokens: []string{"posx", "posy"}, Values: []float64{1.5, -2}}
	got := formatSample(s)
	want := "posx:1.500,posy:-2.000"
	if got != want {
		t.Fatalf("formatSample = %q, want %q", got, want)
	}
}
