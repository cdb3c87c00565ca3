package settings

import "testing"

func TestSetRejectsOutOfRangeValue(t *testing.T) {
	r := NewRegistry()
	v := 0.0
	r.Register(Token{
		Name: "xvm", Type: TypeFloat, Min: 0, Max: 1000,
		Get: func() float64 { return v },
		Set: func(nv float64) error { v = nv; return nil },
	})
	if err := r.Set("xvm", 5000); err == nil {
		t.Fatalf("expected out-of-range Set to fail")
	}
	if v != 0 {
		t.Fatalf("value must not change on rejected Set, got %v", v)
	}
}

func TestSetRejectsReadOnlyToken(t *testing.T) {
	r := NewRegistry()
	r.Register(Token{
		Name: "fv", Type: TypeFloat, Flags: FlagReadOnly,
		Get: func() float64 { return 42 },
		Set: func(float64) error { return nil },
	})
	if err := r.Set("fv", 1); err != ErrReadOnly {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}

func TestOnChangeFiresWithOldAndNew(t *testing.T) {
	r := NewRegistry()
	v := 5.0
	var seenOld, seenNew float64
	r.Register(Token{
		Name: "jm", Type: TypeFloat,
		Get: func() float64 { return v },
		Set: func(nv float64) error { v = nv; return nil },
		OnChange: func(old, nw float64) { seenOld, seenNew = old, nw },
	})
	r.Set("jm", 10)
	if seenOld != 5 || seenNew != 10 {
		t.Fatalf("OnChange saw (%v, %v), want (5, 10)", seenOld, seenNew)
	}
}

func TestRegisterAssignsStablePersistentSlotOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(Token{Name: "a", Flags: FlagPersistent, Get: func() float64 { return 0 }, Set: func(float64) error { return nil }})
	r.Register(Token{Name: "b", Flags: 0, Get: func() float64 { return 0 }, Set: func(float64) error { return nil }}) // non-persistent, no slot
	r.Register(Token{Name: "c", Flags: FlagPersistent, Get: func() float64 { return 0 }, Set: func(float64) error { return nil }})

	if r.tokens["a"].index != 0 {
		t.Fatalf("expected token a to get slot 0, got %d", r.tokens["a"].index)
	}
	if r.tokens["c"].index != 1 {
		t.Fatalf("expected token c to get slot 1 (skipping non-persistent b), got %d", r.tokens["c"].index)
	}
}

func TestFormatUsesPrintFormat(t *testing.T) {
	r := NewRegistry()
	r.Register(Token{
		Name: "xvm", Type: TypeFloat, PrintFormat: "%.2f",
		Get: func() float64 { return 123.456 },
		Set: func(float64) error { return nil },
	})
	got, err := r.Format("xvm")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != "123.46" {
		t.Fatalf("Format = %q, want %q", got, "123.46")
	}
}

func TestGetSetUnknownTokenErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nope"); err != ErrUnknownToken {
		t.Fatalf("Get on unknown token: got %v, want ErrUnknownToken", err)
	}
	if err := r.Set("nope", 1); err != ErrUnknownToken {
		t.Fatalf("Set on unknown token: got %v, want ErrUnknownToken", err)
	}
}
