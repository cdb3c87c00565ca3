package dispatch

import "testing"

func TestInsertPreservesPriorityOrdering(t *testing.T) {
	l := &List{}
	var order []int
	record := func(n int) Handler {
		return func(kind EdgeKind, source int) bool {
			order = append(order, n)
			return false
		}
	}
	l.Insert(5, record(5))
	l.Insert(1, record(1))
	l.Insert(5, record(52)) // same priority as first 5, must run after it
	l.Insert(3, record(3))

	l.Dispatch(EdgeLeading, 0)
	want := []int{1, 3, 5, 52}
	if len(order) != len(want) {
		t.Fatalf("got order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}
}

func TestDispatchStopsAtFirstHandled(t *testing.T) {
	l := &List{}
	calls := 0
	l.Insert(0, func(kind EdgeKind, source int) bool {
		calls++
		return true
	})
	l.Insert(1, func(kind EdgeKind, source int) bool {
		calls++
		return true
	})
	if !l.Dispatch(EdgeLeading, 0) {
		t.Fatalf("expected Dispatch to report handled")
	}
	if calls != 1 {
		t.Fatalf("expected only the first handler to run, got %d calls", calls)
	}
}

func TestTokenDeregisterRemovesOnlyThatHandler(t *testing.T) {
	l := &List{}
	var fired []int
	h := func(n int) Handler {
		return func(kind EdgeKind, source int) bool {
			fired = append(fired, n)
			return false
		}
	}
	tok1 := l.Insert(0, h(1))
	l.Insert(0, h(2))

	tok1.Deregister()
	l.Dispatch(EdgeLeading, 0)
	if len(fired) != 1 || fired[0] != 2 {
		t.Fatalf("expected only handler 2 to remain, got %v", fired)
	}
}

func TestRegistryInternalListRunsBeforeActionList(t *testing.T) {
	r := NewRegistry()
	var order []string
	r.RegisterInternal(0, func(kind EdgeKind, source int) bool {
		order = append(order, "internal")
		return false
	})
	r.Register(ActionLimit, 0, func(kind EdgeKind, source int) bool {
		order = append(order, "limit")
		return true
	})
	if !r.Fire(ActionLimit, EdgeLeading, 0) {
		t.Fatalf("expected Fire to report handled")
	}
	if len(order) != 2 || order[0] != "internal" || order[1] != "limit" {
		t.Fatalf("expected internal-then-action order, got %v", order)
	}
}

func TestRegistryInternalHandledShortCircuitsActionList(t *testing.T) {
	r := NewRegistry()
	actionCalled := false
	r.RegisterInternal(0, func(kind EdgeKind, source int) bool { return true })
	r.Register(ActionStop, 0, func(kind EdgeKind, source int) bool {
		actionCalled = true
		return true
	})
	if !r.Fire(ActionStop, EdgeLeading, 0) {
		t.Fatalf("expected Fire to report handled")
	}
	if actionCalled {
		t.Fatalf("action list should not run once internal list handled the edge")
	}
}
