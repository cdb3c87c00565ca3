package planner

import (
	"testing"

	"motioncore/kinematics"
)

func straightBlock(x0, x1 float64, feed, accel float64) Block {
	return Block{
		Type:          MoveLinear,
		Start:         kinematics.Vector{x0, 0, 0},
		End:           kinematics.Vector{x1, 0, 0},
		RequestedFeed: feed,
		MaxFeed:       feed,
		Accel:         accel,
		MaxJerk:       accel,
	}
}

func TestEnqueueStraightLineNoCorneringLimit(t *testing.T) {
	p := New(0.05)
	if err := p.Enqueue(straightBlock(0, 100, 3000, 500)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := p.Enqueue(straightBlock(100, 200, 3000, 500)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	blocks := p.ring[:2]
	if blocks[1].EntryVelocity <= 0 {
		t.Fatalf("expected nonzero entry velocity for collinear continuation, got %v", blocks[1].EntryVelocity)
	}
}

func TestEnqueueReversalForcesZeroJunction(t *testing.T) {
	p := New(0.05)
	p.Enqueue(straightBlock(0, 100, 3000, 500))
	b2 := Block{
		Type:    MoveLinear,
		Start:   kinematics.Vector{100, 0, 0},
		End:     kinematics.Vector{0, 0, 0},
		MaxFeed: 3000,
		Accel:   500,
	}
	p.Enqueue(b2)
	idx := p.prevIndex(p.tail)
	if p.ring[idx].EntryVelocity != 0 {
		t.Fatalf("expected zero entry velocity on reversal, got %v", p.ring[idx].EntryVelocity)
	}
}

func TestFlushEmptiesQueue(t *testing.T) {
	p := New(0.05)
	p.Enqueue(straightBlock(0, 10, 1000, 200))
	p.Enqueue(straightBlock(10, 20, 1000, 200))
	p.Flush()
	if !p.Empty() {
		t.Fatalf("expected empty queue after flush")
	}
}

func TestHasPendingCommandReflectsQueuedCommandBlocks(t *testing.T) {
	p := New(0.05)
	p.Enqueue(straightBlock(0, 10, 1000, 200))
	if p.HasPendingCommand() {
		t.Fatalf("expected no pending command with only motion queued")
	}
	p.Enqueue(Block{Type: MoveCommand, Command: func() {}})
	if !p.HasPendingCommand() {
		t.Fatalf("expected pending command after queuing a MoveCommand block")
	}
	types := p.PendingTypes()
	if len(types) != 2 || types[0] != MoveLinear || types[1] != MoveCommand {
		t.Fatalf("PendingTypes = %v, want [MoveLinear MoveCommand]", types)
	}
}

func TestQueueFullReturnsError(t *testing.T) {
	p := New(0.05)
	for i := 0; i < RingSize; i++ {
		if err := p.Enqueue(straightBlock(float64(i), float64(i+1), 1000, 200)); err != nil {
			t.Fatalf("unexpected error at %d: %v", i, err)
		}
	}
	if err := p.Enqueue(straightBlock(0, 1, 1000, 200)); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestNextSegmentCoversFullDistance(t *testing.T) {
	b := Block{
		Distance:      100,
		EntryVelocity: 0,
		CruiseVelocity: 600,
		ExitVelocity:  0,
		Accel:         200 * 3600, // mm/min^2 equivalent scale for test purposes
	}
	var consumed float64
	steps := 0
	for {
		seg, ok := NextSegment(&b, consumed)
		if !ok {
			break
		}
		if seg.End <= seg.Start {
			t.Fatalf("segment made no progress: %+v", seg)
		}
		consumed = seg.End
		steps++
		if steps > 100000 {
			t.Fatalf("segment generation did not converge")
		}
	}
	if consumed != b.Distance {
		t.Fatalf("expected full distance consumed, got %v/%v", consumed, b.Distance)
	}
}
