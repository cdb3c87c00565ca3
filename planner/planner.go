// Package planner replaces the teacher's standalone/planner (a naive
// per-move trapezoid with no lookahead, standalone/planner/planner.go)
// with a lookahead planner: a ring buffer of queued blocks, junction
// velocities bounded by a centripetal-deviation model, and a
// back-plan/forward-plan pass each time a new block is queued (Dequeue does
// not replan). Velocity profiles are constant-acceleration trapezoids;
// Block.MaxJerk is carried on each block but the planner does not read it,
// so profiles are not jerk-limited. The buffer/queue shape and the MoveTo-at-constant-accel
// vocabulary are carried over from the teacher; the velocity-profile math
// is new.
package planner

import (
	"errors"

	"github.com/orsinium-labs/tinymath"
	"golang.org/x/exp/slices"

	"motioncore/kinematics"
)

// RingSize bounds the lookahead window. The teacher queued moves in an
// unbounded slice; a fixed ring keeps worst-case replan cost constant.
const RingSize = 48

// MoveType distinguishes a real motion block from a queued non-motion
// command (dwell, M-code callback, coordinate change, spindle engage),
// which the canonical machine enqueues so it executes in queue order
// relative to motion rather than immediately.
type MoveType uint8

const (
	MoveLinear MoveType = iota
	MoveArc
	MoveCommand
)

// Block is one planned segment between two corner points.
type Block struct {
	Type MoveType

	Start, End kinematics.Vector
	UnitVec    kinematics.Vector // End-Start, normalized
	Distance   float64

	RequestedFeed float64 // mm/min, before override
	MaxFeed       float64 // axis-limited feed for this block
	Accel         float64
	MaxJerk       float64

	EntryVelocity float64 // mm/min, set by back-plan
	ExitVelocity  float64 // mm/min, set by forward-plan
	CruiseVelocity float64

	NominalEntryVelocity float64 // unconstrained entry velocity this block could sustain
	Recalculate          bool

	Command func() // for MoveCommand blocks

	MotionState kinematics.MotionState
}

var (
	ErrQueueFull  = errors.New("planner: ring buffer full")
	ErrQueueEmpty = errors.New("planner: ring buffer empty")
)

// Planner holds the lookahead ring and current machine position.
type Planner struct {
	ring       [RingSize]Block
	head, tail int
	count      int

	position kinematics.Vector

	JunctionDeviation float64 // mm, the centripetal-deviation constant
}

// New creates an empty planner with the given junction deviation (mm).
func New(junctionDeviation float64) *Planner {
	return &Planner{JunctionDeviation: junctionDeviation}
}

func (p *Planner) Len() int    { return p.count }
func (p *Planner) Full() bool  { return p.count == RingSize }
func (p *Planner) Empty() bool { return p.count == 0 }

// Enqueue adds a block to the tail of the ring, computes its junction
// velocity against the previous block, and runs a back-plan pass over the
// buffer so every block's entry velocity reflects the new corner.
func (p *Planner) Enqueue(b Block) error {
	if p.Full() {
		return ErrQueueFull
	}

	dx := b.End[0] - b.Start[0]
	dy := b.End[1] - b.Start[1]
	dz := b.End[2] - b.Start[2]
	b.Distance = vlen(dx, dy, dz)
	if b.Distance > 0 {
		b.UnitVec[0], b.UnitVec[1], b.UnitVec[2] = dx/b.Distance, dy/b.Distance, dz/b.Distance
	}

	if b.Type == MoveCommand {
		b.EntryVelocity, b.ExitVelocity, b.CruiseVelocity = 0, 0, 0
	} else {
		b.NominalEntryVelocity = b.MaxFeed
	}

	idx := p.tail
	p.ring[idx] = b
	p.tail = (p.tail + 1) % RingSize
	p.count++

	p.junctionVelocity(idx)
	p.backPlan()
	p.forwardPlan()
	return nil
}

// prevIndex returns the ring index of the block immediately before idx, or
// -1 if idx is the head (no predecessor in the buffer).
func (p *Planner) prevIndex(idx int) int {
	if idx == p.head {
		return -1
	}
	return (idx - 1 + RingSize) % RingSize
}

// junctionVelocity applies the centripetal-deviation corner-speed model:
// for the cosine of the junction angle (taken between the reversed previous
// unit vector and the new one, so a straight continuation gives -1 and a
// full reversal gives +1), the maximum
// speed that keeps centripetal acceleration within Accel at a junction
// deviation of JunctionDeviation mm is
//
//	v = sqrt(Accel * JunctionDeviation * sin(theta/2) / (1 - sin(theta/2)))
//
// computed without trig calls via the half-angle identity
// sin(theta/2) = sqrt((1-cos theta)/2).
func (p *Planner) junctionVelocity(idx int) {
	b := &p.ring[idx]
	if b.Type == MoveCommand || b.Distance == 0 {
		return
	}
	prev := p.prevIndex(idx)
	if prev < 0 || p.ring[prev].Type == MoveCommand || p.ring[prev].Distance == 0 {
		b.NominalEntryVelocity = 0
		return
	}
	a := p.ring[prev].UnitVec
	cosTheta := -(a[0]*b.UnitVec[0] + a[1]*b.UnitVec[1] + a[2]*b.UnitVec[2])
	if cosTheta < -0.9999 {
		// Straight-line continuation: no cornering limit.
		b.NominalEntryVelocity = minf(b.MaxFeed, p.ring[prev].MaxFeed)
		return
	}
	if cosTheta > 0.9999 {
		// Full reversal: must stop.
		b.NominalEntryVelocity = 0
		return
	}
	sinHalf := tinymath.Sqrt(float32((1 - cosTheta) / 2))
	if sinHalf > 0.9999 {
		sinHalf = 0.9999
	}
	accel := minf(b.Accel, p.ring[prev].Accel)
	v := tinymath.Sqrt(float32(accel*p.JunctionDeviation) * sinHalf / (1 - sinHalf))
	b.NominalEntryVelocity = minf(float64(v), minf(b.MaxFeed, p.ring[prev].MaxFeed))
}

// backPlan walks from the tail toward the head, lowering each block's exit
// velocity so the following block's entry velocity is always reachable
// within that block's deceleration budget (v_exit^2 = v_entry_next^2 + 2*a*d
// solved for the slower direction).
func (p *Planner) backPlan() {
	idx := p.prevIndex(p.tail)
	nextEntry := 0.0
	first := true
	for idx >= 0 {
		b := &p.ring[idx]
		if b.Type == MoveCommand {
			nextEntry = 0
			first = false
			idx = p.prevIndex(idx)
			continue
		}
		if first {
			b.ExitVelocity = b.NominalEntryVelocity
			first = false
		} else {
			b.ExitVelocity = minf(b.NominalEntryVelocity, nextEntry)
		}
		reachable := maxReachableVelocity(0, b.ExitVelocity, b.Accel, b.Distance)
		b.EntryVelocity = minf(b.NominalEntryVelocity, reachable)
		nextEntry = b.EntryVelocity
		idx = p.prevIndex(idx)
	}
}

// forwardPlan walks from the head forward, capping each block's entry
// velocity to what the previous block could actually accelerate up to, and
// computing each block's cruise (peak) velocity.
func (p *Planner) forwardPlan() {
	prevExit := 0.0
	idx := p.head
	for i := 0; i < p.count; i++ {
		b := &p.ring[idx]
		if b.Type != MoveCommand {
			if i > 0 {
				reachableEntry := maxReachableVelocity(prevExit, 0, b.Accel, b.Distance)
				b.EntryVelocity = minf(b.EntryVelocity, reachableEntry)
			}
			peak := maxReachableVelocity(b.EntryVelocity, b.ExitVelocity, b.Accel, b.Distance)
			b.CruiseVelocity = minf(peak, b.MaxFeed)
			prevExit = b.ExitVelocity
		}
		idx = (idx + 1) % RingSize
	}
}

// maxReachableVelocity returns the peak velocity attainable over distance d
// starting at v0 and ending no lower than v1, at constant magnitude
// acceleration a (the classic trapezoid-profile peak-velocity formula).
func maxReachableVelocity(v0, v1, a, d float64) float64 {
	if a <= 0 {
		return minf(v0, v1)
	}
	peakSq := (2*a*d + v0*v0 + v1*v1) / 2
	if peakSq < 0 {
		peakSq = 0
	}
	return tsqrt(peakSq)
}

func tsqrt(x float64) float64 {
	return float64(tinymath.Sqrt(float32(x)))
}

func vlen(x, y, z float64) float64 {
	return tsqrt(x*x + y*y + z*z)
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Peek returns the head block without removing it.
func (p *Planner) Peek() (Block, bool) {
	if p.Empty() {
		return Block{}, false
	}
	return p.ring[p.head], true
}

// Dequeue removes and returns the head block.
func (p *Planner) Dequeue() (Block, error) {
	if p.Empty() {
		return Block{}, ErrQueueEmpty
	}
	b := p.ring[p.head]
	p.head = (p.head + 1) % RingSize
	p.count--
	return b, nil
}

// Flush discards every queued block. Per the safety model, an
// alarm-induced flush always succeeds; a user-initiated flush must be
// gated by the caller checking safety.Manager.CanQueueFlush first.
func (p *Planner) Flush() {
	p.head, p.tail, p.count = 0, 0, 0
}

// PendingTypes returns the MoveType of every currently queued block, head
// to tail, without exposing the ring buffer itself; used for diagnostics
// (status reports, tests).
func (p *Planner) PendingTypes() []MoveType {
	out := make([]MoveType, 0, p.count)
	idx := p.head
	for i := 0; i < p.count; i++ {
		out = append(out, p.ring[idx].Type)
		idx = (idx + 1) % RingSize
	}
	return out
}

// HasPendingCommand reports whether a queued command block (dwell, M-code
// callback, spindle/coolant change) is waiting behind the running block,
// so a caller about to flush can tell whether it would silently drop one.
func (p *Planner) HasPendingCommand() bool {
	return slices.Contains(p.PendingTypes(), MoveCommand)
}
