// Package pinio implements the digital/analog pin objects the spec's input
// dispatcher and output drivers are built from, grounded on the teacher's
// core/gpio.go (DigitalOut) and core/endstop.go (oversampled edge
// detection), generalized from those single-purpose MCU command handlers
// into general-purpose pin objects any higher-level package can own.
package pinio

import "motioncore/dispatch"

// TriState is a digital input's enabled/disabled flag.
type TriState uint8

const (
	StateDisabled TriState = iota
	StateEnabled
)

// Polarity selects whether a pin's logical active level is wired high or
// low, per the spec's "polarity (active-high vs active-low)".
type Polarity uint8

const (
	ActiveHigh Polarity = iota
	ActiveLow
)

// DigitalInput is one configured input pin: enabled tri-state, polarity,
// bound action tag, external number, and a debounce lockout duration.
type DigitalInput struct {
	State          TriState
	Polarity       Polarity
	Action         dispatch.Action
	ExternalNumber int
	LockoutTicks   uint32

	// StatusRequest is invoked on every accepted edge, per "a status-report
	// request is always raised".
	StatusRequest func()

	registry     *dispatch.Registry
	lockoutUntil uint32
	haveLockout  bool
}

// NewDigitalInput builds a disabled input bound to reg's action lists.
func NewDigitalInput(reg *dispatch.Registry) *DigitalInput {
	return &DigitalInput{registry: reg, State: StateDisabled, Action: dispatch.ActionNone}
}

func (d *DigitalInput) logical(raw bool) bool {
	if d.Polarity == ActiveLow {
		return !raw
	}
	return raw
}

// HandleEdge processes one electrical transition observed at tick now: it
// first enforces the lockout window, then converts raw to logical level via
// polarity, derives the edge kind, and dispatches through the registry.
// Returns true if some handler reported the edge handled.
func (d *DigitalInput) HandleEdge(raw bool, now uint32) bool {
	if d.State != StateEnabled {
		return false
	}
	if d.haveLockout && int32(now-d.lockoutUntil) < 0 {
		return false
	}

	logical := d.logical(raw)
	kind := dispatch.EdgeTrailing
	if logical {
		kind = dispatch.EdgeLeading
	}

	handled := d.registry.Fire(d.Action, kind, d.ExternalNumber)

	if d.StatusRequest != nil {
		d.StatusRequest()
	}
	if d.LockoutTicks > 0 {
		d.lockoutUntil = now + d.LockoutTicks
		d.haveLockout = true
	}
	return handled
}

// Enable arms the pin for dispatch; Disable silences it without touching
// its lockout state.
func (d *DigitalInput) Enable()  { d.State = StateEnabled }
func (d *DigitalInput) Disable() { d.State = StateDisabled }
