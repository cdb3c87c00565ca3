// Package safety tracks interlock, e-stop, shutdown and chatter conditions
// and gates whether motion may start or spindle/coolant may energize.
// Grounded on g2core's safety_manager.h: the interlock side is a direct
// port of its 4-state cmSafetyState machine (SAFETY_INTERLOCK_ENGAGED /
// DISENGAGING / DISENGAGED / ENGAGING) and handle_interlock()'s
// idle-gated reengage rule; e-stop/shutdown/panic/chatter generalize the
// teacher's core/commands.go TryShutdown (a single global latch that
// blocks further command processing) into the spec's richer
// alarm/shutdown/panic distinction, and vibration.go's chatter tap, which
// this package now owns the consuming side of.
package safety

import (
	"errors"

	"github.com/orsinium-labs/tinymath"
)

// ErrPanicRequiresReset is returned by ClearAlarm once a panic has latched;
// the spec allows no clear short of a full reset.
var ErrPanicRequiresReset = errors.New("safety: panic latched, reset required")

// InterlockState is g2core's cmSafetyState: the interlock switch's steady
// states (Engaged = closed/normal, Disengaged = open and motion has fully
// stopped) plus the two transient states a feedhold/cycle-restart passes
// through on the way between them. Distinguishing Disengaging from
// Disengaged matters because resume is only safe once the machine has
// actually finished unwinding, not merely once the switch reads closed.
type InterlockState int

const (
	InterlockEngaged     InterlockState = iota // closed; normal operation
	InterlockDisengaging                       // just opened; feedhold unwind in progress
	InterlockDisengaged                        // feedhold motion fully stopped; safe to evaluate reengage
	InterlockEngaging                          // switch reclosed and idle; cycle restart requested
)

// Manager is the singleton safety gate. Its callbacks are wired by
// whatever owns the canonical machine, so this package stays independent
// of canonical (mirrors the kinematics/canonical split: safety describes
// what it sees, the owner decides what to do about it).
type Manager struct {
	interlock       InterlockState
	interlockEnable bool

	eStop    bool
	shutdown bool
	panicked bool
	alarm    bool

	// RuntimeIdle reports whether the motion runtime has no pulses left
	// to issue, mirroring mp_runtime_is_idle(). Checked before the
	// interlock may transition DISENGAGED -> ENGAGING; nil is treated as
	// always idle (no runtime wired, e.g. in a unit test).
	RuntimeIdle func() bool

	ChatterThreshold float64 // magnitude past which a sample counts against ChatterSamples
	ChatterSamples   int     // consecutive over-threshold samples before tripping
	chatterCount     int

	// OnInterlock is invoked once per ENGAGED->DISENGAGING transition
	// (the interlock switch just opened); canonical wires this to
	// RequestFeedhold with exit-action interlock.
	OnInterlock func()
	// OnInterlockRestored is invoked once per DISENGAGED->ENGAGING
	// transition (switch reclosed and the runtime is idle); canonical
	// wires this to requesting a cycle restart, mirroring
	// cm_request_cycle_start().
	OnInterlockRestored func()
	// OnEStop is invoked once per e-stop trigger; wired to RequestFeedhold
	// with exit-action stop, followed by alarm.
	OnEStop func()
	// OnShutdown/OnPanic are invoked once per latch.
	OnShutdown func()
	OnPanic    func()
	// OnChatter is invoked once ChatterSamples consecutive over-threshold
	// vibration samples are observed.
	OnChatter func()
}

// NewManager returns a Manager with sane chatter defaults and the
// interlock system enabled; callers still need to wire the On* callbacks.
func NewManager() *Manager {
	return &Manager{ChatterThreshold: 2.0, ChatterSamples: 5, interlockEnable: true}
}

// SetInterlockEnable enables or disables the interlock system entirely,
// mirroring set_interlock_enable(); disabled, SetInterlock is a no-op.
func (m *Manager) SetInterlockEnable(enable bool) { m.interlockEnable = enable }

// InterlockEnabled reports get_interlock_enable().
func (m *Manager) InterlockEnabled() bool { return m.interlockEnable }

// SetInterlock reports the interlock switch's raw state, mirroring
// handle_interlock()'s two branches. Opening the switch always starts a
// feedhold (ENGAGED -> DISENGAGING) if currently closed. Closing the
// switch only requests a cycle restart (DISENGAGED -> ENGAGING) once the
// prior feedhold has fully unwound (state == DISENGAGED) AND the runtime
// is idle — closing the switch mid-unwind (state == DISENGAGING) does
// nothing, matching the original's refusal to treat "switch reads closed"
// as "safe to resume" while still decelerating.
func (m *Manager) SetInterlock(open bool) {
	if !m.interlockEnable {
		return
	}
	if open {
		if m.interlock == InterlockEngaged {
			m.interlock = InterlockDisengaging
			if m.OnInterlock != nil {
				m.OnInterlock()
			}
		}
		return
	}

	idle := m.RuntimeIdle == nil || m.RuntimeIdle()
	if idle && m.interlock == InterlockDisengaged {
		m.interlock = InterlockEngaging
		if m.OnInterlockRestored != nil {
			m.OnInterlockRestored()
		}
	}
}

// StartInterlockAfterFeedhold transitions DISENGAGING -> DISENGAGED. The
// motion runtime calls this once the feedhold motion triggered by an
// interlock-open event has actually completed, mirroring
// start_interlock_after_feedhold(); called from any other state, it is a
// no-op.
func (m *Manager) StartInterlockAfterFeedhold() {
	if m.interlock == InterlockDisengaging {
		m.interlock = InterlockDisengaged
	}
}

// EndInterlockAfterFeedhold transitions ENGAGING -> ENGAGED. The motion
// runtime calls this once the cycle restart requested by OnInterlockRestored
// has actually completed, mirroring end_interlock_after_feedhold().
func (m *Manager) EndInterlockAfterFeedhold() {
	if m.interlock == InterlockEngaging {
		m.interlock = InterlockEngaged
	}
}

// InterlockState reports the current 4-state interlock machine state.
func (m *Manager) InterlockState() InterlockState { return m.interlock }

// InterlockOpen reports whether the interlock is anywhere other than
// fully engaged (closed) — disengaging, disengaged, or engaging all still
// block spindle/coolant energization, the same as a raw open switch does.
func (m *Manager) InterlockOpen() bool { return m.interlock != InterlockEngaged }

// TriggerEStop latches the e-stop condition and fires OnEStop exactly once
// per latch.
func (m *Manager) TriggerEStop() {
	if m.eStop {
		return
	}
	m.eStop = true
	m.alarm = true
	if m.OnEStop != nil {
		m.OnEStop()
	}
}

// TriggerShutdown latches shutdown: motion stops without a position
// guarantee, per the spec's alarm/shutdown/panic distinction.
func (m *Manager) TriggerShutdown() {
	if m.shutdown {
		return
	}
	m.shutdown = true
	if m.OnShutdown != nil {
		m.OnShutdown()
	}
}

// TriggerPanic latches panic: no further commands are accepted until an
// explicit reset.
func (m *Manager) TriggerPanic() {
	if m.panicked {
		return
	}
	m.panicked = true
	if m.OnPanic != nil {
		m.OnPanic()
	}
}

// Reset clears every latch, including panic, and returns the interlock
// machine to its engaged steady state. Only a full reset may do this.
func (m *Manager) Reset() {
	m.interlock = InterlockEngaged
	m.eStop = false
	m.shutdown = false
	m.panicked = false
	m.alarm = false
	m.chatterCount = 0
}

// ClearAlarm clears an alarm/e-stop latch, leaving shutdown/panic alone.
// Panic can never be cleared this way.
func (m *Manager) ClearAlarm() error {
	if m.panicked {
		return ErrPanicRequiresReset
	}
	m.alarm = false
	m.eStop = false
	return nil
}

// Panicked, ShuttingDown report the corresponding latch.
func (m *Manager) Panicked() bool     { return m.panicked }
func (m *Manager) ShuttingDown() bool { return m.shutdown }
func (m *Manager) Alarmed() bool      { return m.alarm }

// CanEnergize reports whether spindle/coolant may energize right now,
// mirroring ok_to_spindle()/ok_to_coolant(): blocked in any interlock
// state but fully engaged, and during e-stop, shutdown, or panic.
func (m *Manager) CanEnergize() bool {
	return !m.InterlockOpen() && !m.eStop && !m.shutdown && !m.panicked
}

// CanStartMotion mirrors CanEnergize; motion and tool energization share
// the same gate in this design.
func (m *Manager) CanStartMotion() bool { return m.CanEnergize() }

// CanQueueFlush reports whether a user-initiated queue flush is currently
// permitted, mirroring can_queue_flush(). Alarm-induced flush bypasses
// this entirely and always proceeds unconditionally, per the spec's
// flush-semantics resolution; only panic blocks a user-requested flush.
func (m *Manager) CanQueueFlush() bool { return !m.panicked }

// ObserveVibration feeds one accelerometer sample through the chatter
// detector. x, y, z are raw signed counts from the sensor; magnitude is
// compared against ChatterThreshold in the sensor's native units.
func (m *Manager) ObserveVibration(x, y, z int16) {
	mag := vectorMagnitude(x, y, z)
	if mag > m.ChatterThreshold {
		m.chatterCount++
		if m.chatterCount >= m.ChatterSamples {
			m.chatterCount = 0
			if m.OnChatter != nil {
				m.OnChatter()
			}
		}
		return
	}
	m.chatterCount = 0
}

func vectorMagnitude(x, y, z int16) float64 {
	fx, fy, fz := float32(x), float32(y), float32(z)
	return float64(tinymath.Sqrt(fx*fx + fy*fy + fz*fz))
}
