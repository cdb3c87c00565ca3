// Package toolhead implements the polymorphic tool contract canonical
// drives through the SpindleController/CoolantController/
// DigitalOutputSetter interfaces: an ESC-driven spindle and a laser's
// dual toolhead/pseudo-stepper role. Grounded on the teacher's
// core/pwm.go hardware-PWM ramp-and-timeout pattern (HardwarePWM +
// digitalOutLoadEvent's timer-driven state machine), generalized from a
// single scheduled value change into a continuous per-tick ramp toward a
// target speed.
package toolhead

import (
	"motioncore/canonical"
	"motioncore/core"
)

// SpeedMap is one direction's linear (speed_lo, speed_hi) -> (phase_lo,
// phase_hi) PWM mapping.
type SpeedMap struct {
	SpeedLo, SpeedHi float64
	PhaseLo, PhaseHi float64
}

func (m SpeedMap) phaseFor(speed float64) float64 {
	if m.SpeedHi <= m.SpeedLo {
		return m.PhaseLo
	}
	t := (speed - m.SpeedLo) / (m.SpeedHi - m.SpeedLo)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return m.PhaseLo + t*(m.PhaseHi-m.PhaseLo)
}

// ESCSpindle implements canonical.SpindleController over an ESC's PWM
// throttle line plus an enable and direction pin.
type ESCSpindle struct {
	Direction   canonical.SpindleDirection
	speed       float64 // target RPM
	speedActual float64 // ramped RPM currently driving the PWM map

	MinSpeed, MaxSpeed float64
	SpeedChangePerTick float64 // RPM advanced per 1ms tick
	SpinupDelayMs      uint32

	CWMap, CCWMap SpeedMap

	SetPWM          func(duty float64) error
	SetEnable       func(on bool) error
	SetDirectionPin func(cw bool) error

	timer   core.Timer
	ticking bool
}

// NewESCSpindle returns a spindle with its direction off and both ramps
// zeroed; callers set the Set* funcs and maps before first use.
func NewESCSpindle() *ESCSpindle {
	return &ESCSpindle{Direction: canonical.SpindleOff}
}

// IsOn reflects direction alone, even while paused, per the spec.
func (s *ESCSpindle) IsOn() bool { return s.Direction != canonical.SpindleOff }

// Engage sets direction and target speed. Unchanged direction and speed
// is a no-op; a direction reversal snaps speed_actual to zero before the
// ramp resumes toward the new target.
func (s *ESCSpindle) Engage(direction canonical.SpindleDirection, speedRPM float64) {
	speedRPM = clamp(speedRPM, s.MinSpeed, s.MaxSpeed)
	if direction == s.Direction && speedRPM == s.speed {
		return
	}
	reversed := direction != s.Direction && s.Direction != canonical.SpindleOff && direction != canonical.SpindleOff

	s.Direction = direction
	s.speed = speedRPM
	if reversed {
		s.speedActual = 0
	}

	if s.SetDirectionPin != nil {
		s.SetDirectionPin(direction == canonical.SpindleCW)
	}
	if s.SetEnable != nil {
		s.SetEnable(direction != canonical.SpindleOff)
	}
	s.applyPWM()
	s.startRamp()
}

// Pause clears speed_actual to zero immediately, retaining the target
// speed. It does not stop a ramp already in progress, and a later Engage
// with the same direction and speed is still a no-op, so after a completed
// ramp the spindle stays at zero until an Engage changes direction or speed.
func (s *ESCSpindle) Pause() {
	s.speedActual = 0
	s.applyPWM()
}

func (s *ESCSpindle) startRamp() {
	if s.ticking {
		return
	}
	s.ticking = true
	s.timer.Handler = s.tick
	s.timer.WakeTime = core.GetTime() + core.TimerFromUS(uint32(s.SpinupDelayMs)*1000)
	core.ScheduleTimer(&s.timer)
}

// tick advances speed_actual toward speed by SpeedChangePerTick once per
// millisecond, re-computing PWM each step, and unregisters itself once
// the ramp completes.
func (s *ESCSpindle) tick(t *core.Timer) uint8 {
	switch {
	case s.speedActual < s.speed:
		s.speedActual += s.SpeedChangePerTick
		if s.speedActual > s.speed {
			s.speedActual = s.speed
		}
	case s.speedActual > s.speed:
		s.speedActual -= s.SpeedChangePerTick
		if s.speedActual < s.speed {
			s.speedActual = s.speed
		}
	}
	s.applyPWM()

	if s.speedActual == s.speed {
		s.ticking = false
		return core.SF_DONE
	}
	t.WakeTime += core.TimerFromUS(1000)
	return core.SF_RESCHEDULE
}

func (s *ESCSpindle) applyPWM() {
	if s.SetPWM == nil {
		return
	}
	var duty float64
	switch s.Direction {
	case canonical.SpindleCW:
		duty = s.CWMap.phaseFor(s.speedActual)
	case canonical.SpindleCCW:
		duty = s.CCWMap.phaseFor(s.speedActual)
	}
	s.SetPWM(duty)
}

// SpeedActual exposes the ramped speed for status reporting.
func (s *ESCSpindle) SpeedActual() float64 { return s.speedActual }

func clamp(v, lo, hi float64) float64 {
	if hi > lo {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
	}
	return v
}
