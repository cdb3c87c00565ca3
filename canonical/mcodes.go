package canonical

import "motioncore/gcode"

// SpindleController is the minimal surface canonical needs from the
// toolhead package to engage/stop a spindle as part of an M3/M4/M5 queued
// command, kept as an interface so canonical doesn't import toolhead
// (toolhead's laser variant instead imports kinematics/canonical types,
// not the reverse).
type SpindleController interface {
	Engage(direction SpindleDirection, speedRPM float64)
	Pause()
}

// CoolantController mirrors the same shape for M7/M8/M9.
type CoolantController interface {
	SetMist(on bool)
	SetFlood(on bool)
}

// DigitalOutputSetter backs the M100/M100.1/M102 user-I/O commands (TinyG
// dialect reserves this block for user-defined digital/PWM output, per
// the spec's G-code subset).
type DigitalOutputSetter interface {
	SetDigital(index int, on bool)
	SetPWM(index int, fraction float64)
}

// Toolhead wires the active spindle/coolant/digital-output backends. Left
// nil-safe so canonical can be exercised in tests without a toolhead.
type Toolhead struct {
	Spindle  SpindleController
	Coolant  CoolantController
	Digital  DigitalOutputSetter
}

func (m *Machine) executeM(c *Context, cmd *gcode.Command) error {
	if cmd.Is('M', 50, 1) {
		c.MTOEnable = cmd.Word('P', 1) != 0
		if cmd.HasWord('P') && cmd.Word('P', 1) != 0 {
			c.MTOFactor = cmd.Word('P', 1)
		}
		return nil
	}
	if cmd.Is('M', 100, 1) {
		idx := int(cmd.Word('P', 0))
		return m.enqueueCallback(c, func() {
			if m.Tool.Digital != nil {
				m.Tool.Digital.SetDigital(idx, false)
			}
		})
	}

	switch int(cmd.Number) {
	case 0, 1:
		m.MachineState = MachineProgramStop
		return nil
	case 2, 30:
		return m.programEnd(c)
	case 3:
		c.GM.SpindleDirection = SpindleCW
		if cmd.HasWord('S') {
			c.GM.SpindleSpeed = cmd.Word('S', 0)
		}
		return m.enqueueCallback(c, func() {
			if m.Tool.Spindle != nil && m.canEnergize() {
				m.Tool.Spindle.Engage(SpindleCW, c.GM.SpindleSpeed)
			}
		})
	case 4:
		c.GM.SpindleDirection = SpindleCCW
		if cmd.HasWord('S') {
			c.GM.SpindleSpeed = cmd.Word('S', 0)
		}
		return m.enqueueCallback(c, func() {
			if m.Tool.Spindle != nil && m.canEnergize() {
				m.Tool.Spindle.Engage(SpindleCCW, c.GM.SpindleSpeed)
			}
		})
	case 5:
		c.GM.SpindleDirection = SpindleOff
		return m.enqueueCallback(c, func() {
			if m.Tool.Spindle != nil {
				m.Tool.Spindle.Pause()
			}
		})
	case 6:
		if cmd.HasWord('T') {
			c.GM.ToolSelect = int(cmd.Word('T', 0))
		}
		return m.enqueueCallback(c, func() { c.GM.Tool = c.GM.ToolSelect })
	case 7:
		return m.enqueueCallback(c, func() {
			if m.Tool.Coolant != nil && m.canEnergize() {
				m.Tool.Coolant.SetMist(true)
			}
		})
	case 8:
		return m.enqueueCallback(c, func() {
			if m.Tool.Coolant != nil && m.canEnergize() {
				m.Tool.Coolant.SetFlood(true)
			}
		})
	case 9:
		return m.enqueueCallback(c, func() {
			if m.Tool.Coolant != nil {
				m.Tool.Coolant.SetMist(false)
				m.Tool.Coolant.SetFlood(false)
			}
		})
	case 48:
		c.M48Enable = true
		return nil
	case 49:
		c.M48Enable = false
		return nil
	case 50:
		c.MFOEnable = cmd.Word('P', 1) != 0
		if cmd.HasWord('P') && cmd.Word('P', 1) != 0 {
			c.MFOFactor = cmd.Word('P', 1)
		}
		return nil
	case 100:
		idx := int(cmd.Word('P', 0))
		on := cmd.Word('S', 0) != 0
		return m.enqueueCallback(c, func() {
			if m.Tool.Digital != nil {
				m.Tool.Digital.SetDigital(idx, on)
			}
		})
	case 102:
		idx := int(cmd.Word('P', 0))
		frac := cmd.Word('S', 0)
		return m.enqueueCallback(c, func() {
			if m.Tool.Digital != nil {
				m.Tool.Digital.SetPWM(idx, frac)
			}
		})
	}
	return nil
}
