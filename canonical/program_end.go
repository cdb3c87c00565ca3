package canonical

// TemperatureController is the minimal surface canonical needs to reset
// heaters at program end; left outside this package's scope (a board's
// temperature controllers are configured and driven elsewhere), so it's an
// interface canonical calls through rather than owns.
type TemperatureController interface {
	ResetAll()
}

// Temperature is wired by whatever owns the board's heater loop, or left
// nil for a machine with no heaters (laser/router builds).
var Temperature TemperatureController

// programEnd implements M2/M30 as a single queued command, so it takes
// effect only after every preceding motion block has actually run: restore
// default coordinate system/plane/distance/feed-rate mode, suspend G92,
// cancel motion mode, re-enable overrides, stop spindle/coolant, reset
// temperature controllers, and request a final status report.
func (m *Machine) programEnd(c *Context) error {
	onRequestStatus := m.OnFinalStatusReport
	return m.enqueueCallback(c, func() {
		c.GM = m.defaults
		c.G92OffsetOn = false
		c.M48Enable = true
		c.MFOEnable = false
		c.MTOEnable = false

		if m.Tool.Spindle != nil {
			m.Tool.Spindle.Pause()
		}
		if m.Tool.Coolant != nil {
			m.Tool.Coolant.SetMist(false)
			m.Tool.Coolant.SetFlood(false)
		}
		if Temperature != nil {
			Temperature.ResetAll()
		}
		m.MachineState = MachineProgramEnd
		if onRequestStatus != nil {
			onRequestStatus()
		}
	})
}

// SetFinalStatusReportHook wires the status reporter's force-next-report
// callback so programEnd's queued effect can request the final report the
// spec requires.
func (m *Machine) SetFinalStatusReportHook(fn func()) { m.OnFinalStatusReport = fn }
