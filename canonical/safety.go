package canonical

import "motioncore/safety"

// AttachSafety wires s as this machine's safety gate: motion enqueue and
// spindle/coolant energization now check it, and its interlock/e-stop/
// shutdown/panic callbacks drive the machine into the matching state.
func (m *Machine) AttachSafety(s *safety.Manager) {
	m.Safety = s
	s.OnInterlock = func() {
		m.MachineState = MachineInterlock
		m.RequestFeedhold()
	}
	s.OnInterlockRestored = func() {
		m.RequestResume()
	}
	s.OnEStop = func() {
		m.MachineState = MachineAlarm
		m.RequestFeedhold()
		m.FlushAlarm()
	}
	s.OnShutdown = func() {
		m.MachineState = MachineShutdown
		m.FlushAlarm()
	}
	s.OnPanic = func() {
		m.MachineState = MachinePanic
		m.FlushAlarm()
	}
}

// FeedholdMotionStopped notifies the attached safety gate that a feedhold
// triggered by an interlock-open event has fully stopped the runtime —
// the LO-tier caller invokes this as AdvanceHold's onEnterHold callback
// (HoldActionsPending), mirroring g2core calling
// start_interlock_after_feedhold() once feedhold motion is actually done.
func (m *Machine) FeedholdMotionStopped() {
	if m.Safety != nil {
		m.Safety.StartInterlockAfterFeedhold()
	}
}

// CycleRestartComplete notifies the attached safety gate that a cycle
// restart requested by OnInterlockRestored has completed — the LO-tier
// caller invokes this as AdvanceHold's onExitHold callback
// (HoldExitActionsComplete), mirroring end_interlock_after_feedhold().
func (m *Machine) CycleRestartComplete() {
	if m.Safety != nil {
		m.Safety.EndInterlockAfterFeedhold()
	}
}

// canStartMotion reports whether the safety gate (if any) permits motion
// to begin; a machine with no attached safety manager is unrestricted.
func (m *Machine) canStartMotion() bool {
	return m.Safety == nil || m.Safety.CanStartMotion()
}

func (m *Machine) canEnergize() bool {
	return m.Safety == nil || m.Safety.CanEnergize()
}

// FlushAlarm discards every non-running block in both contexts'
// planners unconditionally, per the spec's "alarm-induced flush discards
// all non-running blocks unconditionally" rule. The running block (if
// any) still completes its own deceleration; that is the runtime
// coordinator's responsibility, not the queue's.
func (m *Machine) FlushAlarm() {
	m.cm1.Planner.Flush()
	m.cm2.Planner.Flush()
}

// RequestQueueFlush is the user-initiated flush path: gated by the safety
// manager's can_queue_flush(), unlike FlushAlarm.
func (m *Machine) RequestQueueFlush() error {
	if m.Safety != nil && !m.Safety.CanQueueFlush() {
		return ErrQueueFlushBlocked
	}
	m.active.Planner.Flush()
	return nil
}
