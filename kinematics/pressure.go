package kinematics

// PressureRegulated extends a direct Cartesian mapping with one extra
// motor that doesn't follow axis position at all: it drives a regulator
// (valve or pump) to hold a commanded pressure steady, read from a
// transducer via ObservePressure. The regulator motor's IdleTask output is
// a PID-style correction, run whenever the planner queue empties (the
// spec's only call point for idle_task).
//
// Grounded on Cartesian for the positional axes and on the teacher's
// core/pwm.go tick-ramp style (as used by toolhead's spindle ramp) for the
// integral/derivative bookkeeping pattern, generalized from a fixed ramp
// target to a closed-loop setpoint.
type PressureRegulated struct {
	*Cartesian
	regulatorMotor MotorGeometry

	SetpointKPa float64
	measured    float64
	haveSample  bool

	Kp, Ki, Kd float64
	integral   float64
	lastErr    float64
	haveLast   bool

	// OutputLimit bounds the per-idle-tick regulator step correction.
	OutputLimit int64
}

// NewPressureRegulated builds a pressure-regulated kinematics: axes/
// stepsPerUnit describe the positional motors exactly as for Cartesian,
// regulatorStepsPerUnit scales PID output (percent-open, say) to motor
// steps.
func NewPressureRegulated(axes []int, stepsPerUnit []float64, regulatorStepsPerUnit float64) *PressureRegulated {
	return &PressureRegulated{
		Cartesian:      NewCartesian(axes, stepsPerUnit),
		regulatorMotor: MotorGeometry{AxisMap: -1, StepsPerUnit: regulatorStepsPerUnit},
		Kp:             1.0,
		OutputLimit:    200,
	}
}

func (p *PressureRegulated) Name() string { return "pressure" }

func (p *PressureRegulated) InverseKinematics(ms MotionState, target, position Vector, startV, endV, segTime float64) ([]int64, error) {
	steps, err := p.Cartesian.InverseKinematics(ms, target, position, startV, endV, segTime)
	if err != nil {
		return nil, err
	}
	return append(steps, 0), nil
}

func (p *PressureRegulated) ForwardKinematics(steps []int64) (Vector, error) {
	if len(steps) < 1 {
		return Vector{}, ErrAxisNotConfigured
	}
	return p.Cartesian.ForwardKinematics(steps[:len(steps)-1])
}

// ObservePressure records a transducer reading in kPa for the next
// IdleTask correction.
func (p *PressureRegulated) ObservePressure(kPa float64) {
	p.measured = kPa
	p.haveSample = true
}

// IdleTask runs one PID step toward SetpointKPa and returns the
// corresponding regulator-motor step delta. Positional motors never move
// during idle correction, so their deltas are always zero.
func (p *PressureRegulated) IdleTask() ([]int64, bool) {
	if !p.haveSample || p.SetpointKPa == 0 {
		return nil, false
	}
	errVal := p.SetpointKPa - p.measured
	p.integral += errVal
	deriv := 0.0
	if p.haveLast {
		deriv = errVal - p.lastErr
	}
	p.lastErr = errVal
	p.haveLast = true

	output := p.Kp*errVal + p.Ki*p.integral + p.Kd*deriv
	delta := round(output * p.regulatorMotor.StepsPerUnit)
	if delta > p.OutputLimit {
		delta = p.OutputLimit
	} else if delta < -p.OutputLimit {
		delta = -p.OutputLimit
	}
	if delta == 0 {
		return nil, false
	}

	steps := make([]int64, len(p.Cartesian.AxisNames())+1)
	steps[len(steps)-1] = delta
	return steps, true
}
