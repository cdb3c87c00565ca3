package kinematics

// Cartesian is the direct axis-to-motor mapping: one motor per linear axis,
// steps = position * StepsPerUnit + MotorOffset. Grounded on the teacher's
// standalone/kinematics/cartesian.go, generalized from a fixed XYZ trio to
// an arbitrary axis list so it can also back a gantry's shared-axis motors.
type Cartesian struct {
	axes   []int
	motors []MotorGeometry
	limits map[int]AxisGeometry
	pos    Vector
}

// NewCartesian builds a Cartesian kinematics for the given axis indices,
// one motor per axis in the order given.
func NewCartesian(axes []int, stepsPerUnit []float64) *Cartesian {
	motors := make([]MotorGeometry, len(axes))
	for i, ax := range axes {
		motors[i] = MotorGeometry{AxisMap: ax, StepsPerUnit: stepsPerUnit[i]}
	}
	return &Cartesian{axes: axes, motors: motors, limits: map[int]AxisGeometry{}}
}

func (c *Cartesian) Name() string    { return "cartesian" }
func (c *Cartesian) AxisNames() []int { return c.axes }

// SetAxisLimits installs the soft-limit geometry for an axis. The settings
// package registers no travel-limit tokens that call it.
func (c *Cartesian) SetAxisLimits(axis int, g AxisGeometry) {
	c.limits[axis] = g
}

func (c *Cartesian) InverseKinematics(_ MotionState, target, _ Vector, _, _, _ float64) ([]int64, error) {
	steps := make([]int64, len(c.motors))
	for i, m := range c.motors {
		steps[i] = round(target[m.AxisMap]*m.StepsPerUnit + m.MotorOffset)
	}
	c.pos = target
	return steps, nil
}

func (c *Cartesian) ForwardKinematics(steps []int64) (Vector, error) {
	var v Vector
	for i, m := range c.motors {
		if i >= len(steps) {
			return v, ErrAxisNotConfigured
		}
		v[m.AxisMap] = (float64(steps[i]) - m.MotorOffset) / m.StepsPerUnit
	}
	return v, nil
}

// CheckLimits applies spec §3's soft-limit predicate: an axis is checked
// only when homed and its travel_min != travel_max.
func (c *Cartesian) CheckLimits(target Vector) error {
	for axis, g := range c.limits {
		if !g.Homed || g.TravelMin == g.TravelMax {
			continue
		}
		if target[axis] < g.TravelMin || target[axis] > g.TravelMax {
			return softLimitStatus(axis)
		}
	}
	return nil
}

func (c *Cartesian) Configure(stepsPerUnit []float64, motorMap []int, currentSteps []int64, currentPosition Vector) error {
	if len(stepsPerUnit) != len(c.motors) {
		return ErrAxisNotConfigured
	}
	for i := range c.motors {
		c.motors[i].StepsPerUnit = stepsPerUnit[i]
		if motorMap != nil {
			c.motors[i].AxisMap = motorMap[i]
		}
		c.motors[i].MotorOffset = float64(currentSteps[i]) - currentPosition[c.motors[i].AxisMap]*stepsPerUnit[i]
	}
	return nil
}

func (c *Cartesian) SyncEncoders(stepPosition []int64, position Vector) error {
	for i := range c.motors {
		c.motors[i].MotorOffset = float64(stepPosition[i]) - position[c.motors[i].AxisMap]*c.motors[i].StepsPerUnit
	}
	c.pos = position
	return nil
}

// IdleTask is a no-op for plain Cartesian kinematics: there is no
// corrective feedback loop to run between moves.
func (c *Cartesian) IdleTask() ([]int64, bool) { return nil, false }

func round(f float64) int64 {
	if f >= 0 {
		return int64(f + 0.5)
	}
	return int64(f - 0.5)
}
