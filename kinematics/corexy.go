package kinematics

// CoreXY couples the X/Y belts through two motors, A and B, driven by
// A = X+Y, B = X-Y. Z and any remaining axes fall back to a direct
// Cartesian mapping. There is no CoreXY variant in the teacher repo; this
// is built fresh following the same MotorGeometry/offset bookkeeping style
// as Cartesian so the two variants stay interchangeable behind the
// Kinematics interface.
type CoreXY struct {
	xyMotors  [2]MotorGeometry // [0]=A, [1]=B
	xAxis     int
	yAxis     int
	extra     *Cartesian // remaining axes (Z, rotaries, ...)
	limits    map[int]AxisGeometry
}

// NewCoreXY builds a CoreXY kinematics. extraAxes/extraStepsPerUnit cover
// any axes beyond X/Y (typically Z).
func NewCoreXY(xAxis, yAxis int, stepsPerUnitA, stepsPerUnitB float64, extraAxes []int, extraStepsPerUnit []float64) *CoreXY {
	k := &CoreXY{
		xyMotors: [2]MotorGeometry{
			{AxisMap: xAxis, StepsPerUnit: stepsPerUnitA},
			{AxisMap: yAxis, StepsPerUnit: stepsPerUnitB},
		},
		xAxis:  xAxis,
		yAxis:  yAxis,
		extra:  NewCartesian(extraAxes, extraStepsPerUnit),
		limits: map[int]AxisGeometry{},
	}
	return k
}

func (k *CoreXY) Name() string { return "corexy" }

func (k *CoreXY) AxisNames() []int {
	return append([]int{k.xAxis, k.yAxis}, k.extra.AxisNames()...)
}

func (k *CoreXY) SetAxisLimits(axis int, g AxisGeometry) {
	k.limits[axis] = g
	k.extra.SetAxisLimits(axis, g)
}

func (k *CoreXY) InverseKinematics(ms MotionState, target, position Vector, startV, endV, segTime float64) ([]int64, error) {
	x, y := target[k.xAxis], target[k.yAxis]
	a := round((x + y) * k.xyMotors[0].StepsPerUnit + k.xyMotors[0].MotorOffset)
	b := round((x - y) * k.xyMotors[1].StepsPerUnit + k.xyMotors[1].MotorOffset)

	extraSteps, err := k.extra.InverseKinematics(ms, target, position, startV, endV, segTime)
	if err != nil {
		return nil, err
	}
	return append([]int64{a, b}, extraSteps...), nil
}

func (k *CoreXY) ForwardKinematics(steps []int64) (Vector, error) {
	if len(steps) < 2 {
		return Vector{}, ErrAxisNotConfigured
	}
	a := (float64(steps[0]) - k.xyMotors[0].MotorOffset) / k.xyMotors[0].StepsPerUnit
	b := (float64(steps[1]) - k.xyMotors[1].MotorOffset) / k.xyMotors[1].StepsPerUnit

	var v Vector
	v[k.xAxis] = (a + b) / 2
	v[k.yAxis] = (a - b) / 2

	extra, err := k.extra.ForwardKinematics(steps[2:])
	if err != nil {
		return v, err
	}
	for _, ax := range k.extra.AxisNames() {
		v[ax] = extra[ax]
	}
	return v, nil
}

func (k *CoreXY) CheckLimits(target Vector) error {
	for axis, g := range k.limits {
		if !g.Homed || g.TravelMin == g.TravelMax {
			continue
		}
		if target[axis] < g.TravelMin || target[axis] > g.TravelMax {
			return softLimitStatus(axis)
		}
	}
	return nil
}

func (k *CoreXY) Configure(stepsPerUnit []float64, motorMap []int, currentSteps []int64, currentPosition Vector) error {
	if len(stepsPerUnit) < 2 {
		return ErrAxisNotConfigured
	}
	x, y := currentPosition[k.xAxis], currentPosition[k.yAxis]
	k.xyMotors[0].StepsPerUnit = stepsPerUnit[0]
	k.xyMotors[1].StepsPerUnit = stepsPerUnit[1]
	k.xyMotors[0].MotorOffset = float64(currentSteps[0]) - (x+y)*stepsPerUnit[0]
	k.xyMotors[1].MotorOffset = float64(currentSteps[1]) - (x-y)*stepsPerUnit[1]
	if len(stepsPerUnit) > 2 {
		return k.extra.Configure(stepsPerUnit[2:], motorMapTail(motorMap), currentSteps[2:], currentPosition)
	}
	return nil
}

func (k *CoreXY) SyncEncoders(stepPosition []int64, position Vector) error {
	x, y := position[k.xAxis], position[k.yAxis]
	k.xyMotors[0].MotorOffset = float64(stepPosition[0]) - (x+y)*k.xyMotors[0].StepsPerUnit
	k.xyMotors[1].MotorOffset = float64(stepPosition[1]) - (x-y)*k.xyMotors[1].StepsPerUnit
	if len(stepPosition) > 2 {
		return k.extra.SyncEncoders(stepPosition[2:], position)
	}
	return nil
}

func (k *CoreXY) IdleTask() ([]int64, bool) { return nil, false }

func motorMapTail(m []int) []int {
	if len(m) <= 2 {
		return nil
	}
	return m[2:]
}
