package kinematics

import (
	"math"

	"motioncore/mcode"
)

// Anchor is a point in the machine's XY plane: either a frame-mounted
// anchor point for one winch cable, or a body-mounted attachment point on
// the moving sled, offset from the sled's own reference position. Z is
// handled as a separate direct-drive joint (see FourCable), the same way
// the grounding model treats it.
type Anchor struct {
	X, Y float64
}

// FourCable drives a sled suspended in a plane by four corner-mounted
// winches, with any remaining axes (Z, A, B, C, ...) driven by their own
// direct motor, grounded on g2core's FourCableKinematics
// (kinematics_four_cable.h): four fixed bodyPoints (cable attachment points
// on the sled) and four fixed framePoints (anchor points on the static
// frame), with each cable's ideal length the straight-line distance between
// the sled-offset body point and its frame anchor — not a least-squares
// solve. Motors 0-3 drive the cables A-D in that order; motors 4.. map 1:1
// to axes[2:] (Z first, then A, B, C as configured).
//
// Two correction mechanisms mirror the original's read_sensors() /
// compute_encoder_error(): ObserveTension feeds IdleTask's slack-relaxation
// moves from the per-cable analog tension sensors, and ObserveEncoderReading
// feeds the per-cable rotary ExternalEncoder correction path that detects
// cable skip by comparing accumulated spool rotation against the
// commanded cable length (see encoder.go).
type FourCable struct {
	axes        []int // axes[0]=X, axes[1]=Y, axes[2:]=other axes in joint order (Z, A, B, C, ...)
	bodyPoints  [4]Anchor
	framePoints [4]Anchor
	motors      []MotorGeometry // len 4+len(axes)-2: cables A-D, then one per axes[2:]
	limits      map[int]AxisGeometry

	pos          Vector
	cablePos     [4]float64 // ideal cable length, before stepper-offset correction
	stepperOffs  [4]float64 // cable_stepper_offset: accumulated encoder-error correction, in mm

	// EncoderCorrection enables the rotary-encoder skip-correction path
	// (see encoder.go); off by default since most builds don't carry the
	// extra sensors.
	EncoderCorrection bool
	encoders          [4]encoderState

	// Tension feedback, read by IdleTask to generate corrective slack
	// take-up moves when a cable reads below TensionFloor, mirroring
	// read_sensors()'s idle-time relaxation model.
	TensionFloor   float64
	tension        [4]float64
	correctionGain float64
}

// encoderState tracks one cable's ExternalEncoder-equivalent bookkeeping:
// accumulated rotation count, the sync state, and the offset needed to
// reconcile accumulated rotation with commanded cable position, mirroring
// cable_external_encoder_position/cable_encoder_offset/encoder_synced in
// kinematics_four_cable.h.
type encoderState struct {
	partial     float64 // 0..1 fraction of the most recent reading
	rotations   float64 // accumulated signed rotation count
	haveReading bool
	synced      bool
	offset      float64 // mm, cable_encoder_offset
	mmPerRev    float64 // external_encoder_mm_per_rev; sign encodes spool winding direction
	failedReads int
}

// NewFourCable builds a four-cable kinematics from the fixed body/frame
// anchor geometry and the per-motor steps-per-unit. axes must have at
// least 2 entries (X, Y); any entries beyond the first two are driven as
// direct joints (Z, A, B, C, ...), one motor each, following the cable
// motors in motors[4:].
func NewFourCable(axes []int, bodyPoints, framePoints [4]Anchor, stepsPerUnit []float64) *FourCable {
	f := &FourCable{
		axes:           axes,
		bodyPoints:     bodyPoints,
		framePoints:    framePoints,
		limits:         map[int]AxisGeometry{},
		correctionGain: 0.5,
	}
	f.motors = make([]MotorGeometry, len(stepsPerUnit))
	for i := range f.motors {
		f.motors[i] = MotorGeometry{AxisMap: -1, StepsPerUnit: stepsPerUnit[i]}
	}
	for i := range f.encoders {
		sign := 1.0
		if i%2 == 1 {
			sign = -1.0 // mirrors external_encoder_mm_per_rev's alternating A/C vs B/D sign
		}
		f.encoders[i].mmPerRev = sign
	}
	return f
}

func (f *FourCable) Name() string     { return "four_cable" }
func (f *FourCable) AxisNames() []int { return f.axes }

func (f *FourCable) SetAxisLimits(axis int, g AxisGeometry) { f.limits[axis] = g }

// SetEncoderMMPerRev configures cable i's spool mm-per-revolution constant
// (EXTERNAL_ENCODER_MM_PER_REV), including sign for winding direction.
func (f *FourCable) SetEncoderMMPerRev(cable int, mmPerRev float64) {
	if cable < 0 || cable >= 4 {
		return
	}
	f.encoders[cable].mmPerRev = mmPerRev
}

// cableLength is the straight-line distance from bodyPoints[i], offset by
// the sled's commanded XY position, to framePoints[i] — compute_cable_position's
// body_points_adj[i].distance_to(frame_points[i]).
func cableLength(body, frame Anchor, x, y float64) float64 {
	dx := body.X + x - frame.X
	dy := body.Y + y - frame.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func (f *FourCable) InverseKinematics(_ MotionState, target, _ Vector, _, _, _ float64) ([]int64, error) {
	x, y := target[f.axes[0]], target[f.axes[1]]
	for i := 0; i < 4; i++ {
		f.cablePos[i] = cableLength(f.bodyPoints[i], f.framePoints[i], x, y)
	}

	steps := make([]int64, len(f.motors))
	for i := 0; i < 4; i++ {
		steps[i] = round((f.cablePos[i] + f.stepperOffs[i]) * f.motors[i].StepsPerUnit)
	}
	for j, axis := range f.axes[2:] {
		motor := 4 + j
		if motor >= len(f.motors) {
			break
		}
		steps[motor] = round(target[axis]*f.motors[motor].StepsPerUnit + f.motors[motor].MotorOffset)
	}
	f.pos = target
	return steps, nil
}

// ForwardKinematics recovers the sled's XY position from the lengths of
// cables A and D, whose frame anchors lie on one edge of the frame, via the
// analytic circle-intersection solved in get_position(): the known baseline
// width between them lets X and Y be recovered without iterating, since the
// four cables overconstrain the two planar degrees of freedom.
func (f *FourCable) ForwardKinematics(steps []int64) (Vector, error) {
	if len(steps) < 4 {
		return Vector{}, ErrAxisNotConfigured
	}
	for i := 0; i < 4; i++ {
		f.cablePos[i] = float64(steps[i])/f.motors[i].StepsPerUnit - f.stepperOffs[i]
	}

	xBodyWidth := math.Abs(f.bodyPoints[3].X - f.bodyPoints[0].X)
	xFrameWidth := math.Abs(f.framePoints[3].X - f.framePoints[0].X)
	w := xFrameWidth - xBodyWidth

	a := f.cablePos[0]
	d := f.cablePos[3]

	e := math.Sqrt(math.Abs((a-d-w)*(a+d-w)*(a-d+w)*(a+d+w))) / (2.0 * w)
	g := math.Sqrt(a*a - e*e)

	var v Vector
	v[f.axes[0]] = (g + f.framePoints[0].X) - f.bodyPoints[0].X
	v[f.axes[1]] = (e + f.framePoints[0].Y) - f.bodyPoints[0].Y
	for j, axis := range f.axes[2:] {
		motor := 4 + j
		if motor >= len(steps) {
			break
		}
		v[axis] = (float64(steps[motor]) - f.motors[motor].MotorOffset) / f.motors[motor].StepsPerUnit
	}
	return v, nil
}

func (f *FourCable) CheckLimits(target Vector) error {
	for axis, g := range f.limits {
		if !g.Homed || g.TravelMin == g.TravelMax {
			continue
		}
		if target[axis] < g.TravelMin || target[axis] > g.TravelMax {
			return softLimitStatus(axis)
		}
	}
	return nil
}

func (f *FourCable) Configure(stepsPerUnit []float64, _ []int, currentSteps []int64, currentPosition Vector) error {
	if len(stepsPerUnit) < len(f.motors) {
		return ErrAxisNotConfigured
	}
	x, y := currentPosition[f.axes[0]], currentPosition[f.axes[1]]
	for i := 0; i < 4; i++ {
		f.motors[i].StepsPerUnit = stepsPerUnit[i]
		length := cableLength(f.bodyPoints[i], f.framePoints[i], x, y)
		f.cablePos[i] = length
	}
	for j, axis := range f.axes[2:] {
		motor := 4 + j
		if motor >= len(f.motors) {
			break
		}
		f.motors[motor].StepsPerUnit = stepsPerUnit[motor]
		f.motors[motor].MotorOffset = float64(currentSteps[motor]) - currentPosition[axis]*stepsPerUnit[motor]
	}
	f.pos = currentPosition
	return nil
}

// SyncEncoders re-derives the per-cable stepper offset so the current step
// position maps exactly to the given axis position, and marks every
// rotary encoder unsynced so the next read re-establishes its offset —
// mirroring sync_encoders() setting encoder_synced[cable]=false.
func (f *FourCable) SyncEncoders(stepPosition []int64, position Vector) error {
	x, y := position[f.axes[0]], position[f.axes[1]]
	for i := 0; i < 4; i++ {
		length := cableLength(f.bodyPoints[i], f.framePoints[i], x, y)
		f.stepperOffs[i] = float64(stepPosition[i])/f.motors[i].StepsPerUnit - length
		f.cablePos[i] = length
		f.encoders[i].synced = false
	}
	for j, axis := range f.axes[2:] {
		motor := 4 + j
		if motor >= len(f.motors) || motor >= len(stepPosition) {
			break
		}
		f.motors[motor].MotorOffset = float64(stepPosition[motor]) - position[axis]*f.motors[motor].StepsPerUnit
	}
	f.pos = position
	return nil
}

// ObserveTension records a strain-gauge reading for cable i, consumed by
// IdleTask on the next call, mirroring read_sensors()'s raw_sensor_value
// normalization (the actual volts-to-pounds scaling is assumed to already
// be applied by the caller).
func (f *FourCable) ObserveTension(cable int, value float64) {
	if cable < 0 || cable >= 4 {
		return
	}
	f.tension[cable] = value
}

// IdleTask generates a small corrective motor move for any cable whose
// tension reads below TensionFloor (slack take-up), mirroring
// read_sensors()'s idle-time relaxation model; the encoder-skip correction
// itself is folded into cablePos/stepperOffs synchronously by
// ObserveEncoderReading (see encoder.go), so it does not need a separate
// IdleTask branch.
func (f *FourCable) IdleTask() ([]int64, bool) {
	if f.TensionFloor <= 0 {
		return nil, false
	}
	steps := make([]int64, len(f.motors))
	any := false
	for i, t := range f.tension {
		if t >= f.TensionFloor {
			continue
		}
		delta := (f.TensionFloor - t) * f.correctionGain
		steps[i] = round(delta * f.motors[i].StepsPerUnit)
		any = true
	}
	if !any {
		return nil, false
	}
	return steps, true
}

// encoderResyncAfterFailures and encoderAlarmAfterFailures mirror
// compute_encoder_error()'s ">15"/">30" consecutive-missed-read thresholds:
// after more than 15 reads with no data (the 16th) the cable is marked
// unsynced (its offset must be re-established); after more than 30 (the
// 31st), a fault is raised.
const (
	encoderResyncAfterFailures = 15
	encoderAlarmAfterFailures  = 30
)

// ObserveEncoderReading feeds one rotary-encoder poll for cable i (see
// encoder.go's AS5601 driver) into the skip-correction path, grounded on
// compute_encoder_error(). fraction is the sensor's current
// angle-as-fraction-of-one-rotation (0..1, wrapping); ok reports whether
// the poll actually returned data. Returns a non-nil *mcode.Status only
// once the encoder has gone more than encoderAlarmAfterFailures consecutive
// reads without data, mirroring cm_alarm(STAT_ENCODER_ASSERTION_FAILURE, ...).
func (f *FourCable) ObserveEncoderReading(cable int, fraction float64, ok bool) *mcode.Status {
	if !f.EncoderCorrection || cable < 0 || cable >= 4 {
		return nil
	}
	enc := &f.encoders[cable]

	if !ok {
		enc.failedReads++
		if enc.failedReads > encoderResyncAfterFailures {
			enc.synced = false
		}
		if enc.failedReads > encoderAlarmAfterFailures {
			return mcode.New(mcode.EncoderFault, "cable encoder stopped returning values")
		}
		return nil
	}
	enc.failedReads = 0

	// Wraparound-aware accumulation: a poll can only have moved by less
	// than half a rotation, so the shorter signed diff across the 0/1
	// boundary is always the real one.
	if enc.haveReading {
		diff := fraction - enc.partial
		switch {
		case diff < -0.5:
			diff += 1.0
		case diff > 0.5:
			diff -= 1.0
		}
		enc.rotations += diff
	}
	enc.partial = fraction
	enc.haveReading = true

	mm := enc.rotations * enc.mmPerRev

	if enc.synced {
		mm += enc.offset
		lo, hi := f.cablePos[cable], f.cablePos[cable]
		// cable_position at the start of this segment vs. now; without a
		// separate prev_cable_position this uses the current value for
		// both bounds, the degenerate (idle, not mid-segment) case.
		errOffset := 0.0
		switch {
		case mm < lo:
			errOffset = mm - lo
		case mm > hi:
			errOffset = mm - hi
		}

		if math.Abs(errOffset) > math.Abs(enc.mmPerRev) {
			// Off by more than one full rotation: resync instead of
			// applying a wild correction.
			enc.synced = false
		} else {
			adjust := errOffset * 0.001
			f.cablePos[cable] += adjust
			f.stepperOffs[cable] -= adjust
		}
	} else if math.Abs(f.tension[cable]) > 1 {
		// Once the cable carries some minimal load, anchor the encoder's
		// accumulated rotation to the current commanded cable position.
		enc.synced = true
		enc.offset = f.cablePos[cable] - mm
	}

	return nil
}
