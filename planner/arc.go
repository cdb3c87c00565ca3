package planner

import "github.com/orsinium-labs/tinymath"

// ArcToSegments expands a G2/G3 arc (center-offset form) into the XY end
// points of a run of chords whose chord error never exceeds tolerance. It
// returns points, not Blocks, and zStart and zEnd are not used, so no
// helical Z is interpolated. Nothing in the module calls it: the canonical
// machine plans G2/G3 moves as single straight blocks.
func ArcToSegments(start, end, center [2]float64, clockwise bool, zStart, zEnd float64, tolerance float64) [][2]float64 {
	r := tsqrt(sq(start[0]-center[0]) + sq(start[1]-center[1]))
	if r <= 0 {
		return [][2]float64{end}
	}

	startAngle := atan2(start[1]-center[1], start[0]-center[0])
	endAngle := atan2(end[1]-center[1], end[0]-center[0])

	sweep := endAngle - startAngle
	if clockwise {
		for sweep >= 0 {
			sweep -= 2 * 3.141592653589793
		}
	} else {
		for sweep <= 0 {
			sweep += 2 * 3.141592653589793
		}
	}

	// Chordal tolerance: max angular step theta such that
	// r*(1-cos(theta/2)) <= tolerance.
	maxTheta := 2 * acos(1-tolerance/r)
	if maxTheta <= 0 || maxTheta != maxTheta { // NaN guard when tolerance >= 2r
		maxTheta = 0.1
	}

	segCount := int(absf(sweep)/maxTheta) + 1
	points := make([][2]float64, 0, segCount)
	for i := 1; i <= segCount; i++ {
		frac := float64(i) / float64(segCount)
		angle := startAngle + sweep*frac
		x := center[0] + r*cos(angle)
		y := center[1] + r*sin(angle)
		points = append(points, [2]float64{x, y})
	}
	return points
}

func sq(x float64) float64 { return x * x }

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func atan2(y, x float64) float64 { return float64(tinymath.Atan2(float32(y), float32(x))) }
func acos(x float64) float64     { return float64(tinymath.Acos(float32(x))) }
func cos(x float64) float64      { return float64(tinymath.Cos(float32(x))) }
func sin(x float64) float64      { return float64(tinymath.Sin(float32(x))) }
