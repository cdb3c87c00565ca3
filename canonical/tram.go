package canonical

import (
	"errors"

	"github.com/orsinium-labs/tinymath"

	"motioncore/kinematics"
)

// RecordProbeResult appends a successful probe hit, consumed by SetTram
// once three are available. The spec caps stored results at PROBES_STORED;
// three is the only count tram ever needs, so the ring just keeps the last
// three.
func (m *Machine) RecordProbeResult(v kinematics.Vector) {
	m.ProbeResults = append(m.ProbeResults, v)
	if len(m.ProbeResults) > 3 {
		m.ProbeResults = m.ProbeResults[len(m.ProbeResults)-3:]
	}
}

var ErrNotEnoughProbes = errors.New("canonical: tram requires three probe results")

// SetTram computes the machine's rotation matrix from the three most
// recent probe results when enable is true, or resets it to identity when
// enable is false (per "Clearing tram sets the matrix to identity").
//
// The normal vector is the cross product of two edge vectors formed from
// the three probe points; it is rotated onto +Z via the shortest-arc
// quaternion between the measured normal and +Z, which is then converted
// to a 3x3 rotation matrix. rotation_z_offset is the Z of the first probe
// point after rotation, i.e. the height at which every point of the probed
// plane lands once rotated. It is stored only: target() applies the matrix
// and does not subtract this offset.
func (m *Machine) SetTram(enable bool) error {
	if !enable {
		m.cm1.RotationMatrix = identity3x3()
		m.cm1.RotationZOffset = 0
		m.cm2.RotationMatrix = identity3x3()
		m.cm2.RotationZOffset = 0
		return nil
	}
	if len(m.ProbeResults) < 3 {
		return ErrNotEnoughProbes
	}
	p0, p1, p2 := m.ProbeResults[0], m.ProbeResults[1], m.ProbeResults[2]

	e1 := sub3(p1, p0)
	e2 := sub3(p2, p0)
	normal := cross3(e1, e2)
	normal = normalize3(normal)
	if normal[2] < 0 {
		normal[0], normal[1], normal[2] = -normal[0], -normal[1], -normal[2]
	}

	q := shortestArcQuaternion(normal, [3]float64{0, 0, 1})
	rot := quaternionToMatrix(q)

	m.cm1.RotationMatrix = rot
	m.cm2.RotationMatrix = rot

	rotated := applyRotation(rot, p0)
	m.cm1.RotationZOffset = rotated[2]
	m.cm2.RotationZOffset = rotated[2]
	return nil
}

func sub3(a, b kinematics.Vector) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross3(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize3(v [3]float64) [3]float64 {
	length := float64(tinymath.Sqrt(float32(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if length == 0 {
		return v
	}
	return [3]float64{v[0] / length, v[1] / length, v[2] / length}
}

type quaternion struct{ w, x, y, z float64 }

// shortestArcQuaternion returns the unit quaternion rotating unit vector
// from onto unit vector to by the shortest arc.
func shortestArcQuaternion(from, to [3]float64) quaternion {
	dot := from[0]*to[0] + from[1]*to[1] + from[2]*to[2]
	if dot > 0.999999 {
		return quaternion{1, 0, 0, 0}
	}
	if dot < -0.999999 {
		// 180 degree rotation: pick any axis orthogonal to `from`.
		axis := cross3(from, [3]float64{1, 0, 0})
		if vecLen(axis) < 1e-6 {
			axis = cross3(from, [3]float64{0, 1, 0})
		}
		axis = normalize3(axis)
		return quaternion{0, axis[0], axis[1], axis[2]}
	}
	axis := cross3(from, to)
	w := 1 + dot
	q := quaternion{w, axis[0], axis[1], axis[2]}
	return normalizeQuat(q)
}

func vecLen(v [3]float64) float64 {
	return float64(tinymath.Sqrt(float32(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
}

func normalizeQuat(q quaternion) quaternion {
	n := float64(tinymath.Sqrt(float32(q.w*q.w + q.x*q.x + q.y*q.y + q.z*q.z)))
	if n == 0 {
		return quaternion{1, 0, 0, 0}
	}
	return quaternion{q.w / n, q.x / n, q.y / n, q.z / n}
}

func quaternionToMatrix(q quaternion) [3][3]float64 {
	w, x, y, z := q.w, q.x, q.y, q.z
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	}
}
