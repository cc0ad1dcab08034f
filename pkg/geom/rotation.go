package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// parallelEpsilon is the cross-product length below which two directions
// are treated as parallel.
const parallelEpsilon = 1e-9

// IdentityRotation returns the rotation that leaves every vector unchanged.
func IdentityRotation() r3.Rotation {
	return r3.Rotation(quat.Number{Real: 1})
}

// normalize returns r scaled to unit length. The zero quaternion is treated
// as the identity so that zero-value poses behave.
func normalize(r r3.Rotation) r3.Rotation {
	q := quat.Number(r)
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) {
		return IdentityRotation()
	}
	return r3.Rotation(quat.Scale(1/n, q))
}

// Rotate applies r to v.
func Rotate(r r3.Rotation, v Vec) Vec {
	return normalize(r).Rotate(v)
}

// Compose returns the rotation that applies b first and then a.
func Compose(a, b r3.Rotation) r3.Rotation {
	return normalize(r3.Rotation(quat.Mul(quat.Number(normalize(a)), quat.Number(normalize(b)))))
}

// Inverse returns the rotation undoing r.
func Inverse(r r3.Rotation) r3.Rotation {
	return r3.Rotation(quat.Conj(quat.Number(normalize(r))))
}

// LookRotation returns the rotation that maps +Z onto forward and +Y onto
// the component of up orthogonal to forward. When up is parallel to forward
// a perpendicular substitute is chosen. A zero forward yields the identity.
func LookRotation(forward, up Vec) r3.Rotation {
	if r3.Norm(forward) < parallelEpsilon {
		return IdentityRotation()
	}
	f := r3.Unit(forward)
	right := r3.Cross(up, f)
	if r3.Norm(right) < parallelEpsilon {
		alt := Up
		if math.Abs(f.Y) > 0.9 {
			alt = Vec{Z: -1}
		}
		right = r3.Cross(alt, f)
	}
	right = r3.Unit(right)
	u := r3.Cross(f, right)
	return fromBasis(right, u, f)
}

// fromBasis converts the orthonormal basis (columns x, y, z) into a quaternion.
func fromBasis(x, y, z Vec) r3.Rotation {
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z

	var q quat.Number
	trace := m00 + m11 + m22
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		q = quat.Number{Real: 0.25 / s, Imag: (m21 - m12) * s, Jmag: (m02 - m20) * s, Kmag: (m10 - m01) * s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: 0.25 * s, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: 0.25 * s, Kmag: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: 0.25 * s}
	}
	return normalize(r3.Rotation(q))
}

// Euler returns angles (radians) about X, Y and Z such that applying X, then
// Y, then Z reproduces r. This is the order Rz·Ry·Rx used by the SDF kernel.
func Euler(r r3.Rotation) (x, y, z float64) {
	cx := Rotate(r, Right)
	cy := Rotate(r, Up)
	cz := Rotate(r, Forward)

	sy := -cx.Z
	if sy > 1 {
		sy = 1
	} else if sy < -1 {
		sy = -1
	}
	y = math.Asin(sy)
	if math.Cos(y) > 1e-6 {
		x = math.Atan2(cy.Z, cz.Z)
		z = math.Atan2(cx.Y, cx.X)
		return x, y, z
	}
	// Gimbal lock: fold the Z rotation into X.
	x = math.Atan2(-cz.Y, cy.Y)
	return x, y, 0
}

// SameRotation reports whether a and b rotate the basis vectors to within tol.
func SameRotation(a, b r3.Rotation, tol float64) bool {
	for _, axis := range []Vec{Right, Up, Forward} {
		if !ApproxEqual(Rotate(a, axis), Rotate(b, axis), tol) {
			return false
		}
	}
	return true
}
