package pose

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// slerpDotThreshold is where Slerp falls back to normalized lerp.
const slerpDotThreshold = 0.9995

// IdentityRotation returns the unit quaternion for no rotation.
func IdentityRotation() quat.Number {
	return quat.Number{Real: 1}
}

// AxisAngle returns the rotation of angle radians around axis.
func AxisAngle(axis r3.Vec, angle float64) quat.Number {
	if angle == 0 || r3.Norm(axis) == 0 {
		return IdentityRotation()
	}
	return quat.Number(r3.NewRotation(angle, axis))
}

// Normalize scales q to unit length. The zero quaternion maps to identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return IdentityRotation()
	}
	if n == 1 {
		return q
	}
	return quat.Scale(1/n, q)
}

// Inverse returns the inverse of a unit rotation.
func Inverse(q quat.Number) quat.Number {
	return quat.Conj(Normalize(q))
}

// Rotate applies the rotation q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	return r3.Rotation(Normalize(q)).Rotate(v)
}

// Dot is the four-dimensional dot product of a and b.
func Dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// Angle returns the angle in radians of the rotation taking a onto b.
// q and -q describe the same rotation and yield 0.
func Angle(a, b quat.Number) float64 {
	d := math.Abs(Dot(Normalize(a), Normalize(b)))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

// Slerp interpolates between unit rotations a and b along the shortest arc.
func Slerp(a, b quat.Number, t float64) quat.Number {
	a = Normalize(a)
	b = Normalize(b)
	d := Dot(a, b)
	if d < 0 {
		b = quat.Scale(-1, b)
		d = -d
	}
	if d > slerpDotThreshold {
		return Normalize(quat.Add(a, quat.Scale(t, quat.Sub(b, a))))
	}
	theta := math.Acos(d)
	sin := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	return Normalize(quat.Add(quat.Scale(wa, a), quat.Scale(wb, b)))
}

// Integrate advances q by the body-frame angular velocity omega (rad/s)
// over dt seconds.
func Integrate(q quat.Number, omega r3.Vec, dt float64) quat.Number {
	rate := r3.Norm(omega)
	if rate == 0 || dt == 0 {
		return Normalize(q)
	}
	return Normalize(quat.Mul(q, AxisAngle(omega, rate*dt)))
}

// AngularVelocity is the body-frame angular velocity (rad/s) that takes
// from to to in dt seconds. It is the inverse of Integrate.
func AngularVelocity(from, to quat.Number, dt float64) r3.Vec {
	if dt <= 0 {
		return r3.Vec{}
	}
	d := Normalize(quat.Mul(Inverse(from), to))
	if d.Real < 0 {
		d = quat.Scale(-1, d)
	}
	axis := r3.Vec{X: d.Imag, Y: d.Jmag, Z: d.Kmag}
	s := r3.Norm(axis)
	if s < 1e-12 {
		return r3.Vec{}
	}
	angle := 2 * math.Atan2(s, d.Real)
	return r3.Scale(angle/(s*dt), axis)
}
