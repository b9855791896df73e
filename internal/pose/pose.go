// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pose holds the value types shared by the alignment, fusion and
// frame packages: poses, tracker stability and tracker samples.
package pose

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is a position plus a unit rotation. Values are never mutated in place.
type Pose struct {
	Position r3.Vec
	Rotation quat.Number
}

// Identity returns the pose with zero position and identity rotation.
func Identity() Pose {
	return Pose{Rotation: IdentityRotation()}
}

// IsIdentity reports whether p is exactly the identity pose.
func (p Pose) IsIdentity() bool {
	return p.Position == (r3.Vec{}) && p.Rotation == IdentityRotation()
}

// Then returns the pose obtained by applying local in the frame of p,
// i.e. p * local.
func (p Pose) Then(local Pose) Pose {
	return Pose{
		Position: r3.Add(p.Position, Rotate(p.Rotation, local.Position)),
		Rotation: Normalize(quat.Mul(p.Rotation, local.Rotation)),
	}
}

// Inverse returns the pose q such that p.Then(q) is the identity.
func (p Pose) Inverse() Pose {
	inv := Inverse(p.Rotation)
	return Pose{
		Position: Rotate(inv, r3.Scale(-1, p.Position)),
		Rotation: inv,
	}
}

// TransformPoint maps a point from the local space of p into the parent space.
func (p Pose) TransformPoint(v r3.Vec) r3.Vec {
	return r3.Add(p.Position, Rotate(p.Rotation, v))
}

// InverseTransformPoint maps a point from the parent space into the local
// space of p.
func (p Pose) InverseTransformPoint(v r3.Vec) r3.Vec {
	return Rotate(Inverse(p.Rotation), r3.Sub(v, p.Position))
}
