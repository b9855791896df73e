// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package frames owns the anchor/aligned/sensor-pose frame chain and applies
// the alignment and fusion results to the aligned frame once per tick.
package frames

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// ErrHierarchy reports a frame chain that cannot host the aligned frame.
var ErrHierarchy = errors.New("frames: invalid frame hierarchy")

// Frame is a node of a transform hierarchy with a local pose relative to its
// parent. The parent link is fixed at construction.
type Frame struct {
	name     string
	parent   *Frame
	position r3.Vec
	rotation quat.Number
}

// NewFrame returns a frame with identity local pose under parent, which may
// be nil for a root frame.
func NewFrame(name string, parent *Frame) *Frame {
	return &Frame{name: name, parent: parent, rotation: pose.IdentityRotation()}
}

func (f *Frame) Name() string { return f.name }

// Parent returns the parent frame, nil for a root.
func (f *Frame) Parent() *Frame { return f.parent }

func (f *Frame) LocalPosition() r3.Vec { return f.position }

func (f *Frame) LocalRotation() quat.Number { return f.rotation }

func (f *Frame) SetLocalPosition(p r3.Vec) { f.position = p }

// SetLocalRotation stores q normalized.
func (f *Frame) SetLocalRotation(q quat.Number) { f.rotation = pose.Normalize(q) }

// LocalPose returns the pose of f relative to its parent.
func (f *Frame) LocalPose() pose.Pose {
	return pose.Pose{Position: f.position, Rotation: f.rotation}
}

// SetLocalPose sets both local position and rotation.
func (f *Frame) SetLocalPose(p pose.Pose) {
	f.SetLocalPosition(p.Position)
	f.SetLocalRotation(p.Rotation)
}

// World returns the pose of f relative to the root of its hierarchy.
func (f *Frame) World() pose.Pose {
	if f.parent == nil {
		return f.LocalPose()
	}
	return f.parent.World().Then(f.LocalPose())
}

// TransformPoint maps p from the local space of f to world space.
func (f *Frame) TransformPoint(p r3.Vec) r3.Vec {
	return f.World().TransformPoint(p)
}

// InverseTransformPoint maps p from world space to the local space of f.
func (f *Frame) InverseTransformPoint(p r3.Vec) r3.Vec {
	return f.World().InverseTransformPoint(p)
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s(pos=%.3f,%.3f,%.3f)", f.name, f.position.X, f.position.Y, f.position.Z)
}

// Set is the chain anchor → aligned → sensorPose. Anchor may be nil.
type Set struct {
	Anchor     *Frame
	Aligned    *Frame
	SensorPose *Frame
}

// Bind derives the aligned and anchor frames from the sensor-pose frame's
// ancestors. The binding is read once and kept for the set's lifetime.
func Bind(sensorPose *Frame) (Set, error) {
	if sensorPose == nil {
		return Set{}, fmt.Errorf("%w: no sensor-pose frame", ErrHierarchy)
	}
	aligned := sensorPose.Parent()
	if aligned == nil {
		return Set{}, fmt.Errorf("%w: sensor-pose frame %q has no parent to align", ErrHierarchy, sensorPose.Name())
	}
	return Set{
		Anchor:     aligned.Parent(),
		Aligned:    aligned,
		SensorPose: sensorPose,
	}, nil
}

// NewChain builds a fresh anchor → aligned → sensorPose hierarchy.
func NewChain() Set {
	anchor := NewFrame("anchor", nil)
	aligned := NewFrame("aligned", anchor)
	return Set{
		Anchor:     anchor,
		Aligned:    aligned,
		SensorPose: NewFrame("sensor_pose", aligned),
	}
}
