package pose

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Stage is the discrete stability level reported by the tracker.
type Stage int

const (
	InertialDataInitialization Stage = iota
	NoTracking
	Tracking3Dof
	Tracking6Dof
	Blind6Dof
)

var stageNames = [...]string{
	InertialDataInitialization: "InertialDataInitialization",
	NoTracking:                 "NoTracking",
	Tracking3Dof:               "Tracking3Dof",
	Tracking6Dof:               "Tracking6Dof",
	Blind6Dof:                  "Blind6Dof",
}

// String returns the stage name.
func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// ParseStage converts a stage name (case-insensitive) back into a Stage.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if strings.EqualFold(n, name) {
			return Stage(i), nil
		}
	}
	return NoTracking, fmt.Errorf("unknown stability stage %q", name)
}

// Stability carries the tracker stage and, for Tracking6Dof, a confidence
// value in [0,1].
type Stability struct {
	Stage Stage
	Value float64
}

// Is6Dof reports whether the sample carries a usable position.
func (s Stability) Is6Dof() bool {
	return s.Stage == Tracking6Dof
}

// Confidence returns Value clamped to [0,1].
func (s Stability) Confidence() float64 {
	switch {
	case s.Value < 0:
		return 0
	case s.Value > 1:
		return 1
	default:
		return s.Value
	}
}

// Sample is one tracker state. Velocity is in the tracker's reference frame,
// AngularVelocity in the tracked body frame (rad/s).
type Sample struct {
	Pose            Pose
	Velocity        r3.Vec
	AngularVelocity r3.Vec
	Stability       Stability
}

// Extrapolate predicts the sample dt seconds ahead using its velocities.
func (s Sample) Extrapolate(dt float64) Sample {
	if dt == 0 {
		return s
	}
	out := s
	out.Pose = Pose{
		Position: r3.Add(s.Pose.Position, r3.Scale(dt, s.Velocity)),
		Rotation: Integrate(s.Pose.Rotation, s.AngularVelocity, dt),
	}
	return out
}

// WithPlacement converts a tracker sample into the pose of the tracked
// object's origin, where placement is the tracker's pose relative to that
// origin.
func (s Sample) WithPlacement(placement Pose) Sample {
	if placement.IsIdentity() {
		return s
	}
	out := s
	out.Pose = s.Pose.Then(placement.Inverse())
	return out
}
