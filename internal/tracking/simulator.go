package tracking

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/tracking_alignment/internal/orientation"
	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// derivativeStep is the time step used for the simulated velocities.
const derivativeStep = 1e-3

// Simulator produces the tracker samples a real tracker would report for
// the head motion of the mock orientation sensor.
type Simulator struct {
	// Latency is how far the tracker lags the orientation sensor, in seconds.
	Latency float64
	// BSpace is the rotation of the sensor's reference frame in tracker space.
	BSpace quat.Number
	// Placement is the tracker's pose relative to the tracked object's origin.
	Placement pose.Pose
	// Confidence is reported with every 6DoF sample.
	Confidence float64
}

// NewSimulator returns a simulator with a fixed frame offset and a tracker
// mounted slightly in front of the object's origin.
func NewSimulator(latency float64) Simulator {
	return Simulator{
		Latency: latency,
		BSpace:  pose.AxisAngle(r3.Vec{Y: 1}, 0.4),
		Placement: pose.Pose{
			Position: r3.Vec{Y: 0.05, Z: -0.02},
			Rotation: pose.IdentityRotation(),
		},
		Confidence: 0.9,
	}
}

// ObjectPose is the tracked object's origin in tracker space at time t, as
// the tracker sees it (lagging by Latency).
func (s Simulator) ObjectPose(t float64) pose.Pose {
	t -= s.Latency
	return pose.Pose{
		Position: r3.Vec{
			X: 0.25 * math.Cos(2*math.Pi*t/20),
			Y: 1.6 + 0.05*math.Sin(2*math.Pi*t/4),
			Z: 0.25 * math.Sin(2*math.Pi*t/20),
		},
		Rotation: quat.Mul(s.BSpace, orientation.MockRotation(t)),
	}
}

func (s Simulator) trackerPose(t float64) pose.Pose {
	return s.ObjectPose(t).Then(s.Placement)
}

// At returns the tracker sample for time t. For 1.5 s of every 30 s the
// tracker loses position and reports 3DoF only.
func (s Simulator) At(t float64) pose.Sample {
	p := s.trackerPose(t)
	before := s.trackerPose(t - derivativeStep)
	after := s.trackerPose(t + derivativeStep)

	stability := pose.Stability{Stage: pose.Tracking6Dof, Value: s.Confidence}
	if phase := math.Mod(t, 30); phase >= 20 && phase < 21.5 {
		stability = pose.Stability{Stage: pose.Tracking3Dof}
	}

	return pose.Sample{
		Pose:            p,
		Velocity:        r3.Scale(1/(2*derivativeStep), r3.Sub(after.Position, before.Position)),
		AngularVelocity: pose.AngularVelocity(before.Rotation, after.Rotation, 2*derivativeStep),
		Stability:       stability,
	}
}
