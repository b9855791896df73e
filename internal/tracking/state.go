package tracking

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// State is the wire form of a tracker sample, as published on MQTT and
// written line by line on the serial link.
type State struct {
	Timestamp       float64    `json:"t"`
	Position        [3]float64 `json:"position"`
	Rotation        [4]float64 `json:"rotation"` // x, y, z, w
	Velocity        [3]float64 `json:"velocity"`
	AngularVelocity [3]float64 `json:"angular_velocity"`
	Stage           string     `json:"stage"`
	Confidence      float64    `json:"confidence"`
}

// NewState converts a sample taken at time t.
func NewState(t float64, s pose.Sample) State {
	q := pose.Normalize(s.Pose.Rotation)
	return State{
		Timestamp:       t,
		Position:        vec(s.Pose.Position),
		Rotation:        [4]float64{q.Imag, q.Jmag, q.Kmag, q.Real},
		Velocity:        vec(s.Velocity),
		AngularVelocity: vec(s.AngularVelocity),
		Stage:           s.Stability.Stage.String(),
		Confidence:      s.Stability.Value,
	}
}

// Sample converts the state back into a sample.
func (st State) Sample() (pose.Sample, error) {
	stage, err := pose.ParseStage(st.Stage)
	if err != nil {
		return pose.Sample{}, err
	}
	q := quat.Number{Imag: st.Rotation[0], Jmag: st.Rotation[1], Kmag: st.Rotation[2], Real: st.Rotation[3]}
	if quat.Abs(q) < 1e-9 {
		return pose.Sample{}, fmt.Errorf("tracker state has a zero rotation")
	}
	return pose.Sample{
		Pose: pose.Pose{
			Position: r3Vec(st.Position),
			Rotation: pose.Normalize(q),
		},
		Velocity:        r3Vec(st.Velocity),
		AngularVelocity: r3Vec(st.AngularVelocity),
		Stability:       pose.Stability{Stage: stage, Value: st.Confidence},
	}, nil
}

// DecodeState parses one JSON-encoded state.
func DecodeState(data []byte) (pose.Sample, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return pose.Sample{}, fmt.Errorf("decode tracker state: %w", err)
	}
	return st.Sample()
}

func vec(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func r3Vec(a [3]float64) r3.Vec { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }
