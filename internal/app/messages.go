package app

import (
	"github.com/relabs-tech/tracking_alignment/internal/frames"
	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// AlignedPose is the message published after every tick.
type AlignedPose struct {
	Timestamp         float64    `json:"t"`
	Position          [3]float64 `json:"position"`
	Rotation          [4]float64 `json:"rotation"` // x, y, z, w
	Stage             string     `json:"stage,omitempty"`
	Aligning          bool       `json:"aligning"`
	ExtrapolationTime float64    `json:"extrapolation_time"`
	PositionFused     bool       `json:"position_fused"`
}

func newAlignedPose(t float64, p pose.Pose, report frames.TickReport, aligning bool, extrapolation float64) AlignedPose {
	q := pose.Normalize(p.Rotation)
	msg := AlignedPose{
		Timestamp:         t,
		Position:          [3]float64{p.Position.X, p.Position.Y, p.Position.Z},
		Rotation:          [4]float64{q.Imag, q.Jmag, q.Kmag, q.Real},
		Aligning:          aligning,
		ExtrapolationTime: extrapolation,
		PositionFused:     report.PositionFused,
	}
	if report.SampleAvailable {
		msg.Stage = report.Stage.String()
	}
	return msg
}
