package app

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/tracking_alignment/internal/calibration"
	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// PlacementInput describes the tracker's mount on the tracked object:
// offset in meters and yaw (about y), pitch (about x), roll (about z) in
// degrees, applied in that order.
type PlacementInput struct {
	X, Y, Z          float64
	Yaw, Pitch, Roll float64
}

// Pose converts the input into a placement pose.
func (in PlacementInput) Pose() pose.Pose {
	rad := math.Pi / 180
	yaw := pose.AxisAngle(r3.Vec{Y: 1}, in.Yaw*rad)
	pitch := pose.AxisAngle(r3.Vec{X: 1}, in.Pitch*rad)
	roll := pose.AxisAngle(r3.Vec{Z: 1}, in.Roll*rad)
	return pose.Pose{
		Position: r3.Vec{X: in.X, Y: in.Y, Z: in.Z},
		Rotation: quat.Mul(quat.Mul(yaw, pitch), roll),
	}
}

// RunPlacement stores a placement code under key in the storage file. When
// code is empty it is computed from in. It returns the stored code.
func RunPlacement(storagePath, key, code string, in PlacementInput) (string, error) {
	if code == "" {
		code = calibration.EncodePlacement(in.Pose())
	} else if _, err := calibration.DecodePlacement(code); err != nil {
		return "", err
	}

	store, err := calibration.NewFileStore(storagePath)
	if err != nil {
		return "", err
	}
	if err := store.Write(calibration.PlacementGroup, key, code); err != nil {
		return "", fmt.Errorf("store placement: %w", err)
	}
	return code, nil
}
