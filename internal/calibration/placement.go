// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration stores and resolves placement codes: the pose of the
// tracker relative to the tracked object's origin.
package calibration

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

var (
	ErrEmptyCode   = errors.New("calibration: empty placement code")
	ErrInvalidCode = errors.New("calibration: invalid placement code")
)

// A placement code is the base64url (unpadded) encoding of seven
// little-endian float32: position x, y, z then rotation x, y, z, w.
const placementFloats = 7

// EncodePlacement returns the placement code for p.
func EncodePlacement(p pose.Pose) string {
	q := pose.Normalize(p.Rotation)
	vals := [placementFloats]float64{
		p.Position.X, p.Position.Y, p.Position.Z,
		q.Imag, q.Jmag, q.Kmag, q.Real,
	}
	buf := make([]byte, 4*placementFloats)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// DecodePlacement parses a placement code.
func DecodePlacement(code string) (pose.Pose, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return pose.Identity(), ErrEmptyCode
	}
	buf, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(code, "="))
	if err != nil {
		return pose.Identity(), fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	if len(buf) != 4*placementFloats {
		return pose.Identity(), fmt.Errorf("%w: %d bytes, want %d", ErrInvalidCode, len(buf), 4*placementFloats)
	}

	var vals [placementFloats]float64
	for i := range vals {
		v := float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:])))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return pose.Identity(), fmt.Errorf("%w: non-finite component %d", ErrInvalidCode, i)
		}
		vals[i] = v
	}
	q := quat.Number{Imag: vals[3], Jmag: vals[4], Kmag: vals[5], Real: vals[6]}
	if quat.Abs(q) < 1e-6 {
		return pose.Identity(), fmt.Errorf("%w: zero rotation", ErrInvalidCode)
	}
	return pose.Pose{
		Position: r3.Vec{X: vals[0], Y: vals[1], Z: vals[2]},
		Rotation: pose.Normalize(q),
	}, nil
}

// ResolvePlacement is DecodePlacement with every failure mapped to the
// identity pose.
func ResolvePlacement(code string) pose.Pose {
	p, err := DecodePlacement(code)
	if err != nil {
		return pose.Identity()
	}
	return p
}
