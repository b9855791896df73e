// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package alignment estimates the rotation between an orientation sensor and
// a 6DoF tracker, together with how far the sensor runs ahead of the
// tracker's rotation stream.
//
// A is the tracker, B the orientation sensor. With S the rotation of the
// aligned frame and R the tracker's rotation relative to the sensor body
// (the placement rotation), a tracker reading taken at time t satisfies
//
//	A(t) = S · B(t - τ) · R
//
// where τ is the time B is ahead of A. S cancels out of body-frame rotation
// increments, so τ is found by matching the tracker's increment over a
// baseline against the sensor's increment over the same baseline shifted by
// candidate latencies.
package alignment

import (
	"errors"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/num/quat"

	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// ErrStopped is returned by Update when the tracker is not aligning.
var ErrStopped = errors.New("alignment: tracker is stopped")

// State is the lifecycle state of a Tracker.
type State int

const (
	Stopped State = iota
	Aligning
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Aligning:
		return "Aligning"
	default:
		return "Unknown"
	}
}

// Result is the outcome of one Update.
type Result struct {
	// RotationARelativeToB is the tracker's rotation relative to the sensor
	// body, the rotation part of the placement. It is the offset given to
	// Start and is not re-estimated; a new placement needs a new Start.
	RotationARelativeToB quat.Number
	// RotationBSpace is the local rotation to give the aligned frame.
	RotationBSpace quat.Number
	// TimeBAheadOfA is the extrapolation time to request from the tracker.
	TimeBAheadOfA float64
}

// Snapshot is a copy of the alignment state.
type Snapshot struct {
	RotationOffset    quat.Number
	ExtrapolationTime float64
	RotationBSpace    quat.Number
	Updates           int
}

// alignment is the state created by Start and discarded by Stop.
type alignment struct {
	offset        quat.Number
	extrapolation float64
	bSpace        quat.Number
	seeded        bool
	lastTime      float64
	updates       int

	sensor  history
	tracker history
}

// Tracker owns the alignment state and its Stopped/Aligning lifecycle.
// It is not safe for concurrent use.
type Tracker struct {
	params Params
	logger zerolog.Logger
	a      *alignment
}

// NewTracker returns a stopped tracker.
func NewTracker(params Params, logger zerolog.Logger) (*Tracker, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{params: params, logger: logger}, nil
}

// State reports whether the tracker is aligning.
func (t *Tracker) State() State {
	if t.a == nil {
		return Stopped
	}
	return Aligning
}

// Start (re)creates the alignment state from the given offset and
// extrapolation time. Starting while aligning discards the previous state.
func (t *Tracker) Start(initialRotationOffset quat.Number, initialExtrapolationTime float64) {
	if t.a != nil {
		t.Stop()
	}
	t.a = &alignment{
		offset:        pose.Normalize(initialRotationOffset),
		extrapolation: clamp(initialExtrapolationTime, 0, t.params.MaxExtrapolation),
		bSpace:        pose.IdentityRotation(),
	}
	t.logger.Debug().
		Float64("extrapolation_time", t.a.extrapolation).
		Msg("alignment started")
}

// Stop discards the alignment state. Stopping a stopped tracker is a no-op.
func (t *Tracker) Stop() {
	if t.a == nil {
		return
	}
	t.logger.Debug().
		Int("updates", t.a.updates).
		Float64("extrapolation_time", t.a.extrapolation).
		Msg("alignment stopped")
	t.a = nil
}

// Snapshot returns the current state. ok is false while stopped.
func (t *Tracker) Snapshot() (Snapshot, bool) {
	if t.a == nil {
		return Snapshot{}, false
	}
	return Snapshot{
		RotationOffset:    t.a.offset,
		ExtrapolationTime: t.a.extrapolation,
		RotationBSpace:    t.a.bSpace,
		Updates:           t.a.updates,
	}, true
}

// Update feeds one tracker rotation (raw, 6DoF only) together with the
// sensor rotation read on the same tick.
func (t *Tracker) Update(trackerRotation, sensorRotation quat.Number, currentTime float64) (Result, error) {
	a := t.a
	if a == nil {
		return Result{}, ErrStopped
	}

	trackerRotation = pose.Normalize(trackerRotation)
	sensorRotation = pose.Normalize(sensorRotation)

	dt := 0.0
	if a.updates > 0 && currentTime > a.lastTime {
		dt = currentTime - a.lastTime
	}

	a.sensor.push(currentTime, sensorRotation)
	a.tracker.push(currentTime, trackerRotation)

	if dt > 0 {
		if latency, ok := t.bestLatency(a, currentTime); ok {
			alpha := 1 - math.Exp(-dt/t.params.LatencyTimeConstant)
			a.extrapolation = clamp(a.extrapolation+alpha*(latency-a.extrapolation), 0, t.params.MaxExtrapolation)
		}
	}

	delayed, ok := a.sensor.at(currentTime - a.extrapolation)
	if !ok {
		delayed = sensorRotation
	}
	measured := pose.Normalize(quat.Mul(quat.Mul(trackerRotation, pose.Inverse(a.offset)), pose.Inverse(delayed)))
	if !a.seeded {
		a.bSpace = measured
		a.seeded = true
	} else if dt > 0 {
		beta := 1 - math.Exp(-dt/t.params.RotationTimeConstant)
		a.bSpace = pose.Slerp(a.bSpace, measured, beta)
	}

	cutoff := currentTime - t.params.HistoryWindow
	a.sensor.trim(cutoff)
	a.tracker.trim(cutoff)
	a.lastTime = currentTime
	a.updates++

	return Result{
		RotationARelativeToB: a.offset,
		RotationBSpace:       a.bSpace,
		TimeBAheadOfA:        a.extrapolation,
	}, nil
}

// bestLatency probes latencies around the current extrapolation time and
// returns the one whose shifted sensor increment best matches the tracker
// increment over the baseline.
func (t *Tracker) bestLatency(a *alignment, now float64) (float64, bool) {
	old, ok := a.tracker.before(now - t.params.Baseline)
	if !ok {
		return 0, false
	}
	current := a.tracker.samples[a.tracker.size()-1]

	// R · (A_old⁻¹ · A_now) · R⁻¹ equals the sensor's body increment.
	increment := quat.Mul(pose.Inverse(old.q), current.q)
	want := pose.Normalize(quat.Mul(quat.Mul(a.offset, increment), pose.Inverse(a.offset)))

	var (
		best      float64
		bestErr   = math.Inf(1)
		worstErr  = math.Inf(-1)
		evaluated int
	)
	// Probe 0, -1, +1, -2, +2, ... so ties keep the estimate closest to the
	// current one.
	for k := 0; k <= 2*t.params.CandidateCount; k++ {
		j := (k + 1) / 2
		if k%2 == 1 {
			j = -j
		}
		latency := a.extrapolation + float64(j)*t.params.CandidateStep
		if latency < 0 || latency > t.params.MaxExtrapolation {
			continue
		}
		b0, ok0 := a.sensor.at(old.t - latency)
		b1, ok1 := a.sensor.at(current.t - latency)
		if !ok0 || !ok1 {
			continue
		}
		mismatch := pose.Angle(want, quat.Mul(pose.Inverse(b0), b1))
		evaluated++
		if mismatch < bestErr {
			best, bestErr = latency, mismatch
		}
		if mismatch > worstErr {
			worstErr = mismatch
		}
	}

	if evaluated < 2 || worstErr-bestErr < t.params.MinMismatchSpread {
		return 0, false
	}
	return best, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
