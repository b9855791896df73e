// Package fusion blends tracker positions with the position implied by the
// aligned frame, weighted by the tracker's confidence.
package fusion

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultFixedWeight is the trust placed in frame continuity relative to the
// tracker's own confidence.
const DefaultFixedWeight = 0.15

// Filter is a single-step weighted low-pass filter. It keeps no history
// beyond whether the first sample has been consumed.
type Filter struct {
	fixedWeight         float64
	firstSampleConsumed bool
}

// NewFilter returns a filter with the given fixed weight, which must be
// positive.
func NewFilter(fixedWeight float64) (*Filter, error) {
	if !(fixedWeight > 0) {
		return nil, fmt.Errorf("fusion: fixed weight must be positive, got %v", fixedWeight)
	}
	return &Filter{fixedWeight: fixedWeight}, nil
}

// FixedWeight returns the weight given to the prior position.
func (f *Filter) FixedWeight() float64 {
	return f.fixedWeight
}

// FirstSampleConsumed reports whether Fuse has run since the last Reset.
func (f *Filter) FirstSampleConsumed() bool {
	return f.firstSampleConsumed
}

// Reset makes the next Fuse return the tracked position unchanged.
func (f *Filter) Reset() {
	f.firstSampleConsumed = false
}

// Fuse returns tracked on the first call after a reset and the
// confidence-weighted average of prior and tracked afterwards.
func (f *Filter) Fuse(tracked, prior r3.Vec, confidence float64) r3.Vec {
	if !f.firstSampleConsumed {
		f.firstSampleConsumed = true
		return tracked
	}
	return Blend(tracked, prior, confidence, f.fixedWeight)
}

// Blend computes (prior*fixedWeight + tracked*confidence) / (confidence + fixedWeight)
// with confidence clamped to [0,1].
func Blend(tracked, prior r3.Vec, confidence, fixedWeight float64) r3.Vec {
	switch {
	case confidence < 0:
		confidence = 0
	case confidence > 1:
		confidence = 1
	}
	sum := r3.Add(r3.Scale(fixedWeight, prior), r3.Scale(confidence, tracked))
	return r3.Scale(1/(confidence+fixedWeight), sum)
}
