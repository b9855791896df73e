package alignment

import "fmt"

// Params tunes the latency and rotation estimators. Times are seconds,
// angles radians.
type Params struct {
	// LatencyTimeConstant smooths the extrapolation time towards the best
	// latency candidate of each update.
	LatencyTimeConstant float64
	// RotationTimeConstant smooths the aligned frame rotation.
	RotationTimeConstant float64
	// Baseline is the span over which rotation increments are compared.
	Baseline float64
	// CandidateStep and CandidateCount define the latencies probed on each
	// side of the current estimate.
	CandidateStep  float64
	CandidateCount int
	// MaxExtrapolation caps the extrapolation time.
	MaxExtrapolation float64
	// MinMismatchSpread is the minimum difference between the worst and the
	// best candidate for an update to move the latency estimate. Below it
	// the motion does not tell the candidates apart.
	MinMismatchSpread float64
	// HistoryWindow is how much sensor and tracker history is retained.
	HistoryWindow float64
}

// DefaultParams returns the tuning used by the fusion runner.
func DefaultParams() Params {
	return Params{
		LatencyTimeConstant:  0.05,
		RotationTimeConstant: 0.25,
		Baseline:             0.1,
		CandidateStep:        0.002,
		CandidateCount:       5,
		MaxExtrapolation:     0.25,
		MinMismatchSpread:    1e-3,
		HistoryWindow:        0.5,
	}
}

// Validate checks that the parameters describe a usable estimator.
func (p Params) Validate() error {
	switch {
	case p.LatencyTimeConstant <= 0:
		return fmt.Errorf("latency time constant must be positive, got %v", p.LatencyTimeConstant)
	case p.RotationTimeConstant <= 0:
		return fmt.Errorf("rotation time constant must be positive, got %v", p.RotationTimeConstant)
	case p.Baseline <= 0:
		return fmt.Errorf("baseline must be positive, got %v", p.Baseline)
	case p.CandidateStep <= 0 || p.CandidateCount < 1:
		return fmt.Errorf("need at least one candidate step, got step=%v count=%d", p.CandidateStep, p.CandidateCount)
	case p.MaxExtrapolation < 0:
		return fmt.Errorf("max extrapolation must not be negative, got %v", p.MaxExtrapolation)
	case p.HistoryWindow < p.Baseline+p.MaxExtrapolation:
		return fmt.Errorf("history window %v shorter than baseline + max extrapolation (%v)",
			p.HistoryWindow, p.Baseline+p.MaxExtrapolation)
	}
	return nil
}
