// Package orientation provides the high-rate orientation sensor that drives
// the sensor-pose frame.
package orientation

import (
	"math"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// Source is anything that can provide sensor rotations over time.
type Source interface {
	Next() (quat.Number, error)
}

// mockPeriod is a multiple of every period used by MockRotation, so wrapping
// the clock at it keeps the motion continuous.
const mockPeriod = 3600.0

// MockClock maps wall time onto the time base shared by the mock sensor and
// the simulated tracker, so both agree even across processes.
func MockClock(now time.Time) float64 {
	return math.Mod(float64(now.UnixNano())/1e9, mockPeriod)
}

// MockRotation is the head motion simulated by the mock sources: a nod
// around a tilted axis on top of a slow yaw sweep.
func MockRotation(t float64) quat.Number {
	yaw := pose.AxisAngle(r3.Vec{Y: 1}, 0.8*math.Sin(2*math.Pi*t/10))
	nod := pose.AxisAngle(r3.Vec{X: 1, Z: 0.3}, 0.35*math.Sin(2*math.Pi*t/4))
	return quat.Mul(yaw, nod)
}
