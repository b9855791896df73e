package tracking

import (
	"time"

	"github.com/relabs-tech/tracking_alignment/internal/orientation"
	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// MockSource is an in-process tracker driven by a Simulator on the shared
// mock clock. It emits a new sample every interval.
type MockSource struct {
	*latest
	sim      Simulator
	interval time.Duration
	clock    func() time.Time
	next     time.Time
}

// NewMockSource returns a simulated tracker.
func NewMockSource(sim Simulator, interval time.Duration) *MockSource {
	return newMockSource(sim, interval, time.Now)
}

func newMockSource(sim Simulator, interval time.Duration, clock func() time.Time) *MockSource {
	return &MockSource{
		latest:   newLatest(0, clock),
		sim:      sim,
		interval: interval,
		clock:    clock,
	}
}

func (m *MockSource) poll() {
	now := m.clock()
	if now.Before(m.next) {
		return
	}
	m.next = now.Add(m.interval)
	m.put(m.sim.At(orientation.MockClock(now)))
}

func (m *MockSource) RawSample() (pose.Sample, bool) {
	m.poll()
	return m.latest.RawSample()
}

func (m *MockSource) Sample(placement pose.Pose, extrapolationTime float64) (pose.Sample, bool) {
	m.poll()
	return m.latest.Sample(placement, extrapolationTime)
}

func (m *MockSource) Close() error { return nil }
