package tracking

import (
	"sync"
	"time"

	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

// latest holds the most recent tracker sample. Writers are reader
// goroutines; the raw and processed views are polled from the tick loop and
// each reports a sample at most once.
type latest struct {
	mu       sync.Mutex
	now      func() time.Time
	maxAge   time.Duration
	sample   pose.Sample
	received time.Time
	seq      uint64
	rawSeq   uint64
	procSeq  uint64
}

func newLatest(maxAge time.Duration, now func() time.Time) *latest {
	if now == nil {
		now = time.Now
	}
	return &latest{maxAge: maxAge, now: now}
}

func (l *latest) put(s pose.Sample) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sample = s
	l.received = l.now()
	l.seq++
}

// take returns the sample if it is newer than *seen and not stale.
func (l *latest) take(seen *uint64) (pose.Sample, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seq == 0 || l.seq == *seen {
		return pose.Sample{}, false
	}
	*seen = l.seq
	if l.maxAge > 0 && l.now().Sub(l.received) > l.maxAge {
		return pose.Sample{}, false
	}
	return l.sample, true
}

// RawSample returns the newest sample as received.
func (l *latest) RawSample() (pose.Sample, bool) {
	return l.take(&l.rawSeq)
}

// Sample returns the newest sample extrapolated by extrapolationTime and
// moved from the tracker to the tracked object's origin by placement.
func (l *latest) Sample(placement pose.Pose, extrapolationTime float64) (pose.Sample, bool) {
	s, ok := l.take(&l.procSeq)
	if !ok {
		return s, false
	}
	return s.Extrapolate(extrapolationTime).WithPlacement(placement), true
}
