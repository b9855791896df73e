package alignment

import (
	"sort"

	"gonum.org/v1/gonum/num/quat"

	"github.com/relabs-tech/tracking_alignment/internal/pose"
)

type stamped struct {
	t float64
	q quat.Number
}

// history is a time-ordered record of rotations.
type history struct {
	samples []stamped
}

// push appends q at time t. A sample older than the newest one clears the
// history, one at the same time replaces it.
func (h *history) push(t float64, q quat.Number) {
	if n := len(h.samples); n > 0 {
		last := h.samples[n-1].t
		switch {
		case t < last:
			h.samples = h.samples[:0]
		case t == last:
			h.samples[n-1].q = q
			return
		}
	}
	h.samples = append(h.samples, stamped{t: t, q: q})
}

// trim drops samples older than cutoff, keeping the one just before it so
// that at(cutoff) still interpolates.
func (h *history) trim(cutoff float64) {
	i := sort.Search(len(h.samples), func(i int) bool { return h.samples[i].t >= cutoff })
	if i <= 1 {
		return
	}
	h.samples = append(h.samples[:0], h.samples[i-1:]...)
}

// at interpolates the rotation at time t. It fails outside the recorded span.
func (h *history) at(t float64) (quat.Number, bool) {
	n := len(h.samples)
	if n == 0 || t < h.samples[0].t || t > h.samples[n-1].t {
		return quat.Number{}, false
	}
	i := sort.Search(n, func(i int) bool { return h.samples[i].t >= t })
	if h.samples[i].t == t || i == 0 {
		return h.samples[i].q, true
	}
	a, b := h.samples[i-1], h.samples[i]
	return pose.Slerp(a.q, b.q, (t-a.t)/(b.t-a.t)), true
}

// before returns the newest sample at or before t.
func (h *history) before(t float64) (stamped, bool) {
	i := sort.Search(len(h.samples), func(i int) bool { return h.samples[i].t > t })
	if i == 0 {
		return stamped{}, false
	}
	return h.samples[i-1], true
}

func (h *history) size() int {
	return len(h.samples)
}
