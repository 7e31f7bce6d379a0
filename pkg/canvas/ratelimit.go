package canvas

import (
	"image"
	"time"
)

// rateReducer keeps drag processing at a fixed rate. Offsets that arrive
// too early are remembered so the last one is never lost.
type rateReducer struct {
	interval time.Duration
	now      func() time.Time
	last     time.Time
	pending  *image.Point
}

func newRateReducer(hz int, now func() time.Time) *rateReducer {
	if now == nil {
		now = time.Now
	}
	return &rateReducer{interval: time.Second / time.Duration(hz), now: now}
}

// allow reports whether offset should be processed now. A rejected offset
// is kept and returned by flush.
func (r *rateReducer) allow(offset image.Point) bool {
	t := r.now()
	if !r.last.IsZero() && t.Sub(r.last) < r.interval {
		r.pending = &offset
		return false
	}
	r.last = t
	r.pending = nil
	return true
}

// flush returns the last rejected offset, if any.
func (r *rateReducer) flush() (image.Point, bool) {
	if r.pending == nil {
		return image.Point{}, false
	}
	p := *r.pending
	r.pending = nil
	return p, true
}

func (r *rateReducer) reset() {
	r.last = time.Time{}
	r.pending = nil
}
