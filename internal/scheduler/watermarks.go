package scheduler

import "time"

// Watermarks maps MonitoredSource.Key() to the start time of the last completed poll.
// Only the scheduler mutates it; each tick returns a new value.
type Watermarks map[string]time.Time

// Clone returns an independent copy
func (w Watermarks) Clone() Watermarks {
	out := make(Watermarks, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// advance moves key forward to t, never backwards
func (w Watermarks) advance(key string, t time.Time) {
	if current, ok := w[key]; ok && !t.After(current) {
		return
	}
	w[key] = t
}
