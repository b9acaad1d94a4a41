// Package tween models fades, glides and delays as progress accumulators
// advanced once per tick.
package tween

// eps absorbs float accumulation from per-tick deltas.
const eps = 1e-9

// Linear interpolates from From to To over Duration seconds.
type Linear struct {
	From     float64
	To       float64
	Duration float64
	elapsed  float64
}

// NewLinear returns a tween at its start.
func NewLinear(from, to, duration float64) *Linear {
	return &Linear{From: from, To: to, Duration: duration}
}

// Advance moves the tween forward by dt seconds and returns the new value.
func (l *Linear) Advance(dt float64) float64 {
	if dt > 0 {
		l.elapsed += dt
	}
	return l.Value()
}

// Value is the current interpolated value.
func (l *Linear) Value() float64 {
	if l.Duration <= 0 || l.elapsed >= l.Duration-eps {
		return l.To
	}
	return l.From + (l.To-l.From)*(l.elapsed/l.Duration)
}

// Done reports whether the tween reached its target.
func (l *Linear) Done() bool {
	return l.Duration <= 0 || l.elapsed >= l.Duration-eps
}
