package mixer

import (
	"fmt"
	"sort"

	"github.com/gyaneshwarpardhi/soundrig/internal/tween"
)

// Snapshots tracks the blend weight of every declared mixer snapshot.
// Weights always sum to 1 once a transition has completed.
type Snapshots struct {
	names   []string
	weights map[string]float64
	from    map[string]float64
	to      map[string]float64
	t       *tween.Linear
	// offsets[snapshot][bus] is the bus level change in dB at full weight.
	offsets map[string]map[string]float64
}

func newSnapshots(names []string) *Snapshots {
	s := &Snapshots{
		weights: make(map[string]float64, len(names)),
		offsets: make(map[string]map[string]float64),
	}
	for i, n := range names {
		s.names = append(s.names, n)
		if i == 0 {
			s.weights[n] = 1
		} else {
			s.weights[n] = 0
		}
	}
	return s
}

// Snapshots returns the mixer's snapshot state.
func (m *Mixer) Snapshots() *Snapshots { return m.snaps }

// TransitionTo moves all weight onto name over seconds.
func (s *Snapshots) TransitionTo(name string, seconds float64) error {
	return s.Blend(map[string]float64{name: 1}, seconds)
}

// Blend moves towards the given weights (normalised to sum 1) over seconds.
func (s *Snapshots) Blend(target map[string]float64, seconds float64) error {
	total := 0.0
	for n, w := range target {
		if _, ok := s.weights[n]; !ok {
			return fmt.Errorf("snapshot %q: %w", n, ErrNotFound)
		}
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("snapshot weights must not all be zero")
	}
	s.from = make(map[string]float64, len(s.weights))
	s.to = make(map[string]float64, len(s.weights))
	for n, w := range s.weights {
		s.from[n] = w
		s.to[n] = target[n] / total
	}
	s.t = tween.NewLinear(0, 1, seconds)
	s.apply()
	return nil
}

// Tick advances an in-flight transition.
func (s *Snapshots) Tick(dt float64) {
	if s.t == nil {
		return
	}
	s.t.Advance(dt)
	s.apply()
}

func (s *Snapshots) apply() {
	p := s.t.Value()
	for n := range s.weights {
		s.weights[n] = s.from[n] + (s.to[n]-s.from[n])*p
	}
	if s.t.Done() {
		s.t = nil
	}
}

// Transitioning reports whether a transition is in flight.
func (s *Snapshots) Transitioning() bool { return s.t != nil }

// Weight returns the current weight of name.
func (s *Snapshots) Weight(name string) float64 { return s.weights[name] }

// Weights returns a copy of all weights.
func (s *Snapshots) Weights() map[string]float64 {
	out := make(map[string]float64, len(s.weights))
	for n, w := range s.weights {
		out[n] = w
	}
	return out
}

// Names returns the declared snapshot names, sorted.
func (s *Snapshots) Names() []string {
	out := append([]string(nil), s.names...)
	sort.Strings(out)
	return out
}

// SetOffsets sets the per-bus dB offsets a snapshot applies at full weight.
func (s *Snapshots) SetOffsets(name string, busDb map[string]float64) error {
	if _, ok := s.weights[name]; !ok {
		return fmt.Errorf("snapshot %q: %w", name, ErrNotFound)
	}
	cp := make(map[string]float64, len(busDb))
	for b, db := range busDb {
		cp[b] = db
	}
	s.offsets[name] = cp
	return nil
}

// OffsetDb is the weighted sum of every snapshot's offset for bus.
func (s *Snapshots) OffsetDb(bus string) float64 {
	total := 0.0
	for n, w := range s.weights {
		total += w * s.offsets[n][bus]
	}
	return total
}
