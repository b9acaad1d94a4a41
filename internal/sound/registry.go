package sound

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/soundrig/internal/event"
)

// eps absorbs float drift from summed tick deltas.
const eps = 1e-9

// Voice is one playing instance of a variation.
type Voice struct {
	ID        string
	Group     *Group
	Variation *Variation
	// Owner is the trigger that started the voice, if any.
	Owner         string
	Origin        event.Vec3
	StartedAt     float64
	Position      float64
	Pitch         float64
	VolumeDb      float64
	FadeGain      float64 // linear 0..1, used by fade-outs
	Paused        bool
	FinishedEvent string

	stopped bool
}

// Age is how long the voice has existed at time now.
func (v *Voice) Age(now float64) float64 { return now - v.StartedAt }

// Remaining is the estimated playback time left, in seconds.
func (v *Voice) Remaining() float64 {
	p := v.Pitch * v.Group.Pitch
	if p <= 0 {
		p = 1
	}
	return (v.Variation.Length - v.Position) / p
}

// Stopped reports whether the voice was stopped or finished.
func (v *Voice) Stopped() bool { return v.stopped }

// Registry is the catalog of sound groups plus the live voice list.
// It is not safe for concurrent use.
type Registry struct {
	groups map[string]*Group
	order  []string
	voices []*Voice // start order, oldest first
	rng    *rand.Rand
}

// NewRegistry creates an empty registry that uses rng for variation picks.
func NewRegistry(rng *rand.Rand) *Registry {
	return &Registry{groups: make(map[string]*Group), rng: rng}
}

// Add registers a group. Duplicate names are rejected.
func (r *Registry) Add(g *Group) error {
	if _, ok := r.groups[g.Name]; ok {
		return fmt.Errorf("duplicate sound group %q", g.Name)
	}
	r.groups[g.Name] = g
	r.order = append(r.order, g.Name)
	return nil
}

// Group resolves a group by name.
func (r *Registry) Group(name string) (*Group, error) {
	g, ok := r.groups[name]
	if !ok {
		return nil, fmt.Errorf("sound group %q: %w", name, ErrNotFound)
	}
	return g, nil
}

// Groups returns every group in declaration order.
func (r *Registry) Groups() []*Group {
	out := make([]*Group, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.groups[n])
	}
	return out
}

// AnySoloed reports whether at least one group is soloed.
func (r *Registry) AnySoloed() bool {
	for _, g := range r.groups {
		if g.Soloed {
			return true
		}
	}
	return false
}

// Audible reports whether g is heard given mute and solo state.
func (r *Registry) Audible(g *Group) bool {
	if g.Muted {
		return false
	}
	return !r.AnySoloed() || g.Soloed
}

// SelectVariation resolves a variation by name, or picks one at random when name is empty.
func (r *Registry) SelectVariation(g *Group, name string) (*Variation, error) {
	if name != "" {
		return g.Variation(name)
	}
	return g.RandomVariation(r.rng)
}

// Start adds a voice for variation v of group g.
func (r *Registry) Start(g *Group, v *Variation, now float64) *Voice {
	voice := &Voice{
		ID:        uuid.NewString(),
		Group:     g,
		Variation: v,
		StartedAt: now,
		Pitch:     v.Pitch,
		FadeGain:  1,
	}
	r.voices = append(r.voices, voice)
	return voice
}

// Stop marks a voice stopped. It is removed on the next Advance.
func (r *Registry) Stop(v *Voice) {
	v.stopped = true
}

// Voice finds a live voice by id.
func (r *Registry) Voice(id string) (*Voice, bool) {
	for _, v := range r.voices {
		if v.ID == id && !v.stopped {
			return v, true
		}
	}
	return nil, false
}

// Voices returns live voices, oldest first, optionally filtered by keep.
func (r *Registry) Voices(keep func(*Voice) bool) []*Voice {
	var out []*Voice
	for _, v := range r.voices {
		if v.stopped {
			continue
		}
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// GroupVoices returns the live voices of one group.
func (r *Registry) GroupVoices(g *Group) []*Voice {
	return r.Voices(func(v *Voice) bool { return v.Group == g })
}

// BusVoices returns the live voices routed to bus index k.
func (r *Registry) BusVoices(k int) []*Voice {
	return r.Voices(func(v *Voice) bool { return v.Group.BusIndex() == k })
}

// Advance moves every unpaused voice forward by dt seconds scaled by its
// pitch and the extra pitch factor returned by pitchOf. Voices that reach
// the end of a non-looping clip are returned and removed along with
// previously stopped ones.
func (r *Registry) Advance(dt float64, pitchOf func(*Voice) float64) (finished []*Voice) {
	kept := r.voices[:0]
	for _, v := range r.voices {
		if v.stopped {
			continue
		}
		if !v.Paused && !v.Group.Paused {
			rate := v.Pitch * v.Group.Pitch
			if pitchOf != nil {
				rate *= pitchOf(v)
			}
			v.Position += dt * rate
			if v.Variation.Length > 0 && v.Position >= v.Variation.Length-eps {
				if v.Variation.Loop {
					for v.Position >= v.Variation.Length-eps {
						v.Position -= v.Variation.Length
					}
					v.Position = max(v.Position, 0)
				} else {
					v.stopped = true
					finished = append(finished, v)
					continue
				}
			}
		}
		kept = append(kept, v)
	}
	for i := len(kept); i < len(r.voices); i++ {
		r.voices[i] = nil
	}
	r.voices = kept
	return finished
}

// OlderThan returns live voices of g whose age is at least minAge.
func OlderThan(voices []*Voice, now, minAge float64) []*Voice {
	var out []*Voice
	for _, v := range voices {
		if v.Age(now) >= minAge {
			out = append(out, v)
		}
	}
	return out
}

// ByAge sorts voices oldest first.
func ByAge(voices []*Voice) {
	sort.SliceStable(voices, func(i, j int) bool { return voices[i].StartedAt < voices[j].StartedAt })
}
