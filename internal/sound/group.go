// Package sound holds the catalog of playable sound groups and the voices
// currently playing from them.
package sound

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrNotFound is returned when a group or variation name does not resolve.
var ErrNotFound = errors.New("not found")

// NoBus is the bus index of a group that is not routed to any bus.
const NoBus = -1

// Variation is one interchangeable clip of a group.
type Variation struct {
	Name     string  `json:"name"`
	Clip     string  `json:"clip"`
	VolumeDb float64 `json:"volume_db"`
	Weight   int     `json:"weight"`
	Length   float64 `json:"length"` // seconds at pitch 1
	Pitch    float64 `json:"pitch"`
	Loop     bool    `json:"loop"`
}

// Group is a named playable sound.
type Group struct {
	Name       string      `json:"name"`
	Variations []Variation `json:"variations"`
	VolumeDb   float64     `json:"volume_db"`
	Importance int         `json:"importance"`
	Pitch      float64     `json:"pitch"`
	Muted      bool        `json:"muted"`
	Soloed     bool        `json:"soloed"`
	Paused     bool        `json:"paused"`

	busIndex     int
	baseVolumeDb float64
}

// NewGroup returns a group with its authored volume remembered for restore.
func NewGroup(name string, volumeDb float64, importance int, busIndex int, variations []Variation) *Group {
	vs := make([]Variation, len(variations))
	copy(vs, variations)
	for i := range vs {
		if vs[i].Weight <= 0 {
			vs[i].Weight = 1
		}
		if vs[i].Pitch <= 0 {
			vs[i].Pitch = 1
		}
	}
	return &Group{
		Name:         name,
		Variations:   vs,
		VolumeDb:     volumeDb,
		Importance:   importance,
		Pitch:        1,
		busIndex:     busIndex,
		baseVolumeDb: volumeDb,
	}
}

// BusIndex returns the owning bus index, or NoBus.
func (g *Group) BusIndex() int { return g.busIndex }

// SetBusIndex reroutes the group.
func (g *Group) SetBusIndex(i int) { g.busIndex = i }

// BaseVolumeDb is the authored volume used by "restore after fade".
func (g *Group) BaseVolumeDb() float64 { return g.baseVolumeDb }

// Variation picks a variation by name.
func (g *Group) Variation(name string) (*Variation, error) {
	for i := range g.Variations {
		if g.Variations[i].Name == name {
			return &g.Variations[i], nil
		}
	}
	return nil, fmt.Errorf("group %s: variation %q: %w", g.Name, name, ErrNotFound)
}

// RandomVariation picks a variation with probability proportional to its weight.
func (g *Group) RandomVariation(rng *rand.Rand) (*Variation, error) {
	if len(g.Variations) == 0 {
		return nil, fmt.Errorf("group %s has no variations", g.Name)
	}
	total := 0
	for _, v := range g.Variations {
		total += v.Weight
	}
	pick := rng.IntN(total)
	for i := range g.Variations {
		pick -= g.Variations[i].Weight
		if pick < 0 {
			return &g.Variations[i], nil
		}
	}
	return &g.Variations[len(g.Variations)-1], nil
}
