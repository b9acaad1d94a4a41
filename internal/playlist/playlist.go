// Package playlist sequences and crossfades music tracks.
package playlist

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// ErrNotFound is returned when a playlist or song name does not resolve.
var ErrNotFound = errors.New("not found")

// TransitionMode decides where the incoming song starts during a transition.
type TransitionMode string

const (
	FromBeginning     TransitionMode = "from_beginning"
	Synchronized      TransitionMode = "synchronized"
	LastKnownPosition TransitionMode = "last_known_position"
)

// StartMode is a song's custom start-time policy.
type StartMode string

const (
	StartNone   StartMode = "none"
	StartFixed  StartMode = "fixed"
	StartRandom StartMode = "random"
)

// StartTime configures where a song begins when started fresh.
type StartTime struct {
	Mode    StartMode `yaml:"mode,omitempty" json:"mode,omitempty"`
	Seconds float64   `yaml:"seconds,omitempty" json:"seconds,omitempty"`
	Min     float64   `yaml:"min,omitempty" json:"min,omitempty"`
	Max     float64   `yaml:"max,omitempty" json:"max,omitempty"`
}

// Song is one playlist entry.
type Song struct {
	Name   string    `yaml:"name" json:"name"`
	Clip   string    `yaml:"clip,omitempty" json:"clip,omitempty"`
	Length float64   `yaml:"length" json:"length"`
	Volume float64   `yaml:"volume" json:"volume"`
	Pitch  float64   `yaml:"pitch,omitempty" json:"pitch,omitempty"`
	Loop   bool      `yaml:"loop,omitempty" json:"loop,omitempty"`
	Start  StartTime `yaml:"start,omitempty" json:"start,omitempty"`
}

func (s *Song) rate() float64 {
	if s.Pitch <= 0 {
		return 1
	}
	return s.Pitch
}

// Playlist is an ordered list of songs plus its transition policy.
type Playlist struct {
	Name          string         `yaml:"name" json:"name"`
	Songs         []Song         `yaml:"songs" json:"songs"`
	CrossfadeTime float64        `yaml:"crossfade_time,omitempty" json:"crossfade_time,omitempty"`
	Transition    TransitionMode `yaml:"transition,omitempty" json:"transition,omitempty"`
	LoopPlaylist  bool           `yaml:"loop_playlist,omitempty" json:"loop_playlist,omitempty"`
	Shuffle       bool           `yaml:"shuffle,omitempty" json:"shuffle,omitempty"`
}

// SongIndex returns the index of the named song, or -1.
func (p *Playlist) SongIndex(name string) int {
	for i := range p.Songs {
		if p.Songs[i].Name == name {
			return i
		}
	}
	return -1
}

// Validate reports every configuration problem of the playlist.
func (p *Playlist) Validate() error {
	var errs []string
	if p.Name == "" {
		errs = append(errs, "name is required")
	}
	if len(p.Songs) == 0 {
		errs = append(errs, "at least one song is required")
	}
	switch p.Transition {
	case "", FromBeginning, Synchronized, LastKnownPosition:
	default:
		errs = append(errs, fmt.Sprintf("unknown transition %q", p.Transition))
	}
	if p.CrossfadeTime < 0 {
		errs = append(errs, "crossfade_time must not be negative")
	}
	seen := make(map[string]bool, len(p.Songs))
	for i, s := range p.Songs {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Sprintf("songs[%d]: name is required", i))
		case seen[s.Name]:
			errs = append(errs, fmt.Sprintf("duplicate song %q", s.Name))
		}
		seen[s.Name] = true
		if s.Length <= 0 {
			errs = append(errs, fmt.Sprintf("song %q: length must be positive", s.Name))
		}
		if s.Volume < 0 || s.Volume > 1 {
			errs = append(errs, fmt.Sprintf("song %q: volume %v outside [0,1]", s.Name, s.Volume))
		}
		switch s.Start.Mode {
		case "", StartNone:
		case StartFixed:
			if s.Start.Seconds < 0 || s.Start.Seconds >= s.Length {
				errs = append(errs, fmt.Sprintf("song %q: fixed start %vs outside clip", s.Name, s.Start.Seconds))
			}
		case StartRandom:
			if s.Start.Min < 0 || s.Start.Max < s.Start.Min || s.Start.Max >= s.Length {
				errs = append(errs, fmt.Sprintf("song %q: random start range [%v,%v] invalid", s.Name, s.Start.Min, s.Start.Max))
			}
		default:
			errs = append(errs, fmt.Sprintf("song %q: unknown start mode %q", s.Name, s.Start.Mode))
		}
	}
	if p.Transition == Synchronized && len(p.Songs) > 0 {
		first := p.Songs[0]
		for _, s := range p.Songs {
			if !s.Loop {
				errs = append(errs, fmt.Sprintf("synchronized playlist requires every song to loop; %q does not", s.Name))
			}
			if math.Abs(s.Length-first.Length) > 1e-6 {
				errs = append(errs, fmt.Sprintf("synchronized playlist requires songs of equal length; %q is %gs but %q is %gs",
					s.Name, s.Length, first.Name, first.Length))
			}
		}
	}
	if len(errs) > 0 {
		name := p.Name
		if name == "" {
			name = "<unnamed>"
		}
		return fmt.Errorf("playlist %s: %s", name, strings.Join(errs, "; "))
	}
	return nil
}

// startPosition picks the fresh start position of s.
func startPosition(s *Song, rng *rand.Rand) float64 {
	switch s.Start.Mode {
	case StartFixed:
		return s.Start.Seconds
	case StartRandom:
		if s.Start.Max <= s.Start.Min {
			return s.Start.Min
		}
		return s.Start.Min + rng.Float64()*(s.Start.Max-s.Start.Min)
	}
	return 0
}
