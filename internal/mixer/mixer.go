// Package mixer holds the bus hierarchy: per-bus volume, voice limits and
// the master level, plus mixer snapshot weights.
package mixer

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotFound is returned when a bus name or index does not resolve.
var ErrNotFound = errors.New("not found")

// ErrExistingBus is returned when a volume command targets a bus that is
// declared but not owned by this mixer.
var ErrExistingBus = errors.New("existing bus accepts no volume control")

// SilenceDb is the level treated as silence.
const SilenceDb = -80.0

// LimitMode decides what happens when a bus is at its voice limit.
type LimitMode string

const (
	RejectNew  LimitMode = "reject_new"
	StopOldest LimitMode = "stop_oldest"
	DoNothing  LimitMode = "do_nothing"
)

// Bus is a named aggregation point for sound-group volume and voices.
type Bus struct {
	Name       string    `json:"name"`
	VolumeDb   float64   `json:"volume_db"`
	VoiceLimit int       `json:"voice_limit"` // 0 = unlimited
	LimitMode  LimitMode `json:"limit_mode"`
	Existing   bool      `json:"existing"`
	Ducking    bool      `json:"ducking"`
	Occlusion  bool      `json:"occlusion"`
	Muted      bool      `json:"muted"`
	Paused     bool      `json:"paused"`
	Pitch      float64   `json:"pitch"`

	baseVolumeDb float64
}

// NewBus returns a bus with its authored volume remembered for restore.
func NewBus(name string, volumeDb float64, voiceLimit int, mode LimitMode) *Bus {
	if mode == "" {
		mode = DoNothing
	}
	return &Bus{
		Name:         name,
		VolumeDb:     volumeDb,
		VoiceLimit:   voiceLimit,
		LimitMode:    mode,
		Ducking:      true,
		Pitch:        1,
		baseVolumeDb: volumeDb,
	}
}

// BaseVolumeDb is the authored volume used by "restore after fade".
func (b *Bus) BaseVolumeDb() float64 { return b.baseVolumeDb }

// Routed is anything assigned to a bus by index.
type Routed interface {
	BusIndex() int
	SetBusIndex(int)
}

// Mixer owns the ordered bus list. Bus indices are always contiguous from 0.
// It is not safe for concurrent use.
type Mixer struct {
	buses    []*Bus
	MasterDb float64
	snaps    *Snapshots
}

// New returns a mixer with the given snapshot names declared.
func New(snapshots ...string) *Mixer {
	return &Mixer{snaps: newSnapshots(snapshots)}
}

// AddBus appends b and returns its index.
func (m *Mixer) AddBus(b *Bus) (int, error) {
	if b.Name == "" {
		return -1, errors.New("bus name is required")
	}
	if m.IndexOf(b.Name) >= 0 {
		return -1, fmt.Errorf("duplicate bus %q", b.Name)
	}
	m.buses = append(m.buses, b)
	return len(m.buses) - 1, nil
}

// Buses returns the ordered bus list.
func (m *Mixer) Buses() []*Bus { return m.buses }

// Bus returns the bus at index i.
func (m *Mixer) Bus(i int) (*Bus, error) {
	if i < 0 || i >= len(m.buses) {
		return nil, fmt.Errorf("bus index %d: %w", i, ErrNotFound)
	}
	return m.buses[i], nil
}

// IndexOf returns the index of the named bus, or -1.
func (m *Mixer) IndexOf(name string) int {
	for i, b := range m.buses {
		if b.Name == name {
			return i
		}
	}
	return -1
}

// ByName resolves a bus and its index.
func (m *Mixer) ByName(name string) (*Bus, int, error) {
	i := m.IndexOf(name)
	if i < 0 {
		return nil, -1, fmt.Errorf("bus %q: %w", name, ErrNotFound)
	}
	return m.buses[i], i, nil
}

// DeleteBus removes bus k. Members routed to k become unassigned (-1) and
// members routed to a higher index move down by one.
func (m *Mixer) DeleteBus(k int, members []Routed) error {
	if k < 0 || k >= len(m.buses) {
		return fmt.Errorf("bus index %d: %w", k, ErrNotFound)
	}
	m.buses = append(m.buses[:k], m.buses[k+1:]...)
	for _, r := range members {
		switch idx := r.BusIndex(); {
		case idx == k:
			r.SetBusIndex(-1)
		case idx > k:
			r.SetBusIndex(idx - 1)
		}
	}
	return nil
}

// SetVolume sets a bus volume, refusing existing buses.
func (m *Mixer) SetVolume(b *Bus, db float64) error {
	if b.Existing {
		return fmt.Errorf("bus %s: %w", b.Name, ErrExistingBus)
	}
	b.VolumeDb = db
	return nil
}

// EffectiveDb sums master, bus (if any) and the given group/variation/voice levels.
// A muted bus is silent.
func (m *Mixer) EffectiveDb(busIndex int, levels ...float64) float64 {
	total := m.MasterDb
	if busIndex >= 0 && busIndex < len(m.buses) {
		b := m.buses[busIndex]
		if b.Muted {
			return math.Inf(-1)
		}
		total += b.VolumeDb + m.snaps.OffsetDb(b.Name)
	}
	for _, l := range levels {
		total += l
	}
	return total
}

// BusPitch returns the pitch multiplier of bus i (1 when unrouted).
func (m *Mixer) BusPitch(i int) float64 {
	if i < 0 || i >= len(m.buses) {
		return 1
	}
	return m.buses[i].Pitch
}

// BusPaused reports whether bus i is paused.
func (m *Mixer) BusPaused(i int) bool {
	return i >= 0 && i < len(m.buses) && m.buses[i].Paused
}

// DbToGain converts decibels to a linear gain. Levels at or below SilenceDb are 0.
func DbToGain(db float64) float64 {
	if db <= SilenceDb || math.IsInf(db, -1) {
		return 0
	}
	return math.Pow(10, db/20)
}

// GainToDb converts a linear gain to decibels, clamped at SilenceDb.
func GainToDb(g float64) float64 {
	if g <= 0 {
		return SilenceDb
	}
	db := 20 * math.Log10(g)
	if db < SilenceDb {
		return SilenceDb
	}
	return db
}

// Tick advances timed mixer state (snapshot transitions).
func (m *Mixer) Tick(dt float64) {
	m.snaps.Tick(dt)
}
