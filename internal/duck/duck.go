// Package duck attenuates music while ducking sound groups play.
package duck

import (
	"fmt"
	"sync"

	"github.com/gyaneshwarpardhi/soundrig/internal/mixer"
)

// Entry describes how a sound group ducks music.
type Entry struct {
	Group string `yaml:"group" json:"group"`
	// CutDb is the attenuation applied while holding, as a positive number of dB.
	CutDb float64 `yaml:"cut_db" json:"cut_db"`
	// RiseStart is the fraction of the ducking sound's duration after which release begins.
	RiseStart float64 `yaml:"rise_start" json:"rise_start"`
	// UnduckTime is how long the release takes, in seconds.
	UnduckTime float64 `yaml:"unduck_time" json:"unduck_time"`
}

// Validate checks ranges.
func (e Entry) Validate() error {
	switch {
	case e.Group == "":
		return fmt.Errorf("ducking: group is required")
	case e.CutDb < 0:
		return fmt.Errorf("ducking %s: cut_db must not be negative", e.Group)
	case e.RiseStart < 0 || e.RiseStart > 1:
		return fmt.Errorf("ducking %s: rise_start %v outside [0,1]", e.Group, e.RiseStart)
	case e.UnduckTime < 0:
		return fmt.Errorf("ducking %s: unduck_time must not be negative", e.Group)
	}
	return nil
}

// eps absorbs float accumulation from per-tick deltas.
const eps = 1e-9

// source is one ducking voice still in its hold phase.
type source struct {
	id      string
	entry   Entry
	holdFor float64
	elapsed float64
}

// release is the shared linear fade back to 0 dB.
type release struct {
	from     float64
	duration float64
	elapsed  float64
}

func (r *release) cut() float64 {
	if r.duration <= 0 || r.elapsed >= r.duration-eps {
		return 0
	}
	return r.from * (1 - r.elapsed/r.duration)
}

// Controller tracks ducking sources. While any source holds, the applied cut
// is the peak cut of every active source. Release starts from that peak only
// once the last holding source lets go, and runs over that source's
// unduck_time. Safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	entries map[string]Entry
	holding []*source
	// floor keeps the cut of sources that stopped holding before the last
	// one, and what was left of an interrupted release.
	floor   float64
	release *release
}

// New returns a controller for the given entries, keyed by group.
func New(entries []Entry) *Controller {
	c := &Controller{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		c.entries[e.Group] = e
	}
	return c
}

// Ducks reports whether playing group ducks music.
func (c *Controller) Ducks(group string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[group]
	return ok
}

// Start registers a ducking source for a voice of group lasting duration seconds.
// It returns false when group has no ducking entry. A release in progress is
// interrupted and its current level becomes the floor of the new hold.
func (c *Controller) Start(id, group string, duration float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[group]
	if !ok {
		return false
	}
	if c.release != nil {
		c.floor = max(c.floor, c.release.cut())
		c.release = nil
	}
	c.holding = append(c.holding, &source{
		id:      id,
		entry:   e,
		holdFor: e.RiseStart * duration,
	})
	return true
}

// Release ends the hold of source id immediately, e.g. when its voice stops
// early. The shared release begins if it was the last holding source.
func (c *Controller) Release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.holding {
		if s.id != id {
			continue
		}
		peak := c.peakLocked()
		c.holding = append(c.holding[:i], c.holding[i+1:]...)
		if len(c.holding) == 0 {
			c.beginRelease(peak, s.entry.UnduckTime, 0)
		} else {
			c.floor = max(c.floor, s.entry.CutDb)
		}
		return
	}
}

// Tick advances holds and the release by dt seconds.
func (c *Controller) Tick(dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.release != nil {
		c.release.elapsed += dt
		if c.release.cut() == 0 {
			c.release = nil
		}
		return
	}
	if len(c.holding) == 0 {
		return
	}
	peak := c.peakLocked()
	var last *source
	carry := 0.0
	kept := c.holding[:0]
	for _, s := range c.holding {
		s.elapsed += dt
		if s.elapsed < s.holdFor-eps {
			kept = append(kept, s)
			continue
		}
		c.floor = max(c.floor, s.entry.CutDb)
		// The latest-ending source has the smallest overshoot.
		over := max(s.elapsed-s.holdFor, 0)
		if last == nil || over < carry {
			last, carry = s, over
		}
	}
	for i := len(kept); i < len(c.holding); i++ {
		c.holding[i] = nil
	}
	c.holding = kept
	if len(c.holding) == 0 && last != nil {
		c.beginRelease(peak, last.entry.UnduckTime, carry)
	}
}

func (c *Controller) beginRelease(from, duration, carry float64) {
	c.floor = 0
	r := &release{from: from, duration: duration, elapsed: carry}
	if r.cut() > 0 {
		c.release = r
	}
}

func (c *Controller) peakLocked() float64 {
	peak := c.floor
	for _, s := range c.holding {
		peak = max(peak, s.entry.CutDb)
	}
	return peak
}

// CutDb returns the current attenuation in positive dB.
func (c *Controller) CutDb() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.holding) > 0 {
		return c.peakLocked()
	}
	if c.release != nil {
		return c.release.cut()
	}
	return 0
}

// Gain returns the linear gain to apply to playlist output.
func (c *Controller) Gain() float64 {
	return mixer.DbToGain(-c.CutDb())
}
