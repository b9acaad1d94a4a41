// Package retrigger throttles repeated firings of the same event group.
package retrigger

import (
	"fmt"

	"github.com/gyaneshwarpardhi/soundrig/internal/event"
)

// Mode is the retrigger policy kind.
type Mode string

const (
	Unlimited  Mode = "unlimited"
	FrameBased Mode = "frame_based"
	TimeBased  Mode = "time_based"
)

// Policy configures a Limiter.
type Policy struct {
	Mode       Mode    `yaml:"mode" json:"mode"`
	MinFrames  uint64  `yaml:"min_frames,omitempty" json:"min_frames,omitempty"`
	MinSeconds float64 `yaml:"min_seconds,omitempty" json:"min_seconds,omitempty"`
}

// Validate checks that the policy is usable.
func (p Policy) Validate() error {
	switch p.Mode {
	case "", Unlimited:
	case FrameBased:
		if p.MinFrames == 0 {
			return fmt.Errorf("retrigger frame_based: min_frames must be positive")
		}
	case TimeBased:
		if p.MinSeconds <= 0 {
			return fmt.Errorf("retrigger time_based: min_seconds must be positive")
		}
	default:
		return fmt.Errorf("retrigger: unknown mode %q", p.Mode)
	}
	return nil
}

// Limiter holds the last-fired state of one event group instance.
// It is not safe for concurrent use.
type Limiter struct {
	policy    Policy
	fired     bool
	lastFrame uint64
	lastTime  float64
}

// New returns a Limiter for p.
func New(p Policy) *Limiter {
	return &Limiter{policy: p}
}

// Policy returns the configured policy.
func (l *Limiter) Policy() Policy { return l.policy }

// eps absorbs float accumulation from per-tick deltas.
const eps = 1e-9

// Admit reports whether a firing at now may proceed. State is only
// updated when the firing is admitted.
func (l *Limiter) Admit(now event.Clock) bool {
	if l.fired {
		switch l.policy.Mode {
		case FrameBased:
			if now.Frame-l.lastFrame < l.policy.MinFrames {
				return false
			}
		case TimeBased:
			if now.Time-l.lastTime < l.policy.MinSeconds-eps {
				return false
			}
		}
	}
	l.fired = true
	l.lastFrame = now.Frame
	l.lastTime = now.Time
	return true
}

// Reset forgets the last firing.
func (l *Limiter) Reset() {
	l.fired = false
	l.lastFrame = 0
	l.lastTime = 0
}
