// Package filter decides whether a trigger instance participates in a firing.
package filter

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/soundrig/internal/event"
)

// DistanceMode is the receive mode of a custom-event receiver.
type DistanceMode string

const (
	Always           DistanceMode = "always"
	Never            DistanceMode = "never"
	WhenDistanceLess DistanceMode = "when_distance_less_than"
	WhenDistanceMore DistanceMode = "when_distance_more_than"
)

// Distance is a threshold test on the distance between a firing origin and a receiver.
type Distance struct {
	Mode      DistanceMode `yaml:"receive_mode,omitempty" json:"receive_mode,omitempty"`
	Threshold float64      `yaml:"distance_threshold,omitempty" json:"distance_threshold,omitempty"`
}

// Validate checks the receive mode.
func (d Distance) Validate() error {
	switch d.Mode {
	case "", Always, Never:
	case WhenDistanceLess, WhenDistanceMore:
		if d.Threshold < 0 {
			return fmt.Errorf("distance_threshold must not be negative, got %v", d.Threshold)
		}
	default:
		return fmt.Errorf("unknown receive_mode %q", d.Mode)
	}
	return nil
}

// Passes reports whether a receiver at distance d is eligible.
func (d Distance) Passes(dist float64) bool {
	switch d.Mode {
	case Never:
		return false
	case WhenDistanceLess:
		return dist < d.Threshold
	case WhenDistanceMore:
		return dist > d.Threshold
	default:
		return true
	}
}

// Config is the authored filter of an event group.
type Config struct {
	Layers []string `yaml:"layers,omitempty" json:"layers,omitempty"`
	Tags   []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	// When is an optional guard expression over the firing context,
	// e.g. `distance < 10 AND tags contains "Boss"`.
	When string `yaml:"when,omitempty" json:"when,omitempty"`
}

// Filter is a compiled Config. A Filter with nothing configured always matches.
type Filter struct {
	layers   map[string]struct{}
	tags     map[string]struct{}
	distance Distance
	when     Expr
}

// New compiles cfg. The guard expression is parsed once here.
func New(cfg Config, d Distance) (*Filter, error) {
	f := &Filter{
		layers:   toSet(cfg.Layers),
		tags:     toSet(cfg.Tags),
		distance: d,
	}
	if strings.TrimSpace(cfg.When) != "" {
		ast, err := Parse(cfg.When)
		if err != nil {
			return nil, fmt.Errorf("parse when %q: %w", cfg.When, err)
		}
		f.when = ast
	}
	return f, nil
}

// Matches combines the layer, tag, distance and guard tests with AND.
// The distance test only applies to custom-event firings.
func (f *Filter) Matches(ctx event.FireContext) bool {
	if f == nil {
		return true
	}
	if len(f.layers) > 0 {
		if _, ok := f.layers[ctx.Layer]; !ok {
			return false
		}
	}
	if len(f.tags) > 0 && !anyIn(ctx.Tags, f.tags) {
		return false
	}
	if ctx.CustomEvent != "" && !f.distance.Passes(ctx.Distance) {
		return false
	}
	if f.when != nil {
		ok, err := Evaluate(f.when, contextResolver{ctx})
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]struct{} {
	if len(items) == 0 {
		return nil
	}
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func anyIn(items []string, set map[string]struct{}) bool {
	for _, it := range items {
		if _, ok := set[it]; ok {
			return true
		}
	}
	return false
}

// contextResolver exposes a FireContext to guard expressions.
type contextResolver struct {
	ctx event.FireContext
}

func (r contextResolver) Resolve(path []string) (interface{}, bool) {
	if len(path) == 0 {
		return nil, false
	}
	switch path[0] {
	case "layer":
		return r.ctx.Layer, true
	case "tags":
		return r.ctx.Tags, true
	case "distance":
		return r.ctx.Distance, true
	case "custom_event":
		return r.ctx.CustomEvent, true
	case "frame":
		return float64(r.ctx.Now.Frame), true
	case "time":
		return r.ctx.Now.Time, true
	case "origin":
		if len(path) != 2 {
			return nil, false
		}
		switch path[1] {
		case "x":
			return r.ctx.Origin.X, true
		case "y":
			return r.ctx.Origin.Y, true
		case "z":
			return r.ctx.Origin.Z, true
		}
	}
	return nil, false
}
