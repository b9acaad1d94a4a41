// Package customevent is the named publish/subscribe channel that lets one
// trigger's actions fire other triggers.
package customevent

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/gyaneshwarpardhi/soundrig/internal/event"
	"github.com/gyaneshwarpardhi/soundrig/internal/filter"
)

var (
	// ErrUnknownEvent is returned when publishing an undeclared name.
	ErrUnknownEvent = errors.New("custom event not declared")
	// ErrRecursionLimit is returned when re-entrant publishes nest too deeply.
	ErrRecursionLimit = errors.New("custom event recursion limit exceeded")
)

// Selection picks which eligible receivers run.
type Selection string

const (
	All     Selection = "all"
	Closest Selection = "closest"
	Random  Selection = "random"
)

// Definition declares a custom event and how receivers are chosen.
type Definition struct {
	Name            string `yaml:"name" json:"name"`
	filter.Distance `yaml:",inline"`
	Selection       Selection `yaml:"selection,omitempty" json:"selection,omitempty"`
	Quantity        int       `yaml:"quantity,omitempty" json:"quantity,omitempty"`
	LogDuplicates   bool      `yaml:"log_duplicates,omitempty" json:"log_duplicates,omitempty"`
}

// Validate checks the declaration.
func (d Definition) Validate() error {
	if d.Name == "" {
		return errors.New("custom event: name is required")
	}
	if err := d.Distance.Validate(); err != nil {
		return fmt.Errorf("custom event %s: %w", d.Name, err)
	}
	switch d.Selection {
	case "", All:
	case Closest, Random:
		if d.Quantity <= 0 {
			return fmt.Errorf("custom event %s: quantity must be positive for %s selection", d.Name, d.Selection)
		}
	default:
		return fmt.Errorf("custom event %s: unknown selection %q", d.Name, d.Selection)
	}
	return nil
}

// Locator reports a receiver's current position and whether it is active.
type Locator func(receiverID string) (event.Vec3, bool)

// Handler runs the receiver's pipeline.
type Handler func(receiverID string, distance float64)

// Report describes the outcome of one Publish.
type Report struct {
	Event     string   `json:"event"`
	Delivered []string `json:"delivered"`
	Duplicate bool     `json:"duplicate"`
}

// Subscription binds a receiver to a custom event.
type Subscription struct {
	Event    string
	Receiver string
}

// Bus routes published names to subscribed receivers.
// It is not safe for concurrent use; the runtime drives it from the tick.
type Bus struct {
	defs     map[string]Definition
	subs     map[string][]string
	locate   Locator
	rng      *rand.Rand
	maxDepth int

	depth   int
	frame   uint64
	fired   map[string]bool
	noticed map[string]bool
}

// NewBus returns a bus with no declared events. Call Configure to install
// declarations and subscriptions.
func NewBus(locate Locator, rng *rand.Rand, maxDepth int) *Bus {
	return &Bus{
		defs:     make(map[string]Definition),
		subs:     make(map[string][]string),
		locate:   locate,
		rng:      rng,
		maxDepth: maxDepth,
		fired:    make(map[string]bool),
		noticed:  make(map[string]bool),
	}
}

// Configure replaces every declaration and subscription at once. Subscription
// order is the tie-break for Closest selection. On error the bus is unchanged.
func (b *Bus) Configure(defs []Definition, subs []Subscription) error {
	nextDefs := make(map[string]Definition, len(defs))
	for _, d := range defs {
		nextDefs[d.Name] = d
	}
	nextSubs := make(map[string][]string)
	for _, s := range subs {
		if _, ok := nextDefs[s.Event]; !ok {
			return fmt.Errorf("subscribe %s to %q: %w", s.Receiver, s.Event, ErrUnknownEvent)
		}
		nextSubs[s.Event] = append(nextSubs[s.Event], s.Receiver)
	}
	b.defs = nextDefs
	b.subs = nextSubs
	return nil
}

// Publish fires name from origin during frame. Only the first publish of a
// name in a frame has effect; later ones are reported as duplicates.
func (b *Bus) Publish(name string, origin event.Vec3, frame uint64, run Handler) (Report, error) {
	rep := Report{Event: name}
	def, ok := b.defs[name]
	if !ok {
		return rep, fmt.Errorf("publish %q: %w", name, ErrUnknownEvent)
	}
	if frame != b.frame {
		b.frame = frame
		b.fired = make(map[string]bool)
		b.noticed = make(map[string]bool)
	}
	if b.fired[name] {
		rep.Duplicate = true
		if def.LogDuplicates && !b.noticed[name] {
			b.noticed[name] = true
			slog.Info("custom event fired more than once this frame; ignoring repeats", "event", name, "frame", frame)
		}
		return rep, nil
	}
	if b.maxDepth > 0 && b.depth >= b.maxDepth {
		return rep, fmt.Errorf("publish %q at depth %d: %w", name, b.depth, ErrRecursionLimit)
	}
	b.fired[name] = true

	selected := b.selectReceivers(def, origin)
	b.depth++
	defer func() { b.depth-- }()
	for _, c := range selected {
		run(c.id, c.distance)
		rep.Delivered = append(rep.Delivered, c.id)
	}
	return rep, nil
}

type candidate struct {
	id       string
	distance float64
}

func (b *Bus) selectReceivers(def Definition, origin event.Vec3) []candidate {
	var eligible []candidate
	for _, id := range b.subs[def.Name] {
		pos, active := b.locate(id)
		if !active {
			continue
		}
		d := pos.Distance(origin)
		if !def.Distance.Passes(d) {
			continue
		}
		eligible = append(eligible, candidate{id: id, distance: d})
	}
	n := def.Quantity
	if n <= 0 || n > len(eligible) {
		n = len(eligible)
	}
	switch def.Selection {
	case Closest:
		sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].distance < eligible[j].distance })
		return eligible[:n]
	case Random:
		for i := 0; i < n; i++ {
			j := i + b.rng.IntN(len(eligible)-i)
			eligible[i], eligible[j] = eligible[j], eligible[i]
		}
		return eligible[:n]
	}
	return eligible
}
