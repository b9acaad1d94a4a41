// Package trigger compiles the authored triggers into an immutable graph.
package trigger

import (
	"github.com/gyaneshwarpardhi/soundrig/internal/action"
	"github.com/gyaneshwarpardhi/soundrig/internal/config"
	"github.com/gyaneshwarpardhi/soundrig/internal/customevent"
	"github.com/gyaneshwarpardhi/soundrig/internal/event"
	"github.com/gyaneshwarpardhi/soundrig/internal/filter"
	"github.com/gyaneshwarpardhi/soundrig/internal/retrigger"
)

// Trigger is one compiled trigger and its event group.
type Trigger struct {
	ID          string
	Kind        config.TriggerKind
	CustomEvent string // set for custom_event receivers
	Position    event.Vec3
	Disabled    bool
	Retrigger   retrigger.Policy
	Filter      *filter.Filter
	Actions     action.List // never empty
}

// Graph holds compiled triggers indexed by id, kind and received custom event,
// plus the custom event declarations its receivers subscribe to.
// It is immutable once built; hot reload builds a new Graph and swaps it.
type Graph struct {
	events    []customevent.Definition
	triggers  map[string]*Trigger
	order     []*Trigger
	byKind    map[config.TriggerKind][]*Trigger
	receivers map[string][]*Trigger
}

// NewGraph allocates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		triggers:  make(map[string]*Trigger),
		byKind:    make(map[config.TriggerKind][]*Trigger),
		receivers: make(map[string][]*Trigger),
	}
}

// Add registers t. Receivers of a custom event keep declaration order.
func (g *Graph) Add(t *Trigger) {
	g.triggers[t.ID] = t
	g.order = append(g.order, t)
	g.byKind[t.Kind] = append(g.byKind[t.Kind], t)
	if t.Kind == config.KindCustomEvent {
		g.receivers[t.CustomEvent] = append(g.receivers[t.CustomEvent], t)
	}
}

// Trigger returns a trigger by id (nil if not found).
func (g *Graph) Trigger(id string) *Trigger {
	return g.triggers[id]
}

// Triggers returns every trigger in declaration order.
func (g *Graph) Triggers() []*Trigger {
	return g.order
}

// OfKind returns the triggers of one kind in declaration order.
func (g *Graph) OfKind(k config.TriggerKind) []*Trigger {
	return g.byKind[k]
}

// Events returns the declared custom events.
func (g *Graph) Events() []customevent.Definition {
	return g.events
}

// Subscriptions lists every receiver binding, grouped by event in
// first-receiver order and by declaration order within an event.
func (g *Graph) Subscriptions() []customevent.Subscription {
	var out []customevent.Subscription
	for _, name := range g.ReceivedEvents() {
		for _, t := range g.Receivers(name) {
			out = append(out, customevent.Subscription{Event: name, Receiver: t.ID})
		}
	}
	return out
}

// Receivers returns the triggers subscribed to a custom event.
func (g *Graph) Receivers(name string) []*Trigger {
	return g.receivers[name]
}

// ReceivedEvents returns every custom event name with at least one receiver.
func (g *Graph) ReceivedEvents() []string {
	var out []string
	for _, t := range g.order {
		if t.Kind == config.KindCustomEvent && g.receivers[t.CustomEvent][0] == t {
			out = append(out, t.CustomEvent)
		}
	}
	return out
}

// Len returns the number of triggers.
func (g *Graph) Len() int {
	return len(g.order)
}
