package trigger

import (
	"fmt"

	"github.com/gyaneshwarpardhi/soundrig/internal/action"
	"github.com/gyaneshwarpardhi/soundrig/internal/config"
	"github.com/gyaneshwarpardhi/soundrig/internal/customevent"
	"github.com/gyaneshwarpardhi/soundrig/internal/filter"
)

// Build constructs a Graph from a validated RigConfig.
// Filter guards are compiled here; nothing is parsed while firing.
func Build(cfg *config.RigConfig) (*Graph, error) {
	g := NewGraph()
	g.events = append([]customevent.Definition(nil), cfg.CustomEvents...)
	for _, td := range cfg.Triggers {
		if g.Trigger(td.ID) != nil {
			return nil, fmt.Errorf("trigger %s: duplicate id", td.ID)
		}
		f, err := filter.New(td.Filter, td.Distance)
		if err != nil {
			return nil, fmt.Errorf("trigger %s: %w", td.ID, err)
		}
		g.Add(&Trigger{
			ID:          td.ID,
			Kind:        td.Kind,
			CustomEvent: td.CustomEvent,
			Position:    td.Position,
			Disabled:    td.Disabled,
			Retrigger:   td.Retrigger,
			Filter:      f,
			Actions:     action.EnsureNonEmpty(td.Actions),
		})
	}
	return g, nil
}
